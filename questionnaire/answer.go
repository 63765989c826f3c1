package questionnaire

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
)

// FilePrefix marks a stored answer as a blob path rather than literal text.
const FilePrefix = "files/"

// Answer is one of TextAnswer, ChoiceAnswer, MultiChoiceAnswer, FileAnswer or
// PendingFile. Encode yields the text form that is stored and compared
// against condition values.
type Answer interface {
	Encode() string
	isAnswer()
}

type TextAnswer string

func (a TextAnswer) Encode() string { return string(a) }
func (TextAnswer) isAnswer()        {}

type ChoiceAnswer string

func (a ChoiceAnswer) Encode() string { return string(a) }
func (ChoiceAnswer) isAnswer()        {}

// MultiChoiceAnswer is the set of checked values of a checkbox question, kept
// in the order they were checked.
type MultiChoiceAnswer []string

func (a MultiChoiceAnswer) Encode() string {
	if a == nil {
		a = MultiChoiceAnswer{}
	}
	b, _ := json.Marshal([]string(a))
	return string(b)
}
func (MultiChoiceAnswer) isAnswer() {}

func (a MultiChoiceAnswer) Contains(v string) bool {
	for _, x := range a {
		if x == v {
			return true
		}
	}
	return false
}

func (a MultiChoiceAnswer) with(v string) MultiChoiceAnswer {
	if a.Contains(v) {
		return a
	}
	out := make(MultiChoiceAnswer, 0, len(a)+1)
	out = append(out, a...)
	return append(out, v)
}

func (a MultiChoiceAnswer) without(v string) MultiChoiceAnswer {
	out := make(MultiChoiceAnswer, 0, len(a))
	for _, x := range a {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// FileAnswer references an uploaded blob by its storage path.
type FileAnswer struct {
	Path string
}

func (a FileAnswer) Encode() string { return a.Path }
func (FileAnswer) isAnswer()        {}

// PendingFile is a file picked by the respondent that has not been uploaded
// yet. It has no stored form until the submitter replaces it with a
// FileAnswer.
type PendingFile struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func (PendingFile) Encode() string { return "" }
func (PendingFile) isAnswer()      {}

// Equal compares two answers by stored form; multi-choice answers compare as sets.
func Equal(x, y Answer) bool {
	mx, okx := x.(MultiChoiceAnswer)
	my, oky := y.(MultiChoiceAnswer)
	if okx && oky {
		if len(mx) != len(my) {
			return false
		}
		a := append([]string(nil), mx...)
		b := append([]string(nil), my...)
		sort.Strings(a)
		sort.Strings(b)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}
	return encodeOf(x) == encodeOf(y)
}

func encodeOf(a Answer) string {
	if a == nil {
		return ""
	}
	return a.Encode()
}

// JSONValue returns the wire shape of an answer: a string, a list of strings,
// or nil when unanswered.
func JSONValue(a Answer) any {
	switch v := a.(type) {
	case nil:
		return nil
	case MultiChoiceAnswer:
		if v == nil {
			return []string{}
		}
		return []string(v)
	case PendingFile:
		return v.Filename
	default:
		return v.Encode()
	}
}

// Answers maps question ids to the current answer.
type Answers map[QuestionID]Answer

// Value is the stored form of the answer to id, or "" when unanswered.
func (a Answers) Value(id QuestionID) string {
	return encodeOf(a[id])
}

// Toggle adds or removes a value from a checkbox answer.
func (a Answers) Toggle(id QuestionID, value string, checked bool) {
	current, _ := a[id].(MultiChoiceAnswer)
	if checked {
		a[id] = current.with(value)
		return
	}
	a[id] = current.without(value)
}

// Merge overlays other on a. Questions absent from other keep their answer.
func (a Answers) Merge(other Answers) {
	for id, v := range other {
		a[id] = v
	}
}

func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for id, v := range a {
		if m, ok := v.(MultiChoiceAnswer); ok {
			v = append(MultiChoiceAnswer(nil), m...)
		}
		out[id] = v
	}
	return out
}

// DecodeStored turns a stored answer string back into an Answer using only
// its shape: JSON arrays become multi-choice, file paths become FileAnswer,
// everything else (JSON objects included) stays text.
func DecodeStored(raw string) Answer {
	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(trimmed, "["):
		if values, ok := decodeList(trimmed); ok {
			return values
		}
	case strings.HasPrefix(raw, FilePrefix):
		return FileAnswer{Path: raw}
	}
	return TextAnswer(raw)
}

// DecodeFor decodes a stored answer for a known question type. Free text is
// returned verbatim whatever it looks like.
func DecodeFor(q Question, raw string) Answer {
	switch q.Type {
	case TypeCheckbox:
		if values, ok := decodeList(strings.TrimSpace(raw)); ok {
			return values
		}
		if raw == "" {
			return MultiChoiceAnswer{}
		}
		return MultiChoiceAnswer{raw}
	case TypeRadio, TypeSelect:
		return ChoiceAnswer(raw)
	case TypeFile:
		if strings.HasPrefix(raw, FilePrefix) {
			return FileAnswer{Path: raw}
		}
		return TextAnswer(raw)
	case TypeText, TypeTextarea:
		return TextAnswer(raw)
	}
	return DecodeStored(raw)
}

func decodeList(raw string) (MultiChoiceAnswer, bool) {
	var values []any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, false
	}
	out := make(MultiChoiceAnswer, 0, len(values))
	for _, v := range values {
		switch x := v.(type) {
		case string:
			out = append(out, x)
		case nil:
		default:
			b, _ := json.Marshal(x)
			out = append(out, string(b))
		}
	}
	return out, true
}
