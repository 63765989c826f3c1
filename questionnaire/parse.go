package questionnaire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnswerError reports an answer that does not fit its question's control.
type AnswerError struct {
	QuestionID QuestionID
	Reason     string
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("question %d: %s", e.QuestionID, e.Reason)
}

// ParseAnswers decodes a JSON object keyed by question id into Answers,
// checking each value against the question's control. Keys that are not
// questions of the catalog are rejected.
func ParseAnswers(c *Catalog, raw map[string]json.RawMessage) (Answers, error) {
	out := make(Answers, len(raw))
	for key, msg := range raw {
		n, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("answer key %q is not a question id", key)
		}
		id := QuestionID(n)
		q, ok := c.Question(id)
		if !ok {
			return nil, &AnswerError{QuestionID: id, Reason: "unknown question"}
		}
		a, err := parseOne(q, msg)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out[id] = a
		}
	}
	return out, nil
}

func parseOne(q Question, msg json.RawMessage) (Answer, error) {
	if isNull(msg) {
		return nil, nil
	}
	if q.Type == TypeCheckbox {
		var values []string
		if err := json.Unmarshal(msg, &values); err != nil {
			return nil, &AnswerError{QuestionID: q.ID, Reason: "expected a list of option values"}
		}
		set := MultiChoiceAnswer{}
		for _, v := range values {
			if !q.HasOption(v) {
				return nil, &AnswerError{QuestionID: q.ID, Reason: fmt.Sprintf("%q is not an option", v)}
			}
			set = set.with(v)
		}
		return set, nil
	}

	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil, &AnswerError{QuestionID: q.ID, Reason: "expected a string"}
	}
	switch q.Type {
	case TypeRadio, TypeSelect:
		if s != "" && !q.HasOption(s) {
			return nil, &AnswerError{QuestionID: q.ID, Reason: fmt.Sprintf("%q is not an option", s)}
		}
		return ChoiceAnswer(s), nil
	case TypeFile:
		if s == "" {
			return TextAnswer(""), nil
		}
		if !strings.HasPrefix(s, FilePrefix) {
			return nil, &AnswerError{QuestionID: q.ID, Reason: "file answers must be uploaded"}
		}
		return FileAnswer{Path: s}, nil
	}
	return TextAnswer(s), nil
}

func isNull(msg json.RawMessage) bool {
	t := strings.TrimSpace(string(msg))
	return t == "" || t == "null"
}
