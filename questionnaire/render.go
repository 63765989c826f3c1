package questionnaire

// Shape describes the value a control edits.
type Shape string

const (
	ShapeText          Shape = "text"
	ShapeOption        Shape = "option"
	ShapeOptionOrEmpty Shape = "option_or_empty"
	ShapeOptionSet     Shape = "option_set"
	ShapeFile          Shape = "file"
)

// Control is the input contract for a question type.
type Control struct {
	Input string `json:"input"`
	Shape Shape  `json:"shape"`
}

var controls = map[QuestionType]Control{
	TypeText:     {Input: "text", Shape: ShapeText},
	TypeTextarea: {Input: "textarea", Shape: ShapeText},
	TypeRadio:    {Input: "radio_group", Shape: ShapeOption},
	TypeSelect:   {Input: "dropdown", Shape: ShapeOptionOrEmpty},
	TypeCheckbox: {Input: "checkbox_group", Shape: ShapeOptionSet},
	TypeFile:     {Input: "file", Shape: ShapeFile},
}

func ControlFor(t QuestionType) (Control, bool) {
	c, ok := controls[t]
	return c, ok
}

// Visible reports whether question id should be shown for the current
// answers. A top-level question is always visible; a child is visible when
// its parent is visible and the parent's stored answer equals the child's
// condition value exactly.
func Visible(c *Catalog, answers Answers, id QuestionID) bool {
	seen := map[QuestionID]bool{}
	for {
		q, ok := c.Question(id)
		if !ok || !q.Active() || seen[id] {
			return false
		}
		seen[id] = true
		if q.ParentID == nil {
			return true
		}
		if answers.Value(*q.ParentID) != q.ConditionValue {
			return false
		}
		id = *q.ParentID
	}
}

type Field struct {
	Question Question `json:"question"`
	Control  Control  `json:"control"`
	Value    any      `json:"value"`
	Children []Field  `json:"children,omitempty"`
}

type RenderedSubsection struct {
	Name   string  `json:"name,omitempty"`
	Fields []Field `json:"fields"`
}

type RenderedSection struct {
	Name        string               `json:"name"`
	Subsections []RenderedSubsection `json:"subsections"`
}

type RenderedForm struct {
	Sections []RenderedSection `json:"sections"`
}

// Render lays out the visible fields of the catalog for the given answers.
// Children are rendered directly under their parent.
func Render(c *Catalog, answers Answers) RenderedForm {
	tree := BuildTree(c.Questions())
	out := RenderedForm{Sections: make([]RenderedSection, 0, len(tree.Sections))}
	for _, s := range tree.Sections {
		rs := RenderedSection{Name: s.Name, Subsections: make([]RenderedSubsection, 0, len(s.Subsections))}
		for _, ss := range s.Subsections {
			name := ss.Name
			if name == NoSubsection {
				name = ""
			}
			rss := RenderedSubsection{Name: name, Fields: make([]Field, 0, len(ss.Questions))}
			for _, q := range ss.Questions {
				rss.Fields = append(rss.Fields, renderField(c, answers, q, map[QuestionID]bool{}))
			}
			rs.Subsections = append(rs.Subsections, rss)
		}
		out.Sections = append(out.Sections, rs)
	}
	return out
}

func renderField(c *Catalog, answers Answers, q Question, path map[QuestionID]bool) Field {
	ctrl, _ := ControlFor(q.Type)
	f := Field{Question: q, Control: ctrl, Value: JSONValue(answers[q.ID])}

	path[q.ID] = true
	defer delete(path, q.ID)

	value := answers.Value(q.ID)
	for _, child := range c.Children(q.ID) {
		if !child.Active() || path[child.ID] || child.ConditionValue != value {
			continue
		}
		f.Children = append(f.Children, renderField(c, answers, child, path))
	}
	return f
}

// VisibleIDs lists every rendered question, depth first.
func (f RenderedForm) VisibleIDs() []QuestionID {
	var ids []QuestionID
	var walk func(fields []Field)
	walk = func(fields []Field) {
		for _, fd := range fields {
			ids = append(ids, fd.Question.ID)
			walk(fd.Children)
		}
	}
	for _, s := range f.Sections {
		for _, ss := range s.Subsections {
			walk(ss.Fields)
		}
	}
	return ids
}
