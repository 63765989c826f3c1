package questionnaire

import (
	"cmp"
	"slices"
)

// NoSubsection keys questions that carry no subsection so they never collide
// with a real subsection name.
const NoSubsection = "\x00none"

type Subsection struct {
	Name      string
	Questions []Question
}

type Section struct {
	Name        string
	Subsections []Subsection
}

// Tree groups the top-level questions of a form by section then subsection,
// both in order of first appearance.
type Tree struct {
	Sections []Section
}

// BuildTree groups the active, top-level questions in id order. Children are
// reached through their parent at render time and never appear here.
func BuildTree(questions []Question) Tree {
	questions = slices.Clone(questions)
	slices.SortStableFunc(questions, func(a, b Question) int { return cmp.Compare(a.ID, b.ID) })

	var t Tree
	sectionIdx := map[string]int{}
	subIdx := map[string]map[string]int{}

	for _, q := range questions {
		if !q.Active() || q.IsChild() {
			continue
		}
		si, ok := sectionIdx[q.Section]
		if !ok {
			si = len(t.Sections)
			sectionIdx[q.Section] = si
			subIdx[q.Section] = map[string]int{}
			t.Sections = append(t.Sections, Section{Name: q.Section})
		}
		subName := q.Subsection
		if subName == "" {
			subName = NoSubsection
		}
		sec := &t.Sections[si]
		ssi, ok := subIdx[q.Section][subName]
		if !ok {
			ssi = len(sec.Subsections)
			subIdx[q.Section][subName] = ssi
			sec.Subsections = append(sec.Subsections, Subsection{Name: subName})
		}
		sec.Subsections[ssi].Questions = append(sec.Subsections[ssi].Questions, q)
	}
	return t
}

// Lookup returns the questions filed under section and subsection. Pass
// NoSubsection for questions without one.
func (t Tree) Lookup(section, subsection string) []Question {
	for _, s := range t.Sections {
		if s.Name != section {
			continue
		}
		for _, ss := range s.Subsections {
			if ss.Name == subsection {
				return ss.Questions
			}
		}
	}
	return nil
}

// Len counts every question placed in the tree.
func (t Tree) Len() int {
	n := 0
	for _, s := range t.Sections {
		for _, ss := range s.Subsections {
			n += len(ss.Questions)
		}
	}
	return n
}
