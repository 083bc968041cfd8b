package check

import (
	"github.com/j340m3/compiler/pkg/syntax"
)

// LetState tracks one let-construct through checking. States only move
// forward.
type LetState int

const (
	LetGrouping LetState = iota
	LetSolving
	LetBodyChecking
	LetDone
	LetFailed
)

func (s LetState) String() string {
	switch s {
	case LetGrouping:
		return "Grouping"
	case LetSolving:
		return "Solving"
	case LetBodyChecking:
		return "BodyChecking"
	case LetDone:
		return "Done"
	case LetFailed:
		return "Failed"
	}
	return "LetState(?)"
}

func (s LetState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// GroupState tracks one binding group. Generalized and Failed are terminal.
type GroupState int

const (
	GroupCollecting GroupState = iota
	GroupSolving
	GroupGeneralized
	GroupFailed
)

func (s GroupState) String() string {
	switch s {
	case GroupCollecting:
		return "Collecting"
	case GroupSolving:
		return "Solving"
	case GroupGeneralized:
		return "Generalized"
	case GroupFailed:
		return "Failed"
	}
	return "GroupState(?)"
}

func (s GroupState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// LetReport records how one let-construct was checked.
type LetReport struct {
	Loc    *syntax.SourceLocation `json:"location" yaml:"location"`
	State  LetState               `json:"state" yaml:"state"`
	Groups []*GroupReport         `json:"groups" yaml:"groups"`
}

// GroupReport records one binding group in the order it was solved.
type GroupReport struct {
	Members   []string   `json:"members" yaml:"members"`
	Recursive bool       `json:"recursive" yaml:"recursive"`
	State     GroupState `json:"state" yaml:"state"`
}

func (r *LetReport) advance(to LetState) {
	if to > r.State {
		r.State = to
	}
}

func (r *GroupReport) advance(to GroupState) {
	if to > r.State {
		r.State = to
	}
}
