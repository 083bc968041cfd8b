package syntax

import "fmt"

// SourceLocation represents a location in source code
type SourceLocation struct {
	Filename string `json:"filename" yaml:"filename"`
	Line     int    `json:"line" yaml:"line"`
	Column   int    `json:"column" yaml:"column"`
	Length   int    `json:"length" yaml:"length"` // Length of the syntax node, used for underlining
}

func (loc *SourceLocation) String() string {
	if loc == nil {
		return "<unknown>"
	}
	if loc.Filename == "" {
		return fmt.Sprintf("%d:%d", loc.Line, loc.Column)
	}
	return fmt.Sprintf("%s:%d:%d", loc.Filename, loc.Line, loc.Column)
}

// Before reports whether loc starts strictly before other. Locations in
// different files compare by filename.
func (loc *SourceLocation) Before(other *SourceLocation) bool {
	if loc == nil || other == nil {
		return loc != nil
	}
	if loc.Filename != other.Filename {
		return loc.Filename < other.Filename
	}
	if loc.Line != other.Line {
		return loc.Line < other.Line
	}
	return loc.Column < other.Column
}

type SourceLocatable interface {
	GetSourceLocation() *SourceLocation
}
