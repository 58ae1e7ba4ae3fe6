package sexpr

import "github.com/aretw0/harness/pkg/domain"

// Position is a 1-based line and column in the source.
type Position struct {
	Line int
	Col  int
}

// Region spans from Start to End, both inclusive.
type Region struct {
	Start Position
	End   Position
}

// NewRegion returns a Region from its four coordinates.
func NewRegion(startLine, startCol, endLine, endCol int) Region {
	return Region{
		Start: Position{Line: startLine, Col: startCol},
		End:   Position{Line: endLine, Col: endCol},
	}
}

// Span returns a single-line Region.
func Span(line, startCol, endCol int) Region {
	return NewRegion(line, startCol, line, endCol)
}

// At returns a Region covering one character.
func At(line, col int) Region {
	return NewRegion(line, col, line, col)
}

// Value renders the region as [startLine, startCol, endLine, endCol].
func (r Region) Value() domain.Value {
	return domain.List(
		domain.Int(int64(r.Start.Line)),
		domain.Int(int64(r.Start.Col)),
		domain.Int(int64(r.End.Line)),
		domain.Int(int64(r.End.Col)),
	)
}
