package domain

import "time"

type PartKind string

const (
	PartKindRaw       PartKind = "RAW"
	PartKindAssembled PartKind = "ASSEMBLED"
)

// Constituent is one line of an assembled part's bill of materials: the
// constituent part and how many of it one unit of the parent consumes.
type Constituent struct {
	PartID   string
	Quantity int64
}

type Part struct {
	ID           string
	Name         string
	Kind         PartKind
	Quantity     int64
	Constituents []Constituent // meaningful only when Kind == PartKindAssembled
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Part) IsRaw() bool {
	return p.Kind == PartKindRaw
}

// Clone returns a deep copy, so callers can hand out parts without
// exposing shared constituent slices.
func (p *Part) Clone() *Part {
	cp := *p
	if p.Constituents != nil {
		cp.Constituents = make([]Constituent, len(p.Constituents))
		copy(cp.Constituents, p.Constituents)
	}
	return &cp
}
