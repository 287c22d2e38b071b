package resolve

import (
	"errors"
	"time"

	"fspatch/internal/heuristic"
)

// Status values of an Outcome.
const (
	StatusResolved  = "resolved"
	StatusAmbiguous = "ambiguous"
	StatusNotFound  = "not-found"
)

// Outcome is the final state of one variant.
type Outcome struct {
	Name        string
	Description string
	Priority    int
	Tightness   int

	// Offset is valid only when Err is nil.
	Offset     int
	Candidates []int
	Err        error

	// Details is the decoded region around Offset. DetailsErr is set when
	// decoding failed, which does not make the offset unresolved.
	Details    string
	DetailsErr error
}

// Resolved reports whether exactly one candidate remained.
func (o Outcome) Resolved() bool { return o.Err == nil }

// Status is one of StatusResolved, StatusAmbiguous or StatusNotFound.
func (o Outcome) Status() string {
	switch {
	case o.Err == nil:
		return StatusResolved
	case errors.Is(o.Err, heuristic.ErrAmbiguousMatch):
		return StatusAmbiguous
	default:
		return StatusNotFound
	}
}

// Result collects every Outcome of one Resolve call in narrowing order.
type Result struct {
	ImageSize int
	Passes    int
	Duration  time.Duration
	Outcomes  []Outcome
}

// Lookup returns the outcome of the variant called name.
func (r *Result) Lookup(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Resolved reports whether every variant resolved.
func (r *Result) Resolved() bool {
	for _, o := range r.Outcomes {
		if !o.Resolved() {
			return false
		}
	}
	return true
}
