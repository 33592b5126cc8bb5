package timerange

import (
	"time"

	"spacebook/internal/pkg/errs"
)

var ErrInvalidRange = errs.Mark(errs.New("timerange: end must be after start"), errs.ErrInvalidInterval)

// Range represents a half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (Range, error) {
	r := Range{Start: start.UTC(), End: end.UTC()}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidRange
	}
	if !r.End.After(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Hours is the fractional length of the range in hours.
func (r Range) Hours() float64 {
	return r.Duration().Hours()
}

// Overlaps implements existing.Start < other.End && existing.End > other.Start.
func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

func (r Range) Adjacent(other Range) bool {
	return r.End.Equal(other.Start) || r.Start.Equal(other.End)
}

// Merge joins overlapping or adjacent ranges.
func (r Range) Merge(other Range) (Range, bool) {
	if !(r.Overlaps(other) || r.Adjacent(other)) {
		return Range{}, false
	}
	start := r.Start
	if other.Start.Before(start) {
		start = other.Start
	}
	end := r.End
	if other.End.After(end) {
		end = other.End
	}
	return Range{Start: start, End: end}, true
}
