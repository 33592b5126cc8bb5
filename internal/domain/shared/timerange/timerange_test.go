package timerange_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacebook/internal/domain/shared/timerange"
	"spacebook/internal/pkg/errs"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func at(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

func TestNew(t *testing.T) {
	r, err := timerange.New(at(0), at(2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, r.Hours())

	_, err = timerange.New(at(2), at(2))
	assert.True(t, errs.Is(err, errs.ErrInvalidInterval))
	_, err = timerange.New(at(3), at(2))
	assert.True(t, errs.Is(err, errs.ErrInvalidInterval))
	_, err = timerange.New(time.Time{}, at(2))
	assert.True(t, errs.Is(err, errs.ErrInvalidInterval))

	ist := time.FixedZone("IST", 5*3600+1800)
	r, err = timerange.New(base.In(ist), at(1).In(ist))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, r.Start.Location())
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	r := timerange.Range{Start: at(1), End: at(3)}
	tests := []struct {
		name  string
		other timerange.Range
		want  bool
	}{
		{"inside", timerange.Range{Start: at(1), End: at(2)}, true},
		{"covering", timerange.Range{Start: at(0), End: at(4)}, true},
		{"straddling start", timerange.Range{Start: at(0), End: at(2)}, true},
		{"ending at start", timerange.Range{Start: at(0), End: at(1)}, false},
		{"starting at end", timerange.Range{Start: at(3), End: at(4)}, false},
		{"disjoint", timerange.Range{Start: at(5), End: at(6)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(r))
		})
	}
}

func TestContainsAndMerge(t *testing.T) {
	r := timerange.Range{Start: at(1), End: at(3)}
	assert.True(t, r.Contains(at(1)))
	assert.False(t, r.Contains(at(3)))

	merged, ok := r.Merge(timerange.Range{Start: at(3), End: at(5)})
	require.True(t, ok)
	assert.Equal(t, timerange.Range{Start: at(1), End: at(5)}, merged)

	_, ok = r.Merge(timerange.Range{Start: at(4), End: at(5)})
	assert.False(t, ok)
}
