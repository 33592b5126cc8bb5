package reservation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/timerange"
	"spacebook/internal/domain/space"
)

func slotSpace(pricing space.Pricing) *space.Space {
	return &space.Space{
		ID:             "space-1",
		OwnerID:        "owner-1",
		Timezone:       "UTC",
		OperatingHours: space.OperatingHours{Open: "09:00", Close: "13:00"},
		Pricing:        pricing,
	}
}

func starts(slots []reservation.Slot) []int {
	out := make([]int, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Range.Start.Hour())
	}
	return out
}

func TestGenerateSlotsSkipsBookedAndPast(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	sp := slotSpace(space.Pricing{Type: space.PricingHourly, Currency: "INR", BasePrice: 100})
	existing := []*reservation.Reservation{
		{ID: "taken", Range: timerange.Range{Start: day.Add(11 * time.Hour), End: day.Add(12 * time.Hour)}, Status: reservation.StatusConfirmed},
		{ID: "gone", Range: timerange.Range{Start: day.Add(12 * time.Hour), End: day.Add(13 * time.Hour)}, Status: reservation.StatusCancelled},
	}

	slots, err := reservation.GenerateSlots(sp, day, existing, day.Add(9*time.Hour+30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []int{10, 12}, starts(slots))
	for _, s := range slots {
		assert.Equal(t, time.Hour, s.Range.Duration())
		assert.Empty(t, s.TimeBlockID)
	}
}

func TestGenerateSlotsUsesTimeBlocks(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	sp := slotSpace(space.Pricing{
		Type:      space.PricingPackage,
		Currency:  "INR",
		BasePrice: 100,
		TimeBlocks: []space.TimeBlock{
			{ID: "two", Hours: 2, Price: 150, Active: true},
			{ID: "sold-out", Hours: 1, Price: 80, Active: true, MaxBookings: 1, CurrentBookings: 1},
		},
	})

	slots, err := reservation.GenerateSlots(sp, day, nil, day)
	require.NoError(t, err)
	assert.Equal(t, []int{9, 11}, starts(slots))
	for _, s := range slots {
		assert.Equal(t, "two", s.TimeBlockID)
	}
}

func TestBusyIntervalsAreSorted(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	busy := reservation.BusyIntervals([]*reservation.Reservation{
		{ID: "late", Range: timerange.Range{Start: day.Add(15 * time.Hour), End: day.Add(16 * time.Hour)}, Status: reservation.StatusPendingPayment},
		{ID: "dropped", Range: timerange.Range{Start: day.Add(8 * time.Hour), End: day.Add(9 * time.Hour)}, Status: reservation.StatusRejected},
		{ID: "early", Range: timerange.Range{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)}, Status: reservation.StatusConfirmed},
	})
	require.Len(t, busy, 2)
	assert.Equal(t, reservation.ReservationID("early"), busy[0].ReservationID)
	assert.Equal(t, reservation.ReservationID("late"), busy[1].ReservationID)
}
