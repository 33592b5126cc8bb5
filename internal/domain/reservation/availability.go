package reservation

import (
	"sort"
	"time"

	"spacebook/internal/domain/shared/timerange"
	"spacebook/internal/domain/space"
)

// Conflicts filters existing down to active reservations overlapping window.
func Conflicts(existing []*Reservation, window timerange.Range) []*Reservation {
	var out []*Reservation
	for _, r := range existing {
		if r == nil || !r.Status.IsActive() {
			continue
		}
		if r.Range.Overlaps(window) {
			out = append(out, r)
		}
	}
	return out
}

// Busy is one occupied interval as shown on an availability calendar.
type Busy struct {
	ReservationID ReservationID
	Range         timerange.Range
	Status        Status
}

func BusyIntervals(existing []*Reservation) []Busy {
	out := make([]Busy, 0, len(existing))
	for _, r := range existing {
		if r == nil || !r.Status.IsActive() {
			continue
		}
		out = append(out, Busy{ReservationID: r.ID, Range: r.Range, Status: r.Status})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Range.Start.Before(out[j].Range.Start)
	})
	return out
}

type Slot struct {
	Range       timerange.Range
	TimeBlockID string
}

// GenerateSlots enumerates bookable candidate slots of a space on the given
// date. Slot lengths come from the active time blocks, or from the minimum
// booking hours (one hour when unset). Slots in the past, slots colliding with
// existing reservations and slots of sold out time blocks are left out.
func GenerateSlots(sp *space.Space, date time.Time, existing []*Reservation, now time.Time) ([]Slot, error) {
	open, closing, err := sp.OperatingHours.Bounds(date, sp.Location())
	if err != nil {
		return nil, err
	}
	type template struct {
		length  time.Duration
		blockID string
	}
	var templates []template
	for _, block := range sp.Pricing.TimeBlocks {
		if !block.Active || space.LimitReached(block.CurrentBookings, block.MaxBookings) {
			continue
		}
		templates = append(templates, template{length: hoursToDuration(block.Hours), blockID: block.ID})
	}
	if len(templates) == 0 && !hasActiveBlocks(sp.Pricing.TimeBlocks) {
		hours := sp.Pricing.MinimumBookingHours
		if hours <= 0 {
			hours = 1
		}
		templates = append(templates, template{length: hoursToDuration(hours)})
	}

	var slots []Slot
	for _, tpl := range templates {
		if tpl.length <= 0 {
			continue
		}
		for start := open; !start.Add(tpl.length).After(closing); start = start.Add(tpl.length) {
			candidate := timerange.Range{Start: start.UTC(), End: start.Add(tpl.length).UTC()}
			if candidate.Start.Before(now) {
				continue
			}
			if len(Conflicts(existing, candidate)) > 0 {
				continue
			}
			slots = append(slots, Slot{Range: candidate, TimeBlockID: tpl.blockID})
		}
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].Range.Start.Equal(slots[j].Range.Start) {
			return slots[i].Range.Start.Before(slots[j].Range.Start)
		}
		return slots[i].Range.Duration() < slots[j].Range.Duration()
	})
	return slots, nil
}

func hasActiveBlocks(blocks []space.TimeBlock) bool {
	for _, b := range blocks {
		if b.Active {
			return true
		}
	}
	return false
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
