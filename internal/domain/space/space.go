package space

import (
	"context"
	"strings"
	"time"

	"spacebook/internal/domain/shared/events"
	"spacebook/internal/pkg/errs"
)

var (
	ErrSpaceNotFound = errs.Mark(errs.New("space: not found"), errs.ErrNotFound)
	ErrNotOwner      = errs.Mark(errs.New("space: only the owner may change this space"), errs.ErrForbidden)
	ErrNameRequired  = errs.Field("name", "is required")
	ErrOwnerRequired = errs.Field("ownerId", "is required")
)

type SpaceID string
type OwnerID string

// OperatingHours bounds slot generation, as local "HH:MM" in the space timezone.
type OperatingHours struct {
	Open  string
	Close string
}

var DefaultOperatingHours = OperatingHours{Open: "09:00", Close: "21:00"}

type Space struct {
	ID             SpaceID
	OwnerID        OwnerID
	StaffIDs       []string
	Name           string
	Description    string
	Timezone       string
	OperatingHours OperatingHours
	Pricing        Pricing
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id SpaceID) (*Space, error)
	Save(ctx context.Context, space *Space) error
	// IncrementPromoUsage bumps usedCount unless maxUses would be exceeded.
	IncrementPromoUsage(ctx context.Context, id SpaceID, code string) (bool, error)
	// IncrementBundlePurchases bumps currentPurchases unless maxPurchases would be exceeded.
	IncrementBundlePurchases(ctx context.Context, id SpaceID, bundleID string) (bool, error)
	IncrementTimeBlockBookings(ctx context.Context, id SpaceID, blockID string) (bool, error)
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type CreateParams struct {
	ID             SpaceID
	OwnerID        OwnerID
	StaffIDs       []string
	Name           string
	Description    string
	Timezone       string
	OperatingHours OperatingHours
	Pricing        Pricing
	Now            time.Time
}

func NewSpace(params CreateParams) (*Space, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(string(params.OwnerID)) == "" {
		return nil, ErrOwnerRequired
	}
	hours := params.OperatingHours
	if hours.Open == "" && hours.Close == "" {
		hours = DefaultOperatingHours
	}
	if err := hours.validate(); err != nil {
		return nil, err
	}
	if _, err := loadLocation(params.Timezone); err != nil {
		return nil, errs.Field("timezone", "unknown timezone")
	}
	pricing := params.Pricing.normalized()
	if err := pricing.Validate(); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	s := &Space{
		ID:             params.ID,
		OwnerID:        params.OwnerID,
		StaffIDs:       append([]string(nil), params.StaffIDs...),
		Name:           strings.TrimSpace(params.Name),
		Description:    strings.TrimSpace(params.Description),
		Timezone:       params.Timezone,
		OperatingHours: hours,
		Pricing:        pricing,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.Record(SpaceCreatedEvent{SpaceID: s.ID, OwnerID: s.OwnerID, At: now})
	return s, nil
}

// ReplacePricing swaps the whole pricing snapshot so readers never observe a
// partially edited configuration. Usage counters of surviving promo codes,
// bundles and time blocks are carried over from the current snapshot.
func (s *Space) ReplacePricing(actorID string, next Pricing, now time.Time) error {
	if !s.IsOwner(actorID) {
		return ErrNotOwner
	}
	next = next.normalized()
	if err := next.Validate(); err != nil {
		return err
	}
	next.carryCounters(s.Pricing)
	s.Pricing = next
	s.UpdatedAt = now.UTC()
	s.Record(PricingReplacedEvent{SpaceID: s.ID, Type: next.Type, Version: s.Version + 1, At: s.UpdatedAt})
	return nil
}

func (s *Space) IsOwner(actorID string) bool {
	return actorID != "" && string(s.OwnerID) == actorID
}

// CanOperate reports whether the actor is the owner or listed staff.
func (s *Space) CanOperate(actorID string) bool {
	if s.IsOwner(actorID) {
		return true
	}
	for _, id := range s.StaffIDs {
		if id == actorID && actorID != "" {
			return true
		}
	}
	return false
}

// Location resolves the space timezone, UTC when unset.
func (s *Space) Location() *time.Location {
	loc, err := loadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func loadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func (h OperatingHours) validate() error {
	open, err := parseClock(h.Open)
	if err != nil {
		return errs.Field("operatingHours.open", "must be HH:MM")
	}
	closing, err := parseClock(h.Close)
	if err != nil {
		return errs.Field("operatingHours.close", "must be HH:MM")
	}
	if closing <= open {
		return errs.Field("operatingHours", "close must be after open")
	}
	return nil
}

// Bounds returns the operating window on the given local date.
func (h OperatingHours) Bounds(day time.Time, loc *time.Location) (time.Time, time.Time, error) {
	open, err := parseClock(h.Open)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	closing, err := parseClock(h.Close)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	y, m, d := day.In(loc).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return midnight.Add(open), midnight.Add(closing), nil
}
