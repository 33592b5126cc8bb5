package space

import (
	"fmt"
	"strings"
	"time"

	"spacebook/internal/domain/shared/money"
	"spacebook/internal/pkg/errs"
)

type PricingType string

const (
	PricingFree    PricingType = "free"
	PricingHourly  PricingType = "hourly"
	PricingDaily   PricingType = "daily"
	PricingMonthly PricingType = "monthly"
	PricingPackage PricingType = "package"
)

type PromoType string

const (
	PromoPercentage  PromoType = "percentage"
	PromoFixedAmount PromoType = "fixed_amount"
	PromoFreeHours   PromoType = "free_hours"
)

// PeakHour multiplies the price of bookings starting inside [Start, End) on Day.
type PeakHour struct {
	Day        string
	Start      string
	End        string
	Multiplier float64
	Active     bool
}

// TimeBlock is a fixed-price package for bookings up to Hours long.
type TimeBlock struct {
	ID              string
	Hours           float64
	Price           int64
	Active          bool
	MaxBookings     int
	CurrentBookings int
}

type PromoCode struct {
	Code                  string
	Type                  PromoType
	Value                 float64
	ValidFrom             time.Time
	ValidUntil            time.Time
	MaxUses               int
	UsedCount             int
	MinimumBookingAmount  int64
	MaximumDiscountAmount int64
	FirstTimeUserOnly     bool
	NewUserOnly           bool
	Active                bool
}

// Bundle is a prepaid allotment of Hours sold at a fixed Price.
type Bundle struct {
	ID               string
	Name             string
	Price            int64
	Hours            float64
	ValidFrom        time.Time
	ValidUntil       time.Time
	MaxPurchases     int
	CurrentPurchases int
	Active           bool
}

// Pricing is the complete pricing snapshot embedded in a Space. Amounts are
// minor currency units.
type Pricing struct {
	Type                 PricingType
	Currency             string
	BasePrice            int64
	MonthlyPrice         int64
	PeakHours            []PeakHour
	TimeBlocks           []TimeBlock
	PromoCodes           []PromoCode
	Bundles              []Bundle
	MinimumBookingHours  float64
	MaximumBookingHours  float64
	AllowPartialBookings bool
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// WeekdayName returns the lowercase English day name used by peak rules.
func WeekdayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}

func (p Pricing) normalized() Pricing {
	out := p.Clone()
	if out.Type == "" {
		out.Type = PricingHourly
	}
	if out.Currency == "" {
		out.Currency = money.DefaultCurrency
	}
	out.Currency = strings.ToUpper(out.Currency)
	for i := range out.PeakHours {
		peak := &out.PeakHours[i]
		peak.Day = strings.ToLower(strings.TrimSpace(peak.Day))
		peak.Start = canonicalClock(peak.Start)
		peak.End = canonicalClock(peak.End)
	}
	for i := range out.PromoCodes {
		out.PromoCodes[i].Code = strings.TrimSpace(out.PromoCodes[i].Code)
	}
	return out
}

// Validate checks the whole snapshot and reports every offending field.
func (p Pricing) Validate() error {
	fields := map[string]string{}
	switch p.Type {
	case PricingFree, PricingHourly, PricingDaily, PricingMonthly, PricingPackage:
	default:
		fields["type"] = "must be one of free, hourly, daily, monthly, package"
	}
	if len(p.Currency) != 3 {
		fields["currency"] = "must be a 3-letter code"
	}
	if p.BasePrice < 0 {
		fields["basePrice"] = "must be non-negative"
	}
	if p.MonthlyPrice < 0 {
		fields["monthlyPrice"] = "must be non-negative"
	}
	if p.MinimumBookingHours < 0 {
		fields["minimumBookingHours"] = "must be non-negative"
	}
	if p.MaximumBookingHours < 0 {
		fields["maximumBookingHours"] = "must be non-negative"
	}
	if p.MaximumBookingHours > 0 && p.MinimumBookingHours > p.MaximumBookingHours {
		fields["maximumBookingHours"] = "must be at least minimumBookingHours"
	}
	for i, peak := range p.PeakHours {
		key := fmt.Sprintf("peakHours[%d]", i)
		if _, ok := weekdays[peak.Day]; !ok {
			fields[key+".day"] = "unknown weekday"
		}
		start, errStart := parseClock(peak.Start)
		end, errEnd := parseClock(peak.End)
		if errStart != nil {
			fields[key+".startTime"] = "must be HH:MM"
		}
		if errEnd != nil {
			fields[key+".endTime"] = "must be HH:MM"
		}
		if errStart == nil && errEnd == nil && end <= start {
			fields[key+".endTime"] = "must be after startTime"
		}
		if peak.Multiplier < 1 {
			fields[key+".multiplier"] = "must be at least 1"
		}
	}
	blockIDs := map[string]bool{}
	for i, block := range p.TimeBlocks {
		key := fmt.Sprintf("timeBlocks[%d]", i)
		if block.ID == "" {
			fields[key+".id"] = "is required"
		} else if blockIDs[block.ID] {
			fields[key+".id"] = "must be unique"
		}
		blockIDs[block.ID] = true
		if block.Hours <= 0 {
			fields[key+".hours"] = "must be positive"
		}
		if block.Price < 0 {
			fields[key+".price"] = "must be non-negative"
		}
		if block.MaxBookings < 0 {
			fields[key+".maxBookings"] = "must be non-negative"
		}
	}
	codes := map[string]bool{}
	for i, promo := range p.PromoCodes {
		key := fmt.Sprintf("promoCodes[%d]", i)
		code := strings.ToUpper(promo.Code)
		if code == "" {
			fields[key+".code"] = "is required"
		} else if codes[code] {
			fields[key+".code"] = "must be unique within the space"
		}
		codes[code] = true
		switch promo.Type {
		case PromoPercentage:
			if promo.Value <= 0 || promo.Value > 100 {
				fields[key+".value"] = "percentage must be within (0, 100]"
			}
		case PromoFixedAmount, PromoFreeHours:
			if promo.Value <= 0 {
				fields[key+".value"] = "must be positive"
			}
		default:
			fields[key+".type"] = "must be one of percentage, fixed_amount, free_hours"
		}
		if !promo.ValidFrom.IsZero() && !promo.ValidUntil.IsZero() && promo.ValidUntil.Before(promo.ValidFrom) {
			fields[key+".validUntil"] = "must not precede validFrom"
		}
		if promo.MaxUses < 0 {
			fields[key+".maxUses"] = "must be non-negative"
		}
		if promo.MinimumBookingAmount < 0 || promo.MaximumDiscountAmount < 0 {
			fields[key+".amounts"] = "must be non-negative"
		}
	}
	bundleIDs := map[string]bool{}
	for i, bundle := range p.Bundles {
		key := fmt.Sprintf("bundles[%d]", i)
		if bundle.ID == "" {
			fields[key+".id"] = "is required"
		} else if bundleIDs[bundle.ID] {
			fields[key+".id"] = "must be unique"
		}
		bundleIDs[bundle.ID] = true
		if bundle.Price < 0 {
			fields[key+".price"] = "must be non-negative"
		}
		if bundle.Hours < 0 {
			fields[key+".value"] = "must be non-negative"
		}
		if bundle.MaxPurchases < 0 {
			fields[key+".maxPurchases"] = "must be non-negative"
		}
		if !bundle.ValidFrom.IsZero() && !bundle.ValidUntil.IsZero() && bundle.ValidUntil.Before(bundle.ValidFrom) {
			fields[key+".validUntil"] = "must not precede validFrom"
		}
	}
	return errs.Fields(fields)
}

func (p Pricing) Clone() Pricing {
	out := p
	out.PeakHours = append([]PeakHour(nil), p.PeakHours...)
	out.TimeBlocks = append([]TimeBlock(nil), p.TimeBlocks...)
	out.PromoCodes = append([]PromoCode(nil), p.PromoCodes...)
	out.Bundles = append([]Bundle(nil), p.Bundles...)
	return out
}

func (p *Pricing) carryCounters(prev Pricing) {
	for i := range p.PromoCodes {
		if old, ok := prev.Promo(p.PromoCodes[i].Code); ok && old.UsedCount > p.PromoCodes[i].UsedCount {
			p.PromoCodes[i].UsedCount = old.UsedCount
		}
	}
	for i := range p.Bundles {
		if old, ok := prev.Bundle(p.Bundles[i].ID); ok && old.CurrentPurchases > p.Bundles[i].CurrentPurchases {
			p.Bundles[i].CurrentPurchases = old.CurrentPurchases
		}
	}
	for i := range p.TimeBlocks {
		if old, ok := prev.TimeBlock(p.TimeBlocks[i].ID); ok && old.CurrentBookings > p.TimeBlocks[i].CurrentBookings {
			p.TimeBlocks[i].CurrentBookings = old.CurrentBookings
		}
	}
}

// Promo looks up a promo code case-insensitively.
func (p Pricing) Promo(code string) (PromoCode, bool) {
	code = strings.TrimSpace(code)
	for _, promo := range p.PromoCodes {
		if strings.EqualFold(promo.Code, code) {
			return promo, true
		}
	}
	return PromoCode{}, false
}

func (p Pricing) Bundle(id string) (Bundle, bool) {
	for _, b := range p.Bundles {
		if b.ID == id {
			return b, true
		}
	}
	return Bundle{}, false
}

func (p Pricing) TimeBlock(id string) (TimeBlock, bool) {
	for _, b := range p.TimeBlocks {
		if b.ID == id {
			return b, true
		}
	}
	return TimeBlock{}, false
}

// HourlyRate is the per-hour rate used for free-hour discounts and the
// minimum-hours top-up.
func (p Pricing) HourlyRate() float64 {
	switch p.Type {
	case PricingHourly, PricingPackage:
		return float64(p.BasePrice)
	case PricingDaily:
		return float64(p.BasePrice) / 24
	case PricingMonthly:
		return float64(p.MonthlyAmount()) / (24 * 30)
	default:
		return 0
	}
}

// MonthlyAmount is the monthly price, falling back to BasePrice when no
// override is configured.
func (p Pricing) MonthlyAmount() int64 {
	if p.MonthlyPrice > 0 {
		return p.MonthlyPrice
	}
	return p.BasePrice
}

// LimitReached reports whether a counter already hit its limit; 0 means unlimited.
func LimitReached(current, max int) bool {
	return max > 0 && current >= max
}

// parseClock parses "HH:MM" into an offset from midnight.
func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// canonicalClock rewrites "9:00" as "09:00" so windows compare as strings.
func canonicalClock(v string) string {
	d, err := parseClock(v)
	if err != nil {
		return strings.TrimSpace(v)
	}
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// ClockOf formats the local wall clock of t as "HH:MM".
func ClockOf(t time.Time) string {
	return t.Format("15:04")
}
