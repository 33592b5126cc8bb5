package pricing

import (
	"fmt"
	"math"
	"time"

	"spacebook/internal/domain/shared/money"
	"spacebook/internal/domain/shared/timerange"
	"spacebook/internal/domain/space"
	"spacebook/internal/pkg/errs"
)

type LineKind string

const (
	LineBase         LineKind = "base"
	LinePeak         LineKind = "peak"
	LineBundle       LineKind = "bundle"
	LinePromo        LineKind = "promo"
	LineMinimumHours LineKind = "minimum_hours"
)

// LineItem is one signed entry of an itemized price. Lines of a quote always
// sum to its TotalPrice.
type LineItem struct {
	Kind        LineKind
	Description string
	Amount      money.Money
}

// Customer is the booking history the promo rules need.
type Customer struct {
	RegisteredAt      time.Time
	PriorReservations int
}

type Request struct {
	Start     time.Time
	End       time.Time
	PromoCode string
	BundleID  string
	Now       time.Time
	Customer  Customer
	// Location resolves peak-hour weekdays and wall clock; UTC when nil.
	Location *time.Location
}

type Quote struct {
	Currency           string
	OriginalPrice      money.Money
	Subtotal           money.Money
	DiscountAmount     money.Money
	TotalPrice         money.Money
	DurationHours      float64
	Breakdown          []LineItem
	Promo              ValidationResult
	Bundle             ValidationResult
	AppliedPromoCode   string
	AppliedBundleID    string
	AppliedTimeBlockID string
}

// IsFree reports whether nothing has to be paid.
func (q Quote) IsFree() bool {
	return q.TotalPrice.Amount <= 0
}

// Calculate resolves a pricing snapshot into an itemized quote. It has no side
// effects; identical inputs always produce identical quotes.
func Calculate(p space.Pricing, req Request) (Quote, error) {
	interval, err := timerange.New(req.Start, req.End)
	if err != nil {
		return Quote{}, err
	}
	hours := interval.Hours()
	if p.MaximumBookingHours > 0 && hours > p.MaximumBookingHours {
		return Quote{}, errs.Field("endTime", fmt.Sprintf("booking exceeds the maximum of %g hours", p.MaximumBookingHours))
	}
	currency := p.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	c := &calculation{
		pricing:  p,
		req:      req,
		currency: currency,
		quote: Quote{
			Currency:      currency,
			DurationHours: hours,
		},
	}

	c.base(hours)
	c.quote.OriginalPrice = c.running
	c.peak(interval.Start)

	switch {
	case req.BundleID != "":
		c.bundle()
		if req.PromoCode != "" {
			c.quote.Promo = ValidationResult{Requested: true, Reason: "promo codes cannot be combined with a bundle"}
		}
	case req.PromoCode != "":
		c.promo()
	}

	c.minimumHours(hours)

	c.quote.Subtotal = c.running
	total := c.running.Amount - c.discount.Amount
	if total < 0 {
		total = 0
	}
	c.quote.DiscountAmount = c.discount
	c.quote.TotalPrice = money.Money{Amount: total, Currency: currency}
	return c.quote, nil
}

type calculation struct {
	pricing  space.Pricing
	req      Request
	currency string
	running  money.Money
	discount money.Money
	quote    Quote
}

func (c *calculation) amount(v int64) money.Money {
	return money.Money{Amount: v, Currency: c.currency}
}

func (c *calculation) line(kind LineKind, description string, amount int64) {
	c.quote.Breakdown = append(c.quote.Breakdown, LineItem{Kind: kind, Description: description, Amount: c.amount(amount)})
}

func (c *calculation) base(hours float64) {
	p := c.pricing
	switch p.Type {
	case space.PricingFree:
		c.running = c.amount(0)
		c.line(LineBase, "Free booking", 0)
	case space.PricingDaily:
		days := int64(math.Ceil(hours / 24))
		c.running = c.amount(p.BasePrice * days)
		c.line(LineBase, fmt.Sprintf("Daily rate x %d day(s)", days), c.running.Amount)
	case space.PricingMonthly:
		months := int64(math.Ceil(hours / (24 * 30)))
		c.running = c.amount(p.MonthlyAmount() * months)
		c.line(LineBase, fmt.Sprintf("Monthly rate x %d month(s)", months), c.running.Amount)
	case space.PricingPackage:
		if block, ok := firstFittingBlock(p.TimeBlocks, hours); ok {
			c.running = c.amount(block.Price)
			c.quote.AppliedTimeBlockID = block.ID
			c.line(LineBase, fmt.Sprintf("%g-hour package", block.Hours), block.Price)
			return
		}
		c.hourly(hours)
	default:
		c.hourly(hours)
	}
}

func (c *calculation) hourly(hours float64) {
	c.running = c.amount(money.Round(float64(c.pricing.BasePrice) * hours))
	c.line(LineBase, fmt.Sprintf("Hourly rate x %g hour(s)", hours), c.running.Amount)
}

// firstFittingBlock returns the first active block long enough for the booking.
func firstFittingBlock(blocks []space.TimeBlock, hours float64) (space.TimeBlock, bool) {
	for _, block := range blocks {
		if block.Active && block.Hours >= hours {
			return block, true
		}
	}
	return space.TimeBlock{}, false
}

func (c *calculation) peak(start time.Time) {
	rule, ok := MatchPeak(c.pricing.PeakHours, start, c.req.Location)
	if !ok {
		return
	}
	before := c.running
	c.running = before.Scale(rule.Multiplier)
	c.line(LinePeak, fmt.Sprintf("Peak hours %s %s-%s x%g", rule.Day, rule.Start, rule.End, rule.Multiplier), c.running.Amount-before.Amount)
}

// MatchPeak finds the active rule covering the booking start. When several
// rules match, the highest multiplier wins and ties keep the earliest rule.
func MatchPeak(rules []space.PeakHour, start time.Time, loc *time.Location) (space.PeakHour, bool) {
	if len(rules) == 0 {
		return space.PeakHour{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	local := start.In(loc)
	day := space.WeekdayName(local.Weekday())
	clock := space.ClockOf(local)
	var (
		best  space.PeakHour
		found bool
	)
	for _, rule := range rules {
		if !rule.Active || rule.Day != day {
			continue
		}
		if clock < rule.Start || clock >= rule.End {
			continue
		}
		if !found || rule.Multiplier > best.Multiplier {
			best = rule
			found = true
		}
	}
	return best, found
}

func (c *calculation) bundle() {
	bundle, result := ValidateBundle(c.pricing, c.req.BundleID, c.req.Now)
	c.quote.Bundle = result
	if !result.Valid {
		return
	}
	before := c.running
	c.running = c.amount(bundle.Price)
	c.quote.AppliedBundleID = bundle.ID
	c.line(LineBundle, fmt.Sprintf("Bundle %q (%g hours) at %d", bundle.Name, bundle.Hours, bundle.Price), c.running.Amount-before.Amount)
}

func (c *calculation) promo() {
	promo, result := ValidatePromo(c.pricing, c.req.PromoCode, PromoContext{
		Now:           c.req.Now,
		BookingAmount: c.running.Amount,
		Customer:      c.req.Customer,
	})
	c.quote.Promo = result
	if !result.Valid {
		return
	}
	discount := PromoDiscount(promo, c.running.Amount, c.pricing.HourlyRate())
	c.discount = c.amount(discount)
	c.quote.AppliedPromoCode = promo.Code
	c.line(LinePromo, fmt.Sprintf("Promo %s", promo.Code), -discount)
}

// PromoDiscount computes the discount a valid promo grants on price.
func PromoDiscount(promo space.PromoCode, price int64, hourlyRate float64) int64 {
	var discount int64
	switch promo.Type {
	case space.PromoPercentage:
		discount = money.Round(float64(price) * promo.Value / 100)
		if promo.MaximumDiscountAmount > 0 && discount > promo.MaximumDiscountAmount {
			discount = promo.MaximumDiscountAmount
		}
	case space.PromoFixedAmount:
		discount = money.Round(promo.Value)
	case space.PromoFreeHours:
		discount = money.Round(promo.Value * hourlyRate)
	}
	if discount > price {
		discount = price
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

func (c *calculation) minimumHours(hours float64) {
	p := c.pricing
	if p.AllowPartialBookings || p.MinimumBookingHours <= 0 || hours >= p.MinimumBookingHours {
		return
	}
	missing := p.MinimumBookingHours - hours
	topUp := money.Round(missing * p.HourlyRate())
	c.running = c.amount(c.running.Amount + topUp)
	c.quote.DurationHours = p.MinimumBookingHours
	c.line(LineMinimumHours, fmt.Sprintf("Minimum booking of %g hours (%g hour(s) added)", p.MinimumBookingHours, missing), topUp)
}
