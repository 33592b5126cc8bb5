package pricing_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacebook/internal/domain/pricing"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/domain/space"
	"spacebook/internal/pkg/errs"
)

// 2024-01-01 is a Monday.
var monday10 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func hourly(rate int64) space.Pricing {
	return space.Pricing{Type: space.PricingHourly, Currency: "INR", BasePrice: rate}
}

func inr(v int64) money.Money {
	return money.Money{Amount: v, Currency: "INR"}
}

type line struct {
	Kind   pricing.LineKind
	Amount int64
}

func lines(q pricing.Quote) []line {
	out := make([]line, 0, len(q.Breakdown))
	for _, l := range q.Breakdown {
		out = append(out, line{Kind: l.Kind, Amount: l.Amount.Amount})
	}
	return out
}

func TestCalculateWorkedExamples(t *testing.T) {
	tests := []struct {
		name      string
		pricing   space.Pricing
		req       pricing.Request
		wantTotal int64
		wantLines []line
	}{
		{
			name:      "hourly base",
			pricing:   hourly(50000),
			req:       pricing.Request{Start: monday10, End: monday10.Add(3 * time.Hour), Now: monday10},
			wantTotal: 150000,
			wantLines: []line{{pricing.LineBase, 150000}},
		},
		{
			name:      "fractional hours round to the paisa",
			pricing:   hourly(333),
			req:       pricing.Request{Start: monday10, End: monday10.Add(90 * time.Minute), Now: monday10},
			wantTotal: 500,
			wantLines: []line{{pricing.LineBase, 500}},
		},
		{
			name: "peak multiplier on the booking start",
			pricing: func() space.Pricing {
				p := hourly(50000)
				p.PeakHours = []space.PeakHour{{Day: "monday", Start: "09:00", End: "12:00", Multiplier: 1.5, Active: true}}
				return p
			}(),
			req:       pricing.Request{Start: monday10, End: monday10.Add(3 * time.Hour), Now: monday10},
			wantTotal: 225000,
			wantLines: []line{{pricing.LineBase, 150000}, {pricing.LinePeak, 75000}},
		},
		{
			name: "highest matching peak wins",
			pricing: func() space.Pricing {
				p := hourly(10000)
				p.PeakHours = []space.PeakHour{
					{Day: "monday", Start: "08:00", End: "18:00", Multiplier: 1.2, Active: true},
					{Day: "monday", Start: "10:00", End: "11:00", Multiplier: 2, Active: true},
					{Day: "monday", Start: "10:00", End: "11:00", Multiplier: 3, Active: false},
				}
				return p
			}(),
			req:       pricing.Request{Start: monday10, End: monday10.Add(time.Hour), Now: monday10},
			wantTotal: 20000,
			wantLines: []line{{pricing.LineBase, 10000}, {pricing.LinePeak, 10000}},
		},
		{
			name: "percentage promo capped by maximum discount",
			pricing: func() space.Pricing {
				p := hourly(50000)
				p.PromoCodes = []space.PromoCode{{Code: "SAVE10", Type: space.PromoPercentage, Value: 10, MaximumDiscountAmount: 10000, Active: true}}
				return p
			}(),
			req:       pricing.Request{Start: monday10, End: monday10.Add(3 * time.Hour), PromoCode: "save10", Now: monday10},
			wantTotal: 140000,
			wantLines: []line{{pricing.LineBase, 150000}, {pricing.LinePromo, -10000}},
		},
		{
			name: "free hours promo uses the hourly rate",
			pricing: func() space.Pricing {
				p := hourly(50000)
				p.PromoCodes = []space.PromoCode{{Code: "HOUR", Type: space.PromoFreeHours, Value: 1, Active: true}}
				return p
			}(),
			req:       pricing.Request{Start: monday10, End: monday10.Add(3 * time.Hour), PromoCode: "HOUR", Now: monday10},
			wantTotal: 100000,
			wantLines: []line{{pricing.LineBase, 150000}, {pricing.LinePromo, -50000}},
		},
		{
			name: "fixed promo never drives the total below zero",
			pricing: func() space.Pricing {
				p := hourly(1000)
				p.PromoCodes = []space.PromoCode{{Code: "BIG", Type: space.PromoFixedAmount, Value: 999999, Active: true}}
				return p
			}(),
			req:       pricing.Request{Start: monday10, End: monday10.Add(time.Hour), PromoCode: "BIG", Now: monday10},
			wantTotal: 0,
			wantLines: []line{{pricing.LineBase, 1000}, {pricing.LinePromo, -1000}},
		},
		{
			name: "bundle replaces the running price",
			pricing: func() space.Pricing {
				p := hourly(50000)
				p.Bundles = []space.Bundle{{ID: "b1", Name: "Morning", Price: 100000, Hours: 3, Active: true}}
				return p
			}(),
			req:       pricing.Request{Start: monday10, End: monday10.Add(3 * time.Hour), BundleID: "b1", Now: monday10},
			wantTotal: 100000,
			wantLines: []line{{pricing.LineBase, 150000}, {pricing.LineBundle, -50000}},
		},
		{
			name: "minimum hours top up",
			pricing: func() space.Pricing {
				p := hourly(50000)
				p.MinimumBookingHours = 4
				return p
			}(),
			req:       pricing.Request{Start: monday10, End: monday10.Add(2 * time.Hour), Now: monday10},
			wantTotal: 200000,
			wantLines: []line{{pricing.LineBase, 100000}, {pricing.LineMinimumHours, 100000}},
		},
		{
			name: "partial bookings skip the top up",
			pricing: func() space.Pricing {
				p := hourly(50000)
				p.MinimumBookingHours = 4
				p.AllowPartialBookings = true
				return p
			}(),
			req:       pricing.Request{Start: monday10, End: monday10.Add(2 * time.Hour), Now: monday10},
			wantTotal: 100000,
			wantLines: []line{{pricing.LineBase, 100000}},
		},
		{
			name:      "daily rounds up to whole days",
			pricing:   space.Pricing{Type: space.PricingDaily, Currency: "INR", BasePrice: 200000},
			req:       pricing.Request{Start: monday10, End: monday10.Add(30 * time.Hour), Now: monday10},
			wantTotal: 400000,
			wantLines: []line{{pricing.LineBase, 400000}},
		},
		{
			name:      "monthly prefers the monthly price",
			pricing:   space.Pricing{Type: space.PricingMonthly, Currency: "INR", BasePrice: 1, MonthlyPrice: 3000000},
			req:       pricing.Request{Start: monday10, End: monday10.Add(24 * time.Hour), Now: monday10},
			wantTotal: 3000000,
			wantLines: []line{{pricing.LineBase, 3000000}},
		},
		{
			name: "package picks the first block long enough",
			pricing: space.Pricing{Type: space.PricingPackage, Currency: "INR", BasePrice: 40000, TimeBlocks: []space.TimeBlock{
				{ID: "two", Hours: 2, Price: 70000, Active: true},
				{ID: "four", Hours: 4, Price: 120000, Active: true},
			}},
			req:       pricing.Request{Start: monday10, End: monday10.Add(3 * time.Hour), Now: monday10},
			wantTotal: 120000,
			wantLines: []line{{pricing.LineBase, 120000}},
		},
		{
			name:      "free",
			pricing:   space.Pricing{Type: space.PricingFree, Currency: "INR"},
			req:       pricing.Request{Start: monday10, End: monday10.Add(5 * time.Hour), Now: monday10},
			wantTotal: 0,
			wantLines: []line{{pricing.LineBase, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := pricing.Calculate(tt.pricing, tt.req)
			require.NoError(t, err)
			assert.Equal(t, inr(tt.wantTotal), q.TotalPrice)
			if diff := cmp.Diff(tt.wantLines, lines(q)); diff != "" {
				t.Errorf("breakdown mismatch (-want +got):\n%s", diff)
			}
			var sum int64
			for _, l := range q.Breakdown {
				sum += l.Amount.Amount
			}
			if sum >= 0 {
				assert.Equal(t, q.TotalPrice.Amount, sum, "lines must add up to the total")
			}
		})
	}
}

func TestCalculateMinimumHoursTopUp(t *testing.T) {
	p := hourly(100)
	p.MinimumBookingHours = 2

	q, err := pricing.Calculate(p, pricing.Request{Start: monday10, End: monday10.Add(30 * time.Minute), Now: monday10})
	require.NoError(t, err)

	assert.Equal(t, inr(50), q.OriginalPrice, "original price covers the booked half hour only")
	assert.Equal(t, inr(200), q.TotalPrice)
	assert.Equal(t, 2.0, q.DurationHours)
	if diff := cmp.Diff([]line{{pricing.LineBase, 50}, {pricing.LineMinimumHours, 150}}, lines(q)); diff != "" {
		t.Errorf("breakdown mismatch (-want +got):\n%s", diff)
	}

	p.AllowPartialBookings = true
	q, err = pricing.Calculate(p, pricing.Request{Start: monday10, End: monday10.Add(30 * time.Minute), Now: monday10})
	require.NoError(t, err)
	assert.Equal(t, inr(50), q.TotalPrice)
	assert.Equal(t, 0.5, q.DurationHours)
}

func TestCalculateIsDeterministic(t *testing.T) {
	p := hourly(45000)
	p.PeakHours = []space.PeakHour{{Day: "monday", Start: "09:00", End: "12:00", Multiplier: 1.25, Active: true}}
	p.PromoCodes = []space.PromoCode{{Code: "X", Type: space.PromoPercentage, Value: 15, Active: true}}
	req := pricing.Request{Start: monday10, End: monday10.Add(150 * time.Minute), PromoCode: "X", Now: monday10}

	first, err := pricing.Calculate(p, req)
	require.NoError(t, err)
	second, err := pricing.Calculate(p, req)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("quotes differ (-first +second):\n%s", diff)
	}
}

func TestCalculateRejectsBadIntervals(t *testing.T) {
	p := hourly(1000)
	_, err := pricing.Calculate(p, pricing.Request{Start: monday10, End: monday10})
	assert.True(t, errs.Is(err, errs.ErrInvalidInterval))

	_, err = pricing.Calculate(p, pricing.Request{Start: monday10, End: monday10.Add(-time.Hour)})
	assert.True(t, errs.Is(err, errs.ErrInvalidInterval))

	p.MaximumBookingHours = 2
	_, err = pricing.Calculate(p, pricing.Request{Start: monday10, End: monday10.Add(3 * time.Hour)})
	assert.True(t, errs.Is(err, errs.ErrValidationFailed))
}

func TestCalculatePromoAndBundleTogether(t *testing.T) {
	p := hourly(50000)
	p.PromoCodes = []space.PromoCode{{Code: "SAVE", Type: space.PromoFixedAmount, Value: 1000, Active: true}}
	p.Bundles = []space.Bundle{{ID: "b1", Price: 90000, Hours: 2, Active: true}}

	q, err := pricing.Calculate(p, pricing.Request{Start: monday10, End: monday10.Add(2 * time.Hour), PromoCode: "SAVE", BundleID: "b1", Now: monday10})
	require.NoError(t, err)
	assert.Equal(t, "b1", q.AppliedBundleID)
	assert.Empty(t, q.AppliedPromoCode)
	assert.True(t, q.Promo.Requested)
	assert.False(t, q.Promo.Valid)
	assert.Equal(t, inr(90000), q.TotalPrice)
}

func TestValidatePromo(t *testing.T) {
	now := monday10
	base := space.PromoCode{Code: "OK", Type: space.PromoPercentage, Value: 10, Active: true}

	tests := []struct {
		name   string
		mutate func(*space.PromoCode)
		ctx    pricing.PromoContext
		valid  bool
	}{
		{name: "valid", mutate: func(*space.PromoCode) {}, ctx: pricing.PromoContext{Now: now, BookingAmount: 1000}, valid: true},
		{name: "inactive", mutate: func(p *space.PromoCode) { p.Active = false }, ctx: pricing.PromoContext{Now: now}},
		{name: "not yet valid", mutate: func(p *space.PromoCode) { p.ValidFrom = now.Add(time.Hour) }, ctx: pricing.PromoContext{Now: now}},
		{name: "expired", mutate: func(p *space.PromoCode) { p.ValidUntil = now.Add(-time.Hour) }, ctx: pricing.PromoContext{Now: now}},
		{name: "used up", mutate: func(p *space.PromoCode) { p.MaxUses = 3; p.UsedCount = 3 }, ctx: pricing.PromoContext{Now: now}},
		{name: "below minimum amount", mutate: func(p *space.PromoCode) { p.MinimumBookingAmount = 5000 }, ctx: pricing.PromoContext{Now: now, BookingAmount: 4999}},
		{
			name:   "first time customer only",
			mutate: func(p *space.PromoCode) { p.FirstTimeUserOnly = true },
			ctx:    pricing.PromoContext{Now: now, Customer: pricing.Customer{PriorReservations: 1}},
		},
		{
			name:   "new user inside the window",
			mutate: func(p *space.PromoCode) { p.NewUserOnly = true },
			ctx:    pricing.PromoContext{Now: now, Customer: pricing.Customer{RegisteredAt: now.Add(-29 * 24 * time.Hour)}},
			valid:  true,
		},
		{
			name:   "new user outside the window",
			mutate: func(p *space.PromoCode) { p.NewUserOnly = true },
			ctx:    pricing.PromoContext{Now: now, Customer: pricing.Customer{RegisteredAt: now.Add(-31 * 24 * time.Hour)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promo := base
			tt.mutate(&promo)
			p := hourly(1000)
			p.PromoCodes = []space.PromoCode{promo}
			_, result := pricing.ValidatePromo(p, "ok", tt.ctx)
			assert.True(t, result.Requested)
			assert.Equal(t, tt.valid, result.Valid, result.Reason)
			if !tt.valid {
				assert.NotEmpty(t, result.Reason)
			}
		})
	}

	_, result := pricing.ValidatePromo(hourly(1000), "missing", pricing.PromoContext{Now: now})
	assert.False(t, result.Valid)
}

func TestValidateBundle(t *testing.T) {
	p := hourly(1000)
	p.Bundles = []space.Bundle{
		{ID: "open", Price: 1, Active: true},
		{ID: "sold", Price: 1, Active: true, MaxPurchases: 2, CurrentPurchases: 2},
		{ID: "off", Price: 1},
	}
	_, res := pricing.ValidateBundle(p, "open", monday10)
	assert.True(t, res.Valid)
	_, res = pricing.ValidateBundle(p, "sold", monday10)
	assert.False(t, res.Valid)
	_, res = pricing.ValidateBundle(p, "off", monday10)
	assert.False(t, res.Valid)
	_, res = pricing.ValidateBundle(p, "nope", monday10)
	assert.False(t, res.Valid)
}
