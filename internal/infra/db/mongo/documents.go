package mongo

import (
	"strings"
	"time"

	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/pricing"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/shared/money"
	"spacebook/internal/domain/shared/timerange"
	"spacebook/internal/domain/space"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/domain/webhook"
)

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func newRangeDocument(r timerange.Range) rangeDocument {
	return rangeDocument{Start: r.Start.UnixMilli(), End: r.End.UnixMilli()}
}

func (d rangeDocument) toRange() timerange.Range {
	return timerange.Range{Start: timestampToTime(d.Start), End: timestampToTime(d.End)}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

type spaceDocument struct {
	ID          string          `bson:"_id"`
	OwnerID     string          `bson:"owner_id"`
	StaffIDs    []string        `bson:"staff_ids"`
	Name        string          `bson:"name"`
	Description string          `bson:"description"`
	SearchText  string          `bson:"search_text"`
	Timezone    string          `bson:"timezone"`
	Open        string          `bson:"open"`
	Close       string          `bson:"close"`
	Pricing     pricingDocument `bson:"pricing"`
	CreatedAt   int64           `bson:"created_at"`
	UpdatedAt   int64           `bson:"updated_at"`
	Version     int64           `bson:"version"`
}

type pricingDocument struct {
	Type                 string              `bson:"type"`
	Currency             string              `bson:"currency"`
	BasePrice            int64               `bson:"base_price"`
	MonthlyPrice         int64               `bson:"monthly_price"`
	PeakHours            []peakHourDocument  `bson:"peak_hours"`
	TimeBlocks           []timeBlockDocument `bson:"time_blocks"`
	PromoCodes           []promoDocument     `bson:"promo_codes"`
	Bundles              []bundleDocument    `bson:"bundles"`
	MinimumBookingHours  float64             `bson:"minimum_booking_hours"`
	MaximumBookingHours  float64             `bson:"maximum_booking_hours"`
	AllowPartialBookings bool                `bson:"allow_partial_bookings"`
}

type peakHourDocument struct {
	Day        string  `bson:"day"`
	Start      string  `bson:"start"`
	End        string  `bson:"end"`
	Multiplier float64 `bson:"multiplier"`
	Active     bool    `bson:"active"`
}

type timeBlockDocument struct {
	ID              string  `bson:"id"`
	Hours           float64 `bson:"hours"`
	Price           int64   `bson:"price"`
	Active          bool    `bson:"active"`
	MaxBookings     int     `bson:"max_bookings"`
	CurrentBookings int     `bson:"current_bookings"`
}

type promoDocument struct {
	Code                  string    `bson:"code"`
	CodeKey               string    `bson:"code_key"`
	Type                  string    `bson:"type"`
	Value                 float64   `bson:"value"`
	ValidFrom             time.Time `bson:"valid_from"`
	ValidUntil            time.Time `bson:"valid_until"`
	MaxUses               int       `bson:"max_uses"`
	UsedCount             int       `bson:"used_count"`
	MinimumBookingAmount  int64     `bson:"minimum_booking_amount"`
	MaximumDiscountAmount int64     `bson:"maximum_discount_amount"`
	FirstTimeUserOnly     bool      `bson:"first_time_user_only"`
	NewUserOnly           bool      `bson:"new_user_only"`
	Active                bool      `bson:"active"`
}

type bundleDocument struct {
	ID               string    `bson:"id"`
	Name             string    `bson:"name"`
	Price            int64     `bson:"price"`
	Hours            float64   `bson:"hours"`
	ValidFrom        time.Time `bson:"valid_from"`
	ValidUntil       time.Time `bson:"valid_until"`
	MaxPurchases     int       `bson:"max_purchases"`
	CurrentPurchases int       `bson:"current_purchases"`
	Active           bool      `bson:"active"`
}

func promoKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func newSpaceDocument(s *space.Space) spaceDocument {
	p := s.Pricing
	doc := spaceDocument{
		ID:          string(s.ID),
		OwnerID:     string(s.OwnerID),
		StaffIDs:    append([]string{}, s.StaffIDs...),
		Name:        s.Name,
		Description: s.Description,
		SearchText:  strings.ToLower(s.Name + " " + s.Description),
		Timezone:    s.Timezone,
		Open:        s.OperatingHours.Open,
		Close:       s.OperatingHours.Close,
		Pricing: pricingDocument{
			Type:                 string(p.Type),
			Currency:             p.Currency,
			BasePrice:            p.BasePrice,
			MonthlyPrice:         p.MonthlyPrice,
			PeakHours:            []peakHourDocument{},
			TimeBlocks:           []timeBlockDocument{},
			PromoCodes:           []promoDocument{},
			Bundles:              []bundleDocument{},
			MinimumBookingHours:  p.MinimumBookingHours,
			MaximumBookingHours:  p.MaximumBookingHours,
			AllowPartialBookings: p.AllowPartialBookings,
		},
		CreatedAt: s.CreatedAt.UnixMilli(),
		UpdatedAt: s.UpdatedAt.UnixMilli(),
		Version:   s.Version,
	}
	for _, ph := range p.PeakHours {
		doc.Pricing.PeakHours = append(doc.Pricing.PeakHours, peakHourDocument(ph))
	}
	for _, tb := range p.TimeBlocks {
		doc.Pricing.TimeBlocks = append(doc.Pricing.TimeBlocks, timeBlockDocument(tb))
	}
	for _, pc := range p.PromoCodes {
		doc.Pricing.PromoCodes = append(doc.Pricing.PromoCodes, promoDocument{
			Code:                  pc.Code,
			CodeKey:               promoKey(pc.Code),
			Type:                  string(pc.Type),
			Value:                 pc.Value,
			ValidFrom:             pc.ValidFrom,
			ValidUntil:            pc.ValidUntil,
			MaxUses:               pc.MaxUses,
			UsedCount:             pc.UsedCount,
			MinimumBookingAmount:  pc.MinimumBookingAmount,
			MaximumDiscountAmount: pc.MaximumDiscountAmount,
			FirstTimeUserOnly:     pc.FirstTimeUserOnly,
			NewUserOnly:           pc.NewUserOnly,
			Active:                pc.Active,
		})
	}
	for _, b := range p.Bundles {
		doc.Pricing.Bundles = append(doc.Pricing.Bundles, bundleDocument(b))
	}
	return doc
}

func (d spaceDocument) toAggregate() *space.Space {
	p := space.Pricing{
		Type:                 space.PricingType(d.Pricing.Type),
		Currency:             d.Pricing.Currency,
		BasePrice:            d.Pricing.BasePrice,
		MonthlyPrice:         d.Pricing.MonthlyPrice,
		MinimumBookingHours:  d.Pricing.MinimumBookingHours,
		MaximumBookingHours:  d.Pricing.MaximumBookingHours,
		AllowPartialBookings: d.Pricing.AllowPartialBookings,
	}
	for _, ph := range d.Pricing.PeakHours {
		p.PeakHours = append(p.PeakHours, space.PeakHour(ph))
	}
	for _, tb := range d.Pricing.TimeBlocks {
		p.TimeBlocks = append(p.TimeBlocks, space.TimeBlock(tb))
	}
	for _, pc := range d.Pricing.PromoCodes {
		p.PromoCodes = append(p.PromoCodes, space.PromoCode{
			Code:                  pc.Code,
			Type:                  space.PromoType(pc.Type),
			Value:                 pc.Value,
			ValidFrom:             pc.ValidFrom.UTC(),
			ValidUntil:            pc.ValidUntil.UTC(),
			MaxUses:               pc.MaxUses,
			UsedCount:             pc.UsedCount,
			MinimumBookingAmount:  pc.MinimumBookingAmount,
			MaximumDiscountAmount: pc.MaximumDiscountAmount,
			FirstTimeUserOnly:     pc.FirstTimeUserOnly,
			NewUserOnly:           pc.NewUserOnly,
			Active:                pc.Active,
		})
	}
	for _, b := range d.Pricing.Bundles {
		sb := space.Bundle(b)
		sb.ValidFrom, sb.ValidUntil = b.ValidFrom.UTC(), b.ValidUntil.UTC()
		p.Bundles = append(p.Bundles, sb)
	}
	return &space.Space{
		ID:             space.SpaceID(d.ID),
		OwnerID:        space.OwnerID(d.OwnerID),
		StaffIDs:       d.StaffIDs,
		Name:           d.Name,
		Description:    d.Description,
		Timezone:       d.Timezone,
		OperatingHours: space.OperatingHours{Open: d.Open, Close: d.Close},
		Pricing:        p,
		CreatedAt:      timestampToTime(d.CreatedAt),
		UpdatedAt:      timestampToTime(d.UpdatedAt),
		Version:        d.Version,
	}
}

type lineDocument struct {
	Kind        string      `bson:"kind"`
	Description string      `bson:"description"`
	Amount      money.Money `bson:"amount"`
}

type reservationDocument struct {
	ID                 string         `bson:"_id"`
	SpaceID            string         `bson:"space_id"`
	UserID             string         `bson:"user_id"`
	Range              rangeDocument  `bson:"range"`
	Status             string         `bson:"status"`
	PaymentStatus      string         `bson:"payment_status"`
	Total              money.Money    `bson:"total"`
	OriginalPrice      money.Money    `bson:"original_price"`
	DiscountAmount     money.Money    `bson:"discount_amount"`
	DurationHours      float64        `bson:"duration_hours"`
	Breakdown          []lineDocument `bson:"breakdown"`
	PromoCode          string         `bson:"promo_code,omitempty"`
	BundleID           string         `bson:"bundle_id,omitempty"`
	TimeBlockID        string         `bson:"time_block_id,omitempty"`
	BookingCode        string         `bson:"booking_code"`
	RazorpayOrderID    string         `bson:"razorpay_order_id,omitempty"`
	RazorpayPaymentID  string         `bson:"razorpay_payment_id,omitempty"`
	CancellationReason string         `bson:"cancellation_reason,omitempty"`
	RejectionReason    string         `bson:"rejection_reason,omitempty"`
	ConfirmedAt        *time.Time     `bson:"confirmed_at,omitempty"`
	CancelledAt        *time.Time     `bson:"cancelled_at,omitempty"`
	CheckedInAt        *time.Time     `bson:"checked_in_at,omitempty"`
	CheckedOutAt       *time.Time     `bson:"checked_out_at,omitempty"`
	CreatedAt          int64          `bson:"created_at"`
	UpdatedAt          int64          `bson:"updated_at"`
	Version            int64          `bson:"version"`
}

func newReservationDocument(r *reservation.Reservation) reservationDocument {
	doc := reservationDocument{
		ID:                 string(r.ID),
		SpaceID:            string(r.SpaceID),
		UserID:             r.UserID,
		Range:              newRangeDocument(r.Range),
		Status:             string(r.Status),
		PaymentStatus:      string(r.PaymentStatus),
		Total:              r.TotalAmount,
		OriginalPrice:      r.Pricing.OriginalPrice,
		DiscountAmount:     r.Pricing.DiscountAmount,
		DurationHours:      r.Pricing.DurationHours,
		Breakdown:          make([]lineDocument, 0, len(r.Pricing.Breakdown)),
		PromoCode:          r.Pricing.PromoCode,
		BundleID:           r.Pricing.BundleID,
		TimeBlockID:        r.Pricing.TimeBlockID,
		BookingCode:        r.BookingCode,
		RazorpayOrderID:    r.RazorpayOrderID,
		RazorpayPaymentID:  r.RazorpayPaymentID,
		CancellationReason: r.CancellationReason,
		RejectionReason:    r.RejectionReason,
		ConfirmedAt:        r.ConfirmedAt,
		CancelledAt:        r.CancelledAt,
		CheckedInAt:        r.CheckedInAt,
		CheckedOutAt:       r.CheckedOutAt,
		CreatedAt:          r.CreatedAt.UnixMilli(),
		UpdatedAt:          r.UpdatedAt.UnixMilli(),
		Version:            r.Version,
	}
	for _, line := range r.Pricing.Breakdown {
		doc.Breakdown = append(doc.Breakdown, lineDocument{Kind: string(line.Kind), Description: line.Description, Amount: line.Amount})
	}
	return doc
}

func (d reservationDocument) toAggregate() *reservation.Reservation {
	snap := reservation.Snapshot{
		OriginalPrice:  d.OriginalPrice,
		DiscountAmount: d.DiscountAmount,
		DurationHours:  d.DurationHours,
		PromoCode:      d.PromoCode,
		BundleID:       d.BundleID,
		TimeBlockID:    d.TimeBlockID,
	}
	for _, line := range d.Breakdown {
		snap.Breakdown = append(snap.Breakdown, pricing.LineItem{Kind: pricing.LineKind(line.Kind), Description: line.Description, Amount: line.Amount})
	}
	return &reservation.Reservation{
		ID:                 reservation.ReservationID(d.ID),
		SpaceID:            space.SpaceID(d.SpaceID),
		UserID:             d.UserID,
		Range:              d.Range.toRange(),
		Status:             reservation.Status(d.Status),
		PaymentStatus:      reservation.PaymentStatus(d.PaymentStatus),
		TotalAmount:        d.Total,
		Pricing:            snap,
		BookingCode:        d.BookingCode,
		RazorpayOrderID:    d.RazorpayOrderID,
		RazorpayPaymentID:  d.RazorpayPaymentID,
		CancellationReason: d.CancellationReason,
		RejectionReason:    d.RejectionReason,
		ConfirmedAt:        utcPtr(d.ConfirmedAt),
		CancelledAt:        utcPtr(d.CancelledAt),
		CheckedInAt:        utcPtr(d.CheckedInAt),
		CheckedOutAt:       utcPtr(d.CheckedOutAt),
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		Version:            d.Version,
	}
}

type paymentDocument struct {
	ID            string      `bson:"_id"`
	ReservationID string      `bson:"reservation_id"`
	UserID        string      `bson:"user_id"`
	OrderID       string      `bson:"order_id"`
	PaymentID     string      `bson:"payment_id,omitempty"`
	Amount        money.Money `bson:"amount"`
	Status        string      `bson:"status"`
	FailureReason string      `bson:"failure_reason,omitempty"`
	RefundID      string      `bson:"refund_id,omitempty"`
	RefundAmount  money.Money `bson:"refund_amount"`
	RefundReason  string      `bson:"refund_reason,omitempty"`
	CapturedAt    *time.Time  `bson:"captured_at,omitempty"`
	RefundedAt    *time.Time  `bson:"refunded_at,omitempty"`
	CreatedAt     int64       `bson:"created_at"`
	UpdatedAt     int64       `bson:"updated_at"`
	Version       int64       `bson:"version"`
}

func newPaymentDocument(p *payment.Payment) paymentDocument {
	return paymentDocument{
		ID:            string(p.ID),
		ReservationID: string(p.ReservationID),
		UserID:        p.UserID,
		OrderID:       p.OrderID,
		PaymentID:     p.PaymentID,
		Amount:        p.Amount,
		Status:        string(p.Status),
		FailureReason: p.FailureReason,
		RefundID:      p.RefundID,
		RefundAmount:  p.RefundAmount,
		RefundReason:  p.RefundReason,
		CapturedAt:    p.CapturedAt,
		RefundedAt:    p.RefundedAt,
		CreatedAt:     p.CreatedAt.UnixMilli(),
		UpdatedAt:     p.UpdatedAt.UnixMilli(),
		Version:       p.Version,
	}
}

func (d paymentDocument) toAggregate() *payment.Payment {
	return &payment.Payment{
		ID:            payment.ID(d.ID),
		ReservationID: reservation.ReservationID(d.ReservationID),
		UserID:        d.UserID,
		OrderID:       d.OrderID,
		PaymentID:     d.PaymentID,
		Amount:        d.Amount,
		Status:        payment.Status(d.Status),
		FailureReason: d.FailureReason,
		RefundID:      d.RefundID,
		RefundAmount:  d.RefundAmount,
		RefundReason:  d.RefundReason,
		CapturedAt:    utcPtr(d.CapturedAt),
		RefundedAt:    utcPtr(d.RefundedAt),
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
		Version:       d.Version,
	}
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	Roles        []string  `bson:"roles"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newUserDocument(u *domainuser.User) userDocument {
	doc := userDocument{
		ID:           string(u.ID),
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	for _, r := range u.Roles {
		doc.Roles = append(doc.Roles, string(r))
	}
	return doc
}

func (d userDocument) toAggregate() *domainuser.User {
	u := &domainuser.User{
		ID:           domainuser.ID(d.ID),
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	for _, r := range d.Roles {
		u.Roles = append(u.Roles, domainuser.Role(r))
	}
	return u
}

type webhookLogDocument struct {
	ID                string     `bson:"_id"`
	WebhookID         string     `bson:"webhook_id"`
	EventType         string     `bson:"event_type"`
	SignatureVerified bool       `bson:"signature_verified"`
	Status            string     `bson:"status"`
	EntityID          string     `bson:"entity_id,omitempty"`
	PaymentID         string     `bson:"payment_id,omitempty"`
	OrderID           string     `bson:"order_id,omitempty"`
	RefundID          string     `bson:"refund_id,omitempty"`
	Amount            int64      `bson:"amount"`
	Currency          string     `bson:"currency,omitempty"`
	ProviderStatus    string     `bson:"provider_status,omitempty"`
	Error             string     `bson:"error,omitempty"`
	ProcessingTimeMs  int64      `bson:"processing_time_ms"`
	ReceivedAt        time.Time  `bson:"received_at"`
	FinalizedAt       *time.Time `bson:"finalized_at,omitempty"`
}

func newWebhookLogDocument(e *webhook.LogEntry) webhookLogDocument {
	return webhookLogDocument{
		ID:                e.ID,
		WebhookID:         e.WebhookID,
		EventType:         e.EventType,
		SignatureVerified: e.SignatureVerified,
		Status:            string(e.Status),
		EntityID:          e.Summary.EntityID,
		PaymentID:         e.Summary.PaymentID,
		OrderID:           e.Summary.OrderID,
		RefundID:          e.Summary.RefundID,
		Amount:            e.Summary.Amount,
		Currency:          e.Summary.Currency,
		ProviderStatus:    e.Summary.ProviderStatus,
		Error:             e.Error,
		ProcessingTimeMs:  e.ProcessingTimeMs,
		ReceivedAt:        e.ReceivedAt,
		FinalizedAt:       e.FinalizedAt,
	}
}

func (d webhookLogDocument) toEntry() *webhook.LogEntry {
	return &webhook.LogEntry{
		ID:                d.ID,
		WebhookID:         d.WebhookID,
		EventType:         d.EventType,
		SignatureVerified: d.SignatureVerified,
		Status:            webhook.Status(d.Status),
		Summary: webhook.PayloadSummary{
			EntityID:       d.EntityID,
			PaymentID:      d.PaymentID,
			OrderID:        d.OrderID,
			RefundID:       d.RefundID,
			Amount:         d.Amount,
			Currency:       d.Currency,
			ProviderStatus: d.ProviderStatus,
		},
		Error:            d.Error,
		ProcessingTimeMs: d.ProcessingTimeMs,
		ReceivedAt:       d.ReceivedAt.UTC(),
		FinalizedAt:      utcPtr(d.FinalizedAt),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
