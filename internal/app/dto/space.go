package dto

import (
	"time"

	"spacebook/internal/domain/space"
)

type OperatingHoursDTO struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type SpaceDetails struct {
	ID             string            `json:"id"`
	OwnerID        string            `json:"ownerId"`
	StaffIDs       []string          `json:"staffIds"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Timezone       string            `json:"timezone,omitempty"`
	OperatingHours OperatingHoursDTO `json:"operatingHours"`
	Pricing        PricingDTO        `json:"pricing"`
	Version        int64             `json:"version"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// SpaceCard is the catalog view of a space.
type SpaceCard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwnerID     string `json:"ownerId"`
	PricingType string `json:"pricingType"`
	BasePrice   int64  `json:"basePrice"`
	Currency    string `json:"currency"`
}

type SpaceCatalog struct {
	Items  []SpaceCard `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func MapSpace(s *space.Space) SpaceDetails {
	return SpaceDetails{
		ID:             string(s.ID),
		OwnerID:        string(s.OwnerID),
		StaffIDs:       append([]string{}, s.StaffIDs...),
		Name:           s.Name,
		Description:    s.Description,
		Timezone:       s.Timezone,
		OperatingHours: OperatingHoursDTO{Open: s.OperatingHours.Open, Close: s.OperatingHours.Close},
		Pricing:        MapPricing(s.Pricing),
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func MapSpaceCard(s *space.Space) SpaceCard {
	return SpaceCard{
		ID:          string(s.ID),
		Name:        s.Name,
		OwnerID:     string(s.OwnerID),
		PricingType: string(s.Pricing.Type),
		BasePrice:   s.Pricing.BasePrice,
		Currency:    s.Pricing.Currency,
	}
}

type SlotDTO struct {
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	TimeBlockID string    `json:"timeBlockId,omitempty"`
}

type SlotList struct {
	SpaceID string    `json:"spaceId"`
	Date    string    `json:"date"`
	Slots   []SlotDTO `json:"slots"`
}
