package dto

import (
	"time"

	"spacebook/internal/domain/webhook"
)

type WebhookLogDTO struct {
	ID                string    `json:"id"`
	WebhookID         string    `json:"webhookId"`
	EventType         string    `json:"eventType"`
	SignatureVerified bool      `json:"signatureVerified"`
	Status            string    `json:"status"`
	EntityID          string    `json:"entityId,omitempty"`
	PaymentID         string    `json:"paymentId,omitempty"`
	OrderID           string    `json:"orderId,omitempty"`
	RefundID          string    `json:"refundId,omitempty"`
	Amount            int64     `json:"amount,omitempty"`
	Currency          string    `json:"currency,omitempty"`
	Error             string    `json:"error,omitempty"`
	ProcessingTimeMs  int64     `json:"processingTimeMs"`
	ReceivedAt        time.Time `json:"receivedAt"`
}

type WebhookLogPage struct {
	Items  []WebhookLogDTO `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type WebhookStatsDTO struct {
	Total           int            `json:"total"`
	ByStatus        map[string]int `json:"byStatus"`
	ByEventType     map[string]int `json:"byEventType"`
	SignatureFailed int            `json:"signatureFailed"`
	SuccessRate     float64        `json:"successRate"`
	AvgProcessingMs float64        `json:"avgProcessingMs"`
}

func MapWebhookLog(e *webhook.LogEntry) WebhookLogDTO {
	return WebhookLogDTO{
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
		Error:             e.Error,
		ProcessingTimeMs:  e.ProcessingTimeMs,
		ReceivedAt:        e.ReceivedAt,
	}
}

func MapWebhookStats(s webhook.Stats) WebhookStatsDTO {
	byStatus := make(map[string]int, len(s.ByStatus))
	for k, v := range s.ByStatus {
		byStatus[string(k)] = v
	}
	return WebhookStatsDTO{
		Total:           s.Total,
		ByStatus:        byStatus,
		ByEventType:     s.ByEventType,
		SignatureFailed: s.SignatureFailed,
		SuccessRate:     s.SuccessRate,
		AvgProcessingMs: s.AvgProcessingMs,
	}
}
