package webhooks

import (
	"context"

	"spacebook/internal/app/dto"
	"spacebook/internal/app/queries"
	"spacebook/internal/domain/webhook"
	"spacebook/internal/pkg/errs"
)

const (
	listLogsKey = "webhooks.logs"
	statsKey    = "webhooks.stats"
)

var errLogsMissing = errs.New("webhooks: log repository required")

type ListLogsQuery struct {
	Filter webhook.LogFilter
}

func (q ListLogsQuery) Key() string { return listLogsKey }

// ListLogsHandler pages through the audit log, newest first.
type ListLogsHandler struct {
	Logs webhook.LogRepository
}

func (h *ListLogsHandler) Handle(ctx context.Context, q ListLogsQuery) (dto.WebhookLogPage, error) {
	if h.Logs == nil {
		return dto.WebhookLogPage{}, errLogsMissing
	}
	filter := q.Filter.Normalized()
	entries, total, err := h.Logs.List(ctx, filter)
	if err != nil {
		return dto.WebhookLogPage{}, err
	}
	page := dto.WebhookLogPage{
		Items:  make([]dto.WebhookLogDTO, 0, len(entries)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for _, e := range entries {
		page.Items = append(page.Items, dto.MapWebhookLog(e))
	}
	return page, nil
}

type StatsQuery struct{}

func (q StatsQuery) Key() string { return statsKey }

type StatsHandler struct {
	Logs webhook.LogRepository
}

func (h *StatsHandler) Handle(ctx context.Context, _ StatsQuery) (dto.WebhookStatsDTO, error) {
	if h.Logs == nil {
		return dto.WebhookStatsDTO{}, errLogsMissing
	}
	stats, err := h.Logs.Stats(ctx)
	if err != nil {
		return dto.WebhookStatsDTO{}, err
	}
	return dto.MapWebhookStats(stats), nil
}

var (
	_ queries.Handler[ListLogsQuery, dto.WebhookLogPage] = (*ListLogsHandler)(nil)
	_ queries.Handler[StatsQuery, dto.WebhookStatsDTO]   = (*StatsHandler)(nil)
)
