package memory

import (
	"context"
	"sync"

	"spacebook/internal/domain/webhook"
	"spacebook/internal/pkg/errs"
)

// WebhookLogRepository is the append-only audit log. It lives outside units
// of work so entries survive rollbacks of the processing transaction.
type WebhookLogRepository struct {
	mu      sync.RWMutex
	entries []*webhook.LogEntry
	byID    map[string]int
}

func NewWebhookLogRepository() *WebhookLogRepository {
	return &WebhookLogRepository{byID: make(map[string]int)}
}

func (r *WebhookLogRepository) Append(ctx context.Context, entry *webhook.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[entry.ID]; exists {
		return errs.Mark(errs.Newf("memory: webhook log %s already appended", entry.ID), errs.ErrConflict)
	}
	r.byID[entry.ID] = len(r.entries)
	r.entries = append(r.entries, cloneLogEntry(entry))
	return nil
}

func (r *WebhookLogRepository) Finalize(ctx context.Context, entry *webhook.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byID[entry.ID]
	if !ok {
		return webhook.ErrLogNotFound
	}
	stored := r.entries[idx]
	if stored.Status != webhook.StatusReceived {
		return errs.Newf("memory: webhook log %s already finalized", entry.ID)
	}
	r.entries[idx] = cloneLogEntry(entry)
	return nil
}

// List returns entries newest first.
func (r *WebhookLogRepository) List(ctx context.Context, filter webhook.LogFilter) ([]*webhook.LogEntry, int, error) {
	filter = filter.Normalized()
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*webhook.LogEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if filter.Matches(r.entries[i]) {
			matched = append(matched, r.entries[i])
		}
	}
	total := len(matched)
	out := []*webhook.LogEntry{}
	for i := filter.Offset; i < total && len(out) < filter.Limit; i++ {
		out = append(out, cloneLogEntry(matched[i]))
	}
	return out, total, nil
}

func (r *WebhookLogRepository) Stats(ctx context.Context) (webhook.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return webhook.ComputeStats(r.entries), nil
}

func cloneLogEntry(e *webhook.LogEntry) *webhook.LogEntry {
	c := *e
	c.FinalizedAt = cloneTime(e.FinalizedAt)
	return &c
}

var _ webhook.LogRepository = (*WebhookLogRepository)(nil)
