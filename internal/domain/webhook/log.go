package webhook

import (
	"context"
	"time"

	"spacebook/internal/pkg/errs"
)

var ErrLogNotFound = errs.Mark(errs.New("webhook: log entry not found"), errs.ErrNotFound)

type Status string

const (
	StatusReceived  Status = "received"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// PayloadSummary keeps the ids and amounts needed for diagnosis, never the
// full provider payload.
type PayloadSummary struct {
	EntityID       string
	PaymentID      string
	OrderID        string
	RefundID       string
	Amount         int64
	Currency       string
	ProviderStatus string
}

// LogEntry is one inbound delivery. It is appended on receipt and finalized
// exactly once.
type LogEntry struct {
	ID                string
	WebhookID         string
	EventType         string
	SignatureVerified bool
	Status            Status
	Summary           PayloadSummary
	Error             string
	ProcessingTimeMs  int64
	ReceivedAt        time.Time
	FinalizedAt       *time.Time
}

func (e *LogEntry) Finalize(status Status, errMsg string, elapsed time.Duration, now time.Time) error {
	if e.Status != StatusReceived {
		return errs.Newf("webhook: log entry %s already finalized", e.ID)
	}
	at := now.UTC()
	e.Status = status
	e.Error = errMsg
	e.ProcessingTimeMs = elapsed.Milliseconds()
	e.FinalizedAt = &at
	return nil
}

type LogFilter struct {
	Status    Status
	EventType string
	Limit     int
	Offset    int
}

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

func (f LogFilter) Normalized() LogFilter {
	out := f
	if out.Limit <= 0 {
		out.Limit = defaultLogLimit
	}
	if out.Limit > maxLogLimit {
		out.Limit = maxLogLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

func (f LogFilter) Matches(e *LogEntry) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	return true
}

type Stats struct {
	Total           int
	ByStatus        map[Status]int
	ByEventType     map[string]int
	SignatureFailed int
	SuccessRate     float64
	AvgProcessingMs float64
}

// ComputeStats aggregates entries for operational dashboards.
func ComputeStats(entries []*LogEntry) Stats {
	s := Stats{ByStatus: map[Status]int{}, ByEventType: map[string]int{}}
	var totalMs int64
	var finalized int
	for _, e := range entries {
		s.Total++
		s.ByStatus[e.Status]++
		eventType := e.EventType
		if eventType == "" {
			eventType = "unknown"
		}
		s.ByEventType[eventType]++
		if !e.SignatureVerified {
			s.SignatureFailed++
		}
		if e.Status != StatusReceived {
			finalized++
			totalMs += e.ProcessingTimeMs
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.ByStatus[StatusProcessed]) / float64(s.Total)
	}
	if finalized > 0 {
		s.AvgProcessingMs = float64(totalMs) / float64(finalized)
	}
	return s
}

type LogRepository interface {
	Append(ctx context.Context, entry *LogEntry) error
	// Finalize moves a received entry to its final status. Entries are never deleted.
	Finalize(ctx context.Context, entry *LogEntry) error
	List(ctx context.Context, filter LogFilter) ([]*LogEntry, int, error)
	Stats(ctx context.Context) (Stats, error)
}
