package memory

import (
	"context"

	"spacebook/internal/app/uow"
)

type inbox struct {
	store *Store
	unit  *Unit
}

// Seen marks source:eventID as applied. The mark is undone when the unit
// rolls back, so a failed delivery can be retried.
func (i *inbox) Seen(ctx context.Context, source, eventID string) (bool, error) {
	key := source + ":" + eventID
	i.store.mu.Lock()
	defer i.store.mu.Unlock()
	if _, ok := i.store.inbox[key]; ok {
		return true, nil
	}
	if err := i.unit.record(func() { delete(i.store.inbox, key) }); err != nil {
		return false, err
	}
	i.store.inbox[key] = struct{}{}
	return false, nil
}

var _ uow.Inbox = (*inbox)(nil)
