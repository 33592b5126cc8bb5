package support

import (
	"context"

	"spacebook/internal/app/outbox"
	"spacebook/internal/domain/shared/events"
)

// RecordEvents drains the pending events of every source, in argument
// order, and stages them in box. A nil box only drains.
func RecordEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, sources ...events.Source) error {
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	for _, src := range sources {
		if src == nil {
			continue
		}
		for _, ev := range src.Drain() {
			if box == nil {
				continue
			}
			rec, err := encoder.Encode(ev)
			if err != nil {
				return err
			}
			if err := box.Add(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}
