package spaces

import (
	"context"
	"log/slog"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/middleware"
	"spacebook/internal/app/outbox"
	"spacebook/internal/app/uow"
	domainspace "spacebook/internal/domain/space"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

const replacePricingKey = "spaces.pricing.replace"

var ErrStaleVersion = errs.Mark(errs.New("spaces: pricing was changed by someone else, reload and retry"), errs.ErrConflict)

// ReplacePricingCommand swaps the whole pricing snapshot of a space.
// ExpectedVersion guards against overwriting a concurrent edit; zero skips the
// check.
type ReplacePricingCommand struct {
	SpaceID         string         `json:"-" validate:"required"`
	ActorIDV        string         `json:"-"`
	ExpectedVersion int64          `json:"version" validate:"gte=0"`
	Pricing         dto.PricingDTO `json:"pricing"`
}

func (c ReplacePricingCommand) Key() string      { return replacePricingKey }
func (c ReplacePricingCommand) ActorID() string  { return c.ActorIDV }
func (c ReplacePricingCommand) SpaceKey() string { return c.SpaceID }

type ReplacePricingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *ReplacePricingHandler) Handle(ctx context.Context, cmd ReplacePricingCommand) (dto.SpaceDetails, error) {
	var out dto.SpaceDetails
	err := support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		sp, err := unit.Spaces().ByID(ctx, domainspace.SpaceID(cmd.SpaceID))
		if err != nil {
			return err
		}
		if cmd.ExpectedVersion > 0 && cmd.ExpectedVersion != sp.Version {
			return ErrStaleVersion
		}
		if err := sp.ReplacePricing(cmd.ActorIDV, cmd.Pricing.ToDomain(), clock.Or(h.Clock).Now()); err != nil {
			return err
		}
		if err := unit.Spaces().Save(ctx, sp); err != nil {
			return err
		}
		if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, sp); err != nil {
			return err
		}
		out = dto.MapSpace(sp)
		return nil
	})
	if err != nil {
		return dto.SpaceDetails{}, err
	}
	logger(h.Logger).InfoContext(ctx, "space pricing replaced", "space_id", out.ID, "type", out.Pricing.Type)
	return out, nil
}

var (
	_ commands.Handler[ReplacePricingCommand, dto.SpaceDetails] = (*ReplacePricingHandler)(nil)
	_ middleware.SpaceScoped                                     = ReplacePricingCommand{}
)
