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
)

const createSpaceKey = "spaces.create"

type CreateSpaceCommand struct {
	CommandID      string                `json:"-"`
	OwnerID        string                `json:"-"`
	Name           string                `json:"name" validate:"required,max=200"`
	Description    string                `json:"description" validate:"max=4000"`
	Timezone       string                `json:"timezone"`
	OperatingHours dto.OperatingHoursDTO `json:"operatingHours"`
	StaffIDs       []string              `json:"staffIds"`
	Pricing        dto.PricingDTO        `json:"pricing"`
}

func (c CreateSpaceCommand) Key() string     { return createSpaceKey }
func (c CreateSpaceCommand) ActorID() string { return c.OwnerID }

type CreateSpaceHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *CreateSpaceHandler) Handle(ctx context.Context, cmd CreateSpaceCommand) (dto.SpaceDetails, error) {
	var out dto.SpaceDetails
	err := support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		sp, err := domainspace.NewSpace(domainspace.CreateParams{
			ID:             domainspace.SpaceID(cmd.CommandID),
			OwnerID:        domainspace.OwnerID(cmd.OwnerID),
			StaffIDs:       cmd.StaffIDs,
			Name:           cmd.Name,
			Description:    cmd.Description,
			Timezone:       cmd.Timezone,
			OperatingHours: domainspace.OperatingHours{Open: cmd.OperatingHours.Open, Close: cmd.OperatingHours.Close},
			Pricing:        cmd.Pricing.ToDomain(),
			Now:            clock.Or(h.Clock).Now(),
		})
		if err != nil {
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
	logger(h.Logger).InfoContext(ctx, "space created", "space_id", out.ID, "owner_id", out.OwnerID)
	return out, nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var (
	_ commands.Handler[CreateSpaceCommand, dto.SpaceDetails] = (*CreateSpaceHandler)(nil)
	_ middleware.ActorScoped                                  = CreateSpaceCommand{}
)
