package reservations

import (
	"context"
	"log/slog"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	"spacebook/internal/app/handlers/support"
	"spacebook/internal/app/middleware"
	"spacebook/internal/app/outbox"
	"spacebook/internal/app/uow"
	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

const transitionKey = "reservations.transition"

type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionCheckIn  Action = "check-in"
	ActionCheckOut Action = "check-out"
	ActionNoShow   Action = "no-show"
)

func (a Action) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionCancel, ActionCheckIn, ActionCheckOut, ActionNoShow:
		return true
	}
	return false
}

// TransitionCommand moves a reservation along its lifecycle on behalf of an actor.
type TransitionCommand struct {
	ReservationID string `json:"-" validate:"required"`
	ActorIDV      string `json:"-"`
	Admin         bool   `json:"-"`
	Action        Action `json:"-" validate:"required"`
	Reason        string `json:"reason" validate:"max=1000"`
}

func (c TransitionCommand) Key() string     { return transitionKey }
func (c TransitionCommand) ActorID() string { return c.ActorIDV }

type TransitionHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *TransitionHandler) Handle(ctx context.Context, cmd TransitionCommand) (dto.ReservationDetails, error) {
	if !cmd.Action.Valid() {
		return dto.ReservationDetails{}, errs.Field("action", "unknown action")
	}
	now := clock.Or(h.Clock).Now()
	var out dto.ReservationDetails
	err := support.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := unit.Reservations().ByID(ctx, reservation.ReservationID(cmd.ReservationID))
		if err != nil {
			return err
		}
		sp, err := unit.Spaces().ByID(ctx, r.SpaceID)
		if err != nil {
			return err
		}
		actor := reservation.ActorFor(cmd.ActorIDV, sp, cmd.Admin)
		switch cmd.Action {
		case ActionApprove:
			err = r.Approve(actor, now)
		case ActionReject:
			err = r.Reject(actor, cmd.Reason, now)
		case ActionCancel:
			err = r.Cancel(actor, cmd.Reason, now)
		case ActionCheckIn:
			err = r.CheckIn(actor, now)
		case ActionCheckOut:
			err = r.CheckOut(actor, now)
		case ActionNoShow:
			err = r.MarkNoShow(actor, now)
		}
		if err != nil {
			return err
		}
		if err := unit.Reservations().Save(ctx, r); err != nil {
			return err
		}
		if r.Status == reservation.StatusCancelled || r.Status == reservation.StatusRejected {
			if err := payment.AbandonOpen(ctx, unit.Payments(), r.ID, now); err != nil {
				return err
			}
		}
		if err := support.RecordEvents(ctx, h.Outbox, h.Encoder, r); err != nil {
			return err
		}
		out = dto.MapReservation(r)
		return nil
	})
	if err != nil {
		return dto.ReservationDetails{}, err
	}
	logger(h.Logger).InfoContext(ctx, "reservation transitioned",
		"reservation_id", out.ID, "action", cmd.Action, "status", out.Status, "actor_id", cmd.ActorIDV)
	return out, nil
}

var (
	_ commands.Handler[TransitionCommand, dto.ReservationDetails] = (*TransitionHandler)(nil)
	_ middleware.ActorScoped                                       = TransitionCommand{}
)
