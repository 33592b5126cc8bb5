package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	reservationapp "spacebook/internal/app/handlers/reservations"
	"spacebook/internal/app/queries"
)

const idempotencyHeader = "Idempotency-Key"

type ReservationHTTP interface {
	Create(c *gin.Context)
	CalculatePrice(c *gin.Context)
	Availability(c *gin.Context)
	Get(c *gin.Context)
	ListMine(c *gin.Context)
	Transition(action reservationapp.Action) gin.HandlerFunc
}

type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h ReservationHandler) Create(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	var cmd reservationapp.CreateReservationCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd.CommandID = uuid.NewString()
	cmd.UserID = p.ID
	cmd.IdempotencyKeyV = strings.TrimSpace(c.GetHeader(idempotencyHeader))
	result, err := commands.Dispatch[reservationapp.CreateReservationCommand, *dto.ReservationDetails](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ReservationHandler) CalculatePrice(c *gin.Context) {
	var q reservationapp.CalculatePriceQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	if p, ok := currentPrincipal(c); ok {
		q.UserID = p.ID
	}
	result, err := queries.Ask[reservationapp.CalculatePriceQuery, dto.PriceQuote](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Availability(c *gin.Context) {
	start, err := parseDateParam(c.Query("startDate"))
	if err != nil {
		badRequest(c, "startDate must be RFC3339 or YYYY-MM-DD")
		return
	}
	end, err := parseDateParam(c.Query("endDate"))
	if err != nil {
		badRequest(c, "endDate must be RFC3339 or YYYY-MM-DD")
		return
	}
	q := reservationapp.AvailabilityQuery{SpaceID: c.Param("spaceId"), StartDate: start, EndDate: end}
	result, err := queries.Ask[reservationapp.AvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) Get(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	q := reservationapp.GetReservationQuery{ReservationID: c.Param("id"), ActorIDV: p.ID, Admin: p.IsAdmin()}
	result, err := queries.Ask[reservationapp.GetReservationQuery, dto.ReservationDetails](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ReservationHandler) ListMine(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	result, err := queries.Ask[reservationapp.ListMyReservationsQuery, dto.ReservationCollection](c.Request.Context(), h.Queries, reservationapp.ListMyReservationsQuery{UserID: p.ID})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type transitionRequest struct {
	Reason string `json:"reason"`
}

// Transition serves every lifecycle route. Role checks against the space
// happen in the command handler.
func (h ReservationHandler) Transition(action reservationapp.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := requireRole(c)
		if !ok {
			return
		}
		var req transitionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}
		cmd := reservationapp.TransitionCommand{
			ReservationID: c.Param("id"),
			ActorIDV:      p.ID,
			Admin:         p.IsAdmin(),
			Action:        action,
			Reason:        req.Reason,
		}
		result, err := commands.Dispatch[reservationapp.TransitionCommand, dto.ReservationDetails](c.Request.Context(), h.Commands, cmd)
		if err != nil {
			writeError(c, h.Logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func parseDateParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

var _ ReservationHTTP = ReservationHandler{}
