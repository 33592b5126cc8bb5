package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	paymentapp "spacebook/internal/app/handlers/payments"
)

type PaymentHTTP interface {
	Initialize(c *gin.Context)
	Verify(c *gin.Context)
	Refund(c *gin.Context)
}

type PaymentHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h PaymentHandler) Initialize(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	var cmd paymentapp.InitializePaymentCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd.CommandID = uuid.NewString()
	cmd.UserID = p.ID
	cmd.IdempotencyKeyV = strings.TrimSpace(c.GetHeader(idempotencyHeader))
	result, err := commands.Dispatch[paymentapp.InitializePaymentCommand, *dto.CheckoutOrder](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Verify checks the client-side checkout signature. A bad signature is an
// authentication failure here, unlike on the webhook route.
func (h PaymentHandler) Verify(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	var cmd paymentapp.VerifyPaymentCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd.UserID = p.ID
	result, err := commands.Dispatch[paymentapp.VerifyPaymentCommand, dto.PaymentVerification](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeErrorWith(c, h.Logger, err, http.StatusUnauthorized)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentHandler) Refund(c *gin.Context) {
	p, ok := requireRole(c)
	if !ok {
		return
	}
	var cmd paymentapp.RefundReservationCommand
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	cmd.ReservationID = c.Param("id")
	cmd.ActorIDV = p.ID
	cmd.Admin = p.IsAdmin()
	cmd.IdempotencyKeyV = strings.TrimSpace(c.GetHeader(idempotencyHeader))
	result, err := commands.Dispatch[paymentapp.RefundReservationCommand, *dto.RefundResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PaymentHTTP = PaymentHandler{}
