package ginserver

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	paymentapp "spacebook/internal/app/handlers/payments"
	webhookapp "spacebook/internal/app/handlers/webhooks"
	"spacebook/internal/app/queries"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/domain/webhook"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"
	maxWebhookBody  = 1 << 20
)

type WebhookHTTP interface {
	Razorpay(c *gin.Context)
	Logs(c *gin.Context)
	Stats(c *gin.Context)
}

type WebhookHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// Razorpay receives provider deliveries. The raw body is kept as is because
// the signature covers the exact bytes sent.
func (h WebhookHandler) Razorpay(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	cmd := paymentapp.HandleWebhookCommand{
		Payload:   body,
		Signature: strings.TrimSpace(c.GetHeader(signatureHeader)),
		EventID:   strings.TrimSpace(c.GetHeader(eventIDHeader)),
	}
	ack, err := commands.Dispatch[paymentapp.HandleWebhookCommand, dto.WebhookAck](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeErrorWith(c, h.Logger, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, ack)
}

func (h WebhookHandler) Logs(c *gin.Context) {
	if _, ok := requireRole(c, domainuser.RoleAdmin); !ok {
		return
	}
	filter := webhook.LogFilter{
		Status:    webhook.Status(strings.TrimSpace(c.Query("status"))),
		EventType: strings.TrimSpace(c.Query("eventType")),
		Limit:     intQuery(c, "limit"),
		Offset:    intQuery(c, "offset"),
	}
	page, err := queries.Ask[webhookapp.ListLogsQuery, dto.WebhookLogPage](c.Request.Context(), h.Queries, webhookapp.ListLogsQuery{Filter: filter})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h WebhookHandler) Stats(c *gin.Context) {
	if _, ok := requireRole(c, domainuser.RoleAdmin); !ok {
		return
	}
	stats, err := queries.Ask[webhookapp.StatsQuery, dto.WebhookStatsDTO](c.Request.Context(), h.Queries, webhookapp.StatsQuery{})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

var _ WebhookHTTP = WebhookHandler{}
