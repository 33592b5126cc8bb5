package ginserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"spacebook/internal/app/commands"
	"spacebook/internal/app/dto"
	paymentapp "spacebook/internal/app/handlers/payments"
	reservationapp "spacebook/internal/app/handlers/reservations"
	"spacebook/internal/app/queries"
	domainauth "spacebook/internal/domain/auth"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/infra/config"
	ginserver "spacebook/internal/infra/http/gin"
	"spacebook/internal/infra/obs"
	"spacebook/internal/pkg/errs"
)

type stubCommands struct {
	last   commands.Command
	result any
	err    error
}

func (b *stubCommands) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.last = cmd
	return b.result, b.err
}

type stubQueries struct {
	asked queries.Query
}

func (b *stubQueries) Ask(ctx context.Context, q queries.Query) (any, error) {
	b.asked = q
	return nil, nil
}

type tokenTable map[string]*domainauth.Principal

func (t tokenTable) Resolve(token string) (*domainauth.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return nil, domainauth.ErrTokenInvalid
}

type RouterTestSuite struct {
	suite.Suite
	router   *gin.Engine
	commands *stubCommands
	queries  *stubQueries
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.commands = &stubCommands{}
	s.queries = &stubQueries{}

	tokens := tokenTable{
		"user-token":  {UserID: "user-1", Roles: []domainuser.Role{domainuser.RoleUser}},
		"admin-token": {UserID: "admin-1", Roles: []domainuser.Role{domainuser.RoleAdmin}},
	}
	cfg := config.Config{Env: "test"}
	s.router = ginserver.NewRouter(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{}, ginserver.Handlers{
		Reservations:   ginserver.ReservationHandler{Commands: s.commands, Queries: s.queries, Logger: logger},
		Payments:       ginserver.PaymentHandler{Commands: s.commands, Logger: logger},
		Webhooks:       ginserver.WebhookHandler{Commands: s.commands, Queries: s.queries, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Tokens: tokens, Logger: logger}.Handle,
		RateLimit:      ginserver.NewRateLimiter(1, 2, logger).Middleware(),
	})
}

func (s *RouterTestSuite) do(method, path, token string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterTestSuite) errorBody(rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *RouterTestSuite) TestLivezSetsRequestID() {
	rec := s.do(http.MethodGet, "/livez", "", nil, map[string]string{"X-Request-ID": "req-42"})
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("req-42", rec.Header().Get("X-Request-ID"))
}

func (s *RouterTestSuite) TestCreateReservationRequiresAuth() {
	body := []byte(`{"spaceId":"space-1","startTime":"2024-03-05T10:00:00Z","endTime":"2024-03-05T12:00:00Z"}`)

	rec := s.do(http.MethodPost, "/reservations", "", body, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Nil(s.commands.last)

	rec = s.do(http.MethodPost, "/reservations", "forged", body, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterTestSuite) TestCreateReservation() {
	s.commands.result = &dto.ReservationDetails{ID: "res-1", Status: "pending_payment"}
	body := []byte(`{"spaceId":"space-1","startTime":"2024-03-05T10:00:00Z","endTime":"2024-03-05T12:00:00Z","promoCode":"SAVE10"}`)

	rec := s.do(http.MethodPost, "/reservations", "user-token", body, map[string]string{"Idempotency-Key": " key-1 "})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	cmd, ok := s.commands.last.(reservationapp.CreateReservationCommand)
	s.Require().True(ok)
	s.Equal("user-1", cmd.UserID)
	s.Equal("space-1", cmd.SpaceID)
	s.Equal("SAVE10", cmd.PromoCode)
	s.Equal("key-1", cmd.IdempotencyKeyV)
	s.NotEmpty(cmd.CommandID)
	s.JSONEq(`"res-1"`, string(mustField(s, rec, "id")))
}

func (s *RouterTestSuite) TestErrorsMapToStatus() {
	body := []byte(`{"spaceId":"space-1","startTime":"2024-03-05T10:00:00Z","endTime":"2024-03-05T12:00:00Z"}`)

	s.commands.err = errs.Mark(errs.New("slot taken"), errs.ErrConflict)
	rec := s.do(http.MethodPost, "/reservations", "user-token", body, nil)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("conflict", s.errorBody(rec)["code"])

	s.commands.err = errs.Field("startTime", "must be in the future")
	rec = s.do(http.MethodPost, "/reservations", "user-token", body, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(map[string]any{"startTime": "must be in the future"}, s.errorBody(rec)["fields"])

	s.commands.err = errs.New("mongo exploded")
	rec = s.do(http.MethodPost, "/reservations", "user-token", body, nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("internal error", s.errorBody(rec)["error"])

	rec = s.do(http.MethodPost, "/reservations", "user-token", []byte(`{`), nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterTestSuite) TestTransitionRoutesCarryAction() {
	s.commands.result = dto.ReservationDetails{ID: "res-1", Status: "cancelled"}
	rec := s.do(http.MethodPost, "/reservations/res-1/cancel", "user-token", []byte(`{"reason":"plans changed"}`), nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	cmd, ok := s.commands.last.(reservationapp.TransitionCommand)
	s.Require().True(ok)
	s.Equal(reservationapp.ActionCancel, cmd.Action)
	s.Equal("res-1", cmd.ReservationID)
	s.Equal("plans changed", cmd.Reason)
	s.False(cmd.Admin)

	rec = s.do(http.MethodPost, "/reservations/res-1/no-show", "admin-token", nil, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	cmd = s.commands.last.(reservationapp.TransitionCommand)
	s.Equal(reservationapp.ActionNoShow, cmd.Action)
	s.True(cmd.Admin)
}

func (s *RouterTestSuite) TestWebhookPassesRawBody() {
	s.commands.result = dto.WebhookAck{Status: "processed"}
	payload := []byte(`{"event":"payment.captured",  "payload":{}}`)

	rec := s.do(http.MethodPost, "/webhooks/razorpay", "", payload, map[string]string{
		"X-Razorpay-Signature": "abc123",
		"X-Razorpay-Event-Id":  "evt_1",
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"processed"}`, rec.Body.String())

	cmd, ok := s.commands.last.(paymentapp.HandleWebhookCommand)
	s.Require().True(ok)
	s.Equal(payload, cmd.Payload)
	s.Equal("abc123", cmd.Signature)
	s.Equal("evt_1", cmd.EventID)
}

func (s *RouterTestSuite) TestSignatureFailuresDependOnRoute() {
	s.commands.err = errs.Mark(errs.New("signature mismatch"), errs.ErrSignatureInvalid)

	rec := s.do(http.MethodPost, "/webhooks/razorpay", "", []byte(`{}`), nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/payments/verify", "user-token", []byte(`{"reservationId":"res-1"}`), nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("signature_invalid", s.errorBody(rec)["code"])
}

func (s *RouterTestSuite) TestProviderFailureIsBadGateway() {
	s.commands.err = errs.Mark(errs.New("razorpay timed out"), errs.ErrProviderError)
	rec := s.do(http.MethodPost, "/reservations/res-1/refund", "user-token", []byte(`{"amount":500,"reason":"venue closed"}`), nil)
	s.Equal(http.StatusBadGateway, rec.Code)

	cmd, ok := s.commands.last.(paymentapp.RefundReservationCommand)
	s.Require().True(ok)
	s.Equal("res-1", cmd.ReservationID)
	s.Require().NotNil(cmd.Amount)
	s.Equal(int64(500), *cmd.Amount)
}

func (s *RouterTestSuite) TestWebhookLogsAreAdminOnly() {
	rec := s.do(http.MethodGet, "/webhooks/logs", "user-token", nil, nil)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Nil(s.queries.asked)

	rec = s.do(http.MethodGet, "/webhooks/logs?status=failed&limit=5", "admin-token", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.NotNil(s.queries.asked)
}

func (s *RouterTestSuite) TestRateLimitGuardsWebhooks() {
	s.commands.result = dto.WebhookAck{Status: "ignored"}
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, s.do(http.MethodPost, "/webhooks/razorpay", "", []byte(`{}`), nil).Code)
	}
	s.Equal([]int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/livez", "", nil, nil).Code, "health checks are not limited")
}

func mustField(s *RouterTestSuite, rec *httptest.ResponseRecorder, key string) json.RawMessage {
	var body map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body[key]
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
