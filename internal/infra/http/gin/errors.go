package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"spacebook/internal/pkg/errs"
)

type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps an error to an HTTP status by its taxonomy mark. A signature
// failure is a bad request on the webhook route and an authentication failure
// on the client verify route, so callers pass signatureStatus.
func statusFor(err error, signatureStatus int) int {
	switch {
	case errs.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errs.Is(err, errs.ErrConflict), errs.Is(err, errs.ErrConcurrentUpdate):
		return http.StatusConflict
	case errs.Is(err, errs.ErrSignatureInvalid):
		return signatureStatus
	case errs.Is(err, errs.ErrInvalidStateTransition),
		errs.Is(err, errs.ErrValidationFailed),
		errs.Is(err, errs.ErrInvalidInterval),
		errs.Is(err, errs.ErrNoCompletedPayment):
		return http.StatusBadRequest
	case errs.Is(err, errs.ErrProviderError):
		return http.StatusBadGateway
	case errs.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errs.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errs.Is(err, errs.ErrRetryable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *slog.Logger, err error) {
	writeErrorWith(c, logger, err, http.StatusBadRequest)
}

func writeErrorWith(c *gin.Context, logger *slog.Logger, err error, signatureStatus int) {
	status := statusFor(err, signatureStatus)
	body := errorBody{Error: err.Error(), Code: errs.Kind(err)}
	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "status", status, "error", err)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	if fields := errs.FieldDetails(err); len(fields) > 0 {
		body.Fields = fields
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg, Code: "validation_failed"})
}
