package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	domainauth "spacebook/internal/domain/auth"
	domainuser "spacebook/internal/domain/user"
)

const principalContextKey = "spacebook.principal"

type principal struct {
	ID    string
	Roles []domainuser.Role
}

func (p principal) HasRole(role domainuser.Role) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(string(r), string(role)) {
			return true
		}
	}
	return false
}

func (p principal) IsAdmin() bool {
	return p.HasRole(domainuser.RoleAdmin)
}

// TokenResolver turns a bearer token into the principal it was issued for.
type TokenResolver interface {
	Resolve(token string) (*domainauth.Principal, error)
}

// AuthMiddleware attaches the caller to the request when a valid bearer token
// is present. Anonymous requests pass through; routes decide what they need.
type AuthMiddleware struct {
	Tokens TokenResolver
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Tokens == nil {
		c.Next()
		return
	}
	resolved, err := m.Tokens.Resolve(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.DebugContext(c.Request.Context(), "token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, principal{
		ID:    string(resolved.UserID),
		Roles: append([]domainuser.Role(nil), resolved.Roles...),
	})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// requireRole answers 401 without a principal and 403 when none of roles is
// held. Admins pass every role check. No roles means any signed-in caller.
func requireRole(c *gin.Context, roles ...domainuser.Role) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "auth required", Code: "unauthenticated"})
		return principal{}, false
	}
	if len(roles) == 0 || p.IsAdmin() {
		return p, true
	}
	for _, role := range roles {
		if p.HasRole(role) {
			return p, true
		}
	}
	c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: "insufficient permissions", Code: "forbidden"})
	return principal{}, false
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
