package auth

import (
	"strings"
	"time"

	"spacebook/internal/domain/user"
	"spacebook/internal/pkg/errs"
)

var (
	ErrTokenRequired = errs.Mark(errs.New("auth: token is required"), errs.ErrUnauthenticated)
	ErrTokenInvalid  = errs.Mark(errs.New("auth: token is invalid"), errs.ErrUnauthenticated)
	ErrTokenExpired  = errs.Mark(errs.New("auth: token expired"), errs.ErrUnauthenticated)
	ErrUserRequired  = errs.New("auth: user is required")
	ErrTTLInvalid    = errs.New("auth: ttl must be positive")
)

type Token string

// Principal is the authenticated caller carried by a bearer token.
type Principal struct {
	UserID    user.ID
	Roles     []user.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type IssueParams struct {
	UserID user.ID
	Roles  []user.Role
	TTL    time.Duration
	Now    time.Time
}

func NewPrincipal(params IssueParams) (*Principal, error) {
	if strings.TrimSpace(string(params.UserID)) == "" {
		return nil, ErrUserRequired
	}
	if params.TTL <= 0 {
		return nil, ErrTTLInvalid
	}
	now := params.Now.UTC()
	return &Principal{
		UserID:    params.UserID,
		Roles:     append([]user.Role(nil), params.Roles...),
		IssuedAt:  now,
		ExpiresAt: now.Add(params.TTL),
	}, nil
}

func (p *Principal) Expired(at time.Time) bool {
	return !p.ExpiresAt.After(at.UTC())
}

func (p *Principal) HasRole(role user.Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenCodec signs principals into bearer tokens and back.
type TokenCodec interface {
	Issue(p *Principal) (Token, error)
	Parse(token Token) (*Principal, error)
}
