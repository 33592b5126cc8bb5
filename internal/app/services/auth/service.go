package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "spacebook/internal/domain/auth"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

var (
	ErrInvalidCredentials = errs.Mark(errs.New("auth: invalid credentials"), errs.ErrUnauthenticated)
	ErrPasswordTooShort   = errs.Field("password", "must be at least 8 characters")
	ErrRoleNotAllowed     = errs.Field("roles", "role cannot be requested at registration")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Service registers users and exchanges credentials for bearer tokens.
type Service struct {
	Users     domainuser.Repository
	Passwords PasswordHasher
	Tokens    domainauth.TokenCodec
	TokenTTL  time.Duration
	Clock     clock.Clock
	Logger    *slog.Logger
}

type RegisterParams struct {
	Email    string
	Name     string
	Password string
	Roles    []domainuser.Role
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User      *domainuser.User
	Token     string
	ExpiresAt time.Time
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := s.validatePassword(params.Password); err != nil {
		return nil, err
	}
	for _, role := range params.Roles {
		if !selfService(role) {
			return nil, ErrRoleNotAllowed
		}
	}
	email := domainuser.NormalizeEmail(params.Email)
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errs.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, errs.Wrap(err, "auth: hash password")
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         params.Name,
		PasswordHash: hash,
		Roles:        params.Roles,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger().InfoContext(ctx, "user registered", "user_id", user.ID, "roles", user.Roles)
	return result, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger().InfoContext(ctx, "user authenticated", "user_id", user.ID)
	return result, nil
}

// Resolve turns a bearer token into its principal.
func (s *Service) Resolve(token string) (*domainauth.Principal, error) {
	if s.Tokens == nil {
		return nil, errs.New("auth: token codec required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	principal, err := s.Tokens.Parse(domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	if principal.Expired(s.now()) {
		return nil, domainauth.ErrTokenExpired
	}
	return principal, nil
}

func (s *Service) issue(user *domainuser.User) (*AuthResult, error) {
	principal, err := domainauth.NewPrincipal(domainauth.IssueParams{
		UserID: user.ID,
		Roles:  append([]domainuser.Role(nil), user.Roles...),
		TTL:    s.tokenTTL(),
		Now:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	token, err := s.Tokens.Issue(principal)
	if err != nil {
		return nil, errs.Wrap(err, "auth: issue token")
	}
	return &AuthResult{User: user, Token: string(token), ExpiresAt: principal.ExpiresAt}, nil
}

func selfService(role domainuser.Role) bool {
	for _, r := range domainuser.SelfServiceRoles {
		if strings.EqualFold(string(r), string(role)) {
			return true
		}
	}
	return false
}

func (s *Service) now() time.Time {
	return clock.Or(s.Clock).Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 24 * time.Hour
}

func (s *Service) validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errs.New("auth: user repository required")
	case s.Passwords == nil:
		return errs.New("auth: password hasher required")
	case s.Tokens == nil:
		return errs.New("auth: token codec required")
	default:
		return nil
	}
}
