package auth_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	authsvc "spacebook/internal/app/services/auth"
	domainauth "spacebook/internal/domain/auth"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/infra/security"
	"spacebook/internal/infra/storage/memory"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

var now = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

type AuthServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	clock *clock.MockClock
	svc   *authsvc.Service
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewMockClock(now)
	s.svc = &authsvc.Service{
		Users:     memory.NewStore().Users(),
		Passwords: security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:    security.NewJWTCodec("s3cret", "spacebook", s.clock),
		TokenTTL:  time.Hour,
		Clock:     s.clock,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (s *AuthServiceTestSuite) TestRegisterThenLogin() {
	reg, err := s.svc.Register(s.ctx, authsvc.RegisterParams{
		Email:    " Asha@Example.com ",
		Name:     "Asha",
		Password: "long enough",
		Roles:    []domainuser.Role{domainuser.RoleOwner},
	})
	s.Require().NoError(err)
	s.Equal("asha@example.com", reg.User.Email)
	s.Equal(now.Add(time.Hour), reg.ExpiresAt)
	s.NotEqual("long enough", reg.User.PasswordHash)

	login, err := s.svc.Login(s.ctx, authsvc.LoginParams{Email: "ASHA@example.com", Password: "long enough"})
	s.Require().NoError(err)

	p, err := s.svc.Resolve(login.Token)
	s.Require().NoError(err)
	s.Equal(reg.User.ID, p.UserID)
	s.Equal([]domainuser.Role{domainuser.RoleOwner}, p.Roles)
}

func (s *AuthServiceTestSuite) TestRegisterGuards() {
	_, err := s.svc.Register(s.ctx, authsvc.RegisterParams{Email: "a@example.com", Name: "A", Password: "short"})
	s.ErrorIs(err, authsvc.ErrPasswordTooShort)

	_, err = s.svc.Register(s.ctx, authsvc.RegisterParams{Email: "a@example.com", Name: "A", Password: "long enough", Roles: []domainuser.Role{domainuser.RoleAdmin}})
	s.ErrorIs(err, authsvc.ErrRoleNotAllowed)

	_, err = s.svc.Register(s.ctx, authsvc.RegisterParams{Email: "a@example.com", Name: "A", Password: "long enough"})
	s.Require().NoError(err)
	_, err = s.svc.Register(s.ctx, authsvc.RegisterParams{Email: "A@example.com", Name: "B", Password: "long enough"})
	s.ErrorIs(err, domainuser.ErrEmailAlreadyUsed)
}

func (s *AuthServiceTestSuite) TestLoginRejectsBadCredentials() {
	_, err := s.svc.Register(s.ctx, authsvc.RegisterParams{Email: "a@example.com", Name: "A", Password: "long enough"})
	s.Require().NoError(err)

	for _, params := range []authsvc.LoginParams{
		{Email: "a@example.com", Password: "wrong password"},
		{Email: "nobody@example.com", Password: "long enough"},
		{Email: "", Password: "long enough"},
	} {
		_, err := s.svc.Login(s.ctx, params)
		s.ErrorIs(err, authsvc.ErrInvalidCredentials)
		s.True(errs.Is(err, errs.ErrUnauthenticated))
	}
}

func (s *AuthServiceTestSuite) TestResolveRejectsExpiredTokens() {
	reg, err := s.svc.Register(s.ctx, authsvc.RegisterParams{Email: "a@example.com", Name: "A", Password: "long enough"})
	s.Require().NoError(err)

	s.clock.Add(2 * time.Hour)
	_, err = s.svc.Resolve(reg.Token)
	s.ErrorIs(err, domainauth.ErrTokenExpired)

	_, err = s.svc.Resolve("  ")
	s.ErrorIs(err, domainauth.ErrTokenRequired)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
