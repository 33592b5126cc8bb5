package security_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "spacebook/internal/domain/auth"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/infra/security"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

var now = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func issue(t *testing.T, codec *security.JWTCodec) domainauth.Token {
	t.Helper()
	p, err := domainauth.NewPrincipal(domainauth.IssueParams{
		UserID: "user-1",
		Roles:  []domainuser.Role{domainuser.RoleUser, domainuser.RoleOwner},
		TTL:    time.Hour,
		Now:    now,
	})
	require.NoError(t, err)
	token, err := codec.Issue(p)
	require.NoError(t, err)
	return token
}

func TestJWTRoundTrip(t *testing.T) {
	codec := security.NewJWTCodec("s3cret", "spacebook", clock.NewMockClock(now.Add(time.Minute)))
	token := issue(t, codec)
	assert.Len(t, strings.Split(string(token), "."), 3)

	p, err := codec.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, domainuser.ID("user-1"), p.UserID)
	assert.Equal(t, []domainuser.Role{domainuser.RoleUser, domainuser.RoleOwner}, p.Roles)
	assert.Equal(t, now, p.IssuedAt)
	assert.Equal(t, now.Add(time.Hour), p.ExpiresAt)
}

func TestJWTRejectsExpiredTokens(t *testing.T) {
	clk := clock.NewMockClock(now)
	codec := security.NewJWTCodec("s3cret", "spacebook", clk)
	token := issue(t, codec)

	clk.Set(now.Add(2 * time.Hour))
	_, err := codec.Parse(token)
	assert.ErrorIs(t, err, domainauth.ErrTokenExpired)
	assert.True(t, errs.Is(err, errs.ErrUnauthenticated))
}

func TestJWTRejectsForeignTokens(t *testing.T) {
	clk := clock.NewMockClock(now)
	token := issue(t, security.NewJWTCodec("s3cret", "spacebook", clk))

	_, err := security.NewJWTCodec("other", "spacebook", clk).Parse(token)
	assert.ErrorIs(t, err, domainauth.ErrTokenInvalid)

	_, err = security.NewJWTCodec("s3cret", "someone-else", clk).Parse(token)
	assert.ErrorIs(t, err, domainauth.ErrTokenInvalid)

	_, err = security.NewJWTCodec("s3cret", "spacebook", clk).Parse("not-a-token")
	assert.ErrorIs(t, err, domainauth.ErrTokenInvalid)

	_, err = security.NewJWTCodec("", "spacebook", clk).Issue(&domainauth.Principal{UserID: "u"})
	assert.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := security.BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.ErrorIs(t, h.Compare(hash, "battery staple"), bcrypt.ErrMismatchedHashAndPassword)
	assert.Error(t, h.Compare("", "correct horse"))

	_, err = h.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, security.ErrPasswordTooLong)
	assert.True(t, errs.Is(err, errs.ErrValidationFailed))
}

func TestOpaqueID(t *testing.T) {
	a, err := security.OpaqueID("lock_", 16)
	require.NoError(t, err)
	b, err := security.OpaqueID("lock_", 16)
	require.NoError(t, err)
	assert.Regexp(t, `^lock_[A-Za-z0-9_-]{22}$`, a)
	assert.NotEqual(t, a, b)

	c, err := security.OpaqueID("", 0)
	require.NoError(t, err)
	assert.Len(t, c, 22)
}
