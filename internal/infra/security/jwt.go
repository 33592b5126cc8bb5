package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "spacebook/internal/domain/auth"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/pkg/clock"
	"spacebook/internal/pkg/errs"
)

type claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTCodec signs principals as HS256 bearer tokens.
type JWTCodec struct {
	Secret []byte
	Issuer string
	Clock  clock.Clock
}

func NewJWTCodec(secret, issuer string, c clock.Clock) *JWTCodec {
	return &JWTCodec{Secret: []byte(secret), Issuer: issuer, Clock: c}
}

func (c *JWTCodec) Issue(p *domainauth.Principal) (domainauth.Token, error) {
	if len(c.Secret) == 0 {
		return "", errs.New("security: jwt secret missing")
	}
	jti, err := OpaqueID("", 12)
	if err != nil {
		return "", err
	}
	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, string(r))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    c.Issuer,
			Subject:   string(p.UserID),
			IssuedAt:  jwt.NewNumericDate(p.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	})
	signed, err := token.SignedString(c.Secret)
	if err != nil {
		return "", errs.Wrap(err, "security: sign token")
	}
	return domainauth.Token(signed), nil
}

func (c *JWTCodec) Parse(raw domainauth.Token) (*domainauth.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(clock.Or(c.Clock).Now),
	}
	if c.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.Issuer))
	}
	var parsed claims
	token, err := jwt.ParseWithClaims(string(raw), &parsed, func(*jwt.Token) (any, error) {
		return c.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainauth.ErrTokenExpired
		}
		return nil, domainauth.ErrTokenInvalid
	}
	if !token.Valid || parsed.Subject == "" {
		return nil, domainauth.ErrTokenInvalid
	}
	p := &domainauth.Principal{UserID: domainuser.ID(parsed.Subject)}
	for _, r := range parsed.Roles {
		p.Roles = append(p.Roles, domainuser.Role(r))
	}
	if parsed.IssuedAt != nil {
		p.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	if parsed.ExpiresAt != nil {
		p.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	} else {
		p.ExpiresAt = time.Time{}
	}
	return p, nil
}

var _ domainauth.TokenCodec = (*JWTCodec)(nil)
