// Package jwt signs and verifies the HS256 session tokens issued by the identity provider.
package jwt

import (
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims are the claims carried by a drive session token.
// Subject holds the user id.
type UserClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	AccountID string `json:"account_id,omitempty"`
}

// JWT verifies and issues tokens with a shared secret.
type JWT struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// Option customizes a JWT.
type Option func(*JWT)

// WithIssuer requires and stamps the iss claim.
func WithIssuer(issuer string) Option {
	return func(j *JWT) { j.issuer = issuer }
}

// WithLeeway tolerates clock skew when checking exp/iat.
func WithLeeway(leeway time.Duration) Option {
	return func(j *JWT) { j.leeway = leeway }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) { j.now = now }
}

// New creates a JWT helper. The secret must be at least 16 bytes.
func New(secret []byte, opts ...Option) (*JWT, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}

	j := &JWT{
		secret: secret,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}

	return j, nil
}

// Sign issues a token for the given identity valid for ttl.
func (j *JWT) Sign(userID, email, accountID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}

	now := j.now()
	claims := &UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:     strings.ToLower(strings.TrimSpace(email)),
		AccountID: accountID,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}

// Parse verifies the signature and expiry, returning the claims.
func (j *JWT) Parse(token string) (*UserClaims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(j.leeway),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
	}

	claims := new(UserClaims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}
