// Package token issues and verifies the signed tokens carrying the API sessions
package token

import (
	"time"

	"github.com/derWhity/devcamper/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrNoSecret is returned when no signing secret has been configured
	ErrNoSecret = errors.New("no token secret configured")
	// ErrInvalid is returned for tokens that are malformed, expired or signed with another key
	ErrInvalid = errors.New("invalid token")
)

// Claims are the claims stored inside a token
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Issuer creates and checks HS256 signed tokens
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewIssuer creates a token issuer signing with the given secret. Tokens expire after the lifetime.
func NewIssuer(secret string, lifetime time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), lifetime: lifetime, now: time.Now}
}

// Issue creates a new session for the user and returns it together with its signed token
func (i *Issuer) Issue(u *models.User) (string, *models.Session, error) {
	if len(i.secret) == 0 {
		return "", nil, ErrNoSecret
	}
	now := i.now().UTC()
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Role:      u.Role,
		ExpiresAt: now.Add(i.lifetime).Truncate(time.Second),
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		Role: u.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, errors.Wrap(err, "Issue: cannot sign token")
	}
	return signed, sess, nil
}

// Parse verifies the token and returns the session it carries
func (i *Issuer) Parse(tokenString string) (*models.Session, error) {
	if len(i.secret) == 0 {
		return nil, ErrNoSecret
	}
	var claims Claims
	tok, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalid
	}
	return &models.Session{
		ID:        claims.ID,
		UserID:    claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Lifetime returns how long issued tokens stay valid
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}
