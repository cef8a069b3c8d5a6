package token

import (
	"testing"
	"time"

	"github.com/derWhity/devcamper/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	signed, sess, err := iss.Issue(&models.User{ID: "u1", Role: models.RolePublisher})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	parsed, err := iss.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, parsed.ID)
	assert.Equal(t, "u1", parsed.UserID)
	assert.Equal(t, models.RolePublisher, parsed.Role)
	assert.True(t, sess.ExpiresAt.Equal(parsed.ExpiresAt))
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	signed, _, err := iss.Issue(&models.User{ID: "u1", Role: models.RoleUser})
	require.NoError(t, err)

	_, err = NewIssuer("other", time.Hour).Parse(signed)
	assert.Equal(t, ErrInvalid, err)

	later := NewIssuer("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Parse(signed)
	assert.Equal(t, ErrInvalid, err)

	_, err = iss.Parse("garbage")
	assert.Equal(t, ErrInvalid, err)
}

func TestParseRejectsUnsignedTokens(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "s1",
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewIssuer("secret", time.Hour).Parse(unsigned)
	assert.Equal(t, ErrInvalid, err)
}

func TestNoSecret(t *testing.T) {
	_, _, err := NewIssuer("", time.Hour).Issue(&models.User{ID: "u1"})
	assert.Equal(t, ErrNoSecret, err)
}
