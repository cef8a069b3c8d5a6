package inmem

import (
	"testing"
	"time"

	"github.com/derWhity/devcamper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func TestRevoke(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := New(ctx)

	assert.False(t, repo.IsRevoked("s1"))
	require.NoError(t, repo.Revoke(&models.Session{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)}))
	assert.True(t, repo.IsRevoked("s1"))
	assert.False(t, repo.IsRevoked("s2"))

	// Revoking an already expired session has no lasting effect
	require.NoError(t, repo.Revoke(&models.Session{ID: "s3", ExpiresAt: time.Now().Add(-time.Second)}))
	assert.False(t, repo.IsRevoked("s3"))
}

func TestPurge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := time.Now()
	ticks := make(chan time.Time)
	rv := make(chan revokeRequest)
	ch := make(chan checkRequest)
	repo := &SessionRepo{revoke: rv, check: ch, done: ctx.Done()}
	go repo.control(ctx, rv, ch, func() time.Time { return clock }, ticks)

	require.NoError(t, repo.Revoke(&models.Session{ID: "s1", ExpiresAt: clock.Add(time.Minute)}))
	assert.True(t, repo.IsRevoked("s1"))
	require.NoError(t, repo.Revoke(&models.Session{ID: "s2", ExpiresAt: clock}))
	ticks <- clock
	// Pending revocations survive the purge
	assert.True(t, repo.IsRevoked("s1"))
	assert.False(t, repo.IsRevoked("s2"))
}

func TestStoppedRepo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := New(ctx)
	cancel()
	assert.True(t, repo.IsRevoked("anything"))
	assert.Error(t, repo.Revoke(&models.Session{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)}))
}
