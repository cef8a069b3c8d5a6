// Package inmem provides a session repository that holds the revoked sessions in-memory
package inmem

import (
	"time"

	"github.com/derWhity/devcamper/internal/models"
	"golang.org/x/net/context"
)

// purgeInterval is the time between two purges of revocations whose tokens have expired anyway
const purgeInterval = time.Minute

// revokeRequest is sent over the repo's revoke channel to end a session inside the control goroutine
type revokeRequest struct {
	sessionID string
	expiresAt time.Time
	answer    chan<- struct{}
}

// checkRequest is sent over the repo's check channel to ask if a session has been ended
type checkRequest struct {
	sessionID string
	answer    chan<- bool
}

// SessionRepo is a session repository that remembers ended sessions in-memory until their tokens expire
type SessionRepo struct {
	// revoke is a channel to mark a session as ended
	revoke chan<- revokeRequest
	// check is a channel to request the revocation state of a session
	check chan<- checkRequest
	done  <-chan struct{}
}

// New creates a new session repository instance. The repository stops working when the context is done.
func New(ctx context.Context) *SessionRepo {
	rv := make(chan revokeRequest)
	ch := make(chan checkRequest)
	repo := &SessionRepo{revoke: rv, check: ch, done: ctx.Done()}
	// Spin up the control goroutine
	ticker := time.NewTicker(purgeInterval)
	go func() {
		defer ticker.Stop()
		repo.control(ctx, rv, ch, time.Now, ticker.C)
	}()
	return repo
}

// control is the control goroutine that runs until the context ends, waiting for requests for managing revocations
func (r *SessionRepo) control(
	ctx context.Context,
	revoke <-chan revokeRequest,
	check <-chan checkRequest,
	now func() time.Time,
	purge <-chan time.Time,
) {
	revoked := map[string]time.Time{}
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-revoke:
			revoked[req.sessionID] = req.expiresAt
			close(req.answer)
		case req := <-check:
			expiresAt, ok := revoked[req.sessionID]
			req.answer <- ok && expiresAt.After(now())
		case <-purge:
			// Tokens of these sessions are rejected for their expiry anyway
			t := now()
			for id, expiresAt := range revoked {
				if !expiresAt.After(t) {
					delete(revoked, id)
				}
			}
		}
	}
}

// Revoke marks the given session as ended. Its token is rejected until it expires.
func (r *SessionRepo) Revoke(sess *models.Session) error {
	select {
	case <-r.done:
		return context.Canceled
	default:
	}
	answer := make(chan struct{})
	select {
	case r.revoke <- revokeRequest{sessionID: sess.ID, expiresAt: sess.ExpiresAt, answer: answer}:
	case <-r.done:
		return context.Canceled
	}
	<-answer
	return nil
}

// IsRevoked checks if the session with the given ID has been ended. After shutdown, every session counts as revoked.
func (r *SessionRepo) IsRevoked(sessionID string) bool {
	select {
	case <-r.done:
		return true
	default:
	}
	answer := make(chan bool)
	select {
	case r.check <- checkRequest{sessionID: sessionID, answer: answer}:
	case <-r.done:
		return true
	}
	return <-answer
}
