// Package ctxhelper stores the per-request values of the API in the context: the logger and, for calls carrying a
// valid token, the token session and the user it belongs to.
package ctxhelper

import (
	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var (
	// KeySession is the context key for storing the token session of the current call
	KeySession = ctxKey("session")
	// KeyUser is the context key for storing the user owning the token of the current call
	KeyUser = ctxKey("user")
	// KeyLogger is the context key for storing the logger in the context
	KeyLogger = ctxKey("logger")
)

// internal context key
type ctxKey string

// WithLogger returns a context carrying the given request logger
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, KeyLogger, logger)
}

// WithAuth returns a context carrying the session and user of an authenticated call. The logger already stored in
// the context is enriched with the session and user IDs.
func WithAuth(ctx context.Context, sess models.Session, user models.User) context.Context {
	ctx = context.WithValue(ctx, KeySession, sess)
	ctx = context.WithValue(ctx, KeyUser, user)
	if logger, ok := ctx.Value(KeyLogger).(*logrus.Entry); ok {
		ctx = WithLogger(ctx, logger.WithFields(logrus.Fields{
			log.FldSession: sess.ID,
			log.FldUser:    user.ID,
			log.FldRole:    user.Role,
		}))
	}
	return ctx
}

// Session returns the token session of the current call. Anonymous calls have none.
func Session(ctx context.Context) *models.Session {
	if sess, ok := ctx.Value(KeySession).(models.Session); ok {
		return &sess
	}
	return nil
}

// User returns a copy of the user that authenticated the current call, or nil for anonymous calls
func User(ctx context.Context) *models.User {
	usr, ok := ctx.Value(KeyUser).(models.User)
	if ok {
		return &usr
	}
	return nil
}

// Logger returns the logger from the current context. If no logger is available, it panics
func Logger(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(KeyLogger).(*logrus.Entry)
	if ok {
		return logger
	}
	panic("No logger in context")
}
