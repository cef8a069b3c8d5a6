// Package mongodb provides a user repository that uses MongoDB for storing users
package mongodb

import (
	"strings"
	"time"

	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/repos/mongoquery"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/net/context"
)

// UserRepo implements repos.UserRepo and provides access to users stored inside a MongoDB collection
type UserRepo struct {
	*mongoquery.Collection[models.User]
	logger *logrus.Entry
}

// New creates a new UserRepo
func New(db *mongo.Database, timeout time.Duration, logger *logrus.Entry) repos.UserRepo {
	return &UserRepo{
		Collection: mongoquery.NewCollection[models.User](db.Collection(mongoquery.CollUsers), repos.UserSchema, timeout),
		logger:     logger,
	}
}

// Create creates a new user
func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	r.logger.WithField(log.FldID, u.ID).Debug("Creating user")
	return r.Insert(ctx, u)
}

// Update updates an existing user
func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	r.logger.WithField(log.FldID, u.ID).Debug("Updating user")
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	fields := bson.M{
		"name":                u.Name,
		"email":               u.Email,
		"role":                u.Role,
		"passwordHash":        u.PasswordHash,
		"resetPasswordToken":  nil,
		"resetPasswordExpire": nil,
	}
	if u.ResetPasswordToken != "" {
		fields["resetPasswordToken"] = u.ResetPasswordToken
	}
	if u.ResetPasswordExpire != nil {
		fields["resetPasswordExpire"] = *u.ResetPasswordExpire
	}
	return r.Set(ctx, u.ID, fields)
}

// GetByEmail returns the user having the given e-mail address
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.GetWhere(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

// GetByResetToken returns the user owning the given password reset token if it has not expired, yet
func (r *UserRepo) GetByResetToken(ctx context.Context, hashedToken string, now time.Time) (*models.User, error) {
	if hashedToken == "" {
		return nil, repos.ErrEntityNotExisting
	}
	return r.GetWhere(ctx, bson.M{
		"resetPasswordToken":  hashedToken,
		"resetPasswordExpire": bson.M{"$gt": now},
	})
}
