// Package sqlite provides a user repository that uses SQLite for storing users
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/repos/sqlquery"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	// The field names in the user table
	fieldNames = `id, name, email, role, passwordHash, resetPasswordToken, resetPasswordExpire, createdAt`
)

var table = &sqlquery.Table{Name: "Users", Schema: repos.UserSchema}

// UserRepo implements repos.UserRepo and provides access to users stored inside a SQLite database
type UserRepo struct {
	logger  *logrus.Entry
	db      *sqlx.DB
	timeout time.Duration
}

// New creates a new UserRepo
func New(db *sqlx.DB, timeout time.Duration, logger *logrus.Entry) repos.UserRepo {
	return &UserRepo{logger, db, timeout}
}

// Count returns the number of users matching the descriptor
func (r *UserRepo) Count(ctx context.Context, d *query.Descriptor) (int, error) {
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt, args, err := table.Count(d)
	if err != nil {
		return 0, err
	}
	var num int
	if err := r.db.GetContext(ctx, &num, stmt, args...); err != nil {
		return 0, err
	}
	return num, nil
}

// Find returns the requested page of users matching the descriptor
func (r *UserRepo) Find(ctx context.Context, d *query.Descriptor) ([]models.User, error) {
	r.logger.WithFields(logrus.Fields{
		log.FldPage:  d.Page,
		log.FldLimit: d.Limit,
	}).Debug("Searching for users")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt, args, err := table.Select(fieldNames, d)
	if err != nil {
		return nil, err
	}
	var ret []models.User
	if err := r.db.SelectContext(ctx, &ret, stmt, args...); err != nil {
		return nil, err
	}
	return ret, nil
}

// Create creates a new user
func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	r.logger.WithField(log.FldID, u.ID).Debug("Creating user")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt := fmt.Sprintf(`INSERT INTO Users(%s) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`, fieldNames)
	_, err := r.db.ExecContext(ctx, stmt,
		u.ID, u.Name, u.Email, u.Role, u.PasswordHash, u.ResetPasswordToken, u.ResetPasswordExpire, u.CreatedAt,
	)
	if sqlquery.IsUniqueViolation(err) {
		return repos.ErrDuplicate
	}
	return err
}

// Update updates an existing user
func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	r.logger.WithField(log.FldID, u.ID).Debug("Updating user")
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt := `UPDATE Users SET
        name = ?, email = ?, role = ?, passwordHash = ?, resetPasswordToken = ?, resetPasswordExpire = ?
    WHERE id = ?`
	res, err := r.db.ExecContext(ctx, stmt,
		u.Name, u.Email, u.Role, u.PasswordHash, u.ResetPasswordToken, u.ResetPasswordExpire, u.ID,
	)
	if err != nil {
		if sqlquery.IsUniqueViolation(err) {
			return repos.ErrDuplicate
		}
		return err
	}
	if num, err := res.RowsAffected(); err != nil || num == 0 {
		if err != nil {
			return fmt.Errorf("Update: Failed to get number of updated rows: %v", err)
		}
		return repos.ErrEntityNotExisting
	}
	return nil
}

// Delete removes an existing user from the user storage
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	r.logger.WithField(log.FldID, id).Debug("Deleting user")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, "DELETE FROM Users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if num, err := res.RowsAffected(); err != nil || num == 0 {
		if err != nil {
			return err
		}
		return repos.ErrEntityNotExisting
	}
	return nil
}

// GetByID returns the user with the given ID
func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail returns the user having the given e-mail address
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByResetToken returns the user owning the given password reset token if it has not expired, yet
func (r *UserRepo) GetByResetToken(ctx context.Context, hashedToken string, now time.Time) (*models.User, error) {
	if hashedToken == "" {
		return nil, repos.ErrEntityNotExisting
	}
	u, err := r.getOne(ctx, "resetPasswordToken = ?", hashedToken)
	if err != nil {
		return nil, err
	}
	if u.ResetPasswordExpire == nil || !u.ResetPasswordExpire.After(now) {
		return nil, repos.ErrEntityNotExisting
	}
	return u, nil
}

// Purge removes all users
func (r *UserRepo) Purge(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM Users")
	return err
}

func (r *UserRepo) getOne(ctx context.Context, where string, args ...interface{}) (*models.User, error) {
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	var u models.User
	err := r.db.GetContext(ctx, &u, fmt.Sprintf("SELECT %s FROM Users WHERE %s", fieldNames, where), args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repos.ErrEntityNotExisting
		}
		return nil, err
	}
	return &u, nil
}
