// Package repos contains the repository interfaces needed in devcamper
// It exists to prevent circular dependencies between the services and the repo implementations
package repos

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/net/context"

	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/query"
)

var (
	// ErrEntityNotExisting is fired by a repository when an entity that is loaded, updated or deleted does not exist
	ErrEntityNotExisting = fmt.Errorf("entity does not exist")
	// ErrDuplicate is fired by a repository when an entity would violate a uniqueness constraint
	ErrDuplicate = fmt.Errorf("duplicate entity")
)

// UserRepo defines a repository that is able to store and query users
type UserRepo interface {
	query.Lister[models.User]
	// Create creates a new user - the ID is assigned by the repository
	Create(ctx context.Context, u *models.User) error
	// Update updates an existing user
	Update(ctx context.Context, u *models.User) error
	// Delete removes an existing user from the user storage
	Delete(ctx context.Context, id string) error
	// GetByID returns the user with the given ID
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail returns the user having the given e-mail address
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByResetToken returns the user owning the given (hashed) password reset token if it is still valid at the
	// given time
	GetByResetToken(ctx context.Context, hashedToken string, now time.Time) (*models.User, error)
	// Purge removes all users
	Purge(ctx context.Context) error
}

// BootcampRepo defines a repository that is able to store and query bootcamps
type BootcampRepo interface {
	query.Lister[models.Bootcamp]
	// Create creates a new bootcamp - the ID is assigned by the repository
	Create(ctx context.Context, b *models.Bootcamp) error
	// Update updates an existing bootcamp
	Update(ctx context.Context, b *models.Bootcamp) error
	// Delete removes a bootcamp together with its courses and reviews
	Delete(ctx context.Context, id string) error
	// GetByID returns the bootcamp with the given ID
	GetByID(ctx context.Context, id string) (*models.Bootcamp, error)
	// GetByOwner returns all bootcamps owned by the given user
	GetByOwner(ctx context.Context, userID string) ([]models.Bootcamp, error)
	// RecomputeAverages updates the average course cost and the average rating of the given bootcamp
	RecomputeAverages(ctx context.Context, id string) error
	// Purge removes all bootcamps
	Purge(ctx context.Context) error
}

// CourseRepo defines a repository that is able to store and query courses
type CourseRepo interface {
	query.Lister[models.Course]
	// Create creates a new course - the ID is assigned by the repository
	Create(ctx context.Context, c *models.Course) error
	// Update updates an existing course
	Update(ctx context.Context, c *models.Course) error
	// Delete removes an existing course
	Delete(ctx context.Context, id string) error
	// GetByID returns the course with the given ID
	GetByID(ctx context.Context, id string) (*models.Course, error)
	// ListByBootcamps returns the courses of all given bootcamps
	ListByBootcamps(ctx context.Context, bootcampIDs []string) ([]models.Course, error)
	// Purge removes all courses
	Purge(ctx context.Context) error
}

// ReviewRepo defines a repository that is able to store and query reviews
type ReviewRepo interface {
	query.Lister[models.Review]
	// Create creates a new review - returns ErrDuplicate if the user already reviewed the bootcamp
	Create(ctx context.Context, r *models.Review) error
	// Update updates an existing review
	Update(ctx context.Context, r *models.Review) error
	// Delete removes an existing review
	Delete(ctx context.Context, id string) error
	// GetByID returns the review with the given ID
	GetByID(ctx context.Context, id string) (*models.Review, error)
	// Purge removes all reviews
	Purge(ctx context.Context) error
}

// SessionRepo remembers sessions that have been ended before their token expired
type SessionRepo interface {
	// Revoke marks the given session as ended
	Revoke(sess *models.Session) error
	// IsRevoked checks if the session with the given ID has been ended
	IsRevoked(sessionID string) bool
}

// -- Helpers for SQLX repos -------------------------------------------------------------------------------------------

// DoRollback rolls back a transaction and catches any error resulting from it while appending the original error
func DoRollback(tx *sqlx.Tx, originalError error) error {
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("doRollback: Transaction rollback failed: %v; Recent error: %v", err, originalError)
	}
	return originalError
}

// WithTimeout applies the storage query timeout to the context - a timeout of 0 leaves the context unchanged
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
