// Package sqlite provides a review repository that uses SQLite for storing reviews
package sqlite

import (
	"database/sql"
	"fmt"
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
	// The field names in the review table
	fieldNames = `id, title, text, rating, bootcampId, userId, createdAt`
)

var table = &sqlquery.Table{Name: "Reviews", Schema: repos.ReviewSchema}

// ReviewRepo implements repos.ReviewRepo and provides access to reviews stored inside a SQLite database
type ReviewRepo struct {
	logger  *logrus.Entry
	db      *sqlx.DB
	timeout time.Duration
}

// New creates a new ReviewRepo
func New(db *sqlx.DB, timeout time.Duration, logger *logrus.Entry) repos.ReviewRepo {
	return &ReviewRepo{logger, db, timeout}
}

// Count returns the number of reviews matching the descriptor
func (r *ReviewRepo) Count(ctx context.Context, d *query.Descriptor) (int, error) {
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

// Find returns the requested page of reviews matching the descriptor
func (r *ReviewRepo) Find(ctx context.Context, d *query.Descriptor) ([]models.Review, error) {
	r.logger.WithFields(logrus.Fields{
		log.FldPage:  d.Page,
		log.FldLimit: d.Limit,
	}).Debug("Searching for reviews")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt, args, err := table.Select(fieldNames, d)
	if err != nil {
		return nil, err
	}
	var ret []models.Review
	if err := r.db.SelectContext(ctx, &ret, stmt, args...); err != nil {
		return nil, err
	}
	return ret, nil
}

// Create creates a new review - a second review of the same user for the same bootcamp fails with
// repos.ErrDuplicate
func (r *ReviewRepo) Create(ctx context.Context, rv *models.Review) error {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}
	r.logger.WithFields(logrus.Fields{log.FldID: rv.ID, log.FldBootcamp: rv.Bootcamp}).Debug("Creating review")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt := fmt.Sprintf(`INSERT INTO Reviews(%s) VALUES(:id, :title, :text, :rating, :bootcampId, :userId, :createdAt)`,
		fieldNames)
	_, err := r.db.NamedExecContext(ctx, stmt, rv)
	if sqlquery.IsUniqueViolation(err) {
		return repos.ErrDuplicate
	}
	return err
}

// Update updates title, text and rating of an existing review
func (r *ReviewRepo) Update(ctx context.Context, rv *models.Review) error {
	r.logger.WithField(log.FldID, rv.ID).Debug("Updating review")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.db.NamedExecContext(ctx,
		`UPDATE Reviews SET title = :title, text = :text, rating = :rating WHERE id = :id`, rv)
	if err != nil {
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

// Delete removes an existing review
func (r *ReviewRepo) Delete(ctx context.Context, id string) error {
	r.logger.WithField(log.FldID, id).Debug("Deleting review")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, "DELETE FROM Reviews WHERE id = ?", id)
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

// GetByID returns the review with the given ID
func (r *ReviewRepo) GetByID(ctx context.Context, id string) (*models.Review, error) {
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	var rv models.Review
	if err := r.db.GetContext(ctx, &rv, fmt.Sprintf("SELECT %s FROM Reviews WHERE id = ?", fieldNames), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, repos.ErrEntityNotExisting
		}
		return nil, err
	}
	return &rv, nil
}

// Purge removes all reviews
func (r *ReviewRepo) Purge(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM Reviews")
	return err
}
