// Package sqlite provides a course repository that uses SQLite for storing courses
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
	// The field names in the course table
	fieldNames = `id, title, description, weeks, tuition, minimumSkill, scholarshipAvailable, bootcampId, userId, createdAt`
)

var table = &sqlquery.Table{Name: "Courses", Schema: repos.CourseSchema}

// CourseRepo implements repos.CourseRepo and provides access to courses stored inside a SQLite database
type CourseRepo struct {
	logger  *logrus.Entry
	db      *sqlx.DB
	timeout time.Duration
}

// New creates a new CourseRepo
func New(db *sqlx.DB, timeout time.Duration, logger *logrus.Entry) repos.CourseRepo {
	return &CourseRepo{logger, db, timeout}
}

// Count returns the number of courses matching the descriptor
func (r *CourseRepo) Count(ctx context.Context, d *query.Descriptor) (int, error) {
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

// Find returns the requested page of courses matching the descriptor
func (r *CourseRepo) Find(ctx context.Context, d *query.Descriptor) ([]models.Course, error) {
	r.logger.WithFields(logrus.Fields{
		log.FldPage:  d.Page,
		log.FldLimit: d.Limit,
	}).Debug("Searching for courses")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt, args, err := table.Select(fieldNames, d)
	if err != nil {
		return nil, err
	}
	var ret []models.Course
	if err := r.db.SelectContext(ctx, &ret, stmt, args...); err != nil {
		return nil, err
	}
	return ret, nil
}

// Create creates a new course
func (r *CourseRepo) Create(ctx context.Context, c *models.Course) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.logger.WithFields(logrus.Fields{log.FldID: c.ID, log.FldBootcamp: c.BootcampID}).Debug("Creating course")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt := fmt.Sprintf(`INSERT INTO Courses(%s) VALUES(
        :id, :title, :description, :weeks, :tuition, :minimumSkill, :scholarshipAvailable, :bootcampId, :userId, :createdAt
    )`, fieldNames)
	_, err := r.db.NamedExecContext(ctx, stmt, c)
	if sqlquery.IsUniqueViolation(err) {
		return repos.ErrDuplicate
	}
	return err
}

// Update updates an existing course. The bootcamp a course belongs to cannot be changed.
func (r *CourseRepo) Update(ctx context.Context, c *models.Course) error {
	r.logger.WithField(log.FldID, c.ID).Debug("Updating course")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt := `UPDATE Courses SET
        title = :title, description = :description, weeks = :weeks, tuition = :tuition, minimumSkill = :minimumSkill,
        scholarshipAvailable = :scholarshipAvailable, userId = :userId
    WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, stmt, c)
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

// Delete removes an existing course
func (r *CourseRepo) Delete(ctx context.Context, id string) error {
	r.logger.WithField(log.FldID, id).Debug("Deleting course")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, "DELETE FROM Courses WHERE id = ?", id)
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

// GetByID returns the course with the given ID
func (r *CourseRepo) GetByID(ctx context.Context, id string) (*models.Course, error) {
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	var c models.Course
	if err := r.db.GetContext(ctx, &c, fmt.Sprintf("SELECT %s FROM Courses WHERE id = ?", fieldNames), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, repos.ErrEntityNotExisting
		}
		return nil, err
	}
	return &c, nil
}

// ListByBootcamps returns the courses of all given bootcamps
func (r *CourseRepo) ListByBootcamps(ctx context.Context, bootcampIDs []string) ([]models.Course, error) {
	if len(bootcampIDs) == 0 {
		return []models.Course{}, nil
	}
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt, args, err := sqlx.In(
		fmt.Sprintf("SELECT %s FROM Courses WHERE bootcampId IN (?) ORDER BY createdAt, id", fieldNames),
		bootcampIDs,
	)
	if err != nil {
		return nil, err
	}
	var ret []models.Course
	if err := r.db.SelectContext(ctx, &ret, r.db.Rebind(stmt), args...); err != nil {
		return nil, err
	}
	return ret, nil
}

// Purge removes all courses
func (r *CourseRepo) Purge(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM Courses")
	return err
}
