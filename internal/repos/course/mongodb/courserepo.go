// Package mongodb provides a course repository that uses MongoDB for storing courses
package mongodb

import (
	"time"

	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/repos/mongoquery"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/net/context"
)

// CourseRepo implements repos.CourseRepo and provides access to courses stored inside a MongoDB collection
type CourseRepo struct {
	*mongoquery.Collection[models.Course]
	logger *logrus.Entry
}

// New creates a new CourseRepo
func New(db *mongo.Database, timeout time.Duration, logger *logrus.Entry) repos.CourseRepo {
	return &CourseRepo{
		Collection: mongoquery.NewCollection[models.Course](
			db.Collection(mongoquery.CollCourses), repos.CourseSchema, timeout,
		),
		logger: logger,
	}
}

// Create creates a new course
func (r *CourseRepo) Create(ctx context.Context, c *models.Course) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	r.logger.WithFields(logrus.Fields{log.FldID: c.ID, log.FldBootcamp: c.BootcampID}).Debug("Creating course")
	return r.Insert(ctx, c)
}

// Update updates an existing course. The bootcamp a course belongs to cannot be changed.
func (r *CourseRepo) Update(ctx context.Context, c *models.Course) error {
	r.logger.WithField(log.FldID, c.ID).Debug("Updating course")
	return r.Set(ctx, c.ID, bson.M{
		"title":                c.Title,
		"description":          c.Description,
		"weeks":                c.Weeks,
		"tuition":              c.Tuition,
		"minimumSkill":         c.MinimumSkill,
		"scholarshipAvailable": c.ScholarshipAvailable,
		"user":                 c.User,
	})
}

// ListByBootcamps returns the courses of all given bootcamps
func (r *CourseRepo) ListByBootcamps(ctx context.Context, bootcampIDs []string) ([]models.Course, error) {
	if len(bootcampIDs) == 0 {
		return []models.Course{}, nil
	}
	return r.FindWhere(ctx,
		bson.M{"bootcamp": bson.M{"$in": bootcampIDs}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
}
