// Package mongodb provides a review repository that uses MongoDB for storing reviews
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
	"golang.org/x/net/context"
)

// ReviewRepo implements repos.ReviewRepo and provides access to reviews stored inside a MongoDB collection
type ReviewRepo struct {
	*mongoquery.Collection[models.Review]
	logger *logrus.Entry
}

// New creates a new ReviewRepo
func New(db *mongo.Database, timeout time.Duration, logger *logrus.Entry) repos.ReviewRepo {
	return &ReviewRepo{
		Collection: mongoquery.NewCollection[models.Review](
			db.Collection(mongoquery.CollReviews), repos.ReviewSchema, timeout,
		),
		logger: logger,
	}
}

// Create creates a new review - the unique index on bootcamp and user turns a second review into repos.ErrDuplicate
func (r *ReviewRepo) Create(ctx context.Context, rv *models.Review) error {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	r.logger.WithFields(logrus.Fields{log.FldID: rv.ID, log.FldBootcamp: rv.Bootcamp}).Debug("Creating review")
	return r.Insert(ctx, rv)
}

// Update updates title, text and rating of an existing review
func (r *ReviewRepo) Update(ctx context.Context, rv *models.Review) error {
	r.logger.WithField(log.FldID, rv.ID).Debug("Updating review")
	return r.Set(ctx, rv.ID, bson.M{"title": rv.Title, "text": rv.Text, "rating": rv.Rating})
}
