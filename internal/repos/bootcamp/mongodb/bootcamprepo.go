// Package mongodb provides a bootcamp repository that uses MongoDB for storing bootcamps
package mongodb

import (
	"math"
	"time"

	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/repos/mongoquery"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/net/context"
)

// BootcampRepo implements repos.BootcampRepo and provides access to bootcamps stored inside a MongoDB collection
type BootcampRepo struct {
	*mongoquery.Collection[models.Bootcamp]
	courses *mongo.Collection
	reviews *mongo.Collection
	logger  *logrus.Entry
}

// New creates a new BootcampRepo
func New(db *mongo.Database, timeout time.Duration, logger *logrus.Entry) repos.BootcampRepo {
	return &BootcampRepo{
		Collection: mongoquery.NewCollection[models.Bootcamp](
			db.Collection(mongoquery.CollBootcamps), repos.BootcampSchema, timeout,
		),
		courses: db.Collection(mongoquery.CollCourses),
		reviews: db.Collection(mongoquery.CollReviews),
		logger:  logger,
	}
}

// storableLocation returns the location as it can be stored - the geo index rejects points without coordinates
func storableLocation(l *models.Location) interface{} {
	if l == nil || len(l.Coordinates) < 2 {
		return nil
	}
	return l
}

// Create creates a new bootcamp
func (r *BootcampRepo) Create(ctx context.Context, b *models.Bootcamp) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	if b.Photo == "" {
		b.Photo = models.DefaultPhoto
	}
	if b.Careers == nil {
		b.Careers = []string{}
	}
	if storableLocation(b.Location) == nil {
		b.Location = nil
	}
	r.logger.WithField(log.FldBootcamp, b.ID).Debug("Creating bootcamp")
	return r.Insert(ctx, b)
}

// Update updates an existing bootcamp. The averages are maintained by RecomputeAverages.
func (r *BootcampRepo) Update(ctx context.Context, b *models.Bootcamp) error {
	r.logger.WithField(log.FldBootcamp, b.ID).Debug("Updating bootcamp")
	careers := b.Careers
	if careers == nil {
		careers = []string{}
	}
	fields := bson.M{
		"name":          b.Name,
		"slug":          b.Slug,
		"description":   b.Description,
		"website":       b.Website,
		"phone":         b.Phone,
		"email":         b.Email,
		"address":       b.Address,
		"careers":       careers,
		"photo":         b.Photo,
		"housing":       b.Housing,
		"jobAssistance": b.JobAssistance,
		"jobGuarantee":  b.JobGuarantee,
		"acceptGi":      b.AcceptGi,
		"user":          b.User,
	}
	fields[mongoquery.LocationKey] = storableLocation(b.Location)
	return r.Set(ctx, b.ID, fields)
}

// Delete removes a bootcamp together with its courses and reviews
func (r *BootcampRepo) Delete(ctx context.Context, id string) error {
	r.logger.WithField(log.FldBootcamp, id).Debug("Deleting bootcamp")
	if err := r.Collection.Delete(ctx, id); err != nil {
		return err
	}
	for _, coll := range []*mongo.Collection{r.courses, r.reviews} {
		if _, err := coll.DeleteMany(ctx, bson.M{"bootcamp": id}); err != nil {
			return errors.Wrapf(err, "Delete: cannot remove %s of bootcamp", coll.Name())
		}
	}
	return nil
}

// GetByOwner returns all bootcamps owned by the given user - oldest first
func (r *BootcampRepo) GetByOwner(ctx context.Context, userID string) ([]models.Bootcamp, error) {
	return r.FindWhere(ctx,
		bson.M{"user": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
}

// average computes the average of a numeric field over all documents of the bootcamp - nil if there are none
func average(ctx context.Context, coll *mongo.Collection, bootcampID, field string) (*float64, error) {
	cur, err := coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"bootcamp": bootcampID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "avg": bson.M{"$avg": "$" + field}}}},
	})
	if err != nil {
		return nil, err
	}
	var res []struct {
		Avg *float64 `bson:"avg"`
	}
	if err := cur.All(ctx, &res); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	return res[0].Avg, nil
}

// RecomputeAverages updates the average course cost (rounded up) and the average rating of the given bootcamp
func (r *BootcampRepo) RecomputeAverages(ctx context.Context, id string) error {
	r.logger.WithField(log.FldBootcamp, id).Debug("Recomputing bootcamp averages")
	cost, err := average(ctx, r.courses, id, "tuition")
	if err != nil {
		return errors.Wrap(err, "RecomputeAverages: cannot compute average cost")
	}
	rating, err := average(ctx, r.reviews, id, "rating")
	if err != nil {
		return errors.Wrap(err, "RecomputeAverages: cannot compute average rating")
	}
	fields := bson.M{"averageCost": nil, "averageRating": nil}
	if cost != nil {
		fields["averageCost"] = math.Ceil(*cost)
	}
	if rating != nil {
		fields["averageRating"] = *rating
	}
	return r.Set(ctx, id, fields)
}

// Purge removes all bootcamps and everything attached to them
func (r *BootcampRepo) Purge(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{r.courses, r.reviews} {
		if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Wrapf(err, "Purge: %s", coll.Name())
		}
	}
	return r.Collection.Purge(ctx)
}
