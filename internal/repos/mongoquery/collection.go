package mongoquery

import (
	"time"

	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/net/context"
)

// Names of the collections
const (
	CollUsers     = "users"
	CollBootcamps = "bootcamps"
	CollCourses   = "courses"
	CollReviews   = "reviews"
)

// Collection provides the operations all MongoDB repositories share. Documents are decoded into T.
type Collection[T any] struct {
	Coll    *mongo.Collection
	schema  repos.Schema
	timeout time.Duration
}

// NewCollection creates a collection wrapper for the given MongoDB collection
func NewCollection[T any](coll *mongo.Collection, schema repos.Schema, timeout time.Duration) *Collection[T] {
	return &Collection[T]{Coll: coll, schema: schema, timeout: timeout}
}

// Count returns the number of documents matching the descriptor
func (c *Collection[T]) Count(ctx context.Context, d *query.Descriptor) (int, error) {
	filter, err := Filter(c.schema, d)
	if err != nil {
		return 0, err
	}
	ctx, cancel := repos.WithTimeout(ctx, c.timeout)
	defer cancel()
	num, err := c.Coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, errors.Wrapf(err, "Count: cannot count documents in %s", c.Coll.Name())
	}
	return int(num), nil
}

// Find returns the requested page of documents matching the descriptor
func (c *Collection[T]) Find(ctx context.Context, d *query.Descriptor) ([]T, error) {
	filter, err := Filter(c.schema, d)
	if err != nil {
		return nil, err
	}
	return c.FindWhere(ctx, filter, FindOptions(c.schema, d))
}

// FindWhere returns all documents matching a raw filter
func (c *Collection[T]) FindWhere(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	ctx, cancel := repos.WithTimeout(ctx, c.timeout)
	defer cancel()
	cur, err := c.Coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "Find: query on %s failed", c.Coll.Name())
	}
	ret := []T{}
	if err := cur.All(ctx, &ret); err != nil {
		return nil, errors.Wrapf(err, "Find: cannot decode documents of %s", c.Coll.Name())
	}
	return ret, nil
}

// GetWhere returns the first document matching the filter
func (c *Collection[T]) GetWhere(ctx context.Context, filter interface{}) (*T, error) {
	ctx, cancel := repos.WithTimeout(ctx, c.timeout)
	defer cancel()
	var doc T
	if err := c.Coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repos.ErrEntityNotExisting
		}
		return nil, err
	}
	return &doc, nil
}

// GetByID returns the document with the given ID
func (c *Collection[T]) GetByID(ctx context.Context, id string) (*T, error) {
	return c.GetWhere(ctx, bson.M{"_id": id})
}

// Insert stores a new document
func (c *Collection[T]) Insert(ctx context.Context, doc interface{}) error {
	ctx, cancel := repos.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.Coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return repos.ErrDuplicate
	}
	return err
}

// Set updates single fields of the document with the given ID. Keys with a nil value are removed from the document.
func (c *Collection[T]) Set(ctx context.Context, id string, fields bson.M) error {
	set, unset := bson.M{}, bson.M{}
	for k, v := range fields {
		if v == nil {
			unset[k] = ""
			continue
		}
		set[k] = v
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	ctx, cancel := repos.WithTimeout(ctx, c.timeout)
	defer cancel()
	res, err := c.Coll.UpdateByID(ctx, id, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repos.ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return repos.ErrEntityNotExisting
	}
	return nil
}

// Delete removes the document with the given ID
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	ctx, cancel := repos.WithTimeout(ctx, c.timeout)
	defer cancel()
	res, err := c.Coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repos.ErrEntityNotExisting
	}
	return nil
}

// DeleteWhere removes all documents matching the filter
func (c *Collection[T]) DeleteWhere(ctx context.Context, filter interface{}) error {
	ctx, cancel := repos.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.Coll.DeleteMany(ctx, filter)
	return err
}

// Purge removes all documents
func (c *Collection[T]) Purge(ctx context.Context) error {
	return c.DeleteWhere(ctx, bson.M{})
}
