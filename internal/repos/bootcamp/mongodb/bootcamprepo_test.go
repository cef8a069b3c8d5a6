package mongodb

import (
	"testing"
	"time"

	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	course "github.com/derWhity/devcamper/internal/repos/course/mongodb"
	"github.com/derWhity/devcamper/internal/repos/mongoquery"
	review "github.com/derWhity/devcamper/internal/repos/review/mongodb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func TestBootcampLifecycle(t *testing.T) {
	db := mongoquery.TestDatabase(t)
	logger := logrus.NewEntry(logrus.New())
	repo := New(db, 5*time.Second, logger)
	courses := course.New(db, 5*time.Second, logger)
	reviews := review.New(db, 5*time.Second, logger)
	ctx := context.Background()

	boston := &models.Bootcamp{Name: "Boston Camp", User: "u1", Location: models.NewLocation(42.3601, -71.0589),
		Careers: []string{"Web Development"}}
	nyc := &models.Bootcamp{Name: "NYC Camp", User: "u2", Location: models.NewLocation(40.7128, -74.0060),
		Careers: []string{"Business"}}
	require.NoError(t, repo.Create(ctx, boston))
	require.NoError(t, repo.Create(ctx, nyc))
	assert.Equal(t, repos.ErrDuplicate, repo.Create(ctx, &models.Bootcamp{Name: "NYC Camp", User: "u3"}))

	near := &query.Descriptor{
		Geo: &query.GeoFilter{Center: query.Point{Lat: 42.36, Lon: -71.06}, Radius: query.Radius(10, 3963)},
	}
	found, err := repo.Find(ctx, near)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, boston.ID, found[0].ID)

	num, err := repo.Count(ctx, &query.Descriptor{
		Filters: []query.Condition{{Field: "careers", Op: query.OpEq, Value: "Business"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, num)

	require.NoError(t, courses.Create(ctx, &models.Course{Title: "A", Tuition: 1000, BootcampID: boston.ID}))
	require.NoError(t, courses.Create(ctx, &models.Course{Title: "B", Tuition: 1501, BootcampID: boston.ID}))
	require.NoError(t, reviews.Create(ctx, &models.Review{Title: "R", Rating: 8, Bootcamp: boston.ID, UserID: "u9"}))
	assert.Equal(t, repos.ErrDuplicate,
		reviews.Create(ctx, &models.Review{Title: "R2", Rating: 1, Bootcamp: boston.ID, UserID: "u9"}))

	require.NoError(t, repo.RecomputeAverages(ctx, boston.ID))
	got, err := repo.GetByID(ctx, boston.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AverageCost)
	require.NotNil(t, got.AverageRating)
	assert.Equal(t, 1251.0, *got.AverageCost)
	assert.Equal(t, 8.0, *got.AverageRating)

	require.NoError(t, repo.Delete(ctx, boston.ID))
	left, err := courses.ListByBootcamps(ctx, []string{boston.ID})
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, repos.ErrEntityNotExisting, repo.Delete(ctx, boston.ID))

	owned, err := repo.GetByOwner(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, nyc.ID, owned[0].ID)
}
