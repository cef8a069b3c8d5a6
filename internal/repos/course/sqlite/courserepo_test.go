package sqlite

import (
	"testing"
	"time"

	"github.com/derWhity/devcamper/internal/migrate"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/repos/sqlquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func newRepo(t *testing.T, bootcampIDs ...string) repos.CourseRepo {
	db, err := sqlquery.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := logrus.NewEntry(logrus.New())
	require.NoError(t, migrate.ExecuteMigrationsOnDb(db, logger))
	for _, id := range bootcampIDs {
		_, err := db.Exec(`INSERT INTO Bootcamps (id, name, userId) VALUES (?, ?, 'u1')`, id, "Camp "+id)
		require.NoError(t, err)
	}
	return New(db, time.Second, logger)
}

func course(title, bootcampID string, tuition float64) *models.Course {
	return &models.Course{
		Title:        title,
		Weeks:        "12",
		Tuition:      tuition,
		MinimumSkill: models.SkillBeginner,
		BootcampID:   bootcampID,
		User:         "u1",
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	repo := newRepo(t, "b1")
	ctx := context.Background()

	c := course("Front End Web Development", "b1", 8000)
	require.NoError(t, repo.Create(ctx, c))
	assert.NotEmpty(t, c.ID)

	c.Tuition = 9000
	c.ScholarshipAvailable = true
	require.NoError(t, repo.Update(ctx, c))
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, got.Tuition)
	assert.True(t, got.ScholarshipAvailable)
	assert.Equal(t, "b1", got.BootcampID)
	assert.Equal(t, "12", got.Weeks)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.GetByID(ctx, c.ID)
	assert.Equal(t, repos.ErrEntityNotExisting, err)
	assert.Equal(t, repos.ErrEntityNotExisting, repo.Delete(ctx, c.ID))
	assert.Equal(t, repos.ErrEntityNotExisting, repo.Update(ctx, c))
}

func TestCreateNeedsExistingBootcamp(t *testing.T) {
	repo := newRepo(t)
	assert.Error(t, repo.Create(context.Background(), course("Orphan", "missing", 1000)))
}

func TestListByBootcamps(t *testing.T) {
	repo := newRepo(t, "b1", "b2", "b3")
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, course("A", "b1", 1000)))
	require.NoError(t, repo.Create(ctx, course("B", "b2", 2000)))
	require.NoError(t, repo.Create(ctx, course("C", "b3", 3000)))

	courses, err := repo.ListByBootcamps(ctx, []string{"b1", "b2"})
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	courses, err = repo.ListByBootcamps(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestFindByTuitionRange(t *testing.T) {
	repo := newRepo(t, "b1", "b2")
	ctx := context.Background()
	for _, c := range []*models.Course{
		course("Cheap", "b1", 1000),
		course("Medium", "b1", 5000),
		course("Expensive", "b2", 10000),
	} {
		require.NoError(t, repo.Create(ctx, c))
	}

	d := &query.Descriptor{
		Filters: []query.Condition{
			{Field: "tuition", Op: query.OpGte, Value: "1000"},
			{Field: "tuition", Op: query.OpLt, Value: "10000"},
		},
		Sort: []query.SortKey{{Field: "tuition", Descending: true}},
	}
	found, err := repo.Find(ctx, d)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Medium", found[0].Title)
	assert.Equal(t, "Cheap", found[1].Title)

	num, err := repo.Count(ctx, &query.Descriptor{
		Filters: []query.Condition{{Field: "bootcamp", Op: query.OpEq, Value: "b2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, num)

	_, err = repo.Find(ctx, &query.Descriptor{
		Filters: []query.Condition{{Field: "tuition", Op: query.OpGt, Value: "cheap"}},
	})
	assert.IsType(t, &repos.FilterError{}, err)
}
