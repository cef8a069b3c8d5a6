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

func newRepo(t *testing.T) repos.UserRepo {
	db, err := sqlquery.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := logrus.NewEntry(logrus.New())
	require.NoError(t, migrate.ExecuteMigrationsOnDb(db, logger))
	return New(db, time.Second, logger)
}

func TestCreateAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	u := &models.User{Name: "John Doe", Email: " John@Example.com ", Role: models.RolePublisher}
	require.NoError(t, u.SetPassword("123456"))
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "john@example.com", u.Email)

	got, err := repo.GetByEmail(ctx, "JOHN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NoError(t, got.CheckPassword("123456"))

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RolePublisher, got.Role)

	_, err = repo.GetByID(ctx, "missing")
	assert.Equal(t, repos.ErrEntityNotExisting, err)

	assert.Equal(t, repos.ErrDuplicate, repo.Create(ctx, &models.User{Name: "Other", Email: "john@example.com"}))
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	u := &models.User{Name: "Jane", Email: "jane@example.com", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, u))
	u.Name = "Jane Doe"
	require.NoError(t, repo.Update(ctx, u))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Name)

	assert.Equal(t, repos.ErrEntityNotExisting, repo.Update(ctx, &models.User{ID: "missing"}))
	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.Equal(t, repos.ErrEntityNotExisting, repo.Delete(ctx, u.ID))
}

func TestGetByResetToken(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := &models.User{Name: "Jane", Email: "jane@example.com", Role: models.RoleUser}
	token, err := u.NewResetToken(now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByResetToken(ctx, models.HashResetToken(token), now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByResetToken(ctx, models.HashResetToken(token), now.Add(models.ResetTokenLifetime+time.Second))
	assert.Equal(t, repos.ErrEntityNotExisting, err)
	_, err = repo.GetByResetToken(ctx, "", now)
	assert.Equal(t, repos.ErrEntityNotExisting, err)
}

func TestFind(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	for _, u := range []*models.User{
		{Name: "Anna", Email: "anna@example.com", Role: models.RoleUser},
		{Name: "Bert", Email: "bert@example.com", Role: models.RolePublisher},
		{Name: "Carl", Email: "carl@example.com", Role: models.RolePublisher},
	} {
		require.NoError(t, repo.Create(ctx, u))
	}

	d := &query.Descriptor{
		Filters: []query.Condition{{Field: "role", Op: query.OpEq, Value: models.RolePublisher}},
		Sort:    []query.SortKey{{Field: "name", Descending: true}},
		Page:    1,
		Limit:   1,
	}
	num, err := repo.Count(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 2, num)
	users, err := repo.Find(ctx, d)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Carl", users[0].Name)

	require.NoError(t, repo.Purge(ctx))
	num, err = repo.Count(ctx, &query.Descriptor{})
	require.NoError(t, err)
	assert.Zero(t, num)
}
