package mongodb

import (
	"testing"
	"time"

	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/repos/mongoquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func TestUserLifecycle(t *testing.T) {
	repo := New(mongoquery.TestDatabase(t), 5*time.Second, logrus.NewEntry(logrus.New()))
	ctx := context.Background()
	now := time.Now().UTC()

	u := &models.User{Name: "John", Email: "John@Example.com", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, repos.ErrDuplicate, repo.Create(ctx, &models.User{Name: "J", Email: "john@example.com"}))

	token, err := u.NewResetToken(now)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, u))
	got, err := repo.GetByResetToken(ctx, models.HashResetToken(token), now)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	u.ClearResetToken()
	require.NoError(t, repo.Update(ctx, u))
	_, err = repo.GetByResetToken(ctx, models.HashResetToken(token), now)
	assert.Equal(t, repos.ErrEntityNotExisting, err)

	got, err = repo.GetByEmail(ctx, "JOHN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.GetByID(ctx, u.ID)
	assert.Equal(t, repos.ErrEntityNotExisting, err)
}
