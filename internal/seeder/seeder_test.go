package seeder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/derWhity/devcamper/internal/geocoder"
	"github.com/derWhity/devcamper/internal/migrate"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	bootcamprepo "github.com/derWhity/devcamper/internal/repos/bootcamp/sqlite"
	courserepo "github.com/derWhity/devcamper/internal/repos/course/sqlite"
	reviewrepo "github.com/derWhity/devcamper/internal/repos/review/sqlite"
	"github.com/derWhity/devcamper/internal/repos/sqlquery"
	userrepo "github.com/derWhity/devcamper/internal/repos/user/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

const (
	usersJSON = `[
		{"_id": "5d7a514b5d2c12c7449be042", "name": "Admin Account", "email": "admin@gmail.com", "role": "user",
		 "password": "123456"},
		{"_id": "5d7a514b5d2c12c7449be045", "name": "Publisher Account", "email": "publisher@gmail.com",
		 "role": "publisher", "password": "123456"},
		{"id": "5c8a1d5b0190b214360dc031", "name": "Kevin Smith", "email": "kevin@gmail.com", "password": "123456"}
	]`
	bootcampsJSON = `[
		{"_id": "5d713995b721c3bb38c1f5d0", "user": "5d7a514b5d2c12c7449be045", "name": "Devworks Bootcamp",
		 "description": "Devworks is a full stack JavaScript Bootcamp", "website": "https://devworks.com",
		 "address": "233 Bay State Rd Boston MA 02215", "careers": ["Web Development", "UI/UX"], "housing": true,
		 "averageCost": 1}
	]`
	coursesJSON = `[
		{"_id": "5d725a4a7b292f5f8ceff789", "title": "Front End Web Development", "description": "HTML and CSS",
		 "weeks": "8", "tuition": 8000, "minimumSkill": "beginner", "bootcamp": "5d713995b721c3bb38c1f5d0",
		 "user": "5d7a514b5d2c12c7449be045"},
		{"_id": "5d725c84c4ded7bcb480eaa0", "title": "Full Stack Web Development", "description": "Everything",
		 "weeks": "12", "tuition": 10001, "minimumSkill": "intermediate", "bootcamp": "5d713995b721c3bb38c1f5d0",
		 "user": "5d7a514b5d2c12c7449be045"}
	]`
	reviewsJSON = `[
		{"_id": "5d7a514b5d2c12c7449be020", "title": "Learned a ton!", "text": "Great bootcamp", "rating": 8,
		 "bootcamp": "5d713995b721c3bb38c1f5d0", "user": "5c8a1d5b0190b214360dc031"}
	]`
)

type testRepos struct {
	users     repos.UserRepo
	bootcamps repos.BootcampRepo
	courses   repos.CourseRepo
	reviews   repos.ReviewRepo
}

func newSeeder(t *testing.T) (*Seeder, testRepos) {
	db, err := sqlquery.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := logrus.NewEntry(logrus.New())
	require.NoError(t, migrate.ExecuteMigrationsOnDb(db, logger))
	r := testRepos{
		users:     userrepo.New(db, time.Second, logger),
		bootcamps: bootcamprepo.New(db, time.Second, logger),
		courses:   courserepo.New(db, time.Second, logger),
		reviews:   reviewrepo.New(db, time.Second, logger),
	}
	geo := geocoder.NewStatic(map[string]geocoder.Result{
		"233 Bay State Rd Boston MA 02215": {Latitude: 42.3505, Longitude: -71.1054, City: "Boston", StateCode: "MA"},
	})
	return New(r.users, r.bootcamps, r.courses, r.reviews, geo, logger), r
}

func writeFixtures(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return dir
}

func all() *query.Descriptor {
	return &query.Descriptor{Page: 1}
}

func TestImportAndDestroy(t *testing.T) {
	s, r := newSeeder(t)
	ctx := context.Background()
	dir := writeFixtures(t, map[string]string{
		UsersFile:     usersJSON,
		BootcampsFile: bootcampsJSON,
		CoursesFile:   coursesJSON,
		ReviewsFile:   reviewsJSON,
	})

	require.NoError(t, s.Import(ctx, dir))

	u, err := r.users.GetByEmail(ctx, "kevin@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "5c8a1d5b0190b214360dc031", u.ID)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NoError(t, u.CheckPassword("123456"))

	b, err := r.bootcamps.GetByID(ctx, "5d713995b721c3bb38c1f5d0")
	require.NoError(t, err)
	assert.Equal(t, "devworks-bootcamp", b.Slug)
	assert.Equal(t, "5d7a514b5d2c12c7449be045", b.User)
	require.NotNil(t, b.Location)
	assert.Equal(t, "Boston", b.Location.City)
	// Averages are computed from the imported courses and reviews, not taken from the file
	require.NotNil(t, b.AverageCost)
	assert.Equal(t, 9001.0, *b.AverageCost)
	require.NotNil(t, b.AverageRating)
	assert.Equal(t, 8.0, *b.AverageRating)

	courses, err := r.courses.ListByBootcamps(ctx, []string{b.ID})
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	require.NoError(t, s.Destroy(ctx))
	for _, count := range []func(context.Context, *query.Descriptor) (int, error){
		r.users.Count, r.bootcamps.Count, r.courses.Count, r.reviews.Count,
	} {
		n, err := count(ctx, all())
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}

func TestImportSkipsMissingFiles(t *testing.T) {
	s, r := newSeeder(t)
	ctx := context.Background()
	require.NoError(t, s.Import(ctx, writeFixtures(t, map[string]string{UsersFile: usersJSON})))

	n, err := r.users.Count(ctx, all())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = r.bootcamps.Count(ctx, all())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportBrokenFile(t *testing.T) {
	s, _ := newSeeder(t)
	err := s.Import(context.Background(), writeFixtures(t, map[string]string{UsersFile: `[{"name": `}))
	assert.Error(t, err)
}

func TestImportUnknownAddress(t *testing.T) {
	s, r := newSeeder(t)
	ctx := context.Background()
	dir := writeFixtures(t, map[string]string{
		UsersFile: usersJSON,
		BootcampsFile: `[{"_id": "b1", "user": "5d7a514b5d2c12c7449be045", "name": "Somewhere", "description": "x",
			"address": "Unknown Street", "careers": ["Business"]}]`,
	})
	require.NoError(t, s.Import(ctx, dir))
	b, err := r.bootcamps.GetByID(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, b.Location)
}

func TestEnsureAdmin(t *testing.T) {
	s, r := newSeeder(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureAdmin(ctx, "Admin", "admin@devcamper.io", "changeme"))
	u, err := r.users.GetByEmail(ctx, "admin@devcamper.io")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.NoError(t, u.CheckPassword("changeme"))

	// A second call keeps the existing account
	require.NoError(t, s.EnsureAdmin(ctx, "Other", "admin@devcamper.io", "other-password"))
	again, err := r.users.GetByEmail(ctx, "admin@devcamper.io")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.NoError(t, again.CheckPassword("changeme"))
}
