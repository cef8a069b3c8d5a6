package migrate

import (
	"testing"

	"github.com/derWhity/devcamper/internal/repos/sqlquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteMigrationsOnDb(t *testing.T) {
	db, err := sqlquery.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	logger := logrus.NewEntry(logrus.New())

	require.NoError(t, ExecuteMigrationsOnDb(db, logger))
	version, err := CurrentVersion(db)
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, version)

	// Running again is a no-op
	require.NoError(t, ExecuteMigrationsOnDb(db, logger))

	for _, table := range []string{"Users", "Bootcamps", "Courses", "Reviews"} {
		var n int
		require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table))
		assert.Equal(t, 1, n, table)
	}
}

func TestReviewsAreUniquePerUserAndBootcamp(t *testing.T) {
	db, err := sqlquery.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, ExecuteMigrationsOnDb(db, logrus.NewEntry(logrus.New())))

	_, err = db.Exec(`INSERT INTO Bootcamps (id, name, userId) VALUES ('b1', 'Devworks', 'u1')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO Reviews (id, title, rating, bootcampId, userId) VALUES ('r1', 'Great', 8, 'b1', 'u2')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO Reviews (id, title, rating, bootcampId, userId) VALUES ('r2', 'Again', 3, 'b1', 'u2')`)
	require.Error(t, err)
	assert.True(t, sqlquery.IsUniqueViolation(err))
}

func TestFailedMigrationIsRolledBack(t *testing.T) {
	db, err := sqlquery.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	logger := logrus.NewEntry(logrus.New())
	require.NoError(t, ExecuteMigrationsOnDb(db, logger))

	broken := dbMigration{Version: 99, Queries: []string{
		`CREATE TABLE Scratch (id INTEGER)`,
		`THIS IS NO SQL`,
	}}
	assert.Error(t, broken.Execute(db, logger))

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'Scratch'`))
	assert.Equal(t, 0, n)
	version, err := CurrentVersion(db)
	require.NoError(t, err)
	assert.NotEqual(t, uint(99), version)
}
