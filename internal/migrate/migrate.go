// Package migrate handles SQL database migration for the internal devcamper database
package migrate

import (
	"database/sql"

	"github.com/derWhity/devcamper/internal/repos"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var migrations []dbMigration

type dbMigration struct {
	Version uint
	Queries []string
}

// Execute runs the current DB migration on the given database. All queries of a migration run inside one
// transaction - a failing migration leaves no half-built schema behind.
func (mig *dbMigration) Execute(db *sqlx.DB, logger *logrus.Entry) error {
	// Check if the migration has already run
	var success = false
	err := db.QueryRow(`SELECT success FROM Migrations WHERE version = ?`, mig.Version).Scan(&success)
	if err != nil && err != sql.ErrNoRows {
		logger.WithError(err).Error("Failed to fetch version information")
		return err
	}
	if success {
		return nil
	}
	logger.Infof("Executing DB migration #%d", mig.Version)
	tx, err := db.Beginx()
	if err != nil {
		return errors.Wrap(err, "Execute: cannot start transaction")
	}
	for i, query := range mig.Queries {
		logger.Debugf("Query %d of %d...", (i + 1), len(mig.Queries))
		if _, err := tx.Exec(query); err != nil {
			logger.WithError(err).Errorf("Query #%d failed", (i + 1))
			return repos.DoRollback(tx, err)
		}
	}
	// Queries executed successfully - save our status
	if _, err := tx.Exec(`REPLACE INTO Migrations(version, success) VALUES(?, 1)`, mig.Version); err != nil {
		return repos.DoRollback(tx, err)
	}
	return tx.Commit()
}

// ExecuteMigrationsOnDb executes the database migrations on the given database instance
func ExecuteMigrationsOnDb(db *sqlx.DB, logger *logrus.Entry) error {
	// Create the migrations table if it does not exist, yet
	query := `CREATE TABLE IF NOT EXISTS Migrations (
                version   INTEGER NOT NULL,
                success   INTEGER NOT NULL DEFAULT 0,
                PRIMARY KEY(version)
            )`
	if _, err := db.Exec(query); err != nil {
		logger.WithError(err).Error("Failed to create migrations table")
		return err
	}
	for _, mig := range migrations {
		if err := mig.Execute(db, logger); err != nil {
			logger.WithError(err).Errorf("Failed to execute migration #%d", mig.Version)
			return err
		}
	}
	return nil
}

// CurrentVersion returns the version of the latest successful migration - 0 if none has been executed
func CurrentVersion(db *sqlx.DB) (uint, error) {
	var version sql.NullInt64
	if err := db.Get(&version, `SELECT MAX(version) FROM Migrations WHERE success = 1`); err != nil {
		return 0, errors.Wrap(err, "CurrentVersion: cannot query migrations")
	}
	return uint(version.Int64), nil
}

// For now, the migrations are part of the package...
func init() {
	migrations = []dbMigration{
		{
			Version: 1,
			Queries: []string{
				`CREATE TABLE "Users" (
                    id VARCHAR(36) NOT NULL PRIMARY KEY,
                    name VARCHAR(128) NOT NULL,
                    email VARCHAR(255) NOT NULL,
                    role VARCHAR(16) NOT NULL DEFAULT 'user',
                    passwordHash VARCHAR(255) NOT NULL DEFAULT '',
                    resetPasswordToken VARCHAR(64) NOT NULL DEFAULT '',
                    resetPasswordExpire DATETIME,
                    createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
                );`,
				`CREATE UNIQUE INDEX idx_user_email ON Users (email ASC);`,
			},
		},
		{
			Version: 2,
			Queries: []string{
				`CREATE TABLE "Bootcamps" (
                    id VARCHAR(36) NOT NULL PRIMARY KEY,
                    name VARCHAR(50) NOT NULL,
                    slug VARCHAR(64) NOT NULL DEFAULT '',
                    description VARCHAR(500) NOT NULL DEFAULT '',
                    website VARCHAR(255) NOT NULL DEFAULT '',
                    phone VARCHAR(20) NOT NULL DEFAULT '',
                    email VARCHAR(255) NOT NULL DEFAULT '',
                    address VARCHAR(255) NOT NULL DEFAULT '',
                    lat REAL,
                    lon REAL,
                    formattedAddress VARCHAR(255) NOT NULL DEFAULT '',
                    street VARCHAR(128) NOT NULL DEFAULT '',
                    city VARCHAR(128) NOT NULL DEFAULT '',
                    state VARCHAR(64) NOT NULL DEFAULT '',
                    zipcode VARCHAR(16) NOT NULL DEFAULT '',
                    country VARCHAR(64) NOT NULL DEFAULT '',
                    careers TEXT NOT NULL DEFAULT '[]',
                    averageRating REAL,
                    averageCost REAL,
                    photo VARCHAR(255) NOT NULL DEFAULT 'no-photo.jpg',
                    housing INTEGER NOT NULL DEFAULT 0,
                    jobAssistance INTEGER NOT NULL DEFAULT 0,
                    jobGuarantee INTEGER NOT NULL DEFAULT 0,
                    acceptGi INTEGER NOT NULL DEFAULT 0,
                    userId VARCHAR(36) NOT NULL,
                    createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
                );`,
				`CREATE TABLE "Courses" (
                    id VARCHAR(36) NOT NULL PRIMARY KEY,
                    title VARCHAR(255) NOT NULL,
                    description TEXT NOT NULL DEFAULT '',
                    weeks VARCHAR(16) NOT NULL DEFAULT '',
                    tuition REAL NOT NULL DEFAULT 0,
                    minimumSkill VARCHAR(16) NOT NULL DEFAULT 'beginner',
                    scholarshipAvailable INTEGER NOT NULL DEFAULT 0,
                    bootcampId VARCHAR(36) NOT NULL REFERENCES Bootcamps (id) ON DELETE CASCADE,
                    userId VARCHAR(36) NOT NULL,
                    createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
                );`,
				`CREATE TABLE "Reviews" (
                    id VARCHAR(36) NOT NULL PRIMARY KEY,
                    title VARCHAR(100) NOT NULL,
                    text TEXT NOT NULL DEFAULT '',
                    rating INTEGER NOT NULL,
                    bootcampId VARCHAR(36) NOT NULL REFERENCES Bootcamps (id) ON DELETE CASCADE,
                    userId VARCHAR(36) NOT NULL,
                    createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
                );`,
				`CREATE UNIQUE INDEX idx_bootcamp_name ON Bootcamps (name ASC);`,
				`CREATE INDEX idx_bootcamp_user ON Bootcamps (userId ASC);`,
				`CREATE INDEX idx_bootcamp_location ON Bootcamps (lat ASC, lon ASC);`,
				`CREATE INDEX idx_course_bootcamp ON Courses (bootcampId ASC);`,
				`CREATE UNIQUE INDEX idx_review_bootcamp_user ON Reviews (bootcampId ASC, userId ASC);`,
			},
		},
	}
}
