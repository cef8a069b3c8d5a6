package sqlquery

import (
	"database/sql"
	"strings"

	"github.com/derWhity/devcamper/internal/query"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the name of the SQLite driver carrying the devcamper SQL functions
	DriverName = "sqlite3_devcamper"
	// AngularDistanceFunc is the SQL function returning the central angle between two points in radians
	AngularDistanceFunc = "angular_distance"
)

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if _, err := conn.Exec("PRAGMA foreign_keys = ON", nil); err != nil {
				return err
			}
			return conn.RegisterFunc(AngularDistanceFunc, angularDistance, true)
		},
	})
}

// angularDistance is the SQL version of query.AngularDistance
func angularDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return query.AngularDistance(query.Point{Lat: lat1, Lon: lon1}, query.Point{Lat: lat2, Lon: lon2})
}

// Open opens the SQLite database at the given location. In-memory databases are restricted to a single connection,
// since every connection would see its own database otherwise.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// IsUniqueViolation checks if the error has been caused by a violated UNIQUE constraint
func IsUniqueViolation(err error) bool {
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
