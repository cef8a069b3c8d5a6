package sqlquery

import (
	"testing"
	"time"

	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTable = &Table{
	Name:      "Bootcamps",
	Schema:    repos.BootcampSchema,
	LatColumn: "lat",
	LonColumn: "lon",
}

func TestSelectDefaults(t *testing.T) {
	stmt, args, err := testTable.Select("*", &query.Descriptor{
		Sort:  []query.SortKey{{Field: "createdAt"}},
		Page:  1,
		Limit: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "Bootcamps" ORDER BY "createdAt" ASC, "id" ASC LIMIT ? OFFSET ?`, stmt)
	assert.Equal(t, []interface{}{25, 0}, args)
}

func TestSelectFilters(t *testing.T) {
	stmt, args, err := testTable.Select("id", &query.Descriptor{
		Filters: []query.Condition{
			{Field: "averageCost", Op: query.OpLte, Value: "10000"},
			{Field: "careers", Op: query.OpIn, Value: "Business,UI/UX", Values: []string{"Business", "UI/UX"}},
			{Field: "housing", Op: query.OpEq, Value: "true"},
			{Field: "location.state", Op: query.OpEq, Value: "MA"},
		},
		Sort:  []query.SortKey{{Field: "name", Descending: true}, {Field: "nonsense"}},
		Page:  2,
		Limit: 10,
		Skip:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT id FROM "Bootcamps" WHERE "averageCost" <= ? AND `+
		`EXISTS (SELECT 1 FROM json_each("careers") WHERE value IN (?, ?)) AND "housing" = ? AND "state" = ? `+
		`ORDER BY "name" DESC, "id" ASC LIMIT ? OFFSET ?`, stmt)
	assert.Equal(t, []interface{}{10000.0, "Business", "UI/UX", true, "MA", 10, 10}, args)
}

func TestCountUnknownFieldMatchesNothing(t *testing.T) {
	stmt, args, err := testTable.Count(&query.Descriptor{
		Filters: []query.Condition{{Field: "tuition[foo]", Op: query.OpEq, Value: "1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "Bootcamps" WHERE 1 = 0`, stmt)
	assert.Empty(t, args)
}

func TestCoercionFailure(t *testing.T) {
	_, _, err := testTable.Count(&query.Descriptor{
		Filters: []query.Condition{{Field: "averageCost", Op: query.OpGt, Value: "cheap"}},
	})
	require.Error(t, err)
	filterErr, ok := err.(*repos.FilterError)
	require.True(t, ok)
	assert.Equal(t, "averageCost", filterErr.Field)

	_, _, err = testTable.Count(&query.Descriptor{
		Filters: []query.Condition{{Field: "housing", Op: query.OpGt, Value: "true"}},
	})
	assert.IsType(t, &repos.FilterError{}, err)
}

func TestTimeFilter(t *testing.T) {
	_, args, err := testTable.Count(&query.Descriptor{
		Filters: []query.Condition{{Field: "createdAt", Op: query.OpGte, Value: "2020-01-02"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)}, args)
}

func TestGeoFilter(t *testing.T) {
	stmt, args, err := testTable.Count(&query.Descriptor{
		Geo: &query.GeoFilter{Center: query.Point{Lat: 40, Lon: -74}, Radius: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "Bootcamps" WHERE (CASE WHEN "lat" IS NULL OR "lon" IS NULL THEN 0 `+
		`ELSE angular_distance(?, ?, "lat", "lon") <= ? END) = 1`, stmt)
	assert.Equal(t, []interface{}{40.0, -74.0, 0.5}, args)

	// Tables without location ignore the radius
	courses := &Table{Name: "Courses", Schema: repos.CourseSchema}
	stmt, _, err = courses.Count(&query.Descriptor{Geo: &query.GeoFilter{Radius: 1}})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "Courses"`, stmt)
}

func TestAngularDistanceFunction(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var dist float64
	require.NoError(t, db.Get(&dist, `SELECT angular_distance(10.0, 5.0, 11.0, 5.0)`))
	assert.InDelta(t, query.AngularDistance(query.Point{Lat: 10, Lon: 5}, query.Point{Lat: 11, Lon: 5}), dist, 1e-12)
}
