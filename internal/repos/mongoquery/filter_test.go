package mongoquery

import (
	"testing"
	"time"

	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestFilterEmpty(t *testing.T) {
	f, err := Filter(repos.BootcampSchema, &query.Descriptor{})
	require.NoError(t, err)
	assert.Equal(t, bson.M{}, f)
}

func TestFilterSingleCondition(t *testing.T) {
	f, err := Filter(repos.CourseSchema, &query.Descriptor{
		Filters: []query.Condition{{Field: "tuition", Op: query.OpLte, Value: "1000"}},
	})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"tuition": bson.M{"$lte": 1000.0}}, f)
}

func TestFilterCombinesConditions(t *testing.T) {
	f, err := Filter(repos.BootcampSchema, &query.Descriptor{
		Filters: []query.Condition{
			{Field: "id", Op: query.OpEq, Value: "b1"},
			{Field: "careers", Op: query.OpIn, Values: []string{"Business", "UI/UX"}},
			{Field: "housing", Op: query.OpEq, Value: "true"},
			{Field: "location.state", Op: query.OpEq, Value: "MA"},
			{Field: "createdAt", Op: query.OpGte, Value: "2024-01-02"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{"_id": "b1"},
		bson.M{"careers": bson.M{"$in": bson.A{"Business", "UI/UX"}}},
		bson.M{"housing": true},
		bson.M{"location.state": "MA"},
		bson.M{"createdAt": bson.M{"$gte": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}},
	}}, f)
}

func TestFilterUnknownFieldMatchesNothing(t *testing.T) {
	f, err := Filter(repos.ReviewSchema, &query.Descriptor{
		Filters: []query.Condition{{Field: "bogus", Op: query.OpEq, Value: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, matchNothing(), f)
}

func TestFilterIllegalValue(t *testing.T) {
	_, err := Filter(repos.ReviewSchema, &query.Descriptor{
		Filters: []query.Condition{{Field: "rating", Op: query.OpGt, Value: "great"}},
	})
	var fe *repos.FilterError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "rating", fe.Field)
}

func TestFilterGeo(t *testing.T) {
	f, err := Filter(repos.BootcampSchema, &query.Descriptor{
		Geo: &query.GeoFilter{Center: query.Point{Lat: 42.36, Lon: -71.06}, Radius: 0.0025},
	})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"location": bson.M{"$geoWithin": bson.M{
		"$centerSphere": bson.A{bson.A{-71.06, 42.36}, 0.0025},
	}}}, f)
}

func TestSort(t *testing.T) {
	s := Sort(repos.BootcampSchema, []query.SortKey{
		{Field: "averageCost", Descending: true},
		{Field: "bogus"},
		{Field: "name"},
	})
	assert.Equal(t, bson.D{{Key: "averageCost", Value: -1}, {Key: "name", Value: 1}, {Key: "_id", Value: 1}}, s)

	s = Sort(repos.BootcampSchema, []query.SortKey{{Field: "id", Descending: true}})
	assert.Equal(t, bson.D{{Key: "_id", Value: -1}}, s)
}

func TestFindOptions(t *testing.T) {
	opts := FindOptions(repos.UserSchema, &query.Descriptor{Page: 3, Limit: 10, Skip: 20})
	require.NotNil(t, opts.Limit)
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(10), *opts.Limit)
	assert.Equal(t, int64(20), *opts.Skip)

	opts = FindOptions(repos.UserSchema, &query.Descriptor{})
	assert.Nil(t, opts.Limit)
}
