// Package mongoquery translates query descriptors into MongoDB filters and find options and provides the collection
// access shared by all MongoDB repositories
package mongoquery

import (
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LocationKey is the document key holding the GeoJSON location of an entity
const LocationKey = "location"

var mongoOperators = map[query.Op]string{
	query.OpGt:  "$gt",
	query.OpGte: "$gte",
	query.OpLt:  "$lt",
	query.OpLte: "$lte",
	query.OpIn:  "$in",
}

// Key returns the document key of a field. Documents use the wire names - except for the ID.
func Key(field string) string {
	if field == query.IDField {
		return "_id"
	}
	return field
}

// matchNothing is a filter no document can satisfy
func matchNothing() bson.M {
	return bson.M{"_id": bson.M{"$in": bson.A{}}}
}

// Filter builds the MongoDB filter matching the conditions and the geo filter of the descriptor
func Filter(schema repos.Schema, d *query.Descriptor) (bson.M, error) {
	var clauses bson.A
	for _, c := range d.Filters {
		f, ok := schema.Lookup(c.Field)
		if !ok {
			clauses = append(clauses, matchNothing())
			continue
		}
		values, err := schema.CoerceCondition(f, c)
		if err != nil {
			return nil, err
		}
		if c.Op == query.OpIn {
			clauses = append(clauses, bson.M{Key(c.Field): bson.M{"$in": bson.A(values)}})
			continue
		}
		if c.Op == query.OpEq {
			// Equality on arrays matches any element
			clauses = append(clauses, bson.M{Key(c.Field): values[0]})
			continue
		}
		clauses = append(clauses, bson.M{Key(c.Field): bson.M{mongoOperators[c.Op]: values[0]}})
	}
	if g := d.Geo; g != nil {
		clauses = append(clauses, bson.M{LocationKey: bson.M{"$geoWithin": bson.M{
			"$centerSphere": bson.A{bson.A{g.Center.Lon, g.Center.Lat}, g.Radius},
		}}})
	}
	switch len(clauses) {
	case 0:
		return bson.M{}, nil
	case 1:
		return clauses[0].(bson.M), nil
	}
	return bson.M{"$and": clauses}, nil
}

// Sort builds the sort document - unknown sort fields are ignored and the ID is always the last sort key
func Sort(schema repos.Schema, keys []query.SortKey) bson.D {
	sort := bson.D{}
	seen := map[string]bool{}
	for _, k := range keys {
		if _, ok := schema.Lookup(k.Field); !ok || seen[k.Field] {
			continue
		}
		seen[k.Field] = true
		dir := 1
		if k.Descending {
			dir = -1
		}
		sort = append(sort, bson.E{Key: Key(k.Field), Value: dir})
	}
	if !seen[query.IDField] {
		sort = append(sort, bson.E{Key: "_id", Value: 1})
	}
	return sort
}

// FindOptions builds the options selecting the requested page in the requested order
func FindOptions(schema repos.Schema, d *query.Descriptor) *options.FindOptions {
	opts := options.Find().SetSort(Sort(schema, d.Sort))
	if d.Limit > 0 {
		opts.SetLimit(int64(d.Limit)).SetSkip(int64(d.Skip))
	}
	return opts
}
