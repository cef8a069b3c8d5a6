package internal

import (
	"encoding/json"

	"github.com/derWhity/devcamper/internal/validate"
)

// Keys of request bodies that are never taken from the client
var (
	protectedUserKeys     = []string{"id", "createdAt"}
	protectedBootcampKeys = []string{
		"id", "slug", "location", "averageRating", "averageCost", "photo", "createdAt", "user", "courses",
	}
	protectedCourseKeys = []string{"id", "createdAt", "bootcamp", "user"}
	protectedReviewKeys = []string{"id", "createdAt", "bootcamp", "user"}
)

// stripKeys removes the given top-level keys from a JSON object
func stripKeys(doc []byte, keys ...string) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	for _, k := range keys {
		delete(fields, k)
	}
	return json.Marshal(fields)
}

// decodeBody validates the body against the schema and decodes it into v after removing the protected keys. Free
// text is sanitised.
func decodeBody(schema *validate.Schema, doc []byte, v interface{}, protected []string) error {
	doc, err := stripKeys(doc, protected...)
	if err != nil {
		return errValidation(err)
	}
	if err := schema.DecodeClean(doc, v); err != nil {
		return errValidation(err)
	}
	return nil
}
