package repos

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/derWhity/devcamper/internal/query"
)

// Kind is the data type of a filterable field
type Kind int

const (
	// KindString is a plain text field
	KindString Kind = iota
	// KindNumber is a floating point field
	KindNumber
	// KindInt is an integer field
	KindInt
	// KindBool is a boolean field
	KindBool
	// KindTime is a timestamp field
	KindTime
	// KindList is a list of strings - a condition matches if any list element matches
	KindList
)

// Field describes how a field of the wire representation is stored
type Field struct {
	// The column (SQL) or document key (MongoDB) holding the field's value
	Column string
	Kind   Kind
}

// Schema maps the wire names of an entity's fields to their storage
type Schema map[string]Field

// FilterError is returned when the value of a filter condition cannot be converted to the type of its field
type FilterError struct {
	Field string
	Value string
	Err   error
}

// Error implements the error interface
func (e *FilterError) Error() string {
	return fmt.Sprintf("illegal value '%s' for field '%s': %v", e.Value, e.Field, e.Err)
}

// Lookup returns the storage description of the given field
func (s Schema) Lookup(field string) (Field, bool) {
	f, ok := s[field]
	return f, ok
}

// CoerceCondition converts the raw value(s) of a condition to the type of the field. For OpIn conditions, the converted
// list is returned. Ordering operators are rejected on booleans.
func (s Schema) CoerceCondition(f Field, c query.Condition) ([]interface{}, error) {
	raw := []string{c.Value}
	if c.Op == query.OpIn {
		raw = c.Values
	}
	if f.Kind == KindBool && c.Op != query.OpEq && c.Op != query.OpIn {
		return nil, &FilterError{Field: c.Field, Value: c.Value, Err: fmt.Errorf("operator '%s' not allowed", c.Op)}
	}
	ret := make([]interface{}, 0, len(raw))
	for _, r := range raw {
		v, err := Coerce(f.Kind, r)
		if err != nil {
			return nil, &FilterError{Field: c.Field, Value: r, Err: err}
		}
		ret = append(ret, v)
	}
	return ret, nil
}

// Coerce converts a raw string value to the Go type matching the kind
func Coerce(kind Kind, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case KindNumber:
		return strconv.ParseFloat(raw, 64)
	case KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case KindBool:
		return strconv.ParseBool(raw)
	case KindTime:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("no valid date")
	}
	return raw, nil
}

// -- Schemas of the entities ------------------------------------------------------------------------------------------

// UserSchema describes the filterable fields of users
var UserSchema = Schema{
	"id":        {"id", KindString},
	"name":      {"name", KindString},
	"email":     {"email", KindString},
	"role":      {"role", KindString},
	"createdAt": {"createdAt", KindTime},
}

// BootcampSchema describes the filterable fields of bootcamps
var BootcampSchema = Schema{
	"id":               {"id", KindString},
	"name":             {"name", KindString},
	"slug":             {"slug", KindString},
	"description":      {"description", KindString},
	"website":          {"website", KindString},
	"phone":            {"phone", KindString},
	"email":            {"email", KindString},
	"address":          {"address", KindString},
	"careers":          {"careers", KindList},
	"averageRating":    {"averageRating", KindNumber},
	"averageCost":      {"averageCost", KindNumber},
	"photo":            {"photo", KindString},
	"housing":          {"housing", KindBool},
	"jobAssistance":    {"jobAssistance", KindBool},
	"jobGuarantee":     {"jobGuarantee", KindBool},
	"acceptGi":         {"acceptGi", KindBool},
	"createdAt":        {"createdAt", KindTime},
	"user":             {"userId", KindString},
	"location.city":    {"city", KindString},
	"location.state":   {"state", KindString},
	"location.zipcode": {"zipcode", KindString},
	"location.country": {"country", KindString},
}

// CourseSchema describes the filterable fields of courses
var CourseSchema = Schema{
	"id":                   {"id", KindString},
	"title":                {"title", KindString},
	"description":          {"description", KindString},
	"weeks":                {"weeks", KindString},
	"tuition":              {"tuition", KindNumber},
	"minimumSkill":         {"minimumSkill", KindString},
	"scholarshipAvailable": {"scholarshipAvailable", KindBool},
	"createdAt":            {"createdAt", KindTime},
	"bootcamp":             {"bootcampId", KindString},
	"user":                 {"userId", KindString},
}

// ReviewSchema describes the filterable fields of reviews
var ReviewSchema = Schema{
	"id":        {"id", KindString},
	"title":     {"title", KindString},
	"text":      {"text", KindString},
	"rating":    {"rating", KindInt},
	"createdAt": {"createdAt", KindTime},
	"bootcamp":  {"bootcampId", KindString},
	"user":      {"userId", KindString},
}
