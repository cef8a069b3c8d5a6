// Package query translates the query string of list requests into an engine-agnostic query descriptor and provides
// the pagination and geo helpers shared by all list endpoints
package query

import (
	"sort"
	"strings"
)

// Op is a comparison operator used inside a filter condition
type Op string

const (
	// OpEq matches values equal to the condition's value
	OpEq Op = "eq"
	// OpGt matches values greater than the condition's value
	OpGt Op = "gt"
	// OpGte matches values greater than or equal to the condition's value
	OpGte Op = "gte"
	// OpLt matches values lower than the condition's value
	OpLt Op = "lt"
	// OpLte matches values lower than or equal to the condition's value
	OpLte Op = "lte"
	// OpIn matches values contained in the condition's value list
	OpIn Op = "in"
)

// operatorTokens maps the tokens allowed on the wire to their operators. Equality has no token.
var operatorTokens = map[string]Op{
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
	"in":  OpIn,
}

// Condition is a single filter predicate on a field
type Condition struct {
	// Name of the field as used on the wire (JSON name)
	Field string
	// The comparison operator
	Op Op
	// The raw value - coercion to the field's type is left to the repository
	Value string
	// The split value list for OpIn conditions
	Values []string
}

// SortKey is one entry of the requested sort order
type SortKey struct {
	Field      string
	Descending bool
}

// Point is a position on the earth's surface
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// GeoFilter selects records whose location lies within an angular radius around a center point
type GeoFilter struct {
	Center Point
	// Radius in radians
	Radius float64
}

// Descriptor is the structured, storage independent form of a list query. It is built once per request and never
// shared between requests.
type Descriptor struct {
	Filters    []Condition
	Projection []string
	Sort       []SortKey
	Page       int
	Limit      int
	Skip       int
	Geo        *GeoFilter
}

// HasProjection checks if the query restricts the returned fields
func (d *Descriptor) HasProjection() bool {
	return len(d.Projection) > 0
}

// FiltersOn returns all conditions that apply to the given field
func (d *Descriptor) FiltersOn(field string) []Condition {
	var ret []Condition
	for _, c := range d.Filters {
		if c.Field == field {
			ret = append(ret, c)
		}
	}
	return ret
}

// sortConditions orders conditions by field and operator so equal queries produce equal descriptors
func sortConditions(conds []Condition) {
	sort.Slice(conds, func(i, j int) bool {
		if conds[i].Field != conds[j].Field {
			return conds[i].Field < conds[j].Field
		}
		return conds[i].Op < conds[j].Op
	})
}

// ParseSort parses a comma separated sort specification like "-createdAt,name". A leading "-" marks a descending
// sort key. Empty entries are skipped.
func ParseSort(spec string) []SortKey {
	var ret []SortKey
	for _, part := range splitList(spec) {
		key := SortKey{Field: part}
		if strings.HasPrefix(part, "-") {
			key.Field = strings.TrimSpace(part[1:])
			key.Descending = true
		}
		if key.Field == "" {
			continue
		}
		ret = append(ret, key)
	}
	return ret
}

// splitList splits a comma separated list, trimming every entry and dropping empty ones
func splitList(s string) []string {
	var ret []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}
