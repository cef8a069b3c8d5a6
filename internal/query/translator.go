package query

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/derWhity/devcamper/internal/geocoder"
	"golang.org/x/net/context"
)

const (
	// DefaultLimit is the page size used when the request does not contain a valid limit
	DefaultLimit = 25
	// DefaultPage is the page used when the request does not contain a valid page number
	DefaultPage = 1
	// DefaultSort is the sort specification used when the request contains none
	DefaultSort = "createdAt"
	// LegacyEarthRadius is the divisor used to turn a distance into an angular radius. It is the earth's radius in
	// kilometers although the distance parameter is called "miles" on the wire.
	LegacyEarthRadius = 6378.0

	// ParamSelect holds the comma separated list of fields to return
	ParamSelect = "select"
	// ParamSort holds the comma separated sort specification
	ParamSort = "sort"
	// ParamPage holds the requested page number
	ParamPage = "page"
	// ParamLimit holds the requested page size
	ParamLimit = "limit"
	// ParamZip holds the postal code of a radius search
	ParamZip = "zip"
	// ParamMiles holds the distance of a radius search
	ParamMiles = "miles"
)

// OperatorSyntax defines how a comparison operator is attached to a field name on the wire
type OperatorSyntax string

const (
	// SyntaxBrackets expects operators like "averageCost[lte]=1000"
	SyntaxBrackets OperatorSyntax = "brackets"
	// SyntaxSuffix expects operators like "averageCost_lte=1000"
	SyntaxSuffix OperatorSyntax = "suffix"
)

// Options configure a Translator
type Options struct {
	// Page size to use when none or an invalid one is requested
	DefaultLimit int `json:"defaultLimit"`
	// Sort specification to use when none is requested (e.g. "createdAt" or "-createdAt")
	DefaultSort string `json:"defaultSort"`
	// The wire convention for comparison operators
	OperatorSyntax OperatorSyntax `json:"operatorSyntax"`
	// Name of the parameter holding the postal code for radius searches
	ZipParam string `json:"zipParam"`
	// Name of the parameter holding the search distance for radius searches
	DistanceParam string `json:"distanceParam"`
	// The divisor turning the search distance into radians. Its unit defines the unit of the distance parameter.
	EarthRadius float64 `json:"earthRadius"`
}

// DefaultOptions returns the options reproducing the behaviour of the public API
func DefaultOptions() Options {
	return Options{
		DefaultLimit:   DefaultLimit,
		DefaultSort:    DefaultSort,
		OperatorSyntax: SyntaxBrackets,
		ZipParam:       ParamZip,
		DistanceParam:  ParamMiles,
		EarthRadius:    LegacyEarthRadius,
	}
}

// withDefaults fills all unset options with their default values
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = def.DefaultLimit
	}
	if strings.TrimSpace(o.DefaultSort) == "" {
		o.DefaultSort = def.DefaultSort
	}
	if o.OperatorSyntax != SyntaxSuffix {
		o.OperatorSyntax = SyntaxBrackets
	}
	if o.ZipParam == "" {
		o.ZipParam = def.ZipParam
	}
	if o.DistanceParam == "" {
		o.DistanceParam = def.DistanceParam
	}
	if o.EarthRadius <= 0 {
		o.EarthRadius = def.EarthRadius
	}
	return o
}

// LookupError is returned when the postal code of a radius search cannot be resolved
type LookupError struct {
	// The code that has been looked up
	Code string
	// Set if the geocoder answered, but knows no location for the code
	NotFound bool
	// The error returned by the geocoder, if any
	Err error
}

// Error implements the error interface
func (e *LookupError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("no location found for '%s'", e.Code)
	}
	return fmt.Sprintf("failed to look up location for '%s': %v", e.Code, e.Err)
}

// Cause returns the underlying geocoder error
func (e *LookupError) Cause() error {
	return e.Err
}

// Translator converts the query parameters of list requests into query descriptors
type Translator struct {
	geo  geocoder.Geocoder
	opts Options
}

// NewTranslator creates a new translator using the given geocoder for radius searches
func NewTranslator(geo geocoder.Geocoder, opts Options) *Translator {
	return &Translator{geo: geo, opts: opts.withDefaults()}
}

// Options returns the effective options of the translator
func (t *Translator) Options() Options {
	return t.opts
}

// Translate builds the query descriptor for the given query parameters. The path filter contains filters derived from
// the request path (like the ID of a parent resource) and is merged in as equality filters.
//
// Translate never fails on malformed input - it falls back to defaults instead. The only error returned is a
// *LookupError if the location of a radius search cannot be resolved.
func (t *Translator) Translate(ctx context.Context, raw url.Values, pathFilter map[string]string) (*Descriptor, error) {
	params := make(map[string]string, len(raw)+len(pathFilter))
	for key, values := range raw {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	for key, value := range pathFilter {
		params[key] = value
	}

	d := &Descriptor{}
	zip, dist := params[t.opts.ZipParam], params[t.opts.DistanceParam]
	if zip != "" && dist != "" {
		geo, err := t.geoFilter(ctx, zip, dist)
		if err != nil {
			return nil, err
		}
		d.Geo = geo
	}

	d.Projection = splitList(params[ParamSelect])
	d.Sort = ParseSort(params[ParamSort])
	if len(d.Sort) == 0 {
		d.Sort = ParseSort(t.opts.DefaultSort)
	}
	d.Limit = positiveInt(params[ParamLimit], t.opts.DefaultLimit)
	d.Page = clampPage(positiveInt(params[ParamPage], DefaultPage), d.Limit)
	d.Skip = (d.Page - 1) * d.Limit

	for _, reserved := range []string{ParamSelect, ParamSort, ParamPage, ParamLimit, t.opts.ZipParam, t.opts.DistanceParam} {
		delete(params, reserved)
	}
	for key, value := range params {
		d.Filters = append(d.Filters, t.condition(key, value))
	}
	sortConditions(d.Filters)
	return d, nil
}

// ParseDistance parses the distance of a radius search. Only finite, non-negative numbers are accepted.
func ParseDistance(dist string) (float64, error) {
	distance, err := strconv.ParseFloat(strings.TrimSpace(dist), 64)
	if err != nil || distance < 0 || math.IsInf(distance, 0) || math.IsNaN(distance) {
		return 0, fmt.Errorf("illegal distance '%s'", dist)
	}
	return distance, nil
}

// geoFilter resolves the postal code and builds the radius filter. A distance that is no non-negative number disables
// the radius filter.
func (t *Translator) geoFilter(ctx context.Context, zip, dist string) (*GeoFilter, error) {
	distance, err := ParseDistance(dist)
	if err != nil {
		return nil, nil
	}
	center, err := Locate(ctx, t.geo, zip)
	if err != nil {
		return nil, err
	}
	return &GeoFilter{
		Center: center,
		Radius: Radius(distance, t.opts.EarthRadius),
	}, nil
}

// condition builds the filter condition for a single parameter. Keys carrying an unknown operator token are kept as
// literal field names.
func (t *Translator) condition(key, value string) Condition {
	field, op := splitOperator(key, t.opts.OperatorSyntax)
	c := Condition{Field: field, Op: op, Value: value}
	if op == OpIn {
		c.Values = splitList(value)
	}
	return c
}

// splitOperator separates the operator token from a parameter name
func splitOperator(key string, syntax OperatorSyntax) (string, Op) {
	var field, token string
	switch syntax {
	case SyntaxSuffix:
		i := strings.LastIndex(key, "_")
		if i <= 0 {
			return key, OpEq
		}
		field, token = key[:i], key[i+1:]
	default:
		i := strings.LastIndex(key, "[")
		if i <= 0 || !strings.HasSuffix(key, "]") {
			return key, OpEq
		}
		field, token = key[:i], key[i+1:len(key)-1]
	}
	if op, ok := operatorTokens[token]; ok {
		return field, op
	}
	return key, OpEq
}

// positiveInt parses a positive integer and returns the default value for anything else
func positiveInt(s string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i <= 0 {
		return def
	}
	return i
}
