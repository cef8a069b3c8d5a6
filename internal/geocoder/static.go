package geocoder

import (
	"strings"

	"golang.org/x/net/context"
)

// Static is a geocoder working from a fixed table of locations
type Static struct {
	locations map[string]Result
}

// NewStatic creates a geocoder that knows the given locations. Keys are matched case insensitive.
func NewStatic(locations map[string]Result) *Static {
	s := &Static{locations: make(map[string]Result, len(locations))}
	for key, res := range locations {
		s.locations[normalize(key)] = res
	}
	return s
}

// Geocode implements Geocoder
func (s *Static) Geocode(_ context.Context, address string) ([]Result, error) {
	res, ok := s.locations[normalize(address)]
	if !ok {
		return nil, ErrNoResults
	}
	return []Result{res}, nil
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
