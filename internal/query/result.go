package query

import (
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

// IDField is the field that is always part of a projected record
const IDField = "id"

// Lister is a repository that is able to count and fetch the records matching a query descriptor
type Lister[T any] interface {
	// Count returns the number of records matching the filters of the descriptor
	Count(ctx context.Context, d *Descriptor) (int, error)
	// Find returns the requested page of records matching the descriptor
	Find(ctx context.Context, d *Descriptor) ([]T, error)
}

// Result is the response body of a list request
type Result struct {
	// Number of records on this page
	Count      int         `json:"count"`
	Pagination Pagination  `json:"pagination"`
	Data       interface{} `json:"data"`
}

// Run executes the query on the given repository. Count and fetch are two independent calls - errors of both are
// returned unmodified.
func Run[T any](ctx context.Context, l Lister[T], d *Descriptor) (*Result, error) {
	total, err := l.Count(ctx, d)
	if err != nil {
		return nil, err
	}
	items, err := l.Find(ctx, d)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return NewResult(items, len(items), total, d)
}

// NewResult assembles the result for an already fetched page, applying the descriptor's projection
func NewResult(items interface{}, count, total int, d *Descriptor) (*Result, error) {
	res := &Result{
		Count:      count,
		Pagination: Paginate(total, d.Page, d.Limit),
		Data:       items,
	}
	if d.HasProjection() {
		projected, err := Project(items, d.Projection)
		if err != nil {
			return nil, err
		}
		res.Data = projected
	}
	return res, nil
}

// Project reduces the JSON form of the given list of records to the requested fields and the ID field
func Project(items interface{}, fields []string) ([]map[string]json.RawMessage, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, errors.Wrap(err, "Project: failed to serialize records")
	}
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.Wrap(err, "Project: records are no list of objects")
	}
	keep := map[string]bool{IDField: true}
	for _, f := range fields {
		keep[f] = true
	}
	ret := make([]map[string]json.RawMessage, 0, len(records))
	for _, rec := range records {
		out := make(map[string]json.RawMessage, len(keep))
		for key, val := range rec {
			if keep[key] {
				out[key] = val
			}
		}
		ret = append(ret, out)
	}
	return ret, nil
}
