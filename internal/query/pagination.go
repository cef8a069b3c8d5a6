package query

import "math"

// PageRef points to a neighbouring page of a paginated result
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination describes the position of a result page within the full result
type Pagination struct {
	// Number of records matching the query
	Total int `json:"total"`
	// The following page - only set if there are records after this page
	Next *PageRef `json:"next,omitempty"`
	// The preceding page - only set if this is not the first page
	Prev *PageRef `json:"prev,omitempty"`
}

// Paginate calculates the pagination information for the given page. Pages below 1 are treated as page 1, limits
// below 1 as the default limit. Pages so large that their window would overflow are clamped.
func Paginate(total, page, limit int) Pagination {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	page = clampPage(page, limit)
	skip := (page - 1) * limit
	ret := Pagination{Total: total}
	if skip+limit < total {
		ret.Next = &PageRef{Page: page + 1, Limit: limit}
	}
	if skip > 0 {
		ret.Prev = &PageRef{Page: page - 1, Limit: limit}
	}
	return ret
}

// clampPage limits the page number to the last page whose window end (page*limit) still fits into an int
func clampPage(page, limit int) int {
	if maxPage := (math.MaxInt-limit)/limit + 1; page > maxPage {
		return maxPage
	}
	return page
}
