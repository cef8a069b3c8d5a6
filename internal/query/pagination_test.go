package query

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateThirtyRecords(t *testing.T) {
	first := Paginate(30, 1, 10)
	assert.Equal(t, 30, first.Total)
	assert.Equal(t, &PageRef{Page: 2, Limit: 10}, first.Next)
	assert.Nil(t, first.Prev)

	middle := Paginate(30, 2, 10)
	assert.Equal(t, &PageRef{Page: 3, Limit: 10}, middle.Next)
	assert.Equal(t, &PageRef{Page: 1, Limit: 10}, middle.Prev)

	last := Paginate(30, 3, 10)
	assert.Nil(t, last.Next)
	assert.Equal(t, &PageRef{Page: 2, Limit: 10}, last.Prev)
}

func TestPaginateEmptyResult(t *testing.T) {
	p := Paginate(0, 1, 25)
	assert.Nil(t, p.Next)
	assert.Nil(t, p.Prev)
}

func TestPaginateIllegalInput(t *testing.T) {
	p := Paginate(60, 0, 0)
	assert.Nil(t, p.Prev, "page 0 is page 1")
	assert.Equal(t, &PageRef{Page: 2, Limit: DefaultLimit}, p.Next)

	p = Paginate(60, -4, 30)
	assert.Nil(t, p.Prev)
	assert.Equal(t, &PageRef{Page: 2, Limit: 30}, p.Next)
}

func TestPaginateBeyondLastPage(t *testing.T) {
	p := Paginate(5, 4, 10)
	assert.Nil(t, p.Next)
	assert.Equal(t, &PageRef{Page: 3, Limit: 10}, p.Prev)
}

func TestPaginateHugePage(t *testing.T) {
	p := Paginate(100, 4611686018427387905, 4)
	assert.Nil(t, p.Next)
	require.NotNil(t, p.Prev)
	assert.Greater(t, p.Prev.Page, 25)

	p = Paginate(math.MaxInt, math.MaxInt, 1)
	assert.Nil(t, p.Next)
	assert.Equal(t, &PageRef{Page: math.MaxInt - 1, Limit: 1}, p.Prev)
}

func TestPaginateProperties(t *testing.T) {
	for total := 0; total <= 40; total += 7 {
		for limit := 1; limit <= 12; limit += 5 {
			for page := 1; page <= 6; page++ {
				t.Run(fmt.Sprintf("total=%d,limit=%d,page=%d", total, limit, page), func(t *testing.T) {
					p := Paginate(total, page, limit)
					skip := (page - 1) * limit
					assert.Equal(t, total, p.Total)
					assert.Equal(t, skip+limit < total, p.Next != nil)
					assert.Equal(t, page > 1, p.Prev != nil)
					if p.Next != nil {
						assert.Equal(t, PageRef{Page: page + 1, Limit: limit}, *p.Next)
					}
					if p.Prev != nil {
						assert.Equal(t, PageRef{Page: page - 1, Limit: limit}, *p.Prev)
					}
				})
			}
		}
	}
}
