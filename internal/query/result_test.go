package query

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type testRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// sliceLister serves records from memory, applying skip and limit only
type sliceLister struct {
	records  []testRecord
	countErr error
	findErr  error
}

func (l *sliceLister) Count(_ context.Context, _ *Descriptor) (int, error) {
	return len(l.records), l.countErr
}

func (l *sliceLister) Find(_ context.Context, d *Descriptor) ([]testRecord, error) {
	if l.findErr != nil {
		return nil, l.findErr
	}
	if d.Skip >= len(l.records) {
		return nil, nil
	}
	end := d.Skip + d.Limit
	if end > len(l.records) {
		end = len(l.records)
	}
	return l.records[d.Skip:end], nil
}

func makeRecords(n int) []testRecord {
	ret := make([]testRecord, n)
	for i := range ret {
		ret[i] = testRecord{
			ID:    fmt.Sprintf("u-%d", i),
			Name:  fmt.Sprintf("User %d", i),
			Email: fmt.Sprintf("user%d@example.com", i),
			Role:  "user",
		}
	}
	return ret
}

func TestRunReturnsPage(t *testing.T) {
	l := &sliceLister{records: makeRecords(30)}
	res, err := Run[testRecord](context.Background(), l, &Descriptor{Page: 2, Limit: 10, Skip: 10})
	require.NoError(t, err)

	assert.Equal(t, 10, res.Count)
	assert.Equal(t, 30, res.Pagination.Total)
	assert.Equal(t, &PageRef{Page: 3, Limit: 10}, res.Pagination.Next)
	assert.Equal(t, &PageRef{Page: 1, Limit: 10}, res.Pagination.Prev)
	data := res.Data.([]testRecord)
	assert.Equal(t, "u-10", data[0].ID)
}

func TestRunEmptyPageIsEmptyList(t *testing.T) {
	l := &sliceLister{records: makeRecords(3)}
	res, err := Run[testRecord](context.Background(), l, &Descriptor{Page: 5, Limit: 10, Skip: 40})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Count)
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"data":[]`)
}

func TestRunPassesErrors(t *testing.T) {
	_, err := Run[testRecord](context.Background(), &sliceLister{countErr: fmt.Errorf("count failed")}, &Descriptor{Page: 1, Limit: 1})
	assert.EqualError(t, err, "count failed")

	_, err = Run[testRecord](context.Background(), &sliceLister{findErr: fmt.Errorf("find failed")}, &Descriptor{Page: 1, Limit: 1})
	assert.EqualError(t, err, "find failed")
}

func TestRunAppliesProjection(t *testing.T) {
	l := &sliceLister{records: makeRecords(2)}
	res, err := Run[testRecord](context.Background(), l, &Descriptor{Page: 1, Limit: 25, Projection: []string{"name", "email"}})
	require.NoError(t, err)

	data, ok := res.Data.([]map[string]json.RawMessage)
	require.True(t, ok)
	require.Len(t, data, 2)
	assert.Len(t, data[0], 3)
	assert.JSONEq(t, `"u-0"`, string(data[0]["id"]))
	assert.JSONEq(t, `"User 0"`, string(data[0]["name"]))
	assert.NotContains(t, data[0], "role")
}

func TestProjectUnknownFieldsAreIgnored(t *testing.T) {
	data, err := Project(makeRecords(1), []string{"nonsense"})
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, []string{"id"}, keysOf(data[0]))
}

func TestProjectRejectsNonLists(t *testing.T) {
	_, err := Project(testRecord{ID: "x"}, []string{"name"})
	assert.Error(t, err)
}

func keysOf(m map[string]json.RawMessage) []string {
	var ret []string
	for k := range m {
		ret = append(ret, k)
	}
	return ret
}
