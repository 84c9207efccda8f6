package query

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateIndexOnlyUsesMatchAll(t *testing.T) {
	req, err := Translate(&AbstractQuery{Index: "logs"}, false, false)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
	}, req.Body)
	assert.Equal(t, "logs/search", req.Path)
	assert.Nil(t, req.Params)

	encoded, err := json.Marshal(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":{"match_all":{}}}`, string(encoded))
}

func TestTranslateRequiresIndex(t *testing.T) {
	_, err := Translate(&AbstractQuery{}, false, false)
	assert.ErrorIs(t, err, ErrMissingIndex)

	_, err = Translate(nil, false, false)
	assert.ErrorIs(t, err, ErrMissingIndex)
}

func TestTranslateQueryAndFilterUseQueryString(t *testing.T) {
	q := &AbstractQuery{
		Index:  "logs",
		Query:  Text(`title:"big deal" AND NOT x:1`),
		Filter: Text("status:active"),
	}

	req, err := Translate(q, false, false)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"query_string": map[string]interface{}{"query": `title:"big deal" AND NOT x:1`},
	}, req.Body["query"])
	assert.Equal(t, map[string]interface{}{
		"query_string": map[string]interface{}{"query": "status:active"},
	}, req.Body["filter"])
}

func TestTranslateExplainIsIndependentOfValidate(t *testing.T) {
	for _, validate := range []bool{false, true} {
		req, err := Translate(&AbstractQuery{Index: "logs"}, true, validate)
		require.NoError(t, err)
		assert.Equal(t, true, req.Body["explain"])
	}

	req, err := Translate(&AbstractQuery{Index: "logs"}, false, true)
	require.NoError(t, err)
	_, ok := req.Body["explain"]
	assert.False(t, ok)
}

func TestTranslateFacetsAndScript(t *testing.T) {
	q := &AbstractQuery{
		Index:  "logs",
		Facets: []string{"host", "level"},
		Script: &ScriptField{Name: "double", Body: "doc['n'].value * 2"},
	}

	req, err := Translate(q, false, false)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"host":  map[string]interface{}{"terms": map[string]interface{}{"field": "host"}},
		"level": map[string]interface{}{"terms": map[string]interface{}{"field": "level"}},
	}, req.Body["facets"])
	assert.Equal(t, map[string]interface{}{
		"double": map[string]interface{}{"script": "doc['n'].value * 2"},
	}, req.Body["script_fields"])
}

func TestTranslateFields(t *testing.T) {
	tests := []struct {
		name     string
		fields   []string
		expected []string
	}{
		{"absent", nil, nil},
		{"star", []string{"*"}, nil},
		{"count", []string{"count(*)"}, nil},
		{"single", []string{"title"}, []string{"title"}},
		{"many keeps order", []string{"b", "a", "c"}, []string{"b", "a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Translate(&AbstractQuery{Index: "logs", Fields: tt.fields}, false, false)
			require.NoError(t, err)

			fields, ok := req.Body["fields"]
			if tt.expected == nil {
				assert.False(t, ok)
				return
			}
			assert.Equal(t, tt.expected, fields)
		})
	}
}

func TestTranslateSortKeepsCallerOrder(t *testing.T) {
	q := &AbstractQuery{
		Index: "logs",
		Order: []SortKey{
			{Field: "ts", Direction: "desc"},
			{Field: "host", Direction: "asc"},
			{Field: "ts", Direction: "asc"},
		},
	}

	req, err := Translate(q, false, false)
	require.NoError(t, err)

	assert.Equal(t, []map[string]interface{}{
		{"ts": "desc"},
		{"host": "asc"},
		{"ts": "asc"},
	}, req.Body["sort"])
}

func TestTranslateLimit(t *testing.T) {
	req, err := Translate(&AbstractQuery{Index: "logs", Limit: []int{10}}, false, false)
	require.NoError(t, err)
	assert.Equal(t, 10, req.Body["size"])
	_, hasFrom := req.Body["from"]
	assert.False(t, hasFrom)

	limit := []int{20, 5}
	req, err = Translate(&AbstractQuery{Index: "logs", Limit: limit}, false, false)
	require.NoError(t, err)
	assert.Equal(t, 20, req.Body["from"])
	assert.Equal(t, 5, req.Body["size"])
	assert.Equal(t, []int{20, 5}, limit, "caller's limit must not be mutated")
}

func TestSplitLimitLeavesSingleElement(t *testing.T) {
	from, size, rest, err := splitLimit([]int{3, 7})
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Equal(t, 3, *from)
	assert.Equal(t, 7, size)
	assert.Equal(t, []int{7}, rest)

	from, size, rest, err = splitLimit([]int{4})
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Equal(t, 4, size)
	assert.Len(t, rest, 1)
}

func TestTranslateRejectsLongLimit(t *testing.T) {
	_, err := Translate(&AbstractQuery{Index: "logs", Limit: []int{1, 2, 3}}, false, false)
	require.Error(t, err)

	var limitErr *MalformedLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, []int{1, 2, 3}, limitErr.Values)
}

func TestPath(t *testing.T) {
	assert.Equal(t, "logs/app/search", Path("logs.app", false))
	assert.Equal(t, "logs/app/_validate/query", Path("logs.app", true))
}

func TestTranslateValidateParams(t *testing.T) {
	req, err := Translate(&AbstractQuery{Index: "logs.app"}, false, true)
	require.NoError(t, err)

	assert.Equal(t, "logs/app/_validate/query", req.Path)
	assert.Equal(t, map[string]string{"pretty": "true", "explain": "true"}, req.Params)
}

func TestProjection(t *testing.T) {
	assert.Nil(t, (&AbstractQuery{Fields: []string{"*"}}).Projection())
	assert.Nil(t, (&AbstractQuery{Fields: []string{"count(*)"}}).Projection())
	assert.Equal(t, []string{"a", "*"}, (&AbstractQuery{Fields: []string{"a", "*"}}).Projection())
}
