package render

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, body string, opts Options) *Output {
	t.Helper()
	return Render(json.RawMessage(body), opts)
}

func TestRenderValidationFailure(t *testing.T) {
	out := render(t, `{"valid": false, "explanations": [{"error": "bad syntax"}]}`, Options{})

	assert.Equal(t, StatusValidation, out.Status)
	assert.Equal(t, []string{"valid: false", "ERROR: bad syntax"}, out.Lines)
}

func TestRenderValidationSuccessSkipsHits(t *testing.T) {
	out := render(t, `{
		"valid": true,
		"explanations": [{"index": "logs", "valid": true, "explanation": "+*:*"}],
		"hits": {"total": 1, "hits": [{"_source": {"a": 1}}]}
	}`, Options{})

	assert.Equal(t, []string{"valid: true"}, out.Lines)
	assert.False(t, out.Status.Failed())
}

func TestRenderEngineError(t *testing.T) {
	out := render(t, `{"error": "IndexMissingException[[nope] missing]", "status": 404}`, Options{})

	assert.Equal(t, StatusEngineError, out.Status)
	assert.Equal(t, []string{"ERROR: IndexMissingException[[nope] missing]"}, out.Lines)
}

func TestRenderStructuredEngineError(t *testing.T) {
	out := render(t, `{"error": {"root_cause": [], "type": "index_not_found_exception", "reason": "no such index [nope]"}, "status": 404}`, Options{})

	assert.Equal(t, []string{"ERROR: index_not_found_exception: no such index [nope]"}, out.Lines)
}

func TestRenderShardFailures(t *testing.T) {
	out := render(t, `{
		"_shards": {"total": 2, "failed": 2, "failures": [
			{"shard": 0, "reason": "first broke"},
			{"shard": 1, "reason": {"type": "query_shard_exception", "reason": "second broke"}}
		]},
		"hits": {"total": 0, "hits": []}
	}`, Options{})

	assert.Equal(t, StatusShardFailure, out.Status)
	assert.Equal(t, []string{"ERROR: first broke", "ERROR: query_shard_exception: second broke"}, out.Lines)
}

func TestRenderEmptyShardFailuresFallsThroughToHits(t *testing.T) {
	out := render(t, `{"_shards": {"failures": []}, "hits": {"total": 0, "hits": []}}`, Options{})

	assert.Equal(t, StatusRows, out.Status)
	assert.Equal(t, []string{"", "total:  0"}, out.Lines)
}

func TestRenderSourceRows(t *testing.T) {
	out := render(t, `{"hits": {"total": 2, "hits": [{"_source": {"a":1,"b":2}}, {"_source": {"a":3,"b":4}}]}}`, Options{})

	assert.Equal(t, StatusRows, out.Status)
	assert.Equal(t, []string{"a,b", "1,2", "3,4", "", "total:  2"}, out.Lines)
}

func TestRenderSourceRowsKeepWireOrder(t *testing.T) {
	out := render(t, `{"hits": {"total": {"value": 1, "relation": "eq"}, "hits": [
		{"_source": {"zeta": "last one", "alpha": {"nested": [1, 2]}, "mid": null}}
	]}}`, Options{})

	assert.Equal(t, []string{
		"zeta,alpha,mid",
		`"last one","{""nested"":[1,2]}",`,
		"",
		"total:  1",
	}, out.Lines)
}

func TestRenderProjectedRowsFallBackToFieldsBucket(t *testing.T) {
	out := render(t, `{"hits": {"total": 2, "hits": [
		{"_id": "1", "_score": 1.5, "fields": {"double": [4], "title": "first doc"}},
		{"_id": "2", "fields": {"title": "second"}}
	]}}`, Options{Fields: []string{"_id", "title", "double"}})

	assert.Equal(t, []string{
		`"_id",title,double`,
		`1,"first doc","[4]"`,
		"2,second,",
		"",
		"total:  2",
	}, out.Lines)
}

func TestRenderEmptyHitsHasNoHeader(t *testing.T) {
	out := render(t, `{"hits": {"total": 0, "hits": []}}`, Options{})

	assert.Equal(t, []string{"", "total:  0"}, out.Lines)
}

func TestRenderFacetsFollowRequestedOrder(t *testing.T) {
	out := render(t, `{
		"hits": {"total": 3, "hits": []},
		"facets": {
			"level": {"terms": [{"term": "error", "count": 2}, {"term": "warn", "count": 1}]},
			"host": {"terms": [{"term": "web 1", "count": 3}]},
			"extra": {"terms": []}
		}
	}`, Options{Facets: []string{"host", "level"}})

	assert.Equal(t, []string{
		"",
		"total:  3",
		"",
		"host,count",
		`"web 1",3`,
		"",
		"level,count",
		"error,2",
		"warn,1",
		"",
		"extra,count",
	}, out.Lines)
}

func TestRenderFacetsWithoutHits(t *testing.T) {
	out := render(t, `{"facets": {"tag": {"terms": [{"term": "go", "count": 5}]}}}`, Options{})

	assert.Equal(t, StatusRows, out.Status)
	assert.Equal(t, []string{"", "tag,count", "go,5"}, out.Lines)
}

func TestRenderUnrecognized(t *testing.T) {
	out := render(t, `{"acknowledged": true}`, Options{})

	assert.Equal(t, StatusUnrecognized, out.Status)
	assert.Equal(t, []string{unrecognizedWarning}, out.Lines)
}

func TestRenderNonObjectResponse(t *testing.T) {
	out := render(t, `[1, 2]`, Options{})

	assert.Equal(t, StatusUnrecognized, out.Status)
	require.Len(t, out.Lines, 1)
	assert.Contains(t, out.Lines[0], "ERROR: response is not a JSON object")
}

func TestRenderTransportError(t *testing.T) {
	out := RenderTransportError("http://localhost:9200", errors.New("dial tcp: connection refused"))

	assert.Equal(t, StatusTransportError, out.Status)
	assert.Equal(t, []string{"cannot connect to http://localhost:9200", "dial tcp: connection refused"}, out.Lines)
	assert.True(t, out.Status.Failed())
}

func TestClassifyPrecedence(t *testing.T) {
	result, err := Classify(json.RawMessage(`{"error": "boom", "_shards": {"failures": [{"reason": "x"}]}, "hits": {"total": 0, "hits": []}}`))
	require.NoError(t, err)
	assert.IsType(t, EngineError{}, result)

	result, err = Classify(json.RawMessage(`{"valid": true, "error": "ignored"}`))
	require.NoError(t, err)
	assert.IsType(t, Validation{}, result)
}

func TestObjectKeepsKeyOrder(t *testing.T) {
	var o Object
	require.NoError(t, json.Unmarshal([]byte(`{"c": 1, "a": {"x": [1]}, "b": "s"}`), &o))

	assert.Equal(t, []string{"c", "a", "b"}, o.Keys)
	assert.JSONEq(t, `{"x": [1]}`, string(o.Values["a"]))
	assert.True(t, o.Has("b"))

	require.Error(t, json.Unmarshal([]byte(`[1]`), &o))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "rows", StatusRows.String())
	assert.Equal(t, "status(99)", Status(99).String())
}
