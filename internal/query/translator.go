package query

import (
	"strings"
)

const (
	searchCommand   = "/search"
	validateCommand = "/_validate/query"
)

// Translate builds the engine request for q. explain asks the engine to
// explain scoring, validate targets the validation endpoint instead of search.
// It performs no I/O.
func Translate(q *AbstractQuery, explain, validate bool) (*Request, error) {
	if q == nil || q.Index == "" {
		return nil, ErrMissingIndex
	}

	body := map[string]interface{}{
		"query": buildQueryClause(q.Query),
	}

	if explain {
		body["explain"] = true
	}

	if q.Filter != nil {
		body["filter"] = queryString(q.Filter)
	}

	if len(q.Facets) > 0 {
		body["facets"] = buildFacets(q.Facets)
	}

	if q.Script != nil {
		body["script_fields"] = map[string]interface{}{
			q.Script.Name: map[string]interface{}{
				"script": q.Script.Body,
			},
		}
	}

	if fields := q.Projection(); fields != nil {
		body["fields"] = fields
	}

	if len(q.Order) > 0 {
		body["sort"] = buildSort(q.Order)
	}

	if len(q.Limit) > 0 {
		from, size, _, err := splitLimit(q.Limit)
		if err != nil {
			return nil, err
		}
		if from != nil {
			body["from"] = *from
		}
		body["size"] = size
	}

	return &Request{
		Path:   Path(q.Index, validate),
		Params: params(validate),
		Body:   body,
	}, nil
}

// Path maps a dotted index name onto engine URL segments.
func Path(index string, validate bool) string {
	command := searchCommand
	if validate {
		command = validateCommand
	}
	return strings.ReplaceAll(index, ".", "/") + command
}

func params(validate bool) map[string]string {
	if !validate {
		return nil
	}
	return map[string]string{
		"pretty":  "true",
		"explain": "true",
	}
}

func buildQueryClause(expr Expr) map[string]interface{} {
	if expr == nil {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}
	return queryString(expr)
}

func queryString(expr Expr) map[string]interface{} {
	return map[string]interface{}{
		"query_string": map[string]interface{}{
			"query": expr.String(),
		},
	}
}

func buildFacets(facets []string) map[string]interface{} {
	result := make(map[string]interface{}, len(facets))
	for _, field := range facets {
		result[field] = map[string]interface{}{
			"terms": map[string]interface{}{
				"field": field,
			},
		}
	}
	return result
}

func buildSort(order []SortKey) []map[string]interface{} {
	sort := make([]map[string]interface{}, 0, len(order))
	for _, key := range order {
		sort = append(sort, map[string]interface{}{key.Field: key.Direction})
	}
	return sort
}

// splitLimit pops the offset off a working copy of limit. The remaining
// slice always holds exactly the size on success.
func splitLimit(limit []int) (*int, int, []int, error) {
	if len(limit) > 2 {
		return nil, 0, nil, &MalformedLimitError{Values: append([]int(nil), limit...)}
	}

	working := append([]int(nil), limit...)
	var from *int
	if len(working) > 1 {
		offset := working[0]
		from = &offset
		working = working[1:]
	}

	return from, working[0], working, nil
}
