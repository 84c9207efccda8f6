package query

import (
	"errors"
	"fmt"
)

// Sentinel field lists that never reach the request body.
const (
	AllFields  = "*"
	CountField = "count(*)"
)

// Expr is a free-text or filter expression. String must return the
// query-string text exactly as it should be sent to the engine.
type Expr interface {
	String() string
}

// Text is an Expr holding literal query-string text.
type Text string

func (t Text) String() string { return string(t) }

// ScriptField names a computed field and the engine script that produces it.
type ScriptField struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// SortKey is one ORDER BY entry. Direction is passed through as written.
type SortKey struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// AbstractQuery is the parsed form of an ElseSQL statement.
// Every field except Index is optional and translated on its own.
type AbstractQuery struct {
	Index  string       `json:"index"`
	Query  Expr         `json:"query,omitempty"`
	Filter Expr         `json:"filter,omitempty"`
	Facets []string     `json:"facets,omitempty"`
	Script *ScriptField `json:"script,omitempty"`
	Fields []string     `json:"fields,omitempty"`
	Order  []SortKey    `json:"order,omitempty"`
	Limit  []int        `json:"limit,omitempty"`
}

// Projection returns the explicit field list sent to the engine, or nil when
// the statement asks for whole documents.
func (q *AbstractQuery) Projection() []string {
	if len(q.Fields) == 0 {
		return nil
	}
	if len(q.Fields) == 1 && (q.Fields[0] == AllFields || q.Fields[0] == CountField) {
		return nil
	}
	fields := make([]string, len(q.Fields))
	copy(fields, q.Fields)
	return fields
}

// Request is a translated query ready for the transport.
type Request struct {
	Path   string
	Params map[string]string
	Body   map[string]interface{}
}

// ErrMissingIndex is returned when a query has no target index.
var ErrMissingIndex = errors.New("query has no target index")

// MalformedLimitError reports a LIMIT with more values than offset and size.
type MalformedLimitError struct {
	Values []int
}

func (e *MalformedLimitError) Error() string {
	return fmt.Sprintf("limit accepts at most 2 values (offset, size), got %d: %v", len(e.Values), e.Values)
}
