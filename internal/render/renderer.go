package render

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ca-srg/elseql/internal/csv"
)

// Status tells the caller how a call ended.
type Status int

const (
	StatusRows Status = iota
	StatusValidation
	StatusEngineError
	StatusShardFailure
	StatusTransportError
	StatusUnrecognized
	StatusParseError
	StatusTranslateError
	StatusNotSent
)

var statusNames = map[Status]string{
	StatusRows:           "rows",
	StatusValidation:     "validation",
	StatusEngineError:    "engine_error",
	StatusShardFailure:   "shard_failure",
	StatusTransportError: "transport_error",
	StatusUnrecognized:   "unrecognized",
	StatusParseError:     "parse_error",
	StatusTranslateError: "translate_error",
	StatusNotSent:        "not_sent",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Failed reports whether the call produced diagnostics instead of results.
func (s Status) Failed() bool {
	switch s {
	case StatusRows, StatusValidation, StatusNotSent:
		return false
	default:
		return true
	}
}

// Options describe what the request asked for.
type Options struct {
	// Fields is the explicit projection, nil when whole documents were requested.
	Fields []string
	// Facets is the requested facet order.
	Facets []string
}

// Output is the rendered form of one response.
type Output struct {
	Lines  []string
	Status Status
}

const unrecognizedWarning = "WARNING: unrecognized response"

// Render classifies resp and renders it.
func Render(resp json.RawMessage, opts Options) *Output {
	result, err := Classify(resp)
	if err != nil {
		return &Output{
			Lines:  []string{"ERROR: " + err.Error()},
			Status: StatusUnrecognized,
		}
	}
	return RenderResult(result, opts)
}

// RenderTransportError reports that no response was obtained from url.
func RenderTransportError(url string, err error) *Output {
	lines := []string{"cannot connect to " + url}
	if err != nil {
		lines = append(lines, err.Error())
	}
	return &Output{Lines: lines, Status: StatusTransportError}
}

// RenderResult renders an already classified response.
func RenderResult(result Result, opts Options) *Output {
	out := &Output{Status: result.status()}

	switch r := result.(type) {
	case Validation:
		out.Lines = append(out.Lines, "valid: "+r.Valid)
		for _, msg := range r.Errors {
			out.Lines = append(out.Lines, "ERROR: "+msg)
		}
	case EngineError:
		out.Lines = append(out.Lines, "ERROR: "+r.Message)
	case ShardFailure:
		for _, reason := range r.Reasons {
			out.Lines = append(out.Lines, "ERROR: "+reason)
		}
	case SearchResult:
		if r.Hits != nil {
			out.Lines = append(out.Lines, renderHits(r.Hits, opts.Fields)...)
		}
		out.Lines = append(out.Lines, renderFacets(r.Facets, opts.Facets)...)
	case Unrecognized:
		out.Lines = append(out.Lines, unrecognizedWarning)
	}

	return out
}

func renderHits(hits *Hits, fields []string) []string {
	var lines []string

	if len(fields) > 0 {
		lines = append(lines, csv.EncodeStrings(fields))
		for _, hit := range hits.Documents {
			lines = append(lines, csv.EncodeRow(projectHit(hit, fields)))
		}
	} else {
		if len(hits.Documents) > 0 {
			if source := sourceOf(hits.Documents[0]); source != nil {
				lines = append(lines, csv.EncodeStrings(source.Keys))
			}
		}
		for _, hit := range hits.Documents {
			source := sourceOf(hit)
			if source == nil {
				lines = append(lines, "")
				continue
			}
			lines = append(lines, csv.EncodeRow(source.OrderedValues()))
		}
	}

	lines = append(lines, "", "total:  "+hits.Total)
	return lines
}

// projectHit looks each field up on the hit itself, then in its fields bucket.
func projectHit(hit *Object, fields []string) []interface{} {
	values := make([]interface{}, len(fields))

	var bucket *Object
	if raw, ok := hit.Get("fields"); ok {
		var b Object
		if err := json.Unmarshal(raw, &b); err == nil {
			bucket = &b
		}
	}

	for i, field := range fields {
		if v, ok := hit.Get(field); ok {
			values[i] = v
			continue
		}
		if v, ok := bucket.Get(field); ok {
			values[i] = v
		}
	}
	return values
}

func sourceOf(hit *Object) *Object {
	raw, ok := hit.Get("_source")
	if !ok {
		return nil
	}
	var source Object
	if err := json.Unmarshal(raw, &source); err != nil {
		return nil
	}
	return &source
}

// renderFacets prints facets in the requested order, then any facet the
// engine returned that was not requested, by name.
func renderFacets(facets []Facet, requested []string) []string {
	if len(facets) == 0 {
		return nil
	}

	byName := make(map[string]Facet, len(facets))
	for _, f := range facets {
		byName[f.Name] = f
	}

	ordered := make([]Facet, 0, len(facets))
	for _, name := range requested {
		if f, ok := byName[name]; ok {
			ordered = append(ordered, f)
			delete(byName, name)
		}
	}

	rest := make([]string, 0, len(byName))
	for name := range byName {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	for _, name := range rest {
		ordered = append(ordered, byName[name])
	}

	var lines []string
	for _, f := range ordered {
		lines = append(lines, "", csv.EncodeField(f.Name)+",count")
		for _, term := range f.Terms {
			lines = append(lines, csv.EncodeField(term.Term)+","+csv.EncodeField(term.Count))
		}
	}
	return lines
}
