package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Result is one classified engine response. The concrete types are
// Validation, EngineError, ShardFailure, SearchResult and Unrecognized.
type Result interface {
	status() Status
}

// Validation is the answer of the _validate/query endpoint.
type Validation struct {
	Valid  string
	Errors []string
}

// EngineError is an error reported by the engine itself.
type EngineError struct {
	Message string
}

// ShardFailure lists the reasons reported by failed shards.
type ShardFailure struct {
	Reasons []string
}

// SearchResult carries hits, facets or both.
type SearchResult struct {
	Hits   *Hits
	Facets []Facet
}

// Hits is the hits section of a search response.
type Hits struct {
	Total     string
	Documents []*Object
}

// Facet is one terms facet with its counts in response order.
type Facet struct {
	Name  string
	Terms []FacetTerm
}

// FacetTerm is a single term and its document count.
type FacetTerm struct {
	Term  json.RawMessage
	Count json.RawMessage
}

// Unrecognized is a response matching none of the known shapes.
type Unrecognized struct{}

func (Validation) status() Status   { return StatusValidation }
func (EngineError) status() Status  { return StatusEngineError }
func (ShardFailure) status() Status { return StatusShardFailure }
func (SearchResult) status() Status { return StatusRows }
func (Unrecognized) status() Status { return StatusUnrecognized }

type wireResponse struct {
	Valid        json.RawMessage `json:"valid"`
	Explanations []struct {
		Error json.RawMessage `json:"error"`
	} `json:"explanations"`
	Error  json.RawMessage `json:"error"`
	Shards *struct {
		Failures []struct {
			Reason json.RawMessage `json:"reason"`
		} `json:"failures"`
	} `json:"_shards"`
	Hits *struct {
		Total json.RawMessage `json:"total"`
		Hits  []*Object       `json:"hits"`
	} `json:"hits"`
	Facets *Object `json:"facets"`
}

type wireFacet struct {
	Terms []struct {
		Term  json.RawMessage `json:"term"`
		Count json.RawMessage `json:"count"`
	} `json:"terms"`
}

// Classify decodes raw once and picks the first matching shape in the order
// validation, engine error, shard failure, hits/facets.
func Classify(raw json.RawMessage) (Result, error) {
	var top Object
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if top.Has("valid") {
		v := Validation{Valid: string(bytes.TrimSpace(wire.Valid))}
		for _, explanation := range wire.Explanations {
			if isNull(explanation.Error) {
				continue
			}
			v.Errors = append(v.Errors, messageText(explanation.Error))
		}
		return v, nil
	}

	if top.Has("error") {
		return EngineError{Message: messageText(wire.Error)}, nil
	}

	if wire.Shards != nil && len(wire.Shards.Failures) > 0 {
		failure := ShardFailure{}
		for _, f := range wire.Shards.Failures {
			failure.Reasons = append(failure.Reasons, messageText(f.Reason))
		}
		return failure, nil
	}

	result := SearchResult{}
	if wire.Hits != nil {
		result.Hits = &Hits{
			Total:     totalText(wire.Hits.Total),
			Documents: wire.Hits.Hits,
		}
	}

	if wire.Facets != nil {
		for _, name := range wire.Facets.Keys {
			var f wireFacet
			if err := json.Unmarshal(wire.Facets.Values[name], &f); err != nil {
				return nil, fmt.Errorf("failed to decode facet %q: %w", name, err)
			}
			facet := Facet{Name: name}
			for _, term := range f.Terms {
				facet.Terms = append(facet.Terms, FacetTerm{Term: term.Term, Count: term.Count})
			}
			result.Facets = append(result.Facets, facet)
		}
	}

	if result.Hits == nil && wire.Facets == nil {
		return Unrecognized{}, nil
	}
	return result, nil
}

// messageText turns an error or reason value into a single line. Strings are
// used verbatim, objects contribute their own reason when they have one.
func messageText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var structured struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && structured.Reason != "" {
		if structured.Type != "" {
			return structured.Type + ": " + structured.Reason
		}
		return structured.Reason
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return compact.String()
}

// totalText accepts both the plain integer total and the {value, relation}
// object newer engines return.
func totalText(raw json.RawMessage) string {
	if isNull(raw) {
		return "0"
	}

	var structured struct {
		Value json.Number `json:"value"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		if err := json.Unmarshal(raw, &structured); err == nil && structured.Value != "" {
			return structured.Value.String()
		}
	}
	return strings.TrimSpace(string(raw))
}
