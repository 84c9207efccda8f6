package schema

import (
	"encoding/json"
	"fmt"
)

// Mapping is the engine mapping keyed by index name, then document type.
type Mapping map[string]map[string]*TypeMapping

// TypeMapping is the metadata of one document type.
type TypeMapping struct {
	Source     *SourceToggle        `json:"_source,omitempty"`
	Properties map[string]*Property `json:"properties,omitempty"`
}

// SourceToggle is the _source section of a type mapping.
// A nil Enabled means the engine default, which is enabled.
type SourceToggle struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// IsEnabled reports whether _source is stored for the type.
func (s *SourceToggle) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Property is a field mapping. Object and nested fields carry their own
// properties, so the tree can be arbitrarily deep.
type Property struct {
	Type       string               `json:"type,omitempty"`
	Properties map[string]*Property `json:"properties,omitempty"`
}

// Typeless is the type key used for indices whose mapping has no document
// types (Elasticsearch 7+ and OpenSearch). It is never offered as a keyword.
const Typeless = ""

// ParseMapping decodes a _mapping response. Three shapes are accepted:
//
//	{"idx": {"mappings": {"properties": {...}}}}          typeless
//	{"idx": {"mappings": {"doc": {"properties": {...}}}}} typed, wrapped
//	{"idx": {"doc": {"properties": {...}}}}               typed, bare
//
// Entries that are not JSON objects at the index or type level are skipped.
func ParseMapping(raw []byte) (Mapping, error) {
	var indices map[string]json.RawMessage
	if err := json.Unmarshal(raw, &indices); err != nil {
		return nil, fmt.Errorf("failed to decode mapping: %w", err)
	}

	mapping := make(Mapping, len(indices))
	for indexName, indexRaw := range indices {
		var types map[string]json.RawMessage
		if err := json.Unmarshal(indexRaw, &types); err != nil {
			continue
		}

		if wrapped, ok := types["mappings"]; ok {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(wrapped, &inner); err != nil {
				mapping[indexName] = map[string]*TypeMapping{}
				continue
			}
			if isTypeMapping(inner) {
				var tm TypeMapping
				if err := json.Unmarshal(wrapped, &tm); err != nil {
					continue
				}
				mapping[indexName] = map[string]*TypeMapping{Typeless: &tm}
				continue
			}
			types = inner
		}

		docTypes := make(map[string]*TypeMapping, len(types))
		for typeName, typeRaw := range types {
			var tm TypeMapping
			if err := json.Unmarshal(typeRaw, &tm); err != nil {
				continue
			}
			docTypes[typeName] = &tm
		}
		mapping[indexName] = docTypes
	}

	return mapping, nil
}

// isTypeMapping reports whether obj is type metadata rather than a map of
// type names. An empty object counts as typeless metadata.
func isTypeMapping(obj map[string]json.RawMessage) bool {
	if len(obj) == 0 {
		return true
	}
	for _, key := range []string{"properties", "_source", "dynamic", "_meta", "dynamic_templates", "_routing"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}
