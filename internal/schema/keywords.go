package schema

import (
	"sort"
)

// baseKeywords are the ElseSQL clause names and operators.
var baseKeywords = []string{
	"facets", "filter", "script",
	"from", "where", "in", "between", "like", "order by", "limit", "and", "or", "not",
}

// BaseKeywords returns a sorted copy of the language vocabulary.
func BaseKeywords() []string {
	keywords := append([]string(nil), baseKeywords...)
	sort.Strings(keywords)
	return keywords
}

// Keywords returns the sorted completion vocabulary for m. With a nil
// mapping only the language keywords are returned.
func Keywords(m Mapping) []string {
	if m == nil {
		return BaseKeywords()
	}

	set := make(map[string]struct{}, len(baseKeywords)+8)
	add := func(word string) {
		set[word] = struct{}{}
	}

	for _, word := range baseKeywords {
		add(word)
	}
	add("_score")
	add("_all")

	for indexName, docTypes := range m {
		add(indexName)

		for typeName, doc := range docTypes {
			if typeName != Typeless {
				add(typeName)
			}
			if doc == nil {
				continue
			}

			if doc.Source != nil && doc.Source.IsEnabled() {
				add("_source")
			}

			addProperties(doc.Properties, add)
		}
	}

	keywords := make([]string, 0, len(set))
	for word := range set {
		keywords = append(keywords, word)
	}
	sort.Strings(keywords)
	return keywords
}

// addProperties walks the property tree depth first. Names are added
// without their parent path.
func addProperties(props map[string]*Property, add func(string)) {
	for name, prop := range props {
		add(name)
		if prop != nil {
			addProperties(prop.Properties, add)
		}
	}
}
