package weaviate

import (
	"strings"
)

const (
	managedPrefix = "Vector_index_"
	managedSuffix = "_Node"

	// Top-level schema keys that distinguish the two dialects.
	keyVectorConfig      = "vectorConfig"
	keyVectorIndexConfig = "vectorIndexConfig"
)

// Format is the schema dialect of a collection.
type Format int

const (
	// FormatCurrent is the named-vector dialect (vectorConfig.default).
	FormatCurrent Format = iota
	// FormatLegacy is the obsolete single-vector dialect (vectorIndexConfig
	// without vectorConfig). Search fails on these after the upgrade.
	FormatLegacy
)

func (f Format) String() string {
	if f == FormatLegacy {
		return "legacy"
	}
	return "current"
}

// MarshalText renders the format in reports.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Class is an immutable snapshot of one collection's schema document as
// returned by the schema API. The raw document is kept as-is so unknown keys
// survive a round trip.
type Class struct {
	raw map[string]any
}

// NewClass wraps a decoded schema document.
func NewClass(raw map[string]any) Class {
	return Class{raw: raw}
}

// Name returns the collection name ("class" in the wire format).
func (c Class) Name() string {
	name, _ := c.raw["class"].(string)
	return name
}

// Raw returns the underlying document. Callers must not mutate it.
func (c Class) Raw() map[string]any {
	return c.raw
}

// Properties returns the ordered property descriptors, or nil when absent.
func (c Class) Properties() []map[string]any {
	list, ok := c.raw["properties"].([]any)
	if !ok {
		return nil
	}
	props := make([]map[string]any, 0, len(list))
	for _, p := range list {
		if m, ok := p.(map[string]any); ok {
			props = append(props, m)
		}
	}
	return props
}

// HasVectorConfig reports whether the new named-vector key is present.
func (c Class) HasVectorConfig() bool {
	_, ok := c.raw[keyVectorConfig]
	return ok
}

// HasVectorIndexConfig reports whether the legacy key is present.
func (c Class) HasVectorIndexConfig() bool {
	_, ok := c.raw[keyVectorIndexConfig]
	return ok
}

// Format classifies the schema dialect. A document carrying vectorConfig is
// current no matter what else it contains; only the legacy key without the
// new one marks a collection as legacy.
func (c Class) Format() Format {
	if c.HasVectorConfig() {
		return FormatCurrent
	}
	if c.HasVectorIndexConfig() {
		return FormatLegacy
	}
	return FormatCurrent
}

// Managed reports whether this collection is owned by Dify. Only managed
// collections are classified, repaired, or cleaned up.
func (c Class) Managed() bool {
	return IsManagedName(c.Name())
}

// CreatedAt recovers the creation time that Weaviate's auto-schema feature
// recorded in property descriptions on legacy collections. Returns "unknown"
// when no property carries the note.
func (c Class) CreatedAt() string {
	for _, prop := range c.Properties() {
		desc, _ := prop["description"].(string)
		if !strings.Contains(desc, "auto-schema feature on") {
			continue
		}
		if idx := strings.LastIndex(desc, "on "); idx >= 0 {
			return desc[idx+len("on "):]
		}
	}
	return "unknown"
}

// IsManagedName reports whether name matches the Vector_index_<id>_Node
// pattern used for Dify knowledge base collections.
func IsManagedName(name string) bool {
	return strings.HasPrefix(name, managedPrefix) && strings.HasSuffix(name, managedSuffix)
}

// NewFormatClass builds the replacement schema document for a legacy
// collection. The property list is carried forward with auto-generated
// descriptions stripped; Weaviate would reattach fresh auto-schema notes on
// recreation and repeated repairs would otherwise produce diverging schemas.
// The vector block is a fixed named default configuration with external
// vectorization.
func NewFormatClass(name string, old Class) map[string]any {
	props := old.Properties()
	clean := make([]any, 0, len(props))
	for _, prop := range props {
		cp := make(map[string]any, len(prop))
		for k, v := range prop {
			if k == "description" {
				continue
			}
			cp[k] = v
		}
		clean = append(clean, cp)
	}

	return map[string]any{
		"class":      name,
		"properties": clean,
		keyVectorConfig: map[string]any{
			"default": map[string]any{
				"vectorIndexType": "hnsw",
				"vectorIndexConfig": map[string]any{
					"distance":               "cosine",
					"ef":                     -1,
					"efConstruction":         128,
					"maxConnections":         32,
					"cleanupIntervalSeconds": 300,
					"flatSearchCutoff":       40000,
				},
				"vectorizer": map[string]any{"none": map[string]any{}},
			},
		},
	}
}
