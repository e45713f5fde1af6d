package weaviate

import (
	"testing"
)

func TestClassFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want Format
	}{
		{
			name: "new format",
			raw:  map[string]any{"class": "Vector_index_a_Node", "vectorConfig": map[string]any{}},
			want: FormatCurrent,
		},
		{
			name: "old format",
			raw:  map[string]any{"class": "Vector_index_a_Node", "vectorIndexConfig": map[string]any{}},
			want: FormatLegacy,
		},
		{
			name: "both keys is current",
			raw: map[string]any{
				"class":             "Vector_index_a_Node",
				"vectorConfig":      map[string]any{},
				"vectorIndexConfig": map[string]any{},
			},
			want: FormatCurrent,
		},
		{
			name: "neither key is current",
			raw:  map[string]any{"class": "Vector_index_a_Node"},
			want: FormatCurrent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewClass(tt.raw).Format(); got != tt.want {
				t.Errorf("Format() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsManagedName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Vector_index_aaaa_bbbb_cccc_dddd_eeee_Node", true},
		{"Vector_index_x_Node", true},
		{"Vector_index_missing_suffix", false},
		{"Other_index_aaaa_Node", false},
		{"Article", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsManagedName(tt.name); got != tt.want {
			t.Errorf("IsManagedName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClassCreatedAt(t *testing.T) {
	cls := NewClass(map[string]any{
		"class": "Vector_index_a_Node",
		"properties": []any{
			map[string]any{"name": "text"},
			map[string]any{
				"name":        "doc_id",
				"description": "This property was generated by Weaviate's auto-schema feature on Mon Jan  2 15:04:05 2023",
			},
		},
	})

	if got := cls.CreatedAt(); got != "Mon Jan  2 15:04:05 2023" {
		t.Errorf("CreatedAt() = %q", got)
	}

	bare := NewClass(map[string]any{"class": "Vector_index_a_Node"})
	if got := bare.CreatedAt(); got != "unknown" {
		t.Errorf("CreatedAt() without note = %q, want unknown", got)
	}
}

func TestNewFormatClass(t *testing.T) {
	old := NewClass(map[string]any{
		"class":             "Vector_index_a_Node",
		"vectorIndexConfig": map[string]any{"distance": "dot"},
		"properties": []any{
			map[string]any{"name": "text", "dataType": []any{"text"}, "description": "auto"},
			map[string]any{"name": "doc_id", "dataType": []any{"text"}},
		},
	})

	doc := NewFormatClass("Vector_index_a_Node", old)

	if doc["class"] != "Vector_index_a_Node" {
		t.Errorf("class = %v", doc["class"])
	}
	if _, ok := doc["vectorIndexConfig"]; ok {
		t.Error("legacy vectorIndexConfig key must not be carried forward")
	}

	props, ok := doc["properties"].([]any)
	if !ok || len(props) != 2 {
		t.Fatalf("expected 2 properties, got %v", doc["properties"])
	}
	for i, p := range props {
		prop := p.(map[string]any)
		if _, ok := prop["description"]; ok {
			t.Errorf("property %d kept its description", i)
		}
		if _, ok := prop["name"]; !ok {
			t.Errorf("property %d lost its name", i)
		}
	}

	vc, ok := doc["vectorConfig"].(map[string]any)
	if !ok {
		t.Fatal("missing vectorConfig")
	}
	def, ok := vc["default"].(map[string]any)
	if !ok {
		t.Fatal("missing vectorConfig.default")
	}
	if def["vectorIndexType"] != "hnsw" {
		t.Errorf("vectorIndexType = %v", def["vectorIndexType"])
	}
	vic := def["vectorIndexConfig"].(map[string]any)
	if vic["distance"] != "cosine" {
		t.Errorf("distance = %v, want cosine", vic["distance"])
	}
	if vic["efConstruction"] != 128 {
		t.Errorf("efConstruction = %v", vic["efConstruction"])
	}
	if _, ok := def["vectorizer"].(map[string]any)["none"]; !ok {
		t.Error("vectorizer must be none")
	}
}

func TestNewFormatClassDoesNotMutateOld(t *testing.T) {
	prop := map[string]any{"name": "text", "description": "auto"}
	old := NewClass(map[string]any{
		"class":      "Vector_index_a_Node",
		"properties": []any{prop},
	})

	_ = NewFormatClass("Vector_index_a_Node", old)

	if _, ok := prop["description"]; !ok {
		t.Error("original property descriptor was mutated")
	}
}
