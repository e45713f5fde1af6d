package repair

import (
	"context"
	"errors"
	"testing"

	"github.com/yupoet/vecfix/internal/weaviate"
)

// fakeAPI records schema API calls and fails on demand.
type fakeAPI struct {
	classes   map[string]weaviate.Class
	getErr    error
	deleteErr error
	createErr error

	deleted []string
	created []map[string]any
	counts  map[string]int64
}

func (f *fakeAPI) GetClass(ctx context.Context, name string) (weaviate.Class, error) {
	if f.getErr != nil {
		return weaviate.Class{}, f.getErr
	}
	cls, ok := f.classes[name]
	if !ok {
		return weaviate.Class{}, weaviate.ErrNotFound
	}
	return cls, nil
}

func (f *fakeAPI) DeleteClass(ctx context.Context, name string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *fakeAPI) CreateClass(ctx context.Context, doc map[string]any) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	return nil
}

func (f *fakeAPI) ObjectCount(ctx context.Context, name string) int64 {
	return f.counts[name]
}

func legacyClass(name string) weaviate.Class {
	return weaviate.NewClass(map[string]any{
		"class":             name,
		"vectorIndexConfig": map[string]any{},
		"properties": []any{
			map[string]any{"name": "text", "description": "auto"},
			map[string]any{"name": "doc_id"},
		},
	})
}

func currentClass(name string) weaviate.Class {
	return weaviate.NewClass(map[string]any{"class": name, "vectorConfig": map[string]any{}})
}

func newTestExecutor(api SchemaAPI) *Executor {
	exec := NewExecutor(api, nil)
	exec.Pause = 0
	return exec
}

func TestRepairLegacy(t *testing.T) {
	api := &fakeAPI{classes: map[string]weaviate.Class{
		"Vector_index_a_Node": legacyClass("Vector_index_a_Node"),
	}}
	exec := newTestExecutor(api)

	res := exec.Repair(context.Background(), "Vector_index_a_Node", false)

	if res.Outcome != OutcomeRepaired {
		t.Fatalf("outcome = %v, err = %v", res.Outcome, res.Err)
	}
	if len(api.deleted) != 1 || len(api.created) != 1 {
		t.Fatalf("deleted=%v created=%d", api.deleted, len(api.created))
	}

	doc := api.created[0]
	if doc["class"] != "Vector_index_a_Node" {
		t.Errorf("recreated under wrong name: %v", doc["class"])
	}
	props := doc["properties"].([]any)
	if len(props) != 2 {
		t.Errorf("expected both properties carried forward, got %d", len(props))
	}
	if _, ok := doc["vectorConfig"]; !ok {
		t.Error("recreated schema lacks vectorConfig")
	}
}

func TestRepairAlreadyCurrentIsNoOp(t *testing.T) {
	api := &fakeAPI{classes: map[string]weaviate.Class{
		"Vector_index_a_Node": currentClass("Vector_index_a_Node"),
	}}
	exec := newTestExecutor(api)

	res := exec.Repair(context.Background(), "Vector_index_a_Node", false)

	if res.Outcome != OutcomeSkipped {
		t.Errorf("outcome = %v, want skipped", res.Outcome)
	}
	if len(api.deleted) != 0 || len(api.created) != 0 {
		t.Error("skip must issue no delete or create calls")
	}
}

func TestRepairDryRunStopsAfterFetch(t *testing.T) {
	api := &fakeAPI{classes: map[string]weaviate.Class{
		"Vector_index_a_Node": legacyClass("Vector_index_a_Node"),
	}}
	exec := newTestExecutor(api)

	res := exec.Repair(context.Background(), "Vector_index_a_Node", true)

	if res.Outcome != OutcomeWouldRepair {
		t.Errorf("outcome = %v, want would repair", res.Outcome)
	}
	if len(api.deleted) != 0 || len(api.created) != 0 {
		t.Error("dry run must not touch the collection")
	}
}

func TestRepairFailureTaxonomy(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		api  *fakeAPI
		want Outcome
	}{
		{
			name: "fetch error",
			api:  &fakeAPI{getErr: boom},
			want: OutcomeFetchError,
		},
		{
			name: "delete error",
			api: &fakeAPI{
				classes:   map[string]weaviate.Class{"Vector_index_a_Node": legacyClass("Vector_index_a_Node")},
				deleteErr: boom,
			},
			want: OutcomeDeleteError,
		},
		{
			name: "create error after successful delete",
			api: &fakeAPI{
				classes:   map[string]weaviate.Class{"Vector_index_a_Node": legacyClass("Vector_index_a_Node")},
				createErr: boom,
			},
			want: OutcomeCreateError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newTestExecutor(tt.api)
			res := exec.Repair(context.Background(), "Vector_index_a_Node", false)
			if res.Outcome != tt.want {
				t.Errorf("outcome = %v, want %v", res.Outcome, tt.want)
			}
			if !errors.Is(res.Err, boom) {
				t.Errorf("err = %v, want wrapped boom", res.Err)
			}
			if !res.Outcome.Failed() {
				t.Error("error outcomes must report Failed()")
			}
		})
	}
}

func TestRepairDeleteErrorIssuesNoCreate(t *testing.T) {
	api := &fakeAPI{
		classes:   map[string]weaviate.Class{"Vector_index_a_Node": legacyClass("Vector_index_a_Node")},
		deleteErr: errors.New("boom"),
	}
	exec := newTestExecutor(api)

	exec.Repair(context.Background(), "Vector_index_a_Node", false)

	if len(api.created) != 0 {
		t.Error("create must never be attempted when delete failed")
	}
}

func TestRepairAllContinuesAfterFailure(t *testing.T) {
	api := &fakeAPI{classes: map[string]weaviate.Class{
		"Vector_index_b_Node": legacyClass("Vector_index_b_Node"),
		"Vector_index_c_Node": currentClass("Vector_index_c_Node"),
	}}
	exec := newTestExecutor(api)

	names := []string{"Vector_index_a_Node", "Vector_index_b_Node", "Vector_index_c_Node"}
	batch := exec.RepairAll(context.Background(), names, false)

	if len(batch.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(batch.Results))
	}
	if batch.Results[0].Outcome != OutcomeFetchError {
		t.Errorf("missing collection: outcome = %v", batch.Results[0].Outcome)
	}
	if batch.Failed != 1 || batch.Repaired != 1 || batch.Skipped != 1 {
		t.Errorf("counts = failed %d repaired %d skipped %d", batch.Failed, batch.Repaired, batch.Skipped)
	}
	if got := batch.RepairedNames(); len(got) != 1 || got[0] != "Vector_index_b_Node" {
		t.Errorf("RepairedNames = %v", got)
	}
}
