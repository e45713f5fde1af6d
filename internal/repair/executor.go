// Package repair rebuilds legacy-format collections under the named-vector
// schema dialect and removes orphaned collections.
package repair

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yupoet/vecfix/internal/weaviate"
)

// DefaultPause is the wait between two live repairs, so a batch run does not
// hammer the schema API.
const DefaultPause = 500 * time.Millisecond

// SchemaAPI is the slice of the Weaviate client the repair flow needs.
type SchemaAPI interface {
	GetClass(ctx context.Context, name string) (weaviate.Class, error)
	DeleteClass(ctx context.Context, name string) error
	CreateClass(ctx context.Context, doc map[string]any) error
	ObjectCount(ctx context.Context, name string) int64
}

// Outcome is the terminal state of one collection's repair.
type Outcome int

const (
	// OutcomeRepaired means the collection was deleted and recreated under
	// the new dialect. Its vectors are gone; the dataset must be re-embedded.
	OutcomeRepaired Outcome = iota
	// OutcomeSkipped means the schema was already current; nothing was done.
	OutcomeSkipped
	// OutcomeWouldRepair is the dry-run stand-in for OutcomeRepaired.
	OutcomeWouldRepair
	// OutcomeFetchError means the current schema could not be read; the
	// collection is untouched.
	OutcomeFetchError
	// OutcomeDeleteError means deletion failed; the collection still exists.
	OutcomeDeleteError
	// OutcomeCreateError means deletion succeeded but recreation failed. The
	// collection is gone until the repair is re-run for this name.
	OutcomeCreateError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRepaired:
		return "repaired"
	case OutcomeSkipped:
		return "skipped (already current)"
	case OutcomeWouldRepair:
		return "would repair"
	case OutcomeFetchError:
		return "fetch failed"
	case OutcomeDeleteError:
		return "delete failed"
	case OutcomeCreateError:
		return "create failed"
	}
	return "unknown"
}

// Failed reports whether the outcome is one of the error states.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeFetchError, OutcomeDeleteError, OutcomeCreateError:
		return true
	}
	return false
}

// Result is the outcome of one collection's repair.
type Result struct {
	Name    string
	Outcome Outcome
	Err     error
}

// BatchResult aggregates a batch run. Results keeps listing order.
type BatchResult struct {
	Results  []Result
	Repaired int
	Skipped  int
	Failed   int
}

// FailedResults returns the results in error state, in listing order.
func (b BatchResult) FailedResults() []Result {
	var failed []Result
	for _, r := range b.Results {
		if r.Outcome.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}

// RepairedNames returns the names whose terminal state is repaired (or would
// repair, in a dry run), in listing order.
func (b BatchResult) RepairedNames() []string {
	var names []string
	for _, r := range b.Results {
		if r.Outcome == OutcomeRepaired || r.Outcome == OutcomeWouldRepair {
			names = append(names, r.Name)
		}
	}
	return names
}

// Executor performs destructive rebuilds one collection at a time. Stateless
// between invocations.
type Executor struct {
	api SchemaAPI
	log *zap.Logger

	// Pause is the wait between live repairs in a batch.
	Pause time.Duration
}

// NewExecutor creates an executor over the given schema API.
func NewExecutor(api SchemaAPI, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{api: api, log: log, Pause: DefaultPause}
}

// Repair rebuilds one collection under the new schema dialect. The step order
// is fixed: fetch, current-format check, delete, create. Deletion is never
// attempted before the fetched schema confirms it is needed, and creation is
// never attempted unless deletion definitively succeeded.
func (e *Executor) Repair(ctx context.Context, name string, dryRun bool) Result {
	cls, err := e.api.GetClass(ctx, name)
	if err != nil {
		return Result{Name: name, Outcome: OutcomeFetchError, Err: err}
	}

	// Guards against a race with another process that already repaired it.
	if cls.Format() == weaviate.FormatCurrent {
		return Result{Name: name, Outcome: OutcomeSkipped}
	}

	if dryRun {
		return Result{Name: name, Outcome: OutcomeWouldRepair}
	}

	if err := e.api.DeleteClass(ctx, name); err != nil {
		return Result{Name: name, Outcome: OutcomeDeleteError, Err: err}
	}

	doc := weaviate.NewFormatClass(name, cls)
	if err := e.api.CreateClass(ctx, doc); err != nil {
		// Deleted but not recreated. Surfaced distinctly so the operator
		// re-runs the repair for this name.
		e.log.Error("collection deleted but not recreated",
			zap.String("collection", name), zap.Error(err))
		return Result{Name: name, Outcome: OutcomeCreateError, Err: err}
	}

	return Result{Name: name, Outcome: OutcomeRepaired}
}

// RepairAll repairs the named collections sequentially in listing order. One
// collection's failure never stops the rest. Live runs pause between
// collections.
func (e *Executor) RepairAll(ctx context.Context, names []string, dryRun bool) BatchResult {
	var batch BatchResult
	for i, name := range names {
		if !dryRun && i > 0 && e.Pause > 0 {
			select {
			case <-time.After(e.Pause):
			case <-ctx.Done():
			}
		}

		res := e.Repair(ctx, name, dryRun)
		batch.Results = append(batch.Results, res)

		switch {
		case res.Outcome.Failed():
			batch.Failed++
			e.log.Warn("repair failed",
				zap.String("collection", name),
				zap.String("outcome", res.Outcome.String()),
				zap.Error(res.Err))
		case res.Outcome == OutcomeSkipped:
			batch.Skipped++
		default:
			batch.Repaired++
		}
	}
	return batch
}
