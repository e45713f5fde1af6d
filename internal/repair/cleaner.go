package repair

import (
	"context"

	"go.uber.org/zap"
)

// ConfirmFunc answers whether the operator approved a destructive batch
// action. The core never reads the terminal itself; the command layer passes
// a prompt-backed function, tests pass a stub.
type ConfirmFunc func(prompt string) bool

// Candidate is one orphaned collection up for deletion, with its best-effort
// object count for the listing.
type Candidate struct {
	Name    string
	Objects int64
}

// Removal is the per-collection outcome of a cleanup.
type Removal struct {
	Name string
	Err  error
}

// CleanupResult aggregates a cleanup run.
type CleanupResult struct {
	// Cancelled is true when the operator declined (or no confirmation
	// function was supplied); no delete was issued.
	Cancelled bool
	Removals  []Removal
	Removed   int
	Failed    int
}

// Cleaner deletes orphaned collections after explicit confirmation.
type Cleaner struct {
	api SchemaAPI
	log *zap.Logger
}

// NewCleaner creates a cleaner over the given schema API.
func NewCleaner(api SchemaAPI, log *zap.Logger) *Cleaner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cleaner{api: api, log: log}
}

// Plan fetches the best-effort object count for each candidate so the
// operator sees what a deletion would discard. A failed count reads as 0 and
// never blocks the listing.
func (c *Cleaner) Plan(ctx context.Context, names []string) []Candidate {
	candidates := make([]Candidate, len(names))
	for i, name := range names {
		candidates[i] = Candidate{
			Name:    name,
			Objects: c.api.ObjectCount(ctx, name),
		}
	}
	return candidates
}

// Remove deletes the candidate collections. The confirmation gate is
// mandatory: without an affirmative answer no delete is issued. Individual
// failures are recorded and the batch continues.
func (c *Cleaner) Remove(ctx context.Context, candidates []Candidate, confirm ConfirmFunc) CleanupResult {
	var result CleanupResult

	if len(candidates) == 0 {
		return result
	}
	if confirm == nil || !confirm("delete orphaned collections") {
		result.Cancelled = true
		return result
	}

	for _, cand := range candidates {
		err := c.api.DeleteClass(ctx, cand.Name)
		result.Removals = append(result.Removals, Removal{Name: cand.Name, Err: err})
		if err != nil {
			result.Failed++
			c.log.Warn("orphan delete failed", zap.String("collection", cand.Name), zap.Error(err))
			continue
		}
		result.Removed++
	}
	return result
}
