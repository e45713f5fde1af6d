// Package reconcile derives the repair plan from the collection inventory
// and the dataset registry. Everything here is pure; all I/O happens before.
package reconcile

import (
	"strings"

	"github.com/yupoet/vecfix/internal/weaviate"
)

// UnknownID is the sentinel for collections whose name cannot be correlated
// to a dataset record. Such collections are reported but excluded from every
// automated decision that depends on registry membership.
const UnknownID = "unknown"

// DatasetID reconstructs the dataset id from a managed collection name.
// Collections are named Vector_index_<uuid with underscores>_Node; the uuid's
// hyphens were replaced with underscores at creation time, so the first five
// segments between prefix and suffix rejoin into the original id. Total:
// malformed names degrade to UnknownID, never an error.
func DatasetID(name string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "Vector_index_"), "_Node")
	parts := strings.Split(trimmed, "_")
	if len(parts) < 5 {
		return UnknownID
	}
	return strings.Join(parts[:5], "-")
}

// Entry describes one managed collection in the report.
type Entry struct {
	// Name is the collection name.
	Name string `json:"name" yaml:"name"`
	// DatasetID is the correlation key, or "unknown".
	DatasetID string `json:"dataset_id" yaml:"dataset_id"`
	// Format is the schema dialect.
	Format weaviate.Format `json:"format" yaml:"format"`
	// CreatedAt is the creation time recovered from auto-schema property
	// descriptions, "unknown" when absent. Report-only.
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

// Report is the three-way partition over the managed collections, plus the
// residue of collections that cannot be correlated. The four slices are
// disjoint and together cover every managed collection seen.
type Report struct {
	// NeedsRepair holds legacy-format collections.
	NeedsRepair []Entry `json:"needs_repair" yaml:"needs_repair"`
	// Orphaned holds current-format collections whose dataset id is absent
	// from the registry. Empty whenever RegistryOK is false.
	Orphaned []Entry `json:"orphaned" yaml:"orphaned"`
	// Healthy holds current-format collections with a matching dataset.
	Healthy []Entry `json:"healthy" yaml:"healthy"`
	// Unresolved holds collections whose name yields no dataset id.
	Unresolved []Entry `json:"unresolved" yaml:"unresolved"`

	// RegistryOK records whether the dataset id query succeeded. When false
	// no collection is marked orphaned, so an unreachable registry can never
	// cause a deletion.
	RegistryOK bool `json:"registry_ok" yaml:"registry_ok"`

	// TotalCollections counts every collection in the listing, managed or not.
	TotalCollections int `json:"total_collections" yaml:"total_collections"`
	// ManagedCollections counts the collections matching the managed pattern.
	ManagedCollections int `json:"managed_collections" yaml:"managed_collections"`
}

// Partition classifies every managed collection into exactly one bucket.
// Legacy collections need repair no matter what the registry says; repair
// does not depend on the correlation key. For current-format collections the
// key decides: unknown keys land in Unresolved, keys missing from a
// successfully read registry land in Orphaned, everything else is Healthy.
func Partition(classes []weaviate.Class, datasetIDs map[string]struct{}, registryOK bool) Report {
	report := Report{
		RegistryOK:       registryOK,
		TotalCollections: len(classes),
	}

	for _, cls := range classes {
		if !cls.Managed() {
			continue
		}
		report.ManagedCollections++

		entry := Entry{
			Name:      cls.Name(),
			DatasetID: DatasetID(cls.Name()),
			Format:    cls.Format(),
			CreatedAt: cls.CreatedAt(),
		}

		switch {
		case entry.Format == weaviate.FormatLegacy:
			report.NeedsRepair = append(report.NeedsRepair, entry)
		case entry.DatasetID == UnknownID:
			report.Unresolved = append(report.Unresolved, entry)
		case registryOK && !contains(datasetIDs, entry.DatasetID):
			report.Orphaned = append(report.Orphaned, entry)
		default:
			report.Healthy = append(report.Healthy, entry)
		}
	}

	return report
}

func contains(set map[string]struct{}, id string) bool {
	_, ok := set[id]
	return ok
}

// RepairNames returns the collection names needing repair, in listing order.
func (r Report) RepairNames() []string {
	names := make([]string, len(r.NeedsRepair))
	for i, e := range r.NeedsRepair {
		names[i] = e.Name
	}
	return names
}

// RepairDatasetIDs returns the correlation keys of the collections needing
// repair, excluding the unknown sentinel, without duplicates.
func (r Report) RepairDatasetIDs() []string {
	seen := make(map[string]struct{}, len(r.NeedsRepair))
	ids := make([]string, 0, len(r.NeedsRepair))
	for _, e := range r.NeedsRepair {
		if e.DatasetID == UnknownID {
			continue
		}
		if _, dup := seen[e.DatasetID]; dup {
			continue
		}
		seen[e.DatasetID] = struct{}{}
		ids = append(ids, e.DatasetID)
	}
	return ids
}
