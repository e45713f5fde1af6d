package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yupoet/vecfix/internal/config"
	"github.com/yupoet/vecfix/internal/logger"
	"github.com/yupoet/vecfix/internal/reconcile"
	"github.com/yupoet/vecfix/internal/registry"
	"github.com/yupoet/vecfix/internal/repair"
	"github.com/yupoet/vecfix/internal/version"
	"github.com/yupoet/vecfix/internal/weaviate"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "vecfix",
	Short:   "Repair Weaviate collection schemas for Dify",
	Version: version.Full(),
	Long: `vecfix reconciles Weaviate collections against the Dify dataset
registry and repairs collections created under the old schema format
(vectorIndexConfig) by recreating them under the new one (vectorConfig).

Repaired collections lose their vectors; re-embed the affected knowledge
bases in Dify afterwards.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vecfix %s\n", version.Version)
		fmt.Printf("  commit:  %s\n", version.Commit)
		fmt.Printf("  built:   %s\n", version.Date)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List collections needing repair",
	Long: `Scan the Weaviate schema, classify every managed collection and
cross-check it against the dataset registry. Makes no changes.`,
	RunE: runScan,
}

var dryRunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Simulate the batch repair without making changes",
	RunE:  runDryRun,
}

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Repair all old-format collections",
	Long: `Recreate every old-format collection under the new schema format.
Vector data is cleared; the affected knowledge bases must be re-embedded
in Dify afterwards.`,
	RunE: runFix,
}

var fixOneCmd = &cobra.Command{
	Use:   "fix-one <collection>",
	Short: "Repair a single collection by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runFixOne,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove collections with no matching dataset",
	Long: `Find managed collections whose dataset id no longer exists in the
registry and delete them after confirmation. Refuses to run when the
registry cannot be read.`,
	RunE: runCleanup,
}

var listNamesCmd = &cobra.Command{
	Use:   "list-names",
	Short: "List dataset names needing re-embedding",
	RunE:  runListNames,
}

func init() {
	rootCmd.SetVersionTemplate("vecfix version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	scanCmd.Flags().StringP("format", "f", "default", "output format (default, json, yaml)")
	fixCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	fixOneCmd.Flags().Bool("dry-run", false, "simulate the repair")
	cleanupCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(dryRunCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(fixOneCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(listNamesCmd)
}

// app bundles the collaborators every command needs.
type app struct {
	cfg *config.Config
	log *zap.Logger
	wv  *weaviate.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log, err := logger.New(level)
	if err != nil {
		return nil, err
	}

	wv := weaviate.New(weaviate.Config{
		Endpoint: cfg.Weaviate.Endpoint,
		APIKey:   cfg.Weaviate.APIKey,
		Timeout:  cfg.Weaviate.Timeout,
	}, log)

	return &app{cfg: cfg, log: log, wv: wv}, nil
}

// inventory is the result of the two independent read paths.
type inventory struct {
	classes    []weaviate.Class
	datasetIDs map[string]struct{}
	registryOK bool
	store      *registry.Store
}

// readInventory fetches the collection listing and the dataset id set. Either
// side being unreachable degrades to an empty result with a warning; the
// registry failure is additionally recorded so destructive decisions stay
// suppressed.
func readInventory(ctx context.Context, a *app) inventory {
	inv := inventory{}

	classes, err := a.wv.ListClasses(ctx)
	if err != nil {
		a.log.Warn("could not list collections", zap.Error(err))
	} else {
		inv.classes = classes
	}

	store, err := registry.Connect(ctx, a.cfg.DB.DSN(), a.log)
	if err != nil {
		a.log.Warn("could not open dataset registry", zap.Error(err))
		return inv
	}
	inv.store = store

	ids, err := store.ListDatasetIDs(ctx)
	if err != nil {
		a.log.Warn("could not query dataset ids", zap.Error(err))
		return inv
	}
	inv.datasetIDs = ids
	inv.registryOK = true
	return inv
}

// datasetNames resolves names best-effort; without a registry connection it
// returns an empty map and every name renders as the placeholder.
func (inv inventory) datasetNames(ctx context.Context, ids []string) map[string]string {
	if inv.store == nil {
		return map[string]string{}
	}
	return inv.store.DatasetNames(ctx, ids)
}

func (inv inventory) close() {
	if inv.store != nil {
		inv.store.Close()
	}
}

func nameOrPlaceholder(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return "(name unavailable)"
}

func runScan(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	inv := readInventory(ctx, a)
	defer inv.close()
	report := reconcile.Partition(inv.classes, inv.datasetIDs, inv.registryOK)

	switch format {
	case "json":
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Println(string(out))
		return nil
	case "yaml":
		out, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}

	printScanHeader(a)
	if err := a.wv.Ready(ctx); err != nil {
		fmt.Printf("Cannot connect to Weaviate at %s\n", a.cfg.Weaviate.Endpoint)
		return nil
	}
	printReport(ctx, inv, report, true)
	return nil
}

func printScanHeader(a *app) {
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("Scanning Weaviate Collections")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Weaviate URL: %s\n", a.cfg.Weaviate.Endpoint)
	auth := "disabled"
	if a.cfg.Weaviate.APIKey != "" {
		auth = "enabled"
	}
	fmt.Printf("Auth: %s\n", auth)
	fmt.Println()
}

func printReport(ctx context.Context, inv inventory, report reconcile.Report, details bool) {
	fmt.Printf("Total collections: %d\n", report.TotalCollections)
	fmt.Printf("Dify collections: %d\n", report.ManagedCollections)
	fmt.Println()
	fmt.Printf("New format (OK): %d\n", len(report.Healthy))
	fmt.Printf("Old format (need fix): %d\n", len(report.NeedsRepair))
	if report.RegistryOK {
		fmt.Printf("Orphaned (no dataset): %d\n", len(report.Orphaned))
	} else {
		fmt.Println("Orphaned (no dataset): unknown (registry unreachable)")
	}
	if len(report.Unresolved) > 0 {
		fmt.Printf("Unresolvable names: %d\n", len(report.Unresolved))
	}
	fmt.Println()

	if !details {
		return
	}

	if len(report.NeedsRepair) > 0 {
		names := inv.datasetNames(ctx, report.RepairDatasetIDs())
		fmt.Println("Collections needing fix:")
		fmt.Println(strings.Repeat("-", 70))
		for i, entry := range report.NeedsRepair {
			fmt.Printf("%2d. %s\n", i+1, entry.Name)
			fmt.Printf("    Dataset ID: %s\n", entry.DatasetID)
			fmt.Printf("    Name: %s\n", nameOrPlaceholder(names, entry.DatasetID))
			fmt.Printf("    Created: %s\n", entry.CreatedAt)
			fmt.Println()
		}
	}

	if len(report.Unresolved) > 0 {
		fmt.Println("Collections with unresolvable names (excluded from cleanup):")
		for _, entry := range report.Unresolved {
			fmt.Printf("  - %s\n", entry.Name)
		}
		fmt.Println()
	}
}

func runDryRun(cmd *cobra.Command, args []string) error {
	return batchFix(cmd, true)
}

func runFix(cmd *cobra.Command, args []string) error {
	return batchFix(cmd, false)
}

func batchFix(cmd *cobra.Command, dryRun bool) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	inv := readInventory(ctx, a)
	defer inv.close()
	report := reconcile.Partition(inv.classes, inv.datasetIDs, inv.registryOK)

	printScanHeader(a)
	printReport(ctx, inv, report, true)

	if len(report.NeedsRepair) == 0 {
		fmt.Println("No collections need fixing.")
		return nil
	}

	fmt.Println(strings.Repeat("=", 70))
	if dryRun {
		fmt.Println("[DRY RUN] Simulating batch fix")
	} else {
		fmt.Println("Starting batch fix")
	}
	fmt.Println(strings.Repeat("=", 70))

	if !dryRun {
		skip, _ := cmd.Flags().GetBool("yes")
		if !skip {
			fmt.Printf("\nWARNING: this will recreate %d collections.\n", len(report.NeedsRepair))
			fmt.Println("Vector data will be cleared. You must re-embed in Dify afterwards.")
			if !askYes(fmt.Sprintf("Proceed with fixing %d collections?", len(report.NeedsRepair))) {
				fmt.Println("Cancelled.")
				return nil
			}
		}
	}

	exec := repair.NewExecutor(a.wv, a.log)
	batch := exec.RepairAll(ctx, report.RepairNames(), dryRun)

	for _, res := range batch.Results {
		printRepairResult(res, dryRun)
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("Summary")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Success: %d\n", batch.Repaired)
	fmt.Printf("Skipped: %d\n", batch.Skipped)
	fmt.Printf("Failed: %d\n", batch.Failed)

	if failed := batch.FailedResults(); len(failed) > 0 {
		fmt.Println("\nFailed collections:")
		for _, res := range failed {
			fmt.Printf("  - %s: %s\n", res.Name, res.Outcome)
		}
	}

	if !dryRun && batch.Repaired > 0 {
		printReembedList(ctx, inv, batch.RepairedNames())
	}
	return nil
}

func printRepairResult(res repair.Result, dryRun bool) {
	prefix := ""
	if dryRun {
		prefix = "[DRY RUN] "
	}
	if res.Err != nil {
		fmt.Printf("%s%s: %s: %v\n", prefix, res.Name, res.Outcome, res.Err)
		return
	}
	fmt.Printf("%s%s: %s\n", prefix, res.Name, res.Outcome)
}

func printReembedList(ctx context.Context, inv inventory, repaired []string) {
	ids := make([]string, 0, len(repaired))
	for _, name := range repaired {
		if id := reconcile.DatasetID(name); id != reconcile.UnknownID {
			ids = append(ids, id)
		}
	}
	names := inv.datasetNames(ctx, ids)

	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("IMPORTANT: Next Steps")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("Re-embed the following knowledge bases in Dify:")
	fmt.Println("(Settings -> Embedding Model -> switch model -> save -> switch back)")
	fmt.Println()
	for _, name := range repaired {
		id := reconcile.DatasetID(name)
		fmt.Printf("  * %s\n", nameOrPlaceholder(names, id))
		fmt.Printf("    ID: %s\n", id)
	}
}

func runFixOne(cmd *cobra.Command, args []string) error {
	name := args[0]
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	exec := repair.NewExecutor(a.wv, a.log)
	res := exec.Repair(cmd.Context(), name, dryRun)
	printRepairResult(res, dryRun)

	if res.Outcome == repair.OutcomeRepaired {
		fmt.Println("\nRemember to re-embed the dataset in Dify.")
	}
	if res.Outcome.Failed() {
		return fmt.Errorf("repair of %s failed: %s", name, res.Outcome)
	}
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	skip, _ := cmd.Flags().GetBool("yes")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	inv := readInventory(ctx, a)
	defer inv.close()
	report := reconcile.Partition(inv.classes, inv.datasetIDs, inv.registryOK)

	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("Scanning for Orphaned Collections")
	fmt.Println(strings.Repeat("=", 70))

	if !report.RegistryOK {
		fmt.Println("Could not query the dataset registry. Cannot identify orphaned collections.")
		return nil
	}

	fmt.Printf("Dify collections: %d\n", report.ManagedCollections)
	fmt.Printf("Registry datasets: %d\n", len(inv.datasetIDs))
	fmt.Printf("Orphaned collections: %d\n", len(report.Orphaned))
	fmt.Println()

	if len(report.Orphaned) == 0 {
		fmt.Println("No orphaned collections found.")
		return nil
	}

	cleaner := repair.NewCleaner(a.wv, a.log)
	names := make([]string, len(report.Orphaned))
	for i, entry := range report.Orphaned {
		names[i] = entry.Name
	}
	candidates := cleaner.Plan(ctx, names)

	fmt.Println("Orphaned collections (exist in Weaviate but not in the registry):")
	fmt.Println(strings.Repeat("-", 70))
	for i, cand := range candidates {
		fmt.Printf("  * %s\n", cand.Name)
		fmt.Printf("    Dataset ID: %s\n", report.Orphaned[i].DatasetID)
		fmt.Printf("    Objects: %d\n", cand.Objects)
		fmt.Println()
	}

	confirm := func(string) bool {
		return askYes(fmt.Sprintf("Delete %d orphaned collections?", len(candidates)))
	}
	if skip {
		confirm = func(string) bool { return true }
	}

	result := cleaner.Remove(ctx, candidates, confirm)
	if result.Cancelled {
		fmt.Println("Cancelled.")
		return nil
	}

	for _, removal := range result.Removals {
		if removal.Err != nil {
			fmt.Printf("Deleting %s... failed: %v\n", removal.Name, removal.Err)
			continue
		}
		fmt.Printf("Deleting %s... done\n", removal.Name)
	}
	fmt.Printf("\nCleanup complete: %d removed, %d failed.\n", result.Removed, result.Failed)
	return nil
}

func runListNames(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	inv := readInventory(ctx, a)
	defer inv.close()
	report := reconcile.Partition(inv.classes, inv.datasetIDs, inv.registryOK)

	if len(report.NeedsRepair) == 0 {
		fmt.Println("No collections need fixing.")
		return nil
	}

	names := inv.datasetNames(ctx, report.RepairDatasetIDs())

	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("Knowledge Bases Needing Re-embedding")
	fmt.Println(strings.Repeat("=", 70))
	for _, entry := range report.NeedsRepair {
		fmt.Printf("\n* %s\n", nameOrPlaceholder(names, entry.DatasetID))
		fmt.Printf("  ID: %s\n", entry.DatasetID)
		fmt.Printf("  Collection: %s\n", entry.Name)
	}
	return nil
}

// askYes asks for an explicit "yes" on stdin. Anything else declines.
func askYes(question string) bool {
	fmt.Printf("\n%s (yes/no): ", question)
	var answer string
	_, _ = fmt.Scanln(&answer)
	return strings.EqualFold(strings.TrimSpace(answer), "yes")
}
