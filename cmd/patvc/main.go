// Package main provides the patvc CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"patvc/internal/extract"
	"patvc/internal/gitio"
	"patvc/internal/pattern"
	"patvc/internal/semdiff"
	"patvc/internal/store"
)

const (
	patvcDir  = ".patvc"
	dbFile    = "snapshots.db"
	rulesFile = "patterns.yaml"
)

var rootCmd = &cobra.Command{
	Use:   "patvc",
	Short: "Pattern version control - snapshot versioning and semantic diff for code patterns",
	Long:  `patvc stores successive revisions of code patterns under logical identifiers and computes structural comparisons between revisions: which functions were added, removed, or changed, at what similarity, and whether the change is cosmetic, incremental, or a full rewrite.`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize patvc in the current directory",
	RunE:  runInit,
}

var saveCmd = &cobra.Command{
	Use:   "save <pattern-id> <file>",
	Short: "Save a file's content as a new snapshot of a pattern",
	Args:  cobra.ExactArgs(2),
	RunE:  runSave,
}

var historyCmd = &cobra.Command{
	Use:   "history <pattern-id>",
	Short: "List a pattern's snapshots, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <pattern-id> <version>",
	Short: "Print the code of a specific snapshot",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

var latestCmd = &cobra.Command{
	Use:   "latest <pattern-id>",
	Short: "Print the latest version number (0 if none)",
	Args:  cobra.ExactArgs(1),
	RunE:  runLatest,
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <pattern-id> <version>",
	Short: "Print the code at a version; --save makes it the new head",
	Args:  cobra.ExactArgs(2),
	RunE:  runRollback,
}

var diffCmd = &cobra.Command{
	Use:   "diff <pattern-id> <old-version> <new-version>",
	Short: "Compare two stored snapshots of a pattern",
	Args:  cobra.ExactArgs(3),
	RunE:  runDiff,
}

var compareCmd = &cobra.Command{
	Use:   "compare <old-file> <new-file>",
	Short: "Compare two files on disk",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "List the function-like units found in a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var matchCmd = &cobra.Command{
	Use:   "match <path>...",
	Short: "Show which pattern rules the given paths match",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMatch,
}

var importCmd = &cobra.Command{
	Use:   "import <repo-path>",
	Short: "Import a file's Git history as pattern snapshots",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var (
	metaFlags   []string
	langFlag    string
	jsonFlag    bool
	patchFlag   bool
	saveFlag    bool
	importFile  string
	importIdent string
)

func init() {
	saveCmd.Flags().StringArrayVar(&metaFlags, "meta", nil, "Metadata entry as key=value (repeatable)")
	saveCmd.Flags().StringVar(&langFlag, "lang", "", "Language tag (default: inferred from the file extension)")
	rollbackCmd.Flags().BoolVar(&saveFlag, "save", false, "Save the rolled-back code as a new snapshot")
	diffCmd.Flags().StringVar(&langFlag, "lang", "", "Language tag (default: snapshot metadata)")
	diffCmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")
	diffCmd.Flags().BoolVar(&patchFlag, "patch", false, "Also print a unified patch")
	compareCmd.Flags().StringVar(&langFlag, "lang", "", "Language tag (default: inferred from the file extension)")
	compareCmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")
	compareCmd.Flags().BoolVar(&patchFlag, "patch", false, "Also print a unified patch")
	extractCmd.Flags().StringVar(&langFlag, "lang", "", "Language tag (default: inferred from the file extension)")
	extractCmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")
	importCmd.Flags().StringVar(&importFile, "file", "", "Path of the file inside the repository (required)")
	importCmd.Flags().StringVar(&importIdent, "pattern", "", "Pattern ID (default: matched via patterns.yaml)")
	importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(patvcDir, 0755); err != nil {
		return fmt.Errorf("creating %s directory: %w", patvcDir, err)
	}

	rulesPath := filepath.Join(patvcDir, rulesFile)
	if _, err := os.Stat(rulesPath); os.IsNotExist(err) {
		rulesContent := `patterns:
  - id: auth-flow
    include: ["auth/**"]
  - id: billing-calc
    include: ["billing/**"]
`
		if err := os.WriteFile(rulesPath, []byte(rulesContent), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", rulesFile, err)
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	st.Close()

	fmt.Printf("Initialized patvc in %s/\n", patvcDir)
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	patternID, file := args[0], args[1]

	code, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	metadata, err := parseMeta(metaFlags)
	if err != nil {
		return err
	}
	if _, ok := metadata["language"]; !ok {
		lang := langFlag
		if lang == "" {
			lang = extract.DetectLang(file)
		}
		if lang != "" {
			metadata["language"] = lang
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.SaveSnapshot(patternID, string(code), metadata)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	fmt.Printf("Saved %s v%d (%s)\n", snap.PatternID, snap.Version, shortDigest(snap.Digest))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	history, err := st.History(args[0])
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	if len(history) == 0 {
		fmt.Println("No snapshots found.")
		return nil
	}

	fmt.Printf("%-8s  %-20s  %-12s  %s\n", "VERSION", "CREATED", "DIGEST", "METADATA")
	for _, snap := range history {
		created := time.UnixMilli(snap.CreatedAt).Format("2006-01-02 15:04:05")
		fmt.Printf("%-8d  %-20s  %-12s  %s\n", snap.Version, created, shortDigest(snap.Digest), formatMeta(snap.Metadata))
	}

	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	version, err := parseVersion(args[1])
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Version(args[0], version)
	if err != nil {
		return fmt.Errorf("looking up snapshot: %w", err)
	}
	if snap == nil {
		return fmt.Errorf("no snapshot %s v%d", args[0], version)
	}

	fmt.Print(snap.Code)
	return nil
}

func runLatest(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	latest, err := st.LatestVersion(args[0])
	if err != nil {
		return fmt.Errorf("querying latest version: %w", err)
	}

	fmt.Println(latest)
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	version, err := parseVersion(args[1])
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	code, ok, err := st.Rollback(args[0], version)
	if err != nil {
		return fmt.Errorf("rolling back: %w", err)
	}
	if !ok {
		return fmt.Errorf("no snapshot %s v%d", args[0], version)
	}

	if saveFlag {
		snap, err := st.SaveSnapshot(args[0], code, map[string]string{
			"rolledBackFrom": strconv.Itoa(version),
		})
		if err != nil {
			return fmt.Errorf("saving rolled-back snapshot: %w", err)
		}
		fmt.Printf("Saved %s v%d from v%d\n", snap.PatternID, snap.Version, version)
		return nil
	}

	fmt.Print(code)
	return nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldVersion, err := parseVersion(args[1])
	if err != nil {
		return err
	}
	newVersion, err := parseVersion(args[2])
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	oldSnap, err := st.Version(args[0], oldVersion)
	if err != nil {
		return fmt.Errorf("looking up snapshot: %w", err)
	}
	if oldSnap == nil {
		return fmt.Errorf("no snapshot %s v%d", args[0], oldVersion)
	}

	newSnap, err := st.Version(args[0], newVersion)
	if err != nil {
		return fmt.Errorf("looking up snapshot: %w", err)
	}
	if newSnap == nil {
		return fmt.Errorf("no snapshot %s v%d", args[0], newVersion)
	}

	lang := langFlag
	if lang == "" {
		lang = newSnap.Metadata["language"]
	}
	if lang == "" {
		lang = oldSnap.Metadata["language"]
	}

	result := semdiff.Diff(oldSnap.Code, newSnap.Code, lang)
	oldName := fmt.Sprintf("%s@v%d", args[0], oldVersion)
	newName := fmt.Sprintf("%s@v%d", args[0], newVersion)
	return printResult(result, oldName, newName, oldSnap.Code, newSnap.Code)
}

func runCompare(cmd *cobra.Command, args []string) error {
	oldCode, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading old file: %w", err)
	}
	newCode, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading new file: %w", err)
	}

	lang := langFlag
	if lang == "" {
		lang = extract.DetectLang(args[1])
	}

	result := semdiff.Diff(string(oldCode), string(newCode), lang)
	return printResult(result, args[0], args[1], string(oldCode), string(newCode))
}

func runExtract(cmd *cobra.Command, args []string) error {
	code, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	lang := langFlag
	if lang == "" {
		lang = extract.DetectLang(args[0])
	}

	recs := extract.Extract(string(code), lang)

	if jsonFlag {
		output, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(recs) == 0 {
		fmt.Println("No functions found.")
		return nil
	}

	fmt.Printf("%-6s  %s\n", "LINE", "SIGNATURE")
	for _, r := range recs {
		fmt.Printf("%-6d  %s\n", r.StartLine, r.Signature)
	}

	return nil
}

func runMatch(cmd *cobra.Command, args []string) error {
	matcher, err := pattern.LoadRules(filepath.Join(patvcDir, rulesFile))
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	matched := matcher.MatchPaths(args)
	if len(matched) == 0 {
		fmt.Println("No patterns matched.")
		return nil
	}

	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%s:\n", id)
		for _, p := range matched[id] {
			fmt.Printf("  %s\n", p)
		}
	}

	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	repoPath := args[0]

	patternID := importIdent
	if patternID == "" {
		matcher, err := pattern.LoadRules(filepath.Join(patvcDir, rulesFile))
		if err != nil {
			return fmt.Errorf("no --pattern given and rules unavailable: %w", err)
		}
		matched := matcher.MatchPath(importFile)
		if len(matched) == 0 {
			return fmt.Errorf("no pattern rule matches %s; use --pattern", importFile)
		}
		patternID = matched[0]
	}

	repo, err := gitio.Open(repoPath)
	if err != nil {
		return err
	}

	revisions, err := repo.FileHistory(importFile)
	if err != nil {
		return fmt.Errorf("reading file history: %w", err)
	}
	if len(revisions) == 0 {
		return fmt.Errorf("no history for %s", importFile)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	// Resume after the last revision already at the head, so re-imports
	// stay idempotent and only new history gets saved.
	var headDigest string
	if latest, err := st.LatestVersion(patternID); err == nil && latest > 0 {
		if snap, err := st.Version(patternID, latest); err == nil && snap != nil {
			headDigest = snap.Digest
		}
	}
	start := 0
	if headDigest != "" {
		for i, rev := range revisions {
			if rev.Digest == headDigest {
				start = i + 1
			}
		}
	}

	lang := extract.DetectLang(importFile)
	saved := 0
	for _, rev := range revisions[start:] {
		metadata := map[string]string{
			"source":  "git",
			"commit":  rev.Hash,
			"message": rev.Message,
		}
		if lang != "" {
			metadata["language"] = lang
		}
		snap, err := st.SaveSnapshot(patternID, rev.Content, metadata)
		if err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		saved++
		fmt.Printf("Imported %s v%d from %s\n", patternID, snap.Version, rev.Hash[:8])
	}

	fmt.Printf("Imported %d revision(s) of %s as %s\n", saved, importFile, patternID)
	return nil
}

func printResult(result *semdiff.Result, oldName, newName, oldCode, newCode string) error {
	if jsonFlag {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Similarity: %.2f\n", result.Similarity)
	fmt.Printf("Change:     %s\n", result.ChangeType)
	fmt.Printf("Functions:  %d added, %d removed, %d modified, %d unchanged\n",
		result.Summary.Added, result.Summary.Removed, result.Summary.Modified, result.Summary.Unchanged)

	for _, sc := range result.StructuralChanges {
		fmt.Printf("  %-18s %s\n", sc.Type, sc.Name)
	}

	if patchFlag {
		fmt.Println()
		fmt.Print(semdiff.Unified(oldName, newName, oldCode, newCode))
	}

	return nil
}

func openStore() (*store.SQLiteStore, error) {
	if _, err := os.Stat(patvcDir); os.IsNotExist(err) {
		if err := os.MkdirAll(patvcDir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s directory: %w", patvcDir, err)
		}
	}
	return store.OpenSQLite(filepath.Join(patvcDir, dbFile))
}

func parseVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimPrefix(s, "v"))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q", s)
	}
	return v, nil
}

func parseMeta(entries []string) (map[string]string, error) {
	metadata := make(map[string]string, len(entries))
	for _, entry := range entries {
		k, v, ok := strings.Cut(entry, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --meta entry %q, expected key=value", entry)
		}
		metadata[k] = v
	}
	return metadata, nil
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func formatMeta(metadata map[string]string) string {
	if len(metadata) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+metadata[k])
	}
	return strings.Join(parts, " ")
}
