package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/dupwatch/internal/deduplication"
	"github.com/steveyegge/dupwatch/internal/form"
	"github.com/steveyegge/dupwatch/internal/types"
)

var (
	checkTitle       string
	checkDescription string
	checkID          int
	checkType        string
	checkJSON        bool
	checkExitCode    bool
)

// errDuplicateFound is returned by check --exit-code when the item is a
// duplicate. main maps it to exit status 3.
var errDuplicateFound = errors.New("duplicate found")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a title and description for duplicates",
	Long: `Compare a work item against the open items of the configured project.

The similarity threshold and compared fields come from the settings database
(see "dupwatch settings show"). Pass --id when checking an existing item so it
is not reported as a duplicate of itself.

Examples:
  dupwatch check --title "Fix login bug" --type Bug
  dupwatch check --title "Fix login bug" --description "Login fails with 500" --id 42
  dupwatch check --title "Fix login bug" --json
  dupwatch check --title "Fix login bug" --exit-code   # exit 3 on duplicate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		store, err := openSettings()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		fields := map[string]any{
			types.FieldTitle:       checkTitle,
			types.FieldDescription: checkDescription,
		}
		if checkID > 0 {
			fields[types.FieldID] = checkID
		}
		if checkType != "" {
			fields[types.FieldWorkItemType] = checkType
		}
		mem := form.NewMemory(fields)

		checker, err := deduplication.NewChecker(mem, client, client, store, cfg.Dedup)
		if err != nil {
			return err
		}

		verdict, err := checker.Check(ctx, checkTitle, checkDescription)
		if err != nil {
			return err
		}

		if checkJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(verdict); err != nil {
				return fmt.Errorf("failed to encode verdict: %w", err)
			}
		} else {
			printVerdict(cmd.OutOrStdout(), verdict)
		}

		if checkExitCode && verdict.Status == types.VerdictDuplicate {
			return errDuplicateFound
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkTitle, "title", "", "Work item title")
	checkCmd.Flags().StringVar(&checkDescription, "description", "", "Work item description (HTML allowed)")
	checkCmd.Flags().IntVar(&checkID, "id", 0, "Identifier of the item being edited (omit for a new item)")
	checkCmd.Flags().StringVar(&checkType, "type", "", "Work item type, e.g. Bug")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the verdict as JSON")
	checkCmd.Flags().BoolVar(&checkExitCode, "exit-code", false, "Exit with status 3 when a duplicate is found")

	rootCmd.AddCommand(checkCmd)
}

// printVerdict renders a verdict for humans.
func printVerdict(w io.Writer, v *types.Verdict) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	switch v.Status {
	case types.VerdictDuplicate:
		fmt.Fprintf(w, "%s %s\n", red("✗"), v.Message)
		if v.Match != nil {
			fmt.Fprintf(w, "  %s\n", gray(fmt.Sprintf("title %.2f, description %.2f, score %.2f",
				v.Match.TitleScore, v.Match.DescriptionScore, v.Match.Score)))
		}
	case types.VerdictUnique:
		fmt.Fprintf(w, "%s No duplicate found\n", green("✓"))
	case types.VerdictSkippedNoInput:
		fmt.Fprintf(w, "%s Nothing to compare: title and description are empty\n", yellow("!"))
	case types.VerdictSkippedInvalidFields:
		fmt.Fprintf(w, "%s Form has invalid fields, duplicate state not reported\n", yellow("!"))
	default:
		fmt.Fprintf(w, "%s Unknown verdict %q\n", yellow("?"), v.Status)
	}

	if v.CandidateCount > 0 {
		fmt.Fprintf(w, "  %s\n", gray(fmt.Sprintf("%d candidates in %d chunk(s)", v.CandidateCount, v.ChunkCount)))
	}
}
