package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/dupwatch/internal/deduplication"
	"github.com/steveyegge/dupwatch/internal/form"
	"github.com/steveyegge/dupwatch/internal/types"
)

var (
	watchID    int
	watchType  string
	watchTitle string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check a work item while it is being edited",
	Long: `Simulate a work item form fed from standard input. Each line is one event:

  title <text>          Set the title
  description <text>    Set the description
  type <text>           Set the work item type
  field <ref> <value>   Set any other field (does not trigger a check)
  invalid <message>     Mark the form as having an invalid field
  refresh               Reload the form (checks immediately)
  save | reset          Lifecycle notifications (logged only)
  quit                  Stop watching

Edits are debounced: a check runs once no edit arrived for the configured
debounce period (1s by default).

Example:
  printf 'title Fix login bug\n' | dupwatch watch --type Bug`,
	Args: cobra.NoArgs,
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

		fields := map[string]any{types.FieldTitle: watchTitle}
		if watchID > 0 {
			fields[types.FieldID] = watchID
		}
		if watchType != "" {
			fields[types.FieldWorkItemType] = watchType
		}
		mem := form.NewMemory(fields)

		checker, err := deduplication.NewChecker(mem, client, client, store, cfg.Dedup)
		if err != nil {
			return err
		}

		return runWatch(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), checker, mem, cfg.Dedup)
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchID, "id", 0, "Identifier of the item being edited (omit for a new item)")
	watchCmd.Flags().StringVar(&watchType, "type", "", "Work item type, e.g. Bug")
	watchCmd.Flags().StringVar(&watchTitle, "title", "", "Initial title")

	rootCmd.AddCommand(watchCmd)
}

// runWatch feeds events read from in to an observer until quit or EOF.
// A pending debounced check is replaced by one final check of the last state.
func runWatch(ctx context.Context, in io.Reader, out io.Writer, checker deduplication.Deduplicator, mem *form.Memory, dedup deduplication.Config) error {
	var mu sync.Mutex
	report := func(v *types.Verdict, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			fmt.Fprintf(out, "%s %v\n", color.RedString("error:"), err)
			return
		}
		printVerdict(out, v)
	}

	observer, err := deduplication.NewObserver(ctx, checker, mem, dedup.DebounceWait, deduplication.WithResultHandler(report))
	if err != nil {
		return err
	}
	defer observer.Close()

	_, _ = observer.OnLoaded(ctx)

	edited := false
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		ev, err := parseEvent(scanner.Text())
		if err != nil {
			report(nil, err)
			continue
		}
		if ev.kind == eventQuit {
			break
		}
		if ev.kind == eventField {
			edited = true
		}
		dispatch(ctx, observer, mem, ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	// Input may end before the quiet period does
	observer.Close()
	if edited {
		_, _ = observer.Validate(ctx)
	}
	observer.OnUnloaded(ctx)
	return nil
}

type eventKind int

const (
	eventNone eventKind = iota
	eventField
	eventInvalid
	eventRefresh
	eventSave
	eventReset
	eventQuit
)

type event struct {
	kind  eventKind
	field string
	value string
}

// parseEvent turns one input line into an event. Blank lines and lines
// starting with # are ignored.
func parseEvent(line string) (event, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return event{kind: eventNone}, nil
	}

	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(verb) {
	case "title":
		return event{kind: eventField, field: types.FieldTitle, value: rest}, nil
	case "description":
		return event{kind: eventField, field: types.FieldDescription, value: rest}, nil
	case "type":
		return event{kind: eventField, field: types.FieldWorkItemType, value: rest}, nil
	case "field":
		ref, value, ok := strings.Cut(rest, " ")
		if !ok || ref == "" {
			return event{}, fmt.Errorf("field needs a reference name and a value: %q", line)
		}
		return event{kind: eventField, field: ref, value: strings.TrimSpace(value)}, nil
	case "invalid":
		if rest == "" {
			return event{}, fmt.Errorf("invalid needs a message")
		}
		return event{kind: eventInvalid, value: rest}, nil
	case "refresh":
		return event{kind: eventRefresh}, nil
	case "save":
		return event{kind: eventSave}, nil
	case "reset":
		return event{kind: eventReset}, nil
	case "quit", "exit":
		return event{kind: eventQuit}, nil
	default:
		return event{}, fmt.Errorf("unknown event %q", verb)
	}
}

func dispatch(ctx context.Context, observer *deduplication.Observer, mem *form.Memory, ev event) {
	switch ev.kind {
	case eventField:
		mem.SetField(ev.field, ev.value)
		observer.OnFieldChanged(ctx, ev.field)
	case eventInvalid:
		mem.MarkInvalid(form.InvalidField{Name: "input", Description: ev.value})
	case eventRefresh:
		_, _ = observer.OnRefreshed(ctx)
	case eventSave:
		observer.OnSaved(ctx)
	case eventReset:
		observer.OnReset(ctx)
	}
}
