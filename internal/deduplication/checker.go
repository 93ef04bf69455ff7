package deduplication

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/steveyegge/dupwatch/internal/logger"
	"github.com/steveyegge/dupwatch/internal/race"
	"github.com/steveyegge/dupwatch/internal/settings"
	"github.com/steveyegge/dupwatch/internal/types"
)

// Checker runs the full duplicate check for the item open in a form.
type Checker struct {
	form      FormService
	query     QueryService
	validator *ChunkValidator
	settings  settings.Store
	config    Config
}

// Compile-time check that Checker implements Deduplicator
var _ Deduplicator = (*Checker)(nil)

// NewChecker creates a Checker. Every collaborator is required.
func NewChecker(form FormService, query QueryService, batches BatchFetcher, store settings.Store, config Config) (*Checker, error) {
	if form == nil {
		return nil, fmt.Errorf("form cannot be nil")
	}
	if query == nil {
		return nil, fmt.Errorf("query service cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("settings store cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid deduplication config: %w", err)
	}
	validator, err := NewChunkValidator(batches)
	if err != nil {
		return nil, err
	}
	return &Checker{
		form:      form,
		query:     query,
		validator: validator,
		settings:  store,
		config:    config,
	}, nil
}

// Check implements Deduplicator.
func (c *Checker) Check(ctx context.Context, title, description string) (*types.Verdict, error) {
	log := logger.FromContext(ctx).WithPrefix("dedup").With("check_id", uuid.NewString())
	ctx = logger.ContextWithLogger(ctx, log)

	if strings.TrimSpace(title) == "" && strings.TrimSpace(description) == "" {
		log.Warn("Skipping duplicate check: title and description are both empty")
		return &types.Verdict{Status: types.VerdictSkippedNoInput}, nil
	}

	current, itemType, err := c.readCurrent(ctx, title, description)
	if err != nil {
		return nil, err
	}

	policy, err := settings.LoadOrDefault(ctx, c.settings, c.config.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load similarity settings: %w", err)
	}
	log.Debug("Loaded similarity policy", "policy", policy.String())

	filter := types.QueryFilter{
		ExcludedStates: c.config.ExcludedStates,
		Top:            c.config.MaxCandidates,
	}
	if policy.SameType {
		filter.WorkItemType = itemType
	}

	verdict := &types.Verdict{}
	outcome := race.Outcome{Kind: race.NoneFound}
	if policy.Fields() == "" {
		log.Warn("Similarity settings compare no fields, nothing can match")
	} else {
		ids, err := c.query.QueryIDs(ctx, filter)
		if err != nil {
			log.Error("Candidate query failed", "error", err)
			return nil, fmt.Errorf("failed to query candidates: %w", err)
		}
		batches := types.Chunk(ids, c.config.ChunkSize)
		verdict.CandidateCount = len(ids)
		verdict.ChunkCount = len(batches)
		log.Debug("Validating candidates", "candidates", len(ids), "chunks", len(batches), "type", filter.WorkItemType)

		outcome = race.FirstTrue(ctx, c.tasks(batches, current, policy), race.Options{Limit: c.config.MaxConcurrentChunks})
	}

	if outcome.Kind == race.Failed {
		log.Error("Duplicate check failed, leaving form untouched", "error", outcome.Err)
		return nil, fmt.Errorf("duplicate check failed: %w", outcome.Err)
	}
	if outcome.Kind == race.Found {
		match := outcome.Match
		verdict.Match = &match
	}

	invalid, err := c.form.InvalidFieldDescriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read invalid fields: %w", err)
	}
	if len(invalid) > 0 {
		for _, d := range invalid {
			log.Info("Form has an invalid field, not reporting duplicates", "field", d)
		}
		verdict.Status = types.VerdictSkippedInvalidFields
		return verdict, nil
	}

	if outcome.Kind == race.Found {
		verdict.Status = types.VerdictDuplicate
		verdict.Message = DuplicateMessage(policy, filter.WorkItemType, outcome.Match)
		log.Info("Duplicate found", "matched_id", outcome.Match.MatchedID, "score", outcome.Match.Score)
		if err := c.form.SetError(ctx, verdict.Message); err != nil {
			return nil, fmt.Errorf("failed to set form error: %w", err)
		}
		return verdict, nil
	}

	verdict.Status = types.VerdictUnique
	log.Debug("No duplicate found", "candidates", verdict.CandidateCount)
	if err := c.form.ClearError(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear form error: %w", err)
	}
	return verdict, nil
}

func (c *Checker) tasks(batches []types.CandidateBatch, current types.WorkItemRef, policy settings.Policy) []race.Task {
	tasks := make([]race.Task, len(batches))
	for i, batch := range batches {
		tasks[i] = func(ctx context.Context) (types.MatchResult, error) {
			return c.validator.ValidateChunk(ctx, batch, current, policy)
		}
	}
	return tasks
}

// readCurrent reads the identity and type of the item in the form.
func (c *Checker) readCurrent(ctx context.Context, title, description string) (types.WorkItemRef, string, error) {
	rawID, err := c.form.FieldValue(ctx, types.FieldID)
	if err != nil {
		return types.WorkItemRef{}, "", fmt.Errorf("failed to read %s: %w", types.FieldID, err)
	}
	id, err := parseID(rawID)
	if err != nil {
		return types.WorkItemRef{}, "", err
	}

	rawType, err := c.form.FieldValue(ctx, types.FieldWorkItemType)
	if err != nil {
		return types.WorkItemRef{}, "", fmt.Errorf("failed to read %s: %w", types.FieldWorkItemType, err)
	}
	itemType := ""
	if rawType != nil {
		itemType = fmt.Sprint(rawType)
	}

	return types.WorkItemRef{ID: id, Title: title, Description: description}, itemType, nil
}

// parseID converts a form identifier value. Unset means the item is new (0).
func parseID(v any) (int, error) {
	switch id := v.(type) {
	case nil:
		return 0, nil
	case int:
		return id, nil
	case int64:
		return int(id), nil
	case float64:
		return int(id), nil
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid work item id %q: %w", id, err)
		}
		return int(n), nil
	case string:
		if id == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(id)
		if err != nil {
			return 0, fmt.Errorf("invalid work item id %q: %w", id, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported work item id type %T", v)
	}
}

// DuplicateMessage renders the form error for a duplicate.
func DuplicateMessage(policy settings.Policy, itemType string, match types.MatchResult) string {
	searched := "all open work items"
	if itemType != "" {
		searched = fmt.Sprintf("open %s work items only", itemType)
	}
	return fmt.Sprintf("Possible duplicate of #%d: the %s match at %.0f%% similarity (searched %s).",
		match.MatchedID, policy.Fields(), match.Score*100, searched)
}
