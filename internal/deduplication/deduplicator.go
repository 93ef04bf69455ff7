package deduplication

import (
	"context"

	"github.com/steveyegge/dupwatch/internal/types"
)

// Deduplicator decides whether the item being authored duplicates an open item.
//
// Example usage:
//
//	checker, err := NewChecker(form, client, client, store, DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	verdict, err := checker.Check(ctx, title, description)
//	if err != nil {
//	    log.Error("Duplicate check failed", "error", err)
//	}
//	if verdict.Status == types.VerdictDuplicate {
//	    log.Info("Duplicate found", "matched_id", verdict.Match.MatchedID)
//	}
type Deduplicator interface {
	// Check compares title and description against open items and reports
	// the verdict on the form.
	//
	// Returns:
	// - Verdict with Status VerdictDuplicate when a candidate met the threshold
	// - Verdict with Status VerdictUnique when no candidate did
	// - A skipped Verdict when there was nothing to compare or the form has invalid fields
	// - Error when candidates could not be retrieved; the form is left untouched
	Check(ctx context.Context, title, description string) (*types.Verdict, error)
}

// FormService is the work item form being edited.
type FormService interface {
	// FieldValue returns the current value of a field, or nil when it is unset.
	FieldValue(ctx context.Context, name string) (any, error)
	// InvalidFieldDescriptions lists fields other rules already flagged.
	InvalidFieldDescriptions(ctx context.Context) ([]string, error)
	SetError(ctx context.Context, message string) error
	ClearError(ctx context.Context) error
}

// QueryService returns identifiers of open items, newest first.
type QueryService interface {
	QueryIDs(ctx context.Context, filter types.QueryFilter) ([]int, error)
}

// BatchFetcher retrieves fields for a batch of identifiers. A non-2xx answer is
// reported through the response, an error means no answer was obtained.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, ids []int, fields []string) (*types.BatchResponse, error)
}
