package types

import (
	"fmt"
	"slices"
)

// Work item field reference names understood by the tracker.
const (
	FieldID           = "System.Id"
	FieldTitle        = "System.Title"
	FieldDescription  = "System.Description"
	FieldWorkItemType = "System.WorkItemType"
	FieldState        = "System.State"
	FieldCreatedDate  = "System.CreatedDate"
)

// CandidateFields are the only fields requested when fetching candidates.
var CandidateFields = []string{FieldID, FieldTitle, FieldDescription}

// WorkItemRef is the slice of a work item used for similarity comparison.
// It is built per fetch response and never persisted.
type WorkItemRef struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// IsNew reports whether the item has not been saved yet (no identifier assigned).
func (w WorkItemRef) IsNew() bool {
	return w.ID <= 0
}

// CandidateBatch is an ordered, immutable group of candidate identifiers
// processed by a single batch fetch.
type CandidateBatch []int

// DefaultChunkSize is the batch size accepted by the work items batch endpoint.
const DefaultChunkSize = 200

// Chunk partitions ids into batches of at most size identifiers, preserving order.
// Each batch owns its backing array so callers cannot mutate one another's input.
func Chunk(ids []int, size int) []CandidateBatch {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if len(ids) == 0 {
		return nil
	}
	batches := make([]CandidateBatch, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, CandidateBatch(slices.Clone(ids[start:end])))
	}
	return batches
}

// QueryFilter narrows the candidate query to open items, optionally of one type.
type QueryFilter struct {
	// WorkItemType restricts results to one type; empty means any type
	WorkItemType string

	// ExcludedStates are states treated as "not open" (default: Closed)
	ExcludedStates []string

	// Top caps the number of identifiers returned (0 = service default)
	Top int
}

// BatchResponse is the decoded result of one batch fetch.
// StatusCode is always set; Items is only populated for 2xx responses.
type BatchResponse struct {
	StatusCode int
	Items      []WorkItemRef
}

// OK reports whether the batch endpoint answered with a 2xx status.
func (r *BatchResponse) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// MatchResult is the outcome of validating one chunk of candidates.
type MatchResult struct {
	// IsDuplicate is true when a candidate met the similarity threshold
	IsDuplicate bool `json:"is_duplicate"`

	// MatchedID is the identifier of the candidate that triggered the match
	// Only set when IsDuplicate is true
	MatchedID int `json:"matched_id,omitempty"`

	// Score is the combined score that met the threshold (0.0 to 1.0)
	Score float64 `json:"score"`

	// TitleScore and DescriptionScore are the per-field scores of the match
	TitleScore       float64 `json:"title_score"`
	DescriptionScore float64 `json:"description_score"`

	// ComparedCount is the number of candidates scored before the result was reached
	ComparedCount int `json:"compared_count"`
}

// Validate checks if the match result has valid values
func (m *MatchResult) Validate() error {
	scores := []struct {
		name  string
		value float64
	}{
		{"score", m.Score},
		{"title_score", m.TitleScore},
		{"description_score", m.DescriptionScore},
	}
	for _, s := range scores {
		if s.value < 0.0 || s.value > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0 (got %.2f)", s.name, s.value)
		}
	}
	if m.IsDuplicate && m.MatchedID <= 0 {
		return fmt.Errorf("matched_id must be set when is_duplicate is true")
	}
	if !m.IsDuplicate && m.MatchedID != 0 {
		return fmt.Errorf("matched_id should not be set when is_duplicate is false")
	}
	if m.ComparedCount < 0 {
		return fmt.Errorf("compared_count cannot be negative (got %d)", m.ComparedCount)
	}
	return nil
}

// VerdictStatus is the final state of one duplicate check.
type VerdictStatus string

const (
	VerdictDuplicate            VerdictStatus = "duplicate"
	VerdictUnique               VerdictStatus = "unique"
	VerdictSkippedNoInput       VerdictStatus = "skipped_no_input"
	VerdictSkippedInvalidFields VerdictStatus = "skipped_invalid_fields"
)

// IsValid reports whether s is a known verdict status.
func (s VerdictStatus) IsValid() bool {
	switch s {
	case VerdictDuplicate, VerdictUnique, VerdictSkippedNoInput, VerdictSkippedInvalidFields:
		return true
	}
	return false
}

// Verdict is what a check reports back to its caller.
type Verdict struct {
	Status VerdictStatus `json:"status"`

	// Match is set when Status is VerdictDuplicate, or when a duplicate was found
	// but suppressed because the form already had invalid fields
	Match *MatchResult `json:"match,omitempty"`

	// Message is the form error that was set (duplicates only)
	Message string `json:"message,omitempty"`

	CandidateCount int `json:"candidate_count"`
	ChunkCount     int `json:"chunk_count"`
}
