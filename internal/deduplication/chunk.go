package deduplication

import (
	"context"
	"fmt"

	"github.com/steveyegge/dupwatch/internal/logger"
	"github.com/steveyegge/dupwatch/internal/settings"
	"github.com/steveyegge/dupwatch/internal/similarity"
	"github.com/steveyegge/dupwatch/internal/types"
)

// ChunkValidator scores one batch of candidates against the current item.
type ChunkValidator struct {
	batches BatchFetcher
}

// NewChunkValidator creates a validator fetching candidates through batches.
func NewChunkValidator(batches BatchFetcher) (*ChunkValidator, error) {
	if batches == nil {
		return nil, fmt.Errorf("batch fetcher cannot be nil")
	}
	return &ChunkValidator{batches: batches}, nil
}

// ValidateChunk fetches the candidates in batch and returns on the first one
// whose combined score meets policy.Threshold.
//
// A non-2xx batch response counts as "no duplicate in this chunk". A fetch that
// never got an answer is an error, which the caller must not read as a negative.
func (v *ChunkValidator) ValidateChunk(ctx context.Context, batch types.CandidateBatch, current types.WorkItemRef, policy settings.Policy) (types.MatchResult, error) {
	log := logger.FromContext(ctx)

	resp, err := v.batches.FetchBatch(ctx, batch, types.CandidateFields)
	if err != nil {
		return types.MatchResult{}, fmt.Errorf("failed to fetch chunk of %d candidates: %w", len(batch), err)
	}
	if !resp.OK() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		log.Warn("Batch fetch returned non-success status, treating chunk as unique",
			"status", status, "candidates", len(batch))
		return types.MatchResult{}, nil
	}

	title := similarity.Normalize(current.Title)
	description := similarity.Normalize(current.Description)

	compared := 0
	for _, candidate := range resp.Items {
		if !current.IsNew() && candidate.ID == current.ID {
			continue
		}
		compared++

		var titleScore, descriptionScore float64
		if policy.IncludeTitle {
			titleScore = similarity.Score(title, similarity.Normalize(candidate.Title))
		}
		if policy.IncludeDescription {
			descriptionScore = similarity.Score(description, similarity.Normalize(candidate.Description))
		}

		score, ok := combine(policy, titleScore, descriptionScore)
		if !ok || score < policy.Threshold {
			continue
		}

		log.Debug("Candidate met similarity threshold",
			"matched_id", candidate.ID, "score", score, "threshold", policy.Threshold)
		return types.MatchResult{
			IsDuplicate:      true,
			MatchedID:        candidate.ID,
			Score:            score,
			TitleScore:       titleScore,
			DescriptionScore: descriptionScore,
			ComparedCount:    compared,
		}, nil
	}

	return types.MatchResult{ComparedCount: compared}, nil
}

// combine merges the per-field scores the policy enables. ok is false when the
// policy enables no field, in which case nothing can match.
func combine(policy settings.Policy, titleScore, descriptionScore float64) (score float64, ok bool) {
	switch {
	case policy.IncludeTitle && policy.IncludeDescription:
		return (titleScore + descriptionScore) / 2, true
	case policy.IncludeTitle:
		return titleScore, true
	case policy.IncludeDescription:
		return descriptionScore, true
	default:
		return 0, false
	}
}
