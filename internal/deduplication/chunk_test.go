package deduplication

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/dupwatch/internal/settings"
	"github.com/steveyegge/dupwatch/internal/types"
)

func titleOnly(threshold float64) settings.Policy {
	return settings.Policy{Threshold: threshold, IncludeTitle: true}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name        string
		candidates  []types.WorkItemRef
		current     types.WorkItemRef
		policy      settings.Policy
		wantDup     bool
		wantID      int
		wantScore   float64
		wantCompare int
	}{
		{
			name: "identical title with different id matches",
			candidates: []types.WorkItemRef{
				{ID: 1, Title: "Fix login bug"},
				{ID: 2, Title: "Totally unrelated"},
			},
			current:     types.WorkItemRef{ID: 7, Title: "Fix login bug"},
			policy:      titleOnly(0.8),
			wantDup:     true,
			wantID:      1,
			wantScore:   1,
			wantCompare: 1,
		},
		{
			name: "item never matches itself",
			candidates: []types.WorkItemRef{
				{ID: 1, Title: "Fix login bug"},
				{ID: 2, Title: "Totally unrelated"},
			},
			current:     types.WorkItemRef{ID: 1, Title: "Fix login bug"},
			policy:      titleOnly(0.8),
			wantDup:     false,
			wantCompare: 1,
		},
		{
			name: "self skipped but another copy matches",
			candidates: []types.WorkItemRef{
				{ID: 1, Title: "Fix login bug"},
				{ID: 3, Title: "Fix: login bug!"},
			},
			current:     types.WorkItemRef{ID: 1, Title: "Fix login bug"},
			policy:      titleOnly(0.8),
			wantDup:     true,
			wantID:      3,
			wantScore:   1,
			wantCompare: 1,
		},
		{
			name:        "new item compares against everything",
			candidates:  []types.WorkItemRef{{ID: 5, Title: "Fix login bug"}},
			current:     types.WorkItemRef{Title: "fix LOGIN bug"},
			policy:      titleOnly(0.8),
			wantDup:     true,
			wantID:      5,
			wantScore:   1,
			wantCompare: 1,
		},
		{
			name:        "both fields are averaged",
			candidates:  []types.WorkItemRef{{ID: 1, Title: "Fix login bug", Description: "xy"}},
			current:     types.WorkItemRef{ID: 9, Title: "Fix login bug", Description: "ab"},
			policy:      settings.Policy{Threshold: 0.5, IncludeTitle: true, IncludeDescription: true},
			wantDup:     true,
			wantID:      1,
			wantScore:   0.5,
			wantCompare: 1,
		},
		{
			name:        "average below threshold",
			candidates:  []types.WorkItemRef{{ID: 1, Title: "Fix login bug", Description: "xy"}},
			current:     types.WorkItemRef{ID: 9, Title: "Fix login bug", Description: "ab"},
			policy:      settings.Policy{Threshold: 0.8, IncludeTitle: true, IncludeDescription: true},
			wantDup:     false,
			wantCompare: 1,
		},
		{
			name:        "description only ignores markup",
			candidates:  []types.WorkItemRef{{ID: 4, Title: "Something else", Description: "<p>Users cannot <b>log in</b></p>"}},
			current:     types.WorkItemRef{ID: 9, Title: "Login", Description: "users cannot log in."},
			policy:      settings.Policy{Threshold: 0.9, IncludeDescription: true},
			wantDup:     true,
			wantID:      4,
			wantScore:   1,
			wantCompare: 1,
		},
		{
			name:        "no compared field never matches",
			candidates:  []types.WorkItemRef{{ID: 1, Title: "Fix login bug", Description: "same"}},
			current:     types.WorkItemRef{ID: 9, Title: "Fix login bug", Description: "same"},
			policy:      settings.Policy{Threshold: 0},
			wantDup:     false,
			wantCompare: 1,
		},
		{
			name: "first candidate over threshold wins",
			candidates: []types.WorkItemRef{
				{ID: 1, Title: "Fix login bug"},
				{ID: 2, Title: "Fix login bug"},
			},
			current:     types.WorkItemRef{ID: 9, Title: "Fix login bug"},
			policy:      titleOnly(0.8),
			wantDup:     true,
			wantID:      1,
			wantScore:   1,
			wantCompare: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := newFakeBatches(tt.candidates...)
			v, err := NewChunkValidator(batches)
			require.NoError(t, err)

			ids := make(types.CandidateBatch, 0, len(tt.candidates))
			for _, c := range tt.candidates {
				ids = append(ids, c.ID)
			}

			got, err := v.ValidateChunk(context.Background(), ids, tt.current, tt.policy)
			require.NoError(t, err)
			require.NoError(t, got.Validate())
			assert.Equal(t, tt.wantDup, got.IsDuplicate)
			assert.Equal(t, tt.wantID, got.MatchedID)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantCompare, got.ComparedCount)
		})
	}
}

func TestValidateChunkNonSuccessIsUnique(t *testing.T) {
	batches := newFakeBatches(types.WorkItemRef{ID: 1, Title: "Fix login bug"})
	batches.status[1] = http.StatusServiceUnavailable
	v, err := NewChunkValidator(batches)
	require.NoError(t, err)

	got, err := v.ValidateChunk(context.Background(), types.CandidateBatch{1}, types.WorkItemRef{ID: 2, Title: "Fix login bug"}, titleOnly(0.8))

	require.NoError(t, err)
	assert.False(t, got.IsDuplicate)
	assert.Zero(t, got.ComparedCount)
}

func TestValidateChunkFetchFailure(t *testing.T) {
	boom := errors.New("connection reset")
	batches := newFakeBatches()
	batches.fail[1] = boom
	v, err := NewChunkValidator(batches)
	require.NoError(t, err)

	_, err = v.ValidateChunk(context.Background(), types.CandidateBatch{1, 2}, types.WorkItemRef{Title: "x"}, titleOnly(0.8))

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "chunk of 2 candidates")
}

func TestValidateChunkRequestsCandidateFields(t *testing.T) {
	var gotFields []string
	fetcher := batchFunc(func(_ context.Context, ids []int, fields []string) (*types.BatchResponse, error) {
		gotFields = fields
		return &types.BatchResponse{StatusCode: http.StatusOK}, nil
	})
	v, err := NewChunkValidator(fetcher)
	require.NoError(t, err)

	_, err = v.ValidateChunk(context.Background(), types.CandidateBatch{1}, types.WorkItemRef{Title: "x"}, titleOnly(0.8))
	require.NoError(t, err)
	assert.Equal(t, []string{"System.Id", "System.Title", "System.Description"}, gotFields)
}

func TestNewChunkValidatorRequiresFetcher(t *testing.T) {
	_, err := NewChunkValidator(nil)
	assert.Error(t, err)
}

type batchFunc func(ctx context.Context, ids []int, fields []string) (*types.BatchResponse, error)

func (f batchFunc) FetchBatch(ctx context.Context, ids []int, fields []string) (*types.BatchResponse, error) {
	return f(ctx, ids, fields)
}
