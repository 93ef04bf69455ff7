package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		ids  []int
		size int
		want []CandidateBatch
	}{
		{
			name: "empty input yields no batches",
			ids:  nil,
			size: 200,
			want: nil,
		},
		{
			name: "exact multiple",
			ids:  []int{1, 2, 3, 4},
			size: 2,
			want: []CandidateBatch{{1, 2}, {3, 4}},
		},
		{
			name: "remainder goes to last batch",
			ids:  []int{5, 4, 3, 2, 1},
			size: 2,
			want: []CandidateBatch{{5, 4}, {3, 2}, {1}},
		},
		{
			name: "non-positive size falls back to default",
			ids:  []int{1, 2, 3},
			size: 0,
			want: []CandidateBatch{{1, 2, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.ids, tt.size))
		})
	}
}

func TestChunkDefaultSize(t *testing.T) {
	ids := make([]int, 450)
	for i := range ids {
		ids[i] = i + 1
	}

	batches := Chunk(ids, DefaultChunkSize)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 200)
	assert.Len(t, batches[1], 200)
	assert.Len(t, batches[2], 50)
	assert.Equal(t, 201, batches[1][0])
}

func TestChunkDoesNotAliasInput(t *testing.T) {
	ids := []int{1, 2, 3, 4}
	batches := Chunk(ids, 2)

	ids[0] = 99

	assert.Equal(t, 1, batches[0][0], "batch must not share memory with the input slice")
}

func TestMatchResultValidation(t *testing.T) {
	tests := []struct {
		name     string
		result   MatchResult
		errorMsg string
	}{
		{
			name:   "valid non-duplicate",
			result: MatchResult{Score: 0.42, ComparedCount: 10},
		},
		{
			name:   "valid duplicate",
			result: MatchResult{IsDuplicate: true, MatchedID: 12, Score: 0.91, TitleScore: 0.91, ComparedCount: 3},
		},
		{
			name:     "duplicate without matched id",
			result:   MatchResult{IsDuplicate: true, Score: 0.9},
			errorMsg: "matched_id must be set",
		},
		{
			name:     "non-duplicate with matched id",
			result:   MatchResult{MatchedID: 4},
			errorMsg: "matched_id should not be set",
		},
		{
			name:     "score above one",
			result:   MatchResult{Score: 1.5},
			errorMsg: "score must be between 0.0 and 1.0",
		},
		{
			name:     "negative description score",
			result:   MatchResult{DescriptionScore: -0.1},
			errorMsg: "description_score must be between 0.0 and 1.0",
		},
		{
			name:     "negative compared count",
			result:   MatchResult{ComparedCount: -1},
			errorMsg: "compared_count cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.errorMsg), "got %q", err.Error())
		})
	}
}

func TestBatchResponseOK(t *testing.T) {
	var nilResp *BatchResponse
	assert.False(t, nilResp.OK())
	assert.True(t, (&BatchResponse{StatusCode: 200}).OK())
	assert.True(t, (&BatchResponse{StatusCode: 204}).OK())
	assert.False(t, (&BatchResponse{StatusCode: 404}).OK())
	assert.False(t, (&BatchResponse{StatusCode: 503}).OK())
}

func TestWorkItemRefIsNew(t *testing.T) {
	assert.True(t, WorkItemRef{}.IsNew())
	assert.False(t, WorkItemRef{ID: 7}.IsNew())
}

func TestVerdictStatusIsValid(t *testing.T) {
	assert.True(t, VerdictDuplicate.IsValid())
	assert.True(t, VerdictSkippedInvalidFields.IsValid())
	assert.False(t, VerdictStatus("maybe").IsValid())
}
