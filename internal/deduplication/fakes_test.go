package deduplication

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/steveyegge/dupwatch/internal/types"
)

// fakeBatches serves candidates from memory. Failures and statuses are keyed
// by the first id of a batch.
type fakeBatches struct {
	mu     sync.Mutex
	items  map[int]types.WorkItemRef
	status map[int]int
	fail   map[int]error
	calls  [][]int
}

func newFakeBatches(items ...types.WorkItemRef) *fakeBatches {
	f := &fakeBatches{
		items:  make(map[int]types.WorkItemRef),
		status: make(map[int]int),
		fail:   make(map[int]error),
	}
	for _, it := range items {
		f.items[it.ID] = it
	}
	return f
}

func (f *fakeBatches) FetchBatch(_ context.Context, ids []int, _ []string) (*types.BatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, slices.Clone(ids))

	if len(ids) > 0 {
		if err := f.fail[ids[0]]; err != nil {
			return nil, err
		}
		if status, ok := f.status[ids[0]]; ok {
			return &types.BatchResponse{StatusCode: status}, nil
		}
	}

	resp := &types.BatchResponse{StatusCode: http.StatusOK}
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			resp.Items = append(resp.Items, it)
		}
	}
	return resp, nil
}

func (f *fakeBatches) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeQuery struct {
	mu      sync.Mutex
	ids     []int
	err     error
	filters []types.QueryFilter
}

func (f *fakeQuery) QueryIDs(_ context.Context, filter types.QueryFilter) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return slices.Clone(f.ids), nil
}

func (f *fakeQuery) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.filters)
}

// recordingChecker counts checks and remembers the last inputs.
type recordingChecker struct {
	mu          sync.Mutex
	calls       int
	title       string
	description string
	verdict     *types.Verdict
	err         error
}

func (r *recordingChecker) Check(_ context.Context, title, description string) (*types.Verdict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.title = title
	r.description = description
	return r.verdict, r.err
}

func (r *recordingChecker) snapshot() (calls int, title, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.title, r.description
}
