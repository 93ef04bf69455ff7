package race

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/dupwatch/internal/types"
)

func after(d time.Duration, match bool, id int) Task {
	return func(ctx context.Context) (types.MatchResult, error) {
		time.Sleep(d)
		if !match {
			return types.MatchResult{}, nil
		}
		return types.MatchResult{IsDuplicate: true, MatchedID: id, Score: 1}, nil
	}
}

func failing(d time.Duration, err error) Task {
	return func(ctx context.Context) (types.MatchResult, error) {
		time.Sleep(d)
		return types.MatchResult{}, err
	}
}

func TestFirstTrueResolvesOnAnyMatch(t *testing.T) {
	tests := []struct {
		name  string
		tasks []Task
	}{
		{"match finishes last", []Task{after(0, false, 0), after(10*time.Millisecond, true, 2), after(0, false, 0)}},
		{"match finishes first", []Task{after(10*time.Millisecond, false, 0), after(0, true, 2), after(10*time.Millisecond, false, 0)}},
		{"all immediate", []Task{after(0, false, 0), after(0, true, 2), after(0, false, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FirstTrue(context.Background(), tt.tasks, Options{})

			require.Equal(t, Found, out.Kind)
			assert.Equal(t, 2, out.Match.MatchedID)
			assert.NoError(t, out.Err)
		})
	}
}

func TestFirstTrueDoesNotWaitForSlowTasks(t *testing.T) {
	tasks := []Task{
		after(0, true, 1),
		after(500*time.Millisecond, false, 0),
	}

	start := time.Now()
	out := FirstTrue(context.Background(), tasks, Options{})

	assert.Equal(t, Found, out.Kind)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestFirstTrueNoneFoundWaitsForAll(t *testing.T) {
	var finished atomic.Int32
	slow := func(ctx context.Context) (types.MatchResult, error) {
		time.Sleep(20 * time.Millisecond)
		finished.Add(1)
		return types.MatchResult{}, nil
	}
	fast := func(ctx context.Context) (types.MatchResult, error) {
		finished.Add(1)
		return types.MatchResult{}, nil
	}

	out := FirstTrue(context.Background(), []Task{fast, slow}, Options{})

	assert.Equal(t, NoneFound, out.Kind)
	assert.Equal(t, int32(2), finished.Load(), "NoneFound only after both tasks completed")
	assert.Equal(t, 2, out.Completed)
}

func TestFirstTruePropagatesFailure(t *testing.T) {
	boom := errors.New("batch fetch failed")

	out := FirstTrue(context.Background(), []Task{after(0, false, 0), failing(5*time.Millisecond, boom)}, Options{})

	require.Equal(t, Failed, out.Kind, "a failed task must not read as no duplicate")
	assert.ErrorIs(t, out.Err, boom)
}

func TestFirstTrueMatchWinsOverFailure(t *testing.T) {
	boom := errors.New("batch fetch failed")

	out := FirstTrue(context.Background(), []Task{failing(0, boom), after(10*time.Millisecond, true, 9)}, Options{})

	require.Equal(t, Found, out.Kind)
	assert.Equal(t, 9, out.Match.MatchedID)
}

func TestFirstTrueJoinsAllFailures(t *testing.T) {
	errA := errors.New("chunk a")
	errB := errors.New("chunk b")

	out := FirstTrue(context.Background(), []Task{failing(0, errA), failing(0, errB)}, Options{})

	require.Equal(t, Failed, out.Kind)
	assert.ErrorIs(t, out.Err, errA)
	assert.ErrorIs(t, out.Err, errB)
}

func TestFirstTrueRecoversPanics(t *testing.T) {
	panicky := func(ctx context.Context) (types.MatchResult, error) {
		panic("unexpected nil record")
	}

	out := FirstTrue(context.Background(), []Task{panicky}, Options{})

	require.Equal(t, Failed, out.Kind)
	assert.Contains(t, out.Err.Error(), "unexpected nil record")
}

func TestFirstTrueEmpty(t *testing.T) {
	out := FirstTrue(context.Background(), nil, Options{})
	assert.Equal(t, NoneFound, out.Kind)
}

func TestFirstTrueRespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	task := func(ctx context.Context) (types.MatchResult, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return types.MatchResult{}, nil
	}
	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = task
	}

	out := FirstTrue(context.Background(), tasks, Options{Limit: 2})

	assert.Equal(t, NoneFound, out.Kind)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFirstTrueContextDone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	out := FirstTrue(ctx, []Task{after(300*time.Millisecond, true, 1)}, Options{})

	require.Equal(t, Failed, out.Kind)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "FOUND", Found.String())
	assert.Equal(t, "NONE_FOUND", NoneFound.String())
	assert.Equal(t, "FAILED", Failed.String())
	assert.Equal(t, "UNKNOWN", Kind(42).String())
}
