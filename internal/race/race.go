// Package race runs boolean-valued tasks concurrently and resolves as soon as
// one of them reports a match.
package race

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/dupwatch/internal/types"
)

// Kind tags the outcome of a race.
type Kind int

const (
	NoneFound Kind = iota // Every task finished without a match
	Found                 // A task reported a match
	Failed                // No match, and at least one task failed
)

func (k Kind) String() string {
	switch k {
	case NoneFound:
		return "NONE_FOUND"
	case Found:
		return "FOUND"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Task validates one unit of work. A task that returns an error is never
// counted as "no match".
type Task func(ctx context.Context) (types.MatchResult, error)

// Outcome is the tagged result of FirstTrue: Found(match), NoneFound or Failed(err).
type Outcome struct {
	Kind  Kind
	Match types.MatchResult // set when Kind == Found
	Err   error             // set when Kind == Failed

	// Completed is the number of tasks that reported before the race resolved
	Completed int
}

// Options tune how tasks are scheduled.
type Options struct {
	// Limit caps the number of tasks running at once (0 = unlimited)
	Limit int
}

type report struct {
	index int
	match types.MatchResult
	err   error
}

// FirstTrue runs all tasks concurrently.
//
// It resolves Found as soon as any task reports a duplicate, without waiting for
// the others; those keep running in the background and their results are dropped.
// It resolves NoneFound only after every task completed without a match or an
// error, and Failed when no task matched but at least one failed. Failures are
// joined so callers can inspect each one with errors.Is / errors.As.
//
// ctx is handed to every task unchanged; FirstTrue never cancels it. If ctx ends
// before the race resolves, Failed is returned with the context error.
func FirstTrue(ctx context.Context, tasks []Task, opts Options) Outcome {
	if len(tasks) == 0 {
		return Outcome{Kind: NoneFound}
	}

	// Buffered so late finishers never block after we have returned
	reports := make(chan report, len(tasks))
	resolved := make(chan struct{})
	defer close(resolved)

	go launch(ctx, tasks, opts, reports, resolved)

	var (
		errs      []error
		completed int
	)
	for completed < len(tasks) {
		select {
		case r := <-reports:
			completed++
			if r.err != nil {
				errs = append(errs, fmt.Errorf("task %d: %w", r.index, r.err))
				continue
			}
			if r.match.IsDuplicate {
				return Outcome{Kind: Found, Match: r.match, Completed: completed}
			}
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
			return Outcome{Kind: Failed, Err: errors.Join(errs...), Completed: completed}
		}
	}
	return finish(errs, completed)
}

func finish(errs []error, completed int) Outcome {
	if len(errs) > 0 {
		return Outcome{Kind: Failed, Err: errors.Join(errs...), Completed: completed}
	}
	return Outcome{Kind: NoneFound, Completed: completed}
}

// launch starts tasks until all are started or the race has resolved.
// Tasks not yet started when the race resolves are skipped.
func launch(ctx context.Context, tasks []Task, opts Options, reports chan<- report, resolved <-chan struct{}) {
	var g errgroup.Group
	if opts.Limit > 0 {
		g.SetLimit(opts.Limit)
	}

	for i, task := range tasks {
		select {
		case <-resolved:
			_ = g.Wait()
			return
		default:
		}
		g.Go(func() error {
			reports <- run(ctx, i, task)
			return nil
		})
	}
	_ = g.Wait()
}

// run executes one task, turning a panic into a failure report.
func run(ctx context.Context, index int, task Task) (r report) {
	r.index = index
	defer func() {
		if p := recover(); p != nil {
			r.err = fmt.Errorf("panic: %v", p)
		}
	}()
	r.match, r.err = task(ctx)
	return r
}
