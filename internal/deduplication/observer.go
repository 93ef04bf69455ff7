package deduplication

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/romdo/go-debounce"

	"github.com/steveyegge/dupwatch/internal/logger"
	"github.com/steveyegge/dupwatch/internal/types"
)

// ResultHandler receives the verdict of every check the observer runs.
type ResultHandler func(verdict *types.Verdict, err error)

// Observer adapts form lifecycle notifications into duplicate checks.
// Loads and refreshes check immediately; field edits are debounced so only
// the last edit in a quiet period triggers a check.
type Observer struct {
	checker  Deduplicator
	form     FormService
	baseCtx  context.Context
	onResult ResultHandler

	debounced func()
	cancel    func()

	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// WithResultHandler reports every verdict, including debounced ones, to fn.
func WithResultHandler(fn ResultHandler) ObserverOption {
	return func(o *Observer) {
		o.onResult = fn
	}
}

// NewObserver creates an observer. Debounced checks run with ctx, since they
// outlive the notification that scheduled them.
func NewObserver(ctx context.Context, checker Deduplicator, form FormService, wait time.Duration, opts ...ObserverOption) (*Observer, error) {
	if checker == nil {
		return nil, fmt.Errorf("checker cannot be nil")
	}
	if form == nil {
		return nil, fmt.Errorf("form cannot be nil")
	}
	if wait <= 0 {
		return nil, fmt.Errorf("debounce wait must be positive (got %v)", wait)
	}

	o := &Observer{checker: checker, form: form, baseCtx: ctx}
	for _, opt := range opts {
		opt(o)
	}

	o.debounced, o.cancel = debounce.New(wait, func() {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return
		}
		o.running.Add(1)
		o.mu.Unlock()
		defer o.running.Done()

		_, _ = o.Validate(o.baseCtx)
	})
	return o, nil
}

// Validate reads title and description from the form and runs a check.
func (o *Observer) Validate(ctx context.Context) (*types.Verdict, error) {
	title, err := o.textField(ctx, types.FieldTitle)
	if err != nil {
		return o.report(ctx, nil, err)
	}
	description, err := o.textField(ctx, types.FieldDescription)
	if err != nil {
		return o.report(ctx, nil, err)
	}
	verdict, err := o.checker.Check(ctx, title, description)
	return o.report(ctx, verdict, err)
}

// OnLoaded checks the item as soon as the form opens.
func (o *Observer) OnLoaded(ctx context.Context) (*types.Verdict, error) {
	logger.FromContext(ctx).Debug("Form loaded")
	return o.Validate(ctx)
}

// OnRefreshed checks the item again after the form reloads it.
func (o *Observer) OnRefreshed(ctx context.Context) (*types.Verdict, error) {
	logger.FromContext(ctx).Debug("Form refreshed")
	return o.Validate(ctx)
}

// OnFieldChanged schedules a check once edits go quiet. Only fields that feed
// the check qualify.
func (o *Observer) OnFieldChanged(ctx context.Context, field string) {
	log := logger.FromContext(ctx)
	switch field {
	case types.FieldTitle, types.FieldDescription, types.FieldWorkItemType:
	default:
		log.Debug("Ignoring field change", "field", field)
		return
	}

	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return
	}
	log.Debug("Field changed, scheduling duplicate check", "field", field)
	o.debounced()
}

func (o *Observer) OnSaved(ctx context.Context) {
	logger.FromContext(ctx).Debug("Form saved")
}

func (o *Observer) OnReset(ctx context.Context) {
	logger.FromContext(ctx).Debug("Form reset")
}

func (o *Observer) OnUnloaded(ctx context.Context) {
	logger.FromContext(ctx).Debug("Form unloaded")
}

// Close cancels a pending debounced check and waits for a running one.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.running.Wait()
}

func (o *Observer) report(ctx context.Context, verdict *types.Verdict, err error) (*types.Verdict, error) {
	if err != nil {
		logger.FromContext(ctx).Error("Duplicate check did not complete", "error", err)
	}
	if o.onResult != nil {
		o.onResult(verdict, err)
	}
	return verdict, err
}

func (o *Observer) textField(ctx context.Context, name string) (string, error) {
	v, err := o.form.FieldValue(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}
