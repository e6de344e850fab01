package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/keymutex"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

const (
	defaultWorkers     = 4
	defaultMaxRetries  = 8
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 2 * time.Minute
	defaultLockBuckets = 64

	// ReasonRetriesExhausted is used when transient failures ran out of retries.
	ReasonRetriesExhausted = "RetriesExhausted"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of events handled concurrently.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried before
// it becomes terminal.
func WithMaxRetries(n int) Option {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.maxRetries = n
		}
	}
}

// WithBackoff sets the exponential backoff bounds for transient failures.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(d *Dispatcher) {
		d.baseDelay = base
		d.maxDelay = maxDelay
	}
}

// WithMetrics enables or disables Prometheus metrics recording.
func WithMetrics(enabled bool) Option {
	return func(d *Dispatcher) {
		d.enableMetrics = enabled
	}
}

// Dispatcher runs the handler of each queued Request under its lock key.
type Dispatcher struct {
	table    *Table
	recorder record.EventRecorder
	locks    keymutex.KeyMutex

	workers       int
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
	enableMetrics bool

	mu       sync.Mutex
	failures map[Request]int
}

var _ reconcile.TypedReconciler[Request] = &Dispatcher{}

// New creates a dispatcher for table. Terminal failures are reported through recorder.
func New(table *Table, recorder record.EventRecorder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		table:         table,
		recorder:      recorder,
		locks:         keymutex.NewHashed(defaultLockBuckets),
		workers:       defaultWorkers,
		maxRetries:    defaultMaxRetries,
		baseDelay:     defaultBaseDelay,
		maxDelay:      defaultMaxDelay,
		enableMetrics: true,
		failures:      make(map[Request]int),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Reconcile handles one queued event.
func (d *Dispatcher) Reconcile(ctx context.Context, req Request) (reconcile.Result, error) {
	route, ok := d.table.Route(req.Route)
	if !ok {
		return reconcile.Result{}, reconcile.TerminalError(fmt.Errorf("unknown route %q", req.Route))
	}
	ev := req.Event

	logger := eventLogger(log.FromContext(ctx), route, ev)
	ctx = log.IntoContext(ctx, logger)

	if key := route.lockKey(ev); key != "" {
		d.locks.LockKey(key)
		defer func() { _ = d.locks.UnlockKey(key) }()
		logger.V(1).Info("acquired lock", "key", key)
	}

	start := time.Now()
	outcome, err := route.Handler(ctx, ev)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		attempt := d.recordFailure(req)
		if attempt > d.maxRetries {
			d.forget(req)
			d.recordHandler(route.Name, "exhausted", elapsed)
			d.fail(ctx, route, ev, ReasonRetriesExhausted, err)
			return reconcile.Result{}, reconcile.TerminalError(err)
		}
		d.recordHandler(route.Name, "error", elapsed)
		logger.V(1).Info("transient failure, retrying", "attempt", attempt, "error", err.Error())
		return reconcile.Result{}, err
	}

	d.forget(req)
	d.recordHandler(route.Name, outcome.Kind.String(), elapsed)

	switch outcome.Kind {
	case OutcomeRequeue:
		logger.V(1).Info("precondition not met, requeueing", "after", outcome.After)
		return reconcile.Result{RequeueAfter: outcome.After}, nil
	case OutcomePermanent:
		d.fail(ctx, route, ev, outcome.Reason, outcome.Err)
		return reconcile.Result{}, reconcile.TerminalError(outcome.Err)
	default:
		logger.V(1).Info("event handled")
		return reconcile.Result{}, nil
	}
}

// eventLogger tags base with the route and the triggering object. Each
// delivery gets its own ID so retries can be told apart in the logs.
func eventLogger(base logr.Logger, route *Route, ev Event) logr.Logger {
	logger := base.WithValues(
		"route", route.Name,
		"kind", route.Kind,
		"event", ev.Type,
		"eventID", uuid.NewString(),
	)
	if ev.Object != nil {
		logger = logger.WithValues("namespace", ev.Object.GetNamespace(), "name", ev.Object.GetName())
	}
	return logger
}

// fail reports a terminal failure on the triggering object and runs the route's hook.
func (d *Dispatcher) fail(ctx context.Context, route *Route, ev Event, reason string, err error) {
	if err == nil {
		err = errors.New(reason)
	}
	log.FromContext(ctx).Error(err, "event handling failed permanently", "reason", reason)
	if d.recorder != nil && ev.Object != nil {
		d.recorder.Eventf(ev.Object, corev1.EventTypeWarning, reason, "%s: %v", route.Name, err)
	}
	if route.OnFailure != nil {
		route.OnFailure(ctx, ev, reason, err)
	}
}

func (d *Dispatcher) recordFailure(req Request) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[req]++
	return d.failures[req]
}

func (d *Dispatcher) forget(req Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.failures, req)
}
