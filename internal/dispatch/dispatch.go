// Package dispatch routes fetched operations through registered handlers
// and assigns each emitted event its identity.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oldominion/indexer/internal/eventid"
	"github.com/oldominion/indexer/internal/model"
	"github.com/oldominion/indexer/internal/pattern"
	"github.com/oldominion/indexer/internal/schema"
)

// ErrUnsupported marks an expected business rejection inside a handler,
// e.g. a settlement currency the handler does not map. Wrap it so the
// dispatcher can tell an expected rejection from a bug.
var ErrUnsupported = errors.New("unsupported domain value")

// Handler declares one event kind: which operations it accepts and how a
// matched operation turns into event payloads. Exec reads only the
// operation and its diffs; each returned payload becomes one event,
// sub-indexed in emission order.
type Handler struct {
	Source string
	Type   string
	Accept pattern.Pattern
	Schema schema.Schema
	Exec   func(op *model.Operation) ([]model.Payload, error)
}

// Registry is the immutable handler table, assembled once at startup and
// passed by reference into the dispatcher.
type Registry struct {
	byKind map[string][]Handler
}

// NewRegistry builds a registry from independent handler declarations.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	byKind := make(map[string][]Handler)
	types := make(map[string]struct{}, len(handlers))
	for _, h := range handlers {
		if h.Type == "" {
			return nil, fmt.Errorf("handler with empty type")
		}
		if h.Source != model.KindTransaction && h.Source != model.KindOrigination {
			return nil, fmt.Errorf("handler %s: unsupported source %q", h.Type, h.Source)
		}
		if h.Exec == nil {
			return nil, fmt.Errorf("handler %s: nil exec", h.Type)
		}
		if _, dup := types[h.Type]; dup {
			return nil, fmt.Errorf("duplicate handler type %s", h.Type)
		}
		types[h.Type] = struct{}{}
		byKind[h.Source] = append(byKind[h.Source], h)
	}
	return &Registry{byKind: byKind}, nil
}

// ForKind returns the handlers registered for one source kind.
// Transaction handlers are never evaluated against originations and vice
// versa.
func (r *Registry) ForKind(kind string) []Handler {
	return r.byKind[kind]
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	n := 0
	for _, hs := range r.byKind {
		n += len(hs)
	}
	return n
}

// FailureKind classifies a per-unit dispatch failure.
type FailureKind string

const (
	// FailureUnsupported is an expected, non-exceptional rejection.
	FailureUnsupported FailureKind = "unsupported"
	// FailureMalformed means the operation lacks identity fields.
	FailureMalformed FailureKind = "malformed"
	// FailureSchema means extraction output drifted from its declared
	// shape: a programming defect, always surfaced.
	FailureSchema FailureKind = "schema"
	// FailureExec is any other extraction error.
	FailureExec FailureKind = "exec"
)

// Failure reports one failed (operation, handler) unit. A failure never
// aborts the batch and never suppresses events from other units.
type Failure struct {
	OperationID int64
	HandlerType string
	Kind        FailureKind
	Err         error
}

func (f Failure) Error() string {
	return fmt.Sprintf("op %d handler %s (%s): %v", f.OperationID, f.HandlerType, f.Kind, f.Err)
}

// Result is the outcome of dispatching one batch: every event emitted by
// a successful unit plus every per-unit failure, both in full.
type Result struct {
	Events   []model.TokenEvent
	Failures []Failure
}

// Dispatcher executes the handler table over batches of operations.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
	workers  int
}

// NewDispatcher builds a Dispatcher. workers bounds parallelism across
// operations within one batch; values below 1 mean sequential.
func NewDispatcher(registry *Registry, workers int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{registry: registry, logger: logger, workers: workers}
}

// Dispatch runs every applicable handler over every operation in the
// batch. Operations are independent, so they are processed by a bounded
// worker pool; Dispatch returns only once every unit has finished. The
// returned error is reserved for context cancellation — handler failures
// are reported in the Result, isolated per (operation, handler) unit.
func (d *Dispatcher) Dispatch(ctx context.Context, ops []model.Operation) (Result, error) {
	var (
		mu     sync.Mutex
		result Result
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for i := range ops {
		op := &ops[i]
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			events, failures := d.dispatchOne(op)

			mu.Lock()
			result.Events = append(result.Events, events...)
			result.Failures = append(result.Failures, failures...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return result, nil
}

// dispatchOne runs every matching handler for a single operation.
// Multiple handlers may match; all execute, order between them
// immaterial.
func (d *Dispatcher) dispatchOne(op *model.Operation) ([]model.TokenEvent, []Failure) {
	var (
		events   []model.TokenEvent
		failures []Failure
	)

	for _, h := range d.registry.ForKind(op.Kind) {
		if !pattern.Matches(op, h.Accept) {
			continue
		}

		payloads, err := h.Exec(op)
		if err != nil {
			failures = append(failures, classify(op, h, err))
			continue
		}

		for subIndex, payload := range payloads {
			id, err := eventid.New(h.Type, op, subIndex)
			if err != nil {
				// Identity depends on the operation, not the payload, so a
				// missing hash or counter fails every sub-event the same
				// way. Report the unit once and move on.
				failures = append(failures, Failure{
					OperationID: op.ID,
					HandlerType: h.Type,
					Kind:        FailureMalformed,
					Err:         err,
				})
				break
			}

			if err := h.Schema.Validate(payload); err != nil {
				d.logger.Error("schema violation",
					zap.String("handler", h.Type),
					zap.Int64("op_id", op.ID),
					zap.Error(err),
				)
				failures = append(failures, Failure{
					OperationID: op.ID,
					HandlerType: h.Type,
					Kind:        FailureSchema,
					Err:         err,
				})
				continue
			}

			events = append(events, model.TokenEvent{
				ID:        id,
				Type:      h.Type,
				OpID:      strconv.FormatInt(op.ID, 10),
				Timestamp: op.Timestamp,
				Level:     op.Level,
				Payload:   payload,
			})
		}
	}

	return events, failures
}

func classify(op *model.Operation, h Handler, err error) Failure {
	kind := FailureExec
	switch {
	case errors.Is(err, ErrUnsupported):
		kind = FailureUnsupported
	case errors.Is(err, eventid.ErrMissingHash), errors.Is(err, eventid.ErrMissingCounter):
		kind = FailureMalformed
	}
	return Failure{OperationID: op.ID, HandlerType: h.Type, Kind: kind, Err: err}
}
