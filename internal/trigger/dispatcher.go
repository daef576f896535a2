package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrTriggerNotFound = errors.New("trigger not found")
	ErrPathMismatch    = errors.New("path does not match trigger pattern")
	ErrDuplicate       = errors.New("trigger already registered")
)

// Kind is the type of data change an event describes.
type Kind string

// KindCreated fires once per newly created record.
const KindCreated Kind = "created"

// Event carries a data change to registered triggers. Data is the raw value
// of the record and may be null.
type Event struct {
	ID     string            `json:"id"`
	Kind   Kind              `json:"kind"`
	Path   string            `json:"path"`
	Params map[string]string `json:"params,omitempty"`
	Data   json.RawMessage   `json:"data,omitempty"`
	Time   time.Time         `json:"time"`
}

// Func handles one event. A returned error is reported to the event source.
type Func func(ctx context.Context, event Event) error

// Trigger binds a handler to a path pattern and event kind.
type Trigger struct {
	Name    string
	Kind    Kind
	Pattern string
	Handler Func
}

type registration struct {
	Trigger
	pattern Pattern
}

// Dispatcher routes events to the triggers whose pattern and kind match.
// Each invocation runs in its own goroutine; nothing orders invocations
// against each other.
type Dispatcher struct {
	mu       sync.RWMutex
	triggers []registration
	inflight sync.WaitGroup
	logger   zerolog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Register adds t. Names must be unique.
func (d *Dispatcher) Register(t Trigger) error {
	if t.Name == "" {
		return fmt.Errorf("trigger name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("trigger %s: handler is required", t.Name)
	}
	if t.Kind == "" {
		t.Kind = KindCreated
	}

	pattern, err := ParsePattern(t.Pattern)
	if err != nil {
		return fmt.Errorf("trigger %s: %w", t.Name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.triggers {
		if existing.Name == t.Name {
			return fmt.Errorf("%w: %s", ErrDuplicate, t.Name)
		}
	}
	d.triggers = append(d.triggers, registration{Trigger: t, pattern: pattern})
	return nil
}

// Dispatch starts every matching trigger in the background and returns
// immediately. Failures are logged; use Wait to drain in-flight work.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	event = stamp(event)
	// Invocations outlive the request that produced the event.
	ctx = context.WithoutCancel(ctx)

	for _, reg := range d.matching(event) {
		params, _ := reg.pattern.Match(event.Path)
		invocation := event
		invocation.Params = params

		d.inflight.Add(1)
		go func(reg registration) {
			defer d.inflight.Done()
			if err := reg.Handler(ctx, invocation); err != nil {
				d.logger.Warn().
					Err(err).
					Str("trigger", reg.Name).
					Str("event", invocation.ID).
					Str("path", invocation.Path).
					Msg("trigger invocation failed")
			}
		}(reg)
	}
}

// Deliver runs the named trigger synchronously and returns its error, so a
// remote event source can apply its own retry policy.
func (d *Dispatcher) Deliver(ctx context.Context, name string, event Event) error {
	event = stamp(event)

	d.mu.RLock()
	var (
		found registration
		ok    bool
	)
	for _, reg := range d.triggers {
		if reg.Name == name {
			found, ok = reg, true
			break
		}
	}
	d.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrTriggerNotFound, name)
	}
	if found.Kind != event.Kind {
		return fmt.Errorf("%w: trigger %s expects %s events, got %s", ErrPathMismatch, name, found.Kind, event.Kind)
	}

	params, matched := found.pattern.Match(event.Path)
	if !matched {
		return fmt.Errorf("%w: %s does not match %s", ErrPathMismatch, event.Path, found.pattern)
	}
	event.Params = params

	return found.Handler(ctx, event)
}

// Wait blocks until every dispatched invocation has returned.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) matching(event Event) []registration {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []registration
	for _, reg := range d.triggers {
		if reg.Kind != event.Kind {
			continue
		}
		if _, ok := reg.pattern.Match(event.Path); ok {
			out = append(out, reg)
		}
	}
	return out
}

func stamp(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Kind == "" {
		event.Kind = KindCreated
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	return event
}
