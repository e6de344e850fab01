package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Handler processes one event. A non-nil error is transient and retried
// with backoff; permanent failures are reported through the Outcome.
type Handler func(ctx context.Context, ev Event) (Outcome, error)

// Predicate filters events for a route. A nil predicate matches everything.
type Predicate func(ev Event) bool

// LockKeyFunc returns the key serializing the event's handler with other
// handlers touching the same state. An empty key takes no lock.
type LockKeyFunc func(ev Event) string

// FailureHook runs after a terminal failure, e.g. to set a status condition.
type FailureHook func(ctx context.Context, ev Event, reason string, err error)

// Route maps (kind, event types, predicate) to a handler.
type Route struct {
	Name      string
	Kind      Kind
	Events    []EventType
	Predicate Predicate
	LockKey   LockKeyFunc
	Handler   Handler
	OnFailure FailureHook
}

func (r *Route) matches(kind Kind, ev Event) bool {
	if r.Kind != kind || !slices.Contains(r.Events, ev.Type) {
		return false
	}
	return r.Predicate == nil || r.Predicate(ev)
}

func (r *Route) lockKey(ev Event) string {
	if r.LockKey == nil {
		return ""
	}
	return r.LockKey(ev)
}

// Table is an ordered, immutable set of routes.
type Table struct {
	routes []*Route
	byName map[string]*Route
}

// NewTable validates routes and builds a table. Route names must be unique.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{byName: make(map[string]*Route, len(routes))}
	var errs []error
	for i := range routes {
		r := routes[i]
		switch {
		case r.Name == "":
			errs = append(errs, fmt.Errorf("route %d has no name", i))
			continue
		case r.Handler == nil:
			errs = append(errs, fmt.Errorf("route %s has no handler", r.Name))
		case len(r.Events) == 0:
			errs = append(errs, fmt.Errorf("route %s has no event types", r.Name))
		case r.Kind != KindPod && r.Kind != KindNetwork:
			errs = append(errs, fmt.Errorf("route %s watches unsupported kind %q", r.Name, r.Kind))
		}
		if _, dup := t.byName[r.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate route %s", r.Name))
			continue
		}
		t.routes = append(t.routes, &r)
		t.byName[r.Name] = &r
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, nil
}

// Match returns the names of the routes accepting ev, in table order.
func (t *Table) Match(kind Kind, ev Event) []string {
	var names []string
	for _, r := range t.routes {
		if r.matches(kind, ev) {
			names = append(names, r.Name)
		}
	}
	return names
}

// Route looks up a route by name.
func (t *Table) Route(name string) (*Route, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// Kinds returns the distinct kinds watched by the table.
func (t *Table) Kinds() []Kind {
	var kinds []Kind
	for _, r := range t.routes {
		if !slices.Contains(kinds, r.Kind) {
			kinds = append(kinds, r.Kind)
		}
	}
	return kinds
}

// Routes returns the routes in table order.
func (t *Table) Routes() []Route {
	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, *r)
	}
	return out
}
