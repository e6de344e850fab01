package dispatch

import (
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Kind is the kind of object a route watches.
type Kind string

// Watched kinds
const (
	KindPod     Kind = "Pod"
	KindNetwork Kind = "L2Network"
)

// EventType is the kind of watch notification.
type EventType string

// Event types
const (
	EventCreate EventType = "create"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is one watch notification as seen by a handler.
// Old is only set for updates.
type Event struct {
	Type   EventType
	Object client.Object
	Old    client.Object
}

// Request is one queued unit of work: an event bound to the route that
// will handle it. Requests are compared by identity of the observed object,
// so two notifications never collapse into one item.
type Request struct {
	Route string
	Event Event
}

func (r Request) String() string {
	if r.Event.Object == nil {
		return fmt.Sprintf("%s(%s)", r.Route, r.Event.Type)
	}
	return fmt.Sprintf("%s(%s %s)", r.Route, r.Event.Type, client.ObjectKeyFromObject(r.Event.Object))
}
