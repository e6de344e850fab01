package dispatch

import (
	"fmt"
	"time"
)

// OutcomeKind tags the result of a handler invocation.
type OutcomeKind int

const (
	// OutcomeDone means the event is fully handled.
	OutcomeDone OutcomeKind = iota
	// OutcomeRequeue means a precondition is not met yet; run again after a delay.
	OutcomeRequeue
	// OutcomePermanent means the event can never succeed; stop retrying.
	OutcomePermanent
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDone:
		return "done"
	case OutcomeRequeue:
		return "requeue"
	case OutcomePermanent:
		return "permanent"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the tagged result of a handler.
type Outcome struct {
	Kind OutcomeKind
	// After is the requeue delay for OutcomeRequeue.
	After time.Duration
	// Reason is a CamelCase reason for OutcomePermanent, used on events and conditions.
	Reason string
	// Err describes an OutcomePermanent failure.
	Err error
}

// Done reports the event as handled.
func Done() Outcome {
	return Outcome{Kind: OutcomeDone}
}

// RequeueAfter asks for the event to be handled again after d.
func RequeueAfter(d time.Duration) Outcome {
	return Outcome{Kind: OutcomeRequeue, After: d}
}

// Permanent reports a failure that retrying cannot fix.
func Permanent(reason string, err error) Outcome {
	return Outcome{Kind: OutcomePermanent, Reason: reason, Err: err}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeRequeue:
		return fmt.Sprintf("requeue after %s", o.After)
	case OutcomePermanent:
		return fmt.Sprintf("permanent %s: %v", o.Reason, o.Err)
	default:
		return o.Kind.String()
	}
}
