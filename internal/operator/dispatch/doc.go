// Package dispatch routes Kubernetes watch events to handler functions.
//
// Routing is a plain table: each Route names the object kind, the event
// types and a predicate over the object it applies to. Every matching route
// turns a watch event into its own queue item, so one pod event can feed
// several handlers. Items carry the observed object, which keeps the final
// state of deleted objects available to their handlers.
//
// Handlers return a tagged Outcome (done, requeue after a delay, permanent
// failure) or a transient error. Transient errors are retried with
// exponential backoff up to a fixed budget, after which they become terminal
// like a permanent failure. Terminal failures are reported as Warning events
// on the triggering object.
//
// Handlers sharing a lock key (a node's interface pool or a network row) never
// run concurrently; unrelated events proceed on parallel workers.
package dispatch
