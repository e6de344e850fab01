// Package tui provides a Bubble Tea dashboard that follows the interface
// inventory and the health of the operator's dependencies.
package tui

// Check is the result of one dependency check.
type Check struct {
	Name    string
	Target  string
	OK      bool
	Err     string
	Latency string
}

// NodeUsage is the interface pool of one node.
type NodeUsage struct {
	Node  string
	Free  int
	Total int
}

// StatusMsg carries a freshly fetched status.
type StatusMsg struct {
	Checks   []Check
	Nodes    []NodeUsage
	Networks int
	FetchErr string
}

// TickMsg is sent periodically to animate the display.
type TickMsg struct{}

// ErrMsg carries an error that ends the program.
type ErrMsg struct{ Err error }
