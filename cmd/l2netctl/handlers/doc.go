// Package handlers implements the l2netctl commands.
//
// Handlers read the interface inventory and network registry straight from
// the database the operator writes to, and render them as a table, YAML or
// JSON. They never modify bindings. [DBInit] only applies the schema, and
// [Export] only writes snapshots to object storage.
package handlers
