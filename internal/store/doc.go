// Package store persists the interface inventory and the network registry.
//
// The relational layout is a fixed contract shared with other components:
//
//	switches(id, node_name UNIQUE, openflow_id NULL, ip NULL)
//	interfaces(id, name, switch_id FK, network_id FK NULL, pod NULL)
//	networks(id, name, type, UNIQUE(name, type))
//
// Every multi-row mutation runs inside a single transaction. Interface claims
// lock candidate rows with SELECT ... FOR UPDATE and bind them with a
// conditional UPDATE, so two concurrent claims can never bind the same row.
// All names reaching this package are treated as untrusted and only ever
// travel as query parameters.
package store
