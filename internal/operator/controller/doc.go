// Package controller implements the reconciliation engine binding pod and
// L2Network lifecycle events to the interface inventory, the network registry
// and the SDN controller.
//
// The engine exposes one handler per lifecycle transition and a route table
// wiring them to watch events:
//
//	switch-register    switch pod created      -> switch + N free interfaces
//	switch-address     switch pod IP changed   -> new address, cached device id cleared
//	switch-deregister  switch pod deleted      -> switch and its interfaces removed
//	network-register   L2Network created       -> registry row (+ SDN network)
//	network-delete     L2Network deleted       -> bindings freed, row removed (+ SDN teardown)
//	pod-attach         workload pod created    -> interfaces claimed, ports bound, pod annotated
//	pod-detach         workload pod deleted    -> interfaces released, network status updated
//
// Handlers touching one node's interface pool lock "node/<name>"; handlers
// touching one network row lock "network/<name>".
package controller
