// Package sdn is a thin REST client for the SDN controller's virtual network
// application.
//
// The controller is an opaque collaborator: this package only knows the
// session probe, device listing, network create/delete/lookup and the
// port-to-network binding call. Reads succeed with 200 and mutations with
// 204; anything else is returned as a *StatusError.
package sdn
