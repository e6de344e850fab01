// Package labels holds the label and annotation keys the operator reads and
// writes on pods.
//
// Keys use the l2net.io domain prefix. The assignment annotation written for
// the CNI meta-plugin uses the Multus key so existing delegation keeps working.
package labels
