package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSwitchNotFound is returned when no switch is registered for a node.
	ErrSwitchNotFound = errors.New("switch not registered")

	// ErrNodeExhausted is returned when a node has fewer free interfaces than requested.
	ErrNodeExhausted = errors.New("node has no free interfaces left")

	// ErrClaimConflict is returned when a locked free interface was bound by someone else
	// before the claim could complete. The whole claim is rolled back.
	ErrClaimConflict = errors.New("interface claimed concurrently")
)

// Switch is the dataplane switch running on one cluster node.
type Switch struct {
	ID       int64  `db:"id" json:"id"`
	NodeName string `db:"node_name" json:"nodeName"`
	// OpenflowID caches the SDN device identifier. It is cleared whenever IP changes.
	OpenflowID sql.NullString `db:"openflow_id" json:"-"`
	IP         sql.NullString `db:"ip" json:"-"`
}

// DeviceID returns the cached SDN device identifier, if any.
func (s Switch) DeviceID() (string, bool) {
	if !s.OpenflowID.Valid || s.OpenflowID.String == "" {
		return "", false
	}
	return s.OpenflowID.String, true
}

// Address returns the management address of the switch, if known.
func (s Switch) Address() (string, bool) {
	if !s.IP.Valid || s.IP.String == "" {
		return "", false
	}
	return s.IP.String, true
}

// Network is a logical overlay network.
type Network struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Type string `db:"type" json:"type"`
}

// NetworkRef identifies a network by its unique (name, type) pair.
type NetworkRef struct {
	Name string
	Type string
}

func (r NetworkRef) String() string {
	return r.Type + "/" + r.Name
}

// PodKey identifies a pod in the interface table as namespace/name.
func PodKey(namespace, name string) string {
	return namespace + "/" + name
}

// Binding is an interface bound to a (network, pod) pair, with the context
// needed to program the SDN controller.
type Binding struct {
	InterfaceID   int64  `db:"interface_id" json:"interfaceId"`
	InterfaceName string `db:"interface_name" json:"interface"`
	SwitchID      int64  `db:"switch_id" json:"switchId"`
	NodeName      string `db:"node_name" json:"node"`
	NetworkID     int64  `db:"network_id" json:"networkId"`
	NetworkName   string `db:"network_name" json:"network"`
	NetworkType   string `db:"network_type" json:"networkType"`
	// Pod is the namespace/name key of the bound pod.
	Pod           string `db:"pod" json:"pod"`
}

// Port derives the numeric switch port from the trailing digits of the
// interface name (veth7 -> 7).
func (b Binding) Port() (int, error) {
	return PortNumber(b.InterfaceName)
}

// PortNumber returns the trailing decimal digits of an interface name.
func PortNumber(name string) (int, error) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return 0, fmt.Errorf("interface name %q has no numeric suffix", name)
	}
	return strconv.Atoi(name[i:])
}

// InterfaceName returns the name of the n-th provisioned interface (1-based).
func InterfaceName(n int) string {
	return "veth" + strconv.Itoa(n)
}

// InterfaceRow is an interface joined with its switch and network, used for
// inventory listings.
type InterfaceRow struct {
	ID          int64          `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	NodeName    string         `db:"node_name" json:"node"`
	NetworkName sql.NullString `db:"network_name" json:"-"`
	Pod         sql.NullString `db:"pod" json:"-"`
}
