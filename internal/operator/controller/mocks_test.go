package controller

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/imamik/l2net/internal/store"
)

// MockGateway is a mock implementation of Gateway for testing.
type MockGateway struct {
	mu sync.Mutex

	// Configurable responses
	FindDeviceByAddressFunc func(ctx context.Context, addr string) (string, bool, error)
	NetworkExistsFunc       func(ctx context.Context, name string) (bool, error)
	CreateNetworkFunc       func(ctx context.Context, name string) error
	DeleteNetworkFunc       func(ctx context.Context, name string) error
	AttachPortFunc          func(ctx context.Context, network, deviceID string, port int) error

	// Call tracking
	FindDeviceByAddressCalls []string
	NetworkExistsCalls       []string
	CreateNetworkCalls       []string
	DeleteNetworkCalls       []string
	AttachPortCalls          []AttachPortCall
}

// AttachPortCall tracks arguments to AttachPort.
type AttachPortCall struct {
	Network  string
	DeviceID string
	Port     int
}

func (m *MockGateway) FindDeviceByAddress(ctx context.Context, addr string) (string, bool, error) {
	m.mu.Lock()
	m.FindDeviceByAddressCalls = append(m.FindDeviceByAddressCalls, addr)
	m.mu.Unlock()

	if m.FindDeviceByAddressFunc != nil {
		return m.FindDeviceByAddressFunc(ctx, addr)
	}
	return "of:" + addr, true, nil
}

func (m *MockGateway) NetworkExists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	m.NetworkExistsCalls = append(m.NetworkExistsCalls, name)
	m.mu.Unlock()

	if m.NetworkExistsFunc != nil {
		return m.NetworkExistsFunc(ctx, name)
	}
	return false, nil
}

func (m *MockGateway) CreateNetwork(ctx context.Context, name string) error {
	m.mu.Lock()
	m.CreateNetworkCalls = append(m.CreateNetworkCalls, name)
	m.mu.Unlock()

	if m.CreateNetworkFunc != nil {
		return m.CreateNetworkFunc(ctx, name)
	}
	return nil
}

func (m *MockGateway) DeleteNetwork(ctx context.Context, name string) error {
	m.mu.Lock()
	m.DeleteNetworkCalls = append(m.DeleteNetworkCalls, name)
	m.mu.Unlock()

	if m.DeleteNetworkFunc != nil {
		return m.DeleteNetworkFunc(ctx, name)
	}
	return nil
}

func (m *MockGateway) AttachPort(ctx context.Context, network, deviceID string, port int) error {
	m.mu.Lock()
	m.AttachPortCalls = append(m.AttachPortCalls, AttachPortCall{Network: network, DeviceID: deviceID, Port: port})
	m.mu.Unlock()

	if m.AttachPortFunc != nil {
		return m.AttachPortFunc(ctx, network, deviceID, port)
	}
	return nil
}

func (m *MockGateway) attachCalls() []AttachPortCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AttachPortCall(nil), m.AttachPortCalls...)
}

// memInterface is one row of the in-memory interface table. Zero networkID
// and empty pod mean unbound.
type memInterface struct {
	id        int64
	name      string
	switchID  int64
	networkID int64
	pod       string
}

func (i *memInterface) free() bool {
	return i.networkID == 0 && i.pod == ""
}

// memStore is an in-memory Store with the same claim, release and cascade
// semantics as the MySQL implementation.
type memStore struct {
	mu     sync.Mutex
	nextID int64

	switches   map[string]*store.Switch
	interfaces []*memInterface
	networks   map[store.NetworkRef]*store.Network

	// ClaimErr, when set, is returned by ClaimInterfaces before any change.
	ClaimErr error
}

var _ Store = &memStore{}

func newMemStore() *memStore {
	return &memStore{
		switches: make(map[string]*store.Switch),
		networks: make(map[store.NetworkRef]*store.Network),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) switchByID(id int64) *store.Switch {
	for _, sw := range s.switches {
		if sw.ID == id {
			return sw
		}
	}
	return nil
}

func (s *memStore) networkByID(id int64) *store.Network {
	for _, n := range s.networks {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (s *memStore) binding(i *memInterface) store.Binding {
	b := store.Binding{
		InterfaceID:   i.id,
		InterfaceName: i.name,
		SwitchID:      i.switchID,
		NetworkID:     i.networkID,
		Pod:           i.pod,
	}
	if sw := s.switchByID(i.switchID); sw != nil {
		b.NodeName = sw.NodeName
	}
	if n := s.networkByID(i.networkID); n != nil {
		b.NetworkName = n.Name
		b.NetworkType = n.Type
	}
	return b
}

func (s *memStore) RegisterSwitch(_ context.Context, node string, count int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.switches[node]; ok {
		return false, nil
	}
	sw := &store.Switch{ID: s.id(), NodeName: node}
	s.switches[node] = sw
	for n := 1; n <= count; n++ {
		s.interfaces = append(s.interfaces, &memInterface{id: s.id(), name: store.InterfaceName(n), switchID: sw.ID})
	}
	return true, nil
}

func (s *memStore) UpdateSwitchIP(_ context.Context, node, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.switches[node]
	if !ok {
		return false, store.ErrSwitchNotFound
	}
	if sw.IP.Valid && sw.IP.String == ip {
		return false, nil
	}
	sw.IP = sql.NullString{String: ip, Valid: true}
	sw.OpenflowID = sql.NullString{}
	return true, nil
}

func (s *memStore) GetSwitch(_ context.Context, node string) (*store.Switch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.switches[node]
	if !ok {
		return nil, store.ErrSwitchNotFound
	}
	out := *sw
	return &out, nil
}

func (s *memStore) CacheSwitchDevice(_ context.Context, switchID int64, ip, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sw := s.switchByID(switchID); sw != nil && sw.IP.String == ip {
		sw.OpenflowID = sql.NullString{String: deviceID, Valid: true}
	}
	return nil
}

func (s *memStore) DeleteSwitch(_ context.Context, node string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.switches[node]
	if !ok {
		return 0, nil
	}
	var kept []*memInterface
	var removed int64
	for _, i := range s.interfaces {
		if i.switchID == sw.ID {
			removed++
			continue
		}
		kept = append(kept, i)
	}
	s.interfaces = kept
	delete(s.switches, node)
	return removed, nil
}

func (s *memStore) RegisterNetwork(ctx context.Context, ref store.NetworkRef, provision func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if provision != nil {
		if err := provision(ctx); err != nil {
			return err
		}
	}
	if _, ok := s.networks[ref]; !ok {
		s.networks[ref] = &store.Network{ID: s.id(), Name: ref.Name, Type: ref.Type}
	}
	return nil
}

func (s *memStore) DeleteNetwork(ctx context.Context, ref store.NetworkRef, teardown func(context.Context) error) ([]store.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var released []store.Binding
	var bound []*memInterface
	if n, ok := s.networks[ref]; ok {
		for _, i := range s.interfaces {
			if i.networkID == n.ID {
				released = append(released, s.binding(i))
				bound = append(bound, i)
			}
		}
	}
	if teardown != nil {
		if err := teardown(ctx); err != nil {
			return nil, err
		}
	}
	for _, i := range bound {
		i.networkID, i.pod = 0, ""
	}
	delete(s.networks, ref)
	return released, nil
}

func (s *memStore) ClaimInterfaces(_ context.Context, node, pod string, networks []store.NetworkRef) ([]store.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ClaimErr != nil {
		return nil, s.ClaimErr
	}
	if len(networks) == 0 {
		return nil, nil
	}

	resolved := make([]*store.Network, 0, len(networks))
	for _, ref := range networks {
		n, ok := s.networks[ref]
		if !ok {
			return nil, fmt.Errorf("network %s: %w", ref, store.ErrNotFound)
		}
		resolved = append(resolved, n)
	}

	sw, ok := s.switches[node]
	var free []*memInterface
	if ok {
		for _, i := range s.interfaces {
			if i.switchID == sw.ID && i.free() {
				free = append(free, i)
			}
		}
	}
	sort.Slice(free, func(a, b int) bool { return free[a].id < free[b].id })
	if len(free) < len(networks) {
		return nil, fmt.Errorf("%w: node %s has %d free, %d requested", store.ErrNodeExhausted, node, len(free), len(networks))
	}

	claimed := make([]store.Binding, 0, len(networks))
	for idx, n := range resolved {
		free[idx].networkID = n.ID
		free[idx].pod = pod
		claimed = append(claimed, s.binding(free[idx]))
	}
	return claimed, nil
}

func (s *memStore) PodBindings(_ context.Context, pod string) ([]store.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Binding
	for _, i := range s.interfaces {
		if i.pod == pod {
			out = append(out, s.binding(i))
		}
	}
	return out, nil
}

func (s *memStore) ReleasePod(_ context.Context, pod string) ([]store.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var released []store.Binding
	for _, i := range s.interfaces {
		if i.pod == pod {
			released = append(released, s.binding(i))
			i.networkID, i.pod = 0, ""
		}
	}
	return released, nil
}

func (s *memStore) CountFreeInterfaces(_ context.Context, node string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.switches[node]
	if !ok {
		return 0, nil
	}
	n := 0
	for _, i := range s.interfaces {
		if i.switchID == sw.ID && i.free() {
			n++
		}
	}
	return n, nil
}

// Test inspection helpers

func (s *memStore) interfacesOf(node string) []store.Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw, ok := s.switches[node]
	if !ok {
		return nil
	}
	var out []store.Binding
	for _, i := range s.interfaces {
		if i.switchID == sw.ID {
			out = append(out, s.binding(i))
		}
	}
	return out
}

func (s *memStore) hasNetwork(ref store.NetworkRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.networks[ref]
	return ok
}

func (s *memStore) switchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.switches)
}

// halfBound returns the interfaces where exactly one of network and pod is set.
func (s *memStore) halfBound() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for _, i := range s.interfaces {
		if (i.networkID == 0) != (i.pod == "") {
			out = append(out, i.id)
		}
	}
	return out
}
