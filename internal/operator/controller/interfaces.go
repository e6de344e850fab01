package controller

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/imamik/l2net/api/v1alpha1"
	"github.com/imamik/l2net/internal/store"
)

// Store is the interface inventory and network registry.
// This interface enables testing with an in-memory fake.
type Store interface {
	// Switch operations
	RegisterSwitch(ctx context.Context, node string, count int) (bool, error)
	UpdateSwitchIP(ctx context.Context, node, ip string) (bool, error)
	GetSwitch(ctx context.Context, node string) (*store.Switch, error)
	CacheSwitchDevice(ctx context.Context, switchID int64, ip, deviceID string) error
	DeleteSwitch(ctx context.Context, node string) (int64, error)

	// Network operations
	RegisterNetwork(ctx context.Context, ref store.NetworkRef, provision func(context.Context) error) error
	DeleteNetwork(ctx context.Context, ref store.NetworkRef, teardown func(context.Context) error) ([]store.Binding, error)

	// Interface operations
	ClaimInterfaces(ctx context.Context, node, pod string, networks []store.NetworkRef) ([]store.Binding, error)
	PodBindings(ctx context.Context, pod string) ([]store.Binding, error)
	ReleasePod(ctx context.Context, pod string) ([]store.Binding, error)
	CountFreeInterfaces(ctx context.Context, node string) (int, error)
}

// Gateway is the SDN controller surface the engine uses.
type Gateway interface {
	FindDeviceByAddress(ctx context.Context, addr string) (string, bool, error)
	NetworkExists(ctx context.Context, name string) (bool, error)
	CreateNetwork(ctx context.Context, name string) error
	DeleteNetwork(ctx context.Context, name string) error
	AttachPort(ctx context.Context, network, deviceID string, port int) error
}

// Resources reads and patches pods and L2Network resources.
type Resources interface {
	GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error)
	ListNetworks(ctx context.Context, namespace string) ([]v1alpha1.L2Network, error)
	PatchPodAnnotations(ctx context.Context, pod *corev1.Pod, annotations map[string]string) error
	AddConnectedPod(ctx context.Context, namespace, network, pod string) error
	RemoveConnectedPod(ctx context.Context, namespace, network, pod string) error
	SetNetworkCondition(ctx context.Context, namespace, network string, cond metav1.Condition) error
}
