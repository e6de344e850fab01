package controller

import (
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/imamik/l2net/api/v1alpha1"
	"github.com/imamik/l2net/internal/operator/dispatch"
	"github.com/imamik/l2net/internal/util/labels"
)

const (
	defaultInterfacesPerSwitch      = 10
	defaultUnscheduledRequeue       = 5 * time.Second
	defaultSwitchUnconnectedRequeue = 10 * time.Second
)

// Route names
const (
	RouteSwitchRegister   = "switch-register"
	RouteSwitchAddress    = "switch-address"
	RouteSwitchDeregister = "switch-deregister"
	RouteNetworkRegister  = "network-register"
	RouteNetworkDelete    = "network-delete"
	RoutePodAttach        = "pod-attach"
	RoutePodDetach        = "pod-detach"
)

// Reasons used on events and conditions for permanent failures.
const (
	ReasonMalformedAnnotation  = "MalformedAnnotation"
	ReasonNodeExhausted        = "NodeExhausted"
	ReasonUnknownNetwork       = "UnknownNetwork"
	ReasonInvalidNetworkType   = "InvalidNetworkType"
	ReasonProvisioningRejected = "ProvisioningRejected"
	ReasonAttachRejected       = "AttachRejected"
	ReasonInvalidInterface     = "InvalidInterface"
	ReasonRegistered           = "Registered"
	ReasonProvisioned          = "Provisioned"
	ReasonNotRequired          = "NotRequired"
)

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithInterfacesPerSwitch sets how many interfaces a new switch gets.
func WithInterfacesPerSwitch(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.interfacesPerSwitch = n
		}
	}
}

// WithRequeueDelays sets the delays for unscheduled pods and for switches
// the SDN controller does not know yet.
func WithRequeueDelays(unscheduled, switchUnconnected time.Duration) Option {
	return func(e *Engine) {
		if unscheduled > 0 {
			e.unscheduledRequeue = unscheduled
		}
		if switchUnconnected > 0 {
			e.switchUnconnectedRequeue = switchUnconnected
		}
	}
}

// WithMetrics enables or disables Prometheus metrics recording.
func WithMetrics(enabled bool) Option {
	return func(e *Engine) {
		e.enableMetrics = enabled
	}
}

// Engine holds the handlers and their collaborators. The collaborators are
// constructed once at startup and shared by every handler invocation.
type Engine struct {
	store     Store
	gateway   Gateway
	resources Resources

	interfacesPerSwitch      int
	unscheduledRequeue       time.Duration
	switchUnconnectedRequeue time.Duration
	enableMetrics            bool
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(st Store, gw Gateway, res Resources, opts ...Option) *Engine {
	e := &Engine{
		store:                    st,
		resources:                res,
		interfacesPerSwitch:      defaultInterfacesPerSwitch,
		unscheduledRequeue:       defaultUnscheduledRequeue,
		switchUnconnectedRequeue: defaultSwitchUnconnectedRequeue,
		enableMetrics:            true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.gateway = &instrumentedGateway{Gateway: gw, enabled: e.enableMetrics}
	return e
}

// Routes returns the dispatch table entries for every handler.
func (e *Engine) Routes() []dispatch.Route {
	return []dispatch.Route{
		{
			Name:      RouteSwitchRegister,
			Kind:      dispatch.KindPod,
			Events:    []dispatch.EventType{dispatch.EventCreate},
			Predicate: isSwitchPod,
			LockKey:   nodeLockKey,
			Handler:   e.RegisterSwitch,
		},
		{
			Name:      RouteSwitchAddress,
			Kind:      dispatch.KindPod,
			Events:    []dispatch.EventType{dispatch.EventUpdate},
			Predicate: switchAddressChanged,
			LockKey:   nodeLockKey,
			Handler:   e.UpdateSwitchAddress,
		},
		{
			Name:      RouteSwitchDeregister,
			Kind:      dispatch.KindPod,
			Events:    []dispatch.EventType{dispatch.EventDelete},
			Predicate: isSwitchPod,
			LockKey:   nodeLockKey,
			Handler:   e.DeregisterSwitch,
		},
		{
			Name:      RouteNetworkRegister,
			Kind:      dispatch.KindNetwork,
			Events:    []dispatch.EventType{dispatch.EventCreate},
			LockKey:   networkLockKey,
			Handler:   e.RegisterNetwork,
			OnFailure: e.markNetworkFailed,
		},
		{
			Name:    RouteNetworkDelete,
			Kind:    dispatch.KindNetwork,
			Events:  []dispatch.EventType{dispatch.EventDelete},
			LockKey: networkLockKey,
			Handler: e.DeleteNetwork,
		},
		{
			Name:      RoutePodAttach,
			Kind:      dispatch.KindPod,
			Events:    []dispatch.EventType{dispatch.EventCreate},
			Predicate: requestsAttachment,
			LockKey:   nodeLockKey,
			Handler:   e.AttachPod,
		},
		{
			Name:      RoutePodDetach,
			Kind:      dispatch.KindPod,
			Events:    []dispatch.EventType{dispatch.EventDelete},
			Predicate: requestsAttachment,
			LockKey:   nodeLockKey,
			Handler:   e.DetachPod,
		},
	}
}

// Table builds the dispatch table for the engine's routes.
func (e *Engine) Table() (*dispatch.Table, error) {
	return dispatch.NewTable(e.Routes()...)
}

func isSwitchPod(ev dispatch.Event) bool {
	return labels.IsSwitch(ev.Object.GetLabels())
}

func requestsAttachment(ev dispatch.Event) bool {
	return !labels.IsSwitch(ev.Object.GetLabels()) && labels.HasAttachmentRequest(ev.Object.GetAnnotations())
}

func switchAddressChanged(ev dispatch.Event) bool {
	if !isSwitchPod(ev) {
		return false
	}
	oldPod, ok1 := ev.Old.(*corev1.Pod)
	newPod, ok2 := ev.Object.(*corev1.Pod)
	if !ok1 || !ok2 {
		return false
	}
	return newPod.Status.PodIP != "" && newPod.Status.PodIP != oldPod.Status.PodIP
}

// nodeLockKey serializes handlers sharing a node's interface pool. Pods not
// yet scheduled lock on their own identity.
func nodeLockKey(ev dispatch.Event) string {
	if pod, ok := ev.Object.(*corev1.Pod); ok && pod.Spec.NodeName != "" {
		return "node/" + pod.Spec.NodeName
	}
	return "pod/" + ev.Object.GetNamespace() + "/" + ev.Object.GetName()
}

func networkLockKey(ev dispatch.Event) string {
	return "network/" + ev.Object.GetName()
}

func asNetwork(ev dispatch.Event) (*v1alpha1.L2Network, bool) {
	n, ok := ev.Object.(*v1alpha1.L2Network)
	return n, ok
}
