package controller

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/l2net/api/v1alpha1"
	"github.com/imamik/l2net/internal/operator/dispatch"
	"github.com/imamik/l2net/internal/platform/sdn"
	"github.com/imamik/l2net/internal/store"
)

func validNetworkType(t v1alpha1.NetworkType) bool {
	switch t {
	case v1alpha1.NetworkTypeVnet, v1alpha1.NetworkTypeExtVnet, v1alpha1.NetworkTypeVlink:
		return true
	default:
		return false
	}
}

func networkRef(n *v1alpha1.L2Network) store.NetworkRef {
	return store.NetworkRef{Name: n.Name, Type: string(n.Spec.Type)}
}

// RegisterNetwork upserts the network into the registry. Types the SDN
// controller must hold are created there in the same transaction, so a
// failed create leaves no registry row behind.
func (e *Engine) RegisterNetwork(ctx context.Context, ev dispatch.Event) (dispatch.Outcome, error) {
	logger := log.FromContext(ctx)

	network, ok := asNetwork(ev)
	if !ok {
		return dispatch.Done(), nil
	}
	if !validNetworkType(network.Spec.Type) {
		return dispatch.Permanent(ReasonInvalidNetworkType,
			fmt.Errorf("unsupported network type %q", network.Spec.Type)), nil
	}
	ref := networkRef(network)

	var provision func(context.Context) error
	if network.Spec.Type.RequiresProvisioning() {
		provision = func(ctx context.Context) error {
			exists, err := e.gateway.NetworkExists(ctx, ref.Name)
			if err != nil {
				return err
			}
			if exists {
				logger.V(1).Info("network already present on SDN controller")
				return nil
			}
			return e.gateway.CreateNetwork(ctx, ref.Name)
		}
	}

	if err := e.store.RegisterNetwork(ctx, ref, provision); err != nil {
		if sdn.IsClientError(err) {
			return dispatch.Permanent(ReasonProvisioningRejected, err), nil
		}
		return dispatch.Outcome{}, fmt.Errorf("register network %s: %w", ref, err)
	}
	logger.Info("registered network", "network", ref.String())

	provisioned := metav1.Condition{
		Type:    v1alpha1.ConditionProvisioned,
		Status:  metav1.ConditionTrue,
		Reason:  ReasonProvisioned,
		Message: "network exists on the SDN controller",
	}
	if provision == nil {
		provisioned.Reason = ReasonNotRequired
		provisioned.Message = fmt.Sprintf("type %s holds no SDN controller state", ref.Type)
	}
	if err := e.resources.SetNetworkCondition(ctx, network.Namespace, network.Name, provisioned); err != nil {
		return dispatch.Outcome{}, err
	}
	ready := metav1.Condition{
		Type:    v1alpha1.ConditionReady,
		Status:  metav1.ConditionTrue,
		Reason:  ReasonRegistered,
		Message: "network is registered",
	}
	if err := e.resources.SetNetworkCondition(ctx, network.Namespace, network.Name, ready); err != nil {
		return dispatch.Outcome{}, err
	}
	return dispatch.Done(), nil
}

// DeleteNetwork frees every interface bound to the network and removes its
// registry row. Types held by the SDN controller are torn down there first;
// the store changes only commit when the teardown succeeded or the network
// was already gone.
func (e *Engine) DeleteNetwork(ctx context.Context, ev dispatch.Event) (dispatch.Outcome, error) {
	logger := log.FromContext(ctx)

	network, ok := asNetwork(ev)
	if !ok {
		return dispatch.Done(), nil
	}
	ref := networkRef(network)

	var teardown func(context.Context) error
	if network.Spec.Type.RequiresProvisioning() {
		teardown = func(ctx context.Context) error {
			err := e.gateway.DeleteNetwork(ctx, ref.Name)
			if sdn.IsNotFound(err) {
				logger.V(1).Info("network already absent from SDN controller")
				return nil
			}
			return err
		}
	}

	released, err := e.store.DeleteNetwork(ctx, ref, teardown)
	if err != nil {
		return dispatch.Outcome{}, fmt.Errorf("delete network %s: %w", ref, err)
	}

	logger.Info("deleted network", "network", ref.String(), "releasedInterfaces", len(released))
	e.recordReleased("network-deleted", len(released))
	nodes := make(map[string]bool)
	for _, b := range released {
		logger.V(1).Info("interface released", "node", b.NodeName, "interface", b.InterfaceName, "pod", b.Pod)
		nodes[b.NodeName] = true
	}
	for node := range nodes {
		e.recordFreeInterfaces(ctx, node)
	}
	return dispatch.Done(), nil
}

// markNetworkFailed surfaces a terminal registration failure on the network.
func (e *Engine) markNetworkFailed(ctx context.Context, ev dispatch.Event, reason string, cause error) {
	network, ok := asNetwork(ev)
	if !ok {
		return
	}
	cond := metav1.Condition{
		Type:    v1alpha1.ConditionReady,
		Status:  metav1.ConditionFalse,
		Reason:  reason,
		Message: cause.Error(),
	}
	if err := e.resources.SetNetworkCondition(ctx, network.Namespace, network.Name, cond); err != nil {
		log.FromContext(ctx).Error(err, "failed to set Ready condition")
	}
}
