package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"

	nettypes "github.com/k8snetworkplumbingwg/network-attachment-definition-client/pkg/apis/k8s.cni.cncf.io/v1"
	"github.com/samber/lo"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/l2net/api/v1alpha1"
	"github.com/imamik/l2net/internal/operator/dispatch"
	"github.com/imamik/l2net/internal/platform/sdn"
	"github.com/imamik/l2net/internal/store"
	"github.com/imamik/l2net/internal/util/labels"
)

// selectNetworks keeps the requests naming an attachable L2Network of the
// pod's namespace, in request order. Unknown names are left to other
// controllers.
func selectNetworks(requests []*nettypes.NetworkSelectionElement, networks []v1alpha1.L2Network) ([]*nettypes.NetworkSelectionElement, []store.NetworkRef) {
	byName := lo.SliceToMap(networks, func(n v1alpha1.L2Network) (string, v1alpha1.L2Network) {
		return n.Name, n
	})

	var selected []*nettypes.NetworkSelectionElement
	var refs []store.NetworkRef
	for _, req := range requests {
		n, ok := byName[req.Name]
		if !ok || !n.Spec.Type.Attachable() {
			continue
		}
		selected = append(selected, req)
		refs = append(refs, networkRef(&n))
	}
	return selected, refs
}

// AttachPod claims one free interface on the pod's node per requested
// network, binds each port on the SDN controller and records the assignment
// on the pod and the networks.
//
// Claims are committed before the SDN calls. When a call fails the claims
// stay and the retry picks them up again instead of claiming new ones.
func (e *Engine) AttachPod(ctx context.Context, ev dispatch.Event) (dispatch.Outcome, error) {
	logger := log.FromContext(ctx)

	pod, err := e.currentPod(ctx, ev)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if pod == nil {
		return dispatch.Done(), nil
	}

	requests, err := parseNetworkRequest(pod.Annotations[labels.AnnotationNetworks])
	if err != nil {
		return dispatch.Permanent(ReasonMalformedAnnotation, err), nil
	}
	if len(requests) == 0 {
		return dispatch.Done(), nil
	}

	networks, err := e.resources.ListNetworks(ctx, pod.Namespace)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	selected, refs := selectNetworks(requests, networks)
	if len(selected) == 0 {
		logger.V(1).Info("no requested network is managed here", "requested", len(requests))
		return dispatch.Done(), nil
	}

	node := pod.Spec.NodeName
	if node == "" {
		logger.V(1).Info("pod not scheduled yet")
		return dispatch.RequeueAfter(e.unscheduledRequeue), nil
	}

	// a node without a registered switch has no pool to claim from yet
	sw, err := e.store.GetSwitch(ctx, node)
	if errors.Is(err, store.ErrSwitchNotFound) {
		logger.V(1).Info("switch not registered yet", "node", node)
		return dispatch.RequeueAfter(e.switchUnconnectedRequeue), nil
	}
	if err != nil {
		return dispatch.Outcome{}, err
	}

	key := store.PodKey(pod.Namespace, pod.Name)
	bindings, err := e.store.PodBindings(ctx, key)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if lo.ContainsBy(bindings, func(b store.Binding) bool { return b.NodeName != node }) {
		// an earlier pod of the same name ran on another node and was never detached
		if err := e.releaseStale(ctx, key, node); err != nil {
			return dispatch.Outcome{}, err
		}
		bindings = nil
	}
	if len(bindings) == 0 {
		bindings, err = e.store.ClaimInterfaces(ctx, node, key, refs)
		switch {
		case errors.Is(err, store.ErrNodeExhausted):
			return dispatch.Permanent(ReasonNodeExhausted, err), nil
		case errors.Is(err, store.ErrNotFound):
			return dispatch.Permanent(ReasonUnknownNetwork, err), nil
		case err != nil:
			return dispatch.Outcome{}, fmt.Errorf("claim interfaces: %w", err)
		}
		logger.Info("claimed interfaces", "node", node, "interfaces", interfacesAnnotation(bindings))
		for _, b := range bindings {
			e.recordAttachment(b.NetworkName)
		}
		e.recordFreeInterfaces(ctx, node)
	} else {
		logger.V(1).Info("reusing interfaces claimed earlier", "interfaces", interfacesAnnotation(bindings))
	}

	if pod.Annotations[labels.AnnotationInterfaces] == interfacesAnnotation(bindings) {
		logger.V(1).Info("assignment already recorded")
	} else if outcome, err := e.bindPorts(ctx, pod, sw, bindings, selected); err != nil || outcome.Kind != dispatch.OutcomeDone {
		return outcome, err
	}

	for _, name := range lo.Uniq(lo.Map(bindings, func(b store.Binding, _ int) string { return b.NetworkName })) {
		if err := e.resources.AddConnectedPod(ctx, pod.Namespace, name, pod.Name); err != nil {
			return dispatch.Outcome{}, err
		}
	}

	logger.Info("attached pod", "node", node, "interfaces", interfacesAnnotation(bindings))
	return dispatch.Done(), nil
}

// releaseStale frees the interfaces key still holds outside node.
func (e *Engine) releaseStale(ctx context.Context, key, node string) error {
	released, err := e.store.ReleasePod(ctx, key)
	if err != nil {
		return fmt.Errorf("release stale interfaces of %s: %w", key, err)
	}
	log.FromContext(ctx).Info("released interfaces left on another node", "interfaces", interfacesAnnotation(released))
	e.recordReleased("stale", len(released))
	for _, n := range lo.Uniq(lo.Map(released, func(b store.Binding, _ int) string { return b.NodeName })) {
		if n != node {
			e.recordFreeInterfaces(ctx, n)
		}
	}
	return nil
}

// bindPorts pushes every binding to the SDN controller and then records the
// assignment on the pod. A Done outcome means both steps completed.
func (e *Engine) bindPorts(ctx context.Context, pod *corev1.Pod, sw *store.Switch, bindings []store.Binding, requests []*nettypes.NetworkSelectionElement) (dispatch.Outcome, error) {
	logger := log.FromContext(ctx)

	deviceID, found, err := e.resolveDevice(ctx, sw)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if !found {
		logger.V(1).Info("switch not connected to the SDN controller yet", "node", sw.NodeName)
		return dispatch.RequeueAfter(e.switchUnconnectedRequeue), nil
	}

	for _, b := range bindings {
		port, err := b.Port()
		if err != nil {
			return dispatch.Permanent(ReasonInvalidInterface, err), nil
		}
		if err := e.gateway.AttachPort(ctx, b.NetworkName, deviceID, port); err != nil {
			if sdn.IsClientError(err) {
				return dispatch.Permanent(ReasonAttachRejected, err), nil
			}
			return dispatch.Outcome{}, err
		}
		logger.V(1).Info("bound port", "network", b.NetworkName, "endpoint", sdn.Endpoint(deviceID, port))
	}

	assignment, err := multusAnnotation(pod.Annotations[labels.AnnotationMultusNetworks], bindings, requests)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if err := e.resources.PatchPodAnnotations(ctx, pod, map[string]string{
		labels.AnnotationMultusNetworks: assignment,
		labels.AnnotationInterfaces:     interfacesAnnotation(bindings),
	}); err != nil {
		return dispatch.Outcome{}, err
	}
	return dispatch.Done(), nil
}

// DetachPod releases every interface bound to a deleted pod and removes the
// pod from the connected pods of its networks. Status cleanup is best effort.
// A delete that arrives after the pod was recreated under the same name
// leaves the bindings to the new pod.
func (e *Engine) DetachPod(ctx context.Context, ev dispatch.Event) (dispatch.Outcome, error) {
	logger := log.FromContext(ctx)

	pod, ok := ev.Object.(*corev1.Pod)
	if !ok {
		return dispatch.Done(), nil
	}

	if live, err := e.resources.GetPod(ctx, pod.Namespace, pod.Name); err == nil && live.UID != pod.UID {
		logger.Info("pod was recreated, keeping its interfaces")
		return dispatch.Done(), nil
	}

	key := store.PodKey(pod.Namespace, pod.Name)
	released, err := e.store.ReleasePod(ctx, key)
	if err != nil {
		return dispatch.Outcome{}, fmt.Errorf("release interfaces of %s: %w", key, err)
	}
	if len(released) > 0 {
		logger.Info("released interfaces", "interfaces", interfacesAnnotation(released))
	}
	e.recordReleased("pod-deleted", len(released))

	names := lo.Map(released, func(b store.Binding, _ int) string { return b.NetworkName })
	if networks, err := e.resources.ListNetworks(ctx, pod.Namespace); err != nil {
		logger.Error(err, "failed to list networks for status cleanup")
	} else {
		for _, n := range networks {
			if slices.Contains(n.Status.ConnectedPods, pod.Name) {
				names = append(names, n.Name)
			}
		}
	}

	for _, name := range lo.Uniq(names) {
		if err := e.resources.RemoveConnectedPod(ctx, pod.Namespace, name, pod.Name); err != nil {
			logger.Error(err, "failed to remove pod from network status", "network", name)
		}
	}

	nodes := lo.Uniq(lo.Map(released, func(b store.Binding, _ int) string { return b.NodeName }))
	for _, node := range nodes {
		e.recordFreeInterfaces(ctx, node)
	}
	return dispatch.Done(), nil
}
