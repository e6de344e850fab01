package controller

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/l2net/internal/k8s"
	"github.com/imamik/l2net/internal/operator/dispatch"
	"github.com/imamik/l2net/internal/store"
)

// currentPod re-reads the pod behind ev so requeued events see the latest
// node assignment and address. It returns nil when the pod is gone or terminating.
func (e *Engine) currentPod(ctx context.Context, ev dispatch.Event) (*corev1.Pod, error) {
	pod, err := e.resources.GetPod(ctx, ev.Object.GetNamespace(), ev.Object.GetName())
	if err != nil {
		if k8s.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if pod.DeletionTimestamp != nil {
		return nil, nil
	}
	return pod, nil
}

// RegisterSwitch records the switch of the node a dataplane pod runs on and
// provisions its free interfaces. Replays are no-ops.
func (e *Engine) RegisterSwitch(ctx context.Context, ev dispatch.Event) (dispatch.Outcome, error) {
	logger := log.FromContext(ctx)

	pod, err := e.currentPod(ctx, ev)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if pod == nil {
		logger.V(1).Info("switch pod is gone, nothing to register")
		return dispatch.Done(), nil
	}

	node := pod.Spec.NodeName
	if node == "" {
		logger.V(1).Info("switch pod not scheduled yet")
		return dispatch.RequeueAfter(e.unscheduledRequeue), nil
	}

	created, err := e.store.RegisterSwitch(ctx, node, e.interfacesPerSwitch)
	if err != nil {
		return dispatch.Outcome{}, fmt.Errorf("register switch for node %s: %w", node, err)
	}
	if created {
		logger.Info("registered switch", "node", node, "interfaces", e.interfacesPerSwitch)
	} else {
		logger.V(1).Info("switch already registered", "node", node)
	}

	if ip, ok := k8s.PodAddress(pod); ok {
		if _, err := e.store.UpdateSwitchIP(ctx, node, ip); err != nil {
			return dispatch.Outcome{}, fmt.Errorf("record switch address: %w", err)
		}
	}

	e.recordFreeInterfaces(ctx, node)
	return dispatch.Done(), nil
}

// UpdateSwitchAddress stores a changed switch address, which also drops the
// cached SDN device identifier.
func (e *Engine) UpdateSwitchAddress(ctx context.Context, ev dispatch.Event) (dispatch.Outcome, error) {
	logger := log.FromContext(ctx)

	pod, err := e.currentPod(ctx, ev)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if pod == nil {
		return dispatch.Done(), nil
	}
	ip, ok := k8s.PodAddress(pod)
	if !ok || pod.Spec.NodeName == "" {
		return dispatch.Done(), nil
	}

	changed, err := e.store.UpdateSwitchIP(ctx, pod.Spec.NodeName, ip)
	if errors.Is(err, store.ErrSwitchNotFound) {
		// registration for this node has not landed yet
		logger.V(1).Info("switch not registered yet", "node", pod.Spec.NodeName)
		return dispatch.RequeueAfter(e.unscheduledRequeue), nil
	}
	if err != nil {
		return dispatch.Outcome{}, fmt.Errorf("update switch address: %w", err)
	}
	if changed {
		logger.Info("switch address changed, device id invalidated", "node", pod.Spec.NodeName, "ip", ip)
	}
	return dispatch.Done(), nil
}

// DeregisterSwitch removes the switch of a deleted dataplane pod together
// with all of its interfaces. Pods still bound there lose their SDN ports
// with the node.
func (e *Engine) DeregisterSwitch(ctx context.Context, ev dispatch.Event) (dispatch.Outcome, error) {
	pod, ok := ev.Object.(*corev1.Pod)
	if !ok || pod.Spec.NodeName == "" {
		return dispatch.Done(), nil
	}
	node := pod.Spec.NodeName

	removed, err := e.store.DeleteSwitch(ctx, node)
	if err != nil {
		return dispatch.Outcome{}, fmt.Errorf("deregister switch for node %s: %w", node, err)
	}
	log.FromContext(ctx).Info("deregistered switch", "node", node, "interfaces", removed)
	e.forgetNode(node)
	return dispatch.Done(), nil
}

// resolveDevice returns the SDN device identifier of sw, looking it up by
// management address and caching it when not known. found is false while the
// switch has no address or the controller has not seen it yet.
func (e *Engine) resolveDevice(ctx context.Context, sw *store.Switch) (string, bool, error) {
	if id, ok := sw.DeviceID(); ok {
		return id, true, nil
	}
	ip, ok := sw.Address()
	if !ok {
		return "", false, nil
	}

	id, found, err := e.gateway.FindDeviceByAddress(ctx, ip)
	if err != nil {
		return "", false, fmt.Errorf("resolve device for %s: %w", sw.NodeName, err)
	}
	if !found {
		return "", false, nil
	}

	if err := e.store.CacheSwitchDevice(ctx, sw.ID, ip, id); err != nil {
		log.FromContext(ctx).Error(err, "failed to cache device id", "node", sw.NodeName)
	}
	log.FromContext(ctx).V(1).Info("resolved switch device", "node", sw.NodeName, "device", id)
	return id, true, nil
}
