package k8s

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/l2net/api/v1alpha1"
)

// AddConnectedPod records pod in the network's connected pod set.
// A network that no longer exists is ignored.
func (c *Client) AddConnectedPod(ctx context.Context, namespace, network, pod string) error {
	return c.updateNetworkStatus(ctx, namespace, network, func(n *v1alpha1.L2Network) bool {
		st := &n.Status
		if slices.Contains(st.ConnectedPods, pod) {
			return false
		}
		st.ConnectedPods = append(st.ConnectedPods, pod)
		st.ConnectedPodCount = len(st.ConnectedPods)
		return true
	})
}

// RemoveConnectedPod drops pod from the network's connected pod set.
// Absence of the pod or of the network is not an error.
func (c *Client) RemoveConnectedPod(ctx context.Context, namespace, network, pod string) error {
	return c.updateNetworkStatus(ctx, namespace, network, func(n *v1alpha1.L2Network) bool {
		st := &n.Status
		if !slices.Contains(st.ConnectedPods, pod) {
			return false
		}
		st.ConnectedPods = lo.Without(st.ConnectedPods, pod)
		st.ConnectedPodCount = len(st.ConnectedPods)
		return true
	})
}

// SetNetworkCondition sets cond on the network, stamping the observed generation.
func (c *Client) SetNetworkCondition(ctx context.Context, namespace, network string, cond metav1.Condition) error {
	return c.updateNetworkStatus(ctx, namespace, network, func(n *v1alpha1.L2Network) bool {
		cond.ObservedGeneration = n.Generation
		return meta.SetStatusCondition(&n.Status.Conditions, cond)
	})
}

// updateNetworkStatus applies mutate to a fresh copy of the network and
// writes its status back, retrying on optimistic concurrency conflicts. mutate reports
// whether it changed anything; unchanged status is not written.
func (c *Client) updateNetworkStatus(ctx context.Context, namespace, name string, mutate func(*v1alpha1.L2Network) bool) error {
	key := types.NamespacedName{Namespace: namespace, Name: name}
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		network := &v1alpha1.L2Network{}
		if err := c.c.Get(ctx, key, network); err != nil {
			return err
		}
		if !mutate(network) {
			return nil
		}
		return c.c.Status().Update(ctx, network)
	})
	if err := client.IgnoreNotFound(err); err != nil {
		return fmt.Errorf("failed to update status of network %s: %w", key, err)
	}
	return nil
}
