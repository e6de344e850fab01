// Package k8s wraps the Kubernetes API calls the reconciliation engine makes
// against pods and L2Network resources.
package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/l2net/api/v1alpha1"
)

// Client reads and patches pods and L2Network resources.
type Client struct {
	c client.Client
}

// NewClient wraps a controller-runtime client.
func NewClient(c client.Client) *Client {
	return &Client{c: c}
}

// GetPod returns the pod namespace/name.
func (c *Client) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	pod := &corev1.Pod{}
	if err := c.c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, pod); err != nil {
		return nil, fmt.Errorf("failed to get pod %s/%s: %w", namespace, name, err)
	}
	return pod, nil
}

// ListNetworks returns the L2Networks in namespace.
func (c *Client) ListNetworks(ctx context.Context, namespace string) ([]v1alpha1.L2Network, error) {
	list := &v1alpha1.L2NetworkList{}
	if err := c.c.List(ctx, list, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("failed to list networks in %s: %w", namespace, err)
	}
	return list.Items, nil
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}
