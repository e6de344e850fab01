package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// PatchPodAnnotations merges annotations into the pod's metadata.
// Keys with an empty value are removed.
func (c *Client) PatchPodAnnotations(ctx context.Context, pod *corev1.Pod, annotations map[string]string) error {
	if len(annotations) == 0 {
		return nil
	}
	patch := client.MergeFrom(pod.DeepCopy())
	if pod.Annotations == nil {
		pod.Annotations = make(map[string]string, len(annotations))
	}
	for k, v := range annotations {
		if v == "" {
			delete(pod.Annotations, k)
			continue
		}
		pod.Annotations[k] = v
	}
	if err := c.c.Patch(ctx, pod, patch); err != nil {
		return fmt.Errorf("failed to patch annotations of pod %s/%s: %w", pod.Namespace, pod.Name, err)
	}
	return nil
}

// PodAddress returns the pod IP once the pod is running and has one.
func PodAddress(pod *corev1.Pod) (string, bool) {
	if pod.Status.Phase != corev1.PodRunning || pod.Status.PodIP == "" {
		return "", false
	}
	return pod.Status.PodIP, true
}
