package labels

import (
	nettypes "github.com/k8snetworkplumbingwg/network-attachment-definition-client/pkg/apis/k8s.cni.cncf.io/v1"
	k8slabels "k8s.io/apimachinery/pkg/labels"
)

// Label keys
const (
	// KeyComponent identifies the role of an l2net-managed pod
	KeyComponent = "l2net.io/component"
)

// Component values
const (
	ComponentSwitch = "switch"
)

// Annotation keys
const (
	// AnnotationNetworks is the attachment request on a workload pod:
	// "a, b" or a JSON array of {"name", "ips"} elements.
	AnnotationNetworks = "l2net.io/networks"

	// AnnotationInterfaces records the resolved network=interface pairs.
	AnnotationInterfaces = "l2net.io/interfaces"

	// AnnotationMultusNetworks carries the resolved interfaces in the format
	// the CNI meta-plugin consumes.
	AnnotationMultusNetworks = nettypes.NetworkAttachmentAnnot
)

// IsSwitch reports whether labels mark a dataplane switch pod.
func IsSwitch(l map[string]string) bool {
	return SwitchSelector().Matches(k8slabels.Set(l))
}

// HasAttachmentRequest reports whether annotations carry a network attachment request.
func HasAttachmentRequest(annotations map[string]string) bool {
	_, ok := annotations[AnnotationNetworks]
	return ok
}

// SwitchSelector selects every dataplane switch pod.
func SwitchSelector() k8slabels.Selector {
	return k8slabels.SelectorFromSet(k8slabels.Set{KeyComponent: ComponentSwitch})
}

// SwitchLabels returns the labels a dataplane switch pod carries.
// Returns a fresh map each call.
func SwitchLabels() map[string]string {
	return map[string]string{KeyComponent: ComponentSwitch}
}
