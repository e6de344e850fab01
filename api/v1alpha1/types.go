// Package v1alpha1 contains API Schema definitions for the l2net.io v1alpha1 API group
// +kubebuilder:object:generate=true
// +groupName=l2net.io
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// NetworkType distinguishes the overlay flavors an L2Network can describe.
// +kubebuilder:validation:Enum=vnet;ext-vnet;vlink
type NetworkType string

const (
	// NetworkTypeVnet is an intra-cluster virtual network provisioned on the SDN controller.
	NetworkTypeVnet NetworkType = "vnet"
	// NetworkTypeExtVnet spans clusters through an external provider.
	NetworkTypeExtVnet NetworkType = "ext-vnet"
	// NetworkTypeVlink is a point-to-point virtual link.
	NetworkTypeVlink NetworkType = "vlink"
)

// Attachable reports whether pods may request interfaces on networks of this type.
func (t NetworkType) Attachable() bool {
	return t == NetworkTypeVnet
}

// RequiresProvisioning reports whether the SDN controller must hold state for
// networks of this type before they are considered registered.
func (t NetworkType) RequiresProvisioning() bool {
	return t == NetworkTypeVnet
}

// L2NetworkSpec defines the desired state of an L2Network.
type L2NetworkSpec struct {
	// Type is the overlay flavor of the network
	Type NetworkType `json:"type"`

	// Config is optional type-specific configuration, passed through untouched
	// +optional
	Config *string `json:"config,omitempty"`
}

// L2NetworkStatus defines the observed state of an L2Network.
type L2NetworkStatus struct {
	// ConnectedPods lists the pods currently attached to the network.
	// Entries are unique pod names.
	// +optional
	ConnectedPods []string `json:"connectedPods,omitempty"`

	// ConnectedPodCount mirrors len(ConnectedPods) for printer columns
	// +optional
	ConnectedPodCount int `json:"connectedPodCount,omitempty"`

	// Conditions represent the latest observations of the network's state
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// Condition types for L2Network
const (
	// ConditionReady indicates the network is registered and attachable
	ConditionReady = "Ready"
	// ConditionProvisioned indicates the SDN controller holds the network
	ConditionProvisioned = "Provisioned"
)

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=l2net
// +kubebuilder:printcolumn:name="Type",type="string",JSONPath=".spec.type"
// +kubebuilder:printcolumn:name="Pods",type="integer",JSONPath=".status.connectedPodCount"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// L2Network is the Schema for the l2networks API.
type L2Network struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   L2NetworkSpec   `json:"spec,omitempty"`
	Status L2NetworkStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// L2NetworkList contains a list of L2Network.
type L2NetworkList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []L2Network `json:"items"`
}
