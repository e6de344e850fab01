package labels

import (
	"testing"

	k8slabels "k8s.io/apimachinery/pkg/labels"
)

func TestIsSwitch(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		labels map[string]string
		want   bool
	}{
		{"switch pod", map[string]string{KeyComponent: ComponentSwitch}, true},
		{"other component", map[string]string{KeyComponent: "agent"}, false},
		{"no labels", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsSwitch(tt.labels); got != tt.want {
				t.Errorf("IsSwitch(%v) = %v, want %v", tt.labels, got, tt.want)
			}
		})
	}
}

func TestHasAttachmentRequest(t *testing.T) {
	t.Parallel()
	if HasAttachmentRequest(nil) {
		t.Error("nil annotations should not carry a request")
	}
	if !HasAttachmentRequest(map[string]string{AnnotationNetworks: ""}) {
		t.Error("present key should count as a request even when empty")
	}
}

func TestSwitchSelectorMatchesSwitchLabels(t *testing.T) {
	t.Parallel()
	if !SwitchSelector().Matches(k8slabels.Set(SwitchLabels())) {
		t.Error("selector should match switch labels")
	}
	if SwitchSelector().Matches(k8slabels.Set{"app": "web"}) {
		t.Error("selector should not match unrelated pods")
	}
}

func TestSwitchLabels_ReturnsCopy(t *testing.T) {
	t.Parallel()
	a := SwitchLabels()
	a[KeyComponent] = "mutated"
	if SwitchLabels()[KeyComponent] != ComponentSwitch {
		t.Error("SwitchLabels should return a fresh map")
	}
}

func TestMultusAnnotationKey(t *testing.T) {
	t.Parallel()
	if AnnotationMultusNetworks != "k8s.v1.cni.cncf.io/networks" {
		t.Errorf("unexpected multus key %q", AnnotationMultusNetworks)
	}
}
