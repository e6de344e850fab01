package controller

import (
	"encoding/json"
	"testing"

	nettypes "github.com/k8snetworkplumbingwg/network-attachment-definition-client/pkg/apis/k8s.cni.cncf.io/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/l2net/internal/store"
)

func TestParseNetworkRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    []string
		wantErr bool
	}{
		{name: "empty", value: "", want: nil},
		{name: "blank", value: "   ", want: nil},
		{name: "single name", value: "tenanta", want: []string{"tenanta"}},
		{name: "comma list", value: "tenanta, tenantb,,tenantc ", want: []string{"tenanta", "tenantb", "tenantc"}},
		{name: "json array", value: `[{"name":"tenanta"},{"name":" tenantb ","ips":["10.0.0.2/24"]}]`, want: []string{"tenanta", "tenantb"}},
		{name: "empty json array", value: `[]`, want: nil},
		{name: "truncated json", value: `[{"name":"tenanta"`, wantErr: true},
		{name: "json object", value: `{"name":"tenanta"}`, wantErr: true},
		{name: "element without name", value: `[{"ips":["10.0.0.2/24"]}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseNetworkRequest(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errMalformedRequest)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, el := range got {
				names = append(names, el.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestParseNetworkRequestKeepsIPs(t *testing.T) {
	t.Parallel()
	got, err := parseNetworkRequest(`[{"name":"tenanta","ips":["10.0.0.2/24","fd00::2/64"]}]`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"10.0.0.2/24", "fd00::2/64"}, got[0].IPRequest)
}

func TestMultusAnnotation(t *testing.T) {
	t.Parallel()

	bindings := []store.Binding{
		{InterfaceName: "veth3", NetworkName: "tenanta"},
		{InterfaceName: "veth4", NetworkName: "tenantb"},
	}
	requests := []*nettypes.NetworkSelectionElement{
		{Name: "tenanta", IPRequest: []string{"10.0.0.2/24"}},
		{Name: "tenantb"},
	}

	t.Run("fresh pod", func(t *testing.T) {
		t.Parallel()
		out, err := multusAnnotation("", bindings, requests)
		require.NoError(t, err)

		var got []nettypes.NetworkSelectionElement
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "veth3", got[0].Name)
		assert.Equal(t, []string{"10.0.0.2/24"}, got[0].IPRequest)
		assert.Equal(t, "veth4", got[1].Name)
		assert.Empty(t, got[1].IPRequest)
	})

	t.Run("keeps unrelated entries and replaces stale ones", func(t *testing.T) {
		t.Parallel()
		out, err := multusAnnotation(`[{"name":"macvlan-conf"},{"name":"veth3"}]`, bindings, requests)
		require.NoError(t, err)

		var got []nettypes.NetworkSelectionElement
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		names := []string{}
		for _, el := range got {
			names = append(names, el.Name)
		}
		assert.Equal(t, []string{"macvlan-conf", "veth3", "veth4"}, names)
	})

	t.Run("comma list existing value", func(t *testing.T) {
		t.Parallel()
		out, err := multusAnnotation("sriov-net", bindings[:1], requests[:1])
		require.NoError(t, err)
		var got []nettypes.NetworkSelectionElement
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "sriov-net", got[0].Name)
		assert.Equal(t, "veth3", got[1].Name)
		assert.Equal(t, []string{"10.0.0.2/24"}, got[1].IPRequest)
	})
}

func TestInterfacesAnnotation(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", interfacesAnnotation(nil))
	assert.Equal(t, "tenanta=veth1,tenantb=veth7", interfacesAnnotation([]store.Binding{
		{InterfaceName: "veth1", NetworkName: "tenanta"},
		{InterfaceName: "veth7", NetworkName: "tenantb"},
	}))
}
