package sdn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController records requests and answers from a path/method table.
type fakeController struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter, body []byte)
}

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func newFakeController(t *testing.T) (*fakeController, *Client) {
	t.Helper()
	fc := &fakeController{t: t, routes: map[string]func(http.ResponseWriter, []byte){}}
	srv := httptest.NewServer(fc)
	t.Cleanup(srv.Close)
	return fc, NewClient(Config{BaseURL: srv.URL + "/onos/vnets/api/", Username: "karaf", Password: "karaf"})
}

func (f *fakeController) handle(method, path string, fn func(w http.ResponseWriter, body []byte)) {
	f.routes[method+" "+path] = fn
}

func (f *fakeController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != "karaf" || pass != "karaf" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var body json.RawMessage
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Body: string(body)})
	fn, found := f.routes[r.Method+" "+r.URL.EscapedPath()]
	f.mu.Unlock()
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	fn(w, body)
}

func status(code int) func(http.ResponseWriter, []byte) {
	return func(w http.ResponseWriter, _ []byte) { w.WriteHeader(code) }
}

func TestProbe(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		fc, c := newFakeController(t)
		fc.handle(http.MethodGet, "/onos/vnets/api/status", status(http.StatusOK))
		require.NoError(t, c.Probe(context.Background()))
	})

	t.Run("bad credentials", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(&fakeController{t: t, routes: map[string]func(http.ResponseWriter, []byte){}})
		defer srv.Close()
		c := NewClient(Config{BaseURL: srv.URL, Username: "karaf", Password: "wrong"})

		err := c.Probe(context.Background())
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
		assert.True(t, IsClientError(err))
	})
}

func TestConnect_FailsWhenProbeFails(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := Connect(context.Background(), Config{BaseURL: srv.URL})
	assert.Nil(t, c)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestFindDeviceByAddress(t *testing.T) {
	t.Parallel()
	fc, c := newFakeController(t)
	fc.handle(http.MethodGet, "/onos/vnets/api/devices", func(w http.ResponseWriter, _ []byte) {
		_ = json.NewEncoder(w).Encode(devicesResponse{Devices: []Device{
			{ID: "of:0000000000000001", Annotations: map[string]string{"managementAddress": "10.1.0.4"}},
			{ID: "of:0000000000000002", Annotations: map[string]string{"managementAddress": "10.1.0.5"}},
		}})
	})

	id, found, err := c.FindDeviceByAddress(context.Background(), "10.1.0.5")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "of:0000000000000002", id)

	_, found, err = c.FindDeviceByAddress(context.Background(), "10.1.0.9")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNetworkExists(t *testing.T) {
	t.Parallel()
	fc, c := newFakeController(t)
	fc.handle(http.MethodGet, "/onos/vnets/api/networks/tenantA", status(http.StatusOK))
	fc.handle(http.MethodGet, "/onos/vnets/api/networks/broken", status(http.StatusInternalServerError))

	exists, err := c.NetworkExists(context.Background(), "tenantA")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.NetworkExists(context.Background(), "tenantB")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = c.NetworkExists(context.Background(), "broken")
	assert.True(t, IsUnavailable(err))
}

func TestCreateNetwork(t *testing.T) {
	t.Parallel()
	fc, c := newFakeController(t)
	fc.handle(http.MethodPost, "/onos/vnets/api/networks", status(http.StatusNoContent))

	require.NoError(t, c.CreateNetwork(context.Background(), "tenantA"))
	require.Len(t, fc.requests, 1)
	assert.JSONEq(t, `{"networkId":"tenantA"}`, fc.requests[0].Body)
}

func TestCreateNetwork_RejectsOtherSuccessCodes(t *testing.T) {
	t.Parallel()
	fc, c := newFakeController(t)
	fc.handle(http.MethodPost, "/onos/vnets/api/networks", status(http.StatusOK))

	err := c.CreateNetwork(context.Background(), "tenantA")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusOK, se.StatusCode)
}

func TestDeleteNetwork(t *testing.T) {
	t.Parallel()
	fc, c := newFakeController(t)
	fc.handle(http.MethodDelete, "/onos/vnets/api/networks/tenantA", status(http.StatusNoContent))

	require.NoError(t, c.DeleteNetwork(context.Background(), "tenantA"))

	err := c.DeleteNetwork(context.Background(), "gone")
	assert.True(t, IsNotFound(err))
}

func TestDeleteNetwork_EscapesName(t *testing.T) {
	t.Parallel()
	fc, c := newFakeController(t)
	fc.handle(http.MethodDelete, "/onos/vnets/api/networks/a%2Fb", status(http.StatusNoContent))

	require.NoError(t, c.DeleteNetwork(context.Background(), "a/b"))
}

func TestAttachPort(t *testing.T) {
	t.Parallel()
	fc, c := newFakeController(t)
	fc.handle(http.MethodPost, "/onos/vnets/api/networks/port", status(http.StatusNoContent))

	require.NoError(t, c.AttachPort(context.Background(), "tenantA", "of:0000000000000001", 3))
	require.Len(t, fc.requests, 1)
	assert.JSONEq(t, `{"networkId":"tenantA","networkEndpoints":["of:0000000000000001/3"]}`, fc.requests[0].Body)
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code        int
		notFound    bool
		unavailable bool
		client      bool
	}{
		{code: http.StatusNotFound, notFound: true},
		{code: http.StatusBadRequest, client: true},
		{code: http.StatusConflict, client: true},
		{code: http.StatusTooManyRequests, unavailable: true},
		{code: http.StatusBadGateway, unavailable: true},
	}
	for _, tt := range tests {
		err := &StatusError{Method: http.MethodGet, Path: "/x", StatusCode: tt.code}
		assert.Equal(t, tt.notFound, IsNotFound(err), "code %d", tt.code)
		assert.Equal(t, tt.unavailable, IsUnavailable(err), "code %d", tt.code)
		assert.Equal(t, tt.client, IsClientError(err), "code %d", tt.code)
	}
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsUnavailable(assert.AnError))
}
