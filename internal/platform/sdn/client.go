package sdn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every call to the controller.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is kept in a StatusError.
const maxErrorBody = 512

// Config holds the controller endpoint and credentials.
type Config struct {
	// BaseURL is the root of the virtual network application,
	// e.g. http://onos:8181/onos/vnets/api.
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client is a session against the controller. It is safe for concurrent use;
// every call is independent and nothing is batched across calls.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// Device is a forwarding device known to the controller.
type Device struct {
	ID          string            `json:"id"`
	Type        string            `json:"type,omitempty"`
	Available   bool              `json:"available"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// ManagementAddress returns the address the device connected from.
func (d Device) ManagementAddress() string {
	return d.Annotations["managementAddress"]
}

type devicesResponse struct {
	Devices []Device `json:"devices"`
}

type networkRequest struct {
	NetworkID string `json:"networkId"`
}

type portRequest struct {
	NetworkID        string   `json:"networkId"`
	NetworkEndpoints []string `json:"networkEndpoints"`
}

// NewClient creates a client for the given configuration without contacting the controller.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Connect creates a client and verifies the session with a status probe.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	c := NewClient(cfg)
	if err := c.Probe(ctx); err != nil {
		return nil, fmt.Errorf("connect to SDN controller at %s: %w", c.baseURL, err)
	}
	return c, nil
}

// Probe checks that the controller is reachable and accepts the credentials.
func (c *Client) Probe(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, nil)
}

// ListDevices returns every device known to the controller.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/devices", nil)
	if err != nil {
		return nil, err
	}
	var resp devicesResponse
	if err := c.do(req, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return resp.Devices, nil
}

// FindDeviceByAddress lists the controller's devices and returns the
// identifier of the one whose management address equals addr.
func (c *Client) FindDeviceByAddress(ctx context.Context, addr string) (string, bool, error) {
	devices, err := c.ListDevices(ctx)
	if err != nil {
		return "", false, err
	}
	for _, d := range devices {
		if d.ManagementAddress() == addr {
			return d.ID, true, nil
		}
	}
	return "", false, nil
}

// NetworkExists reports whether the controller already holds the network.
func (c *Client) NetworkExists(ctx context.Context, name string) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/networks/"+url.PathEscape(name), nil)
	if err != nil {
		return false, err
	}
	err = c.do(req, http.StatusOK, nil)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("check network %s: %w", name, err)
	}
}

// CreateNetwork creates the network on the controller.
func (c *Client) CreateNetwork(ctx context.Context, name string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/networks", networkRequest{NetworkID: name})
	if err != nil {
		return err
	}
	if err := c.do(req, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("create network %s: %w", name, err)
	}
	return nil
}

// DeleteNetwork removes the network from the controller.
func (c *Client) DeleteNetwork(ctx context.Context, name string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/networks/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}
	if err := c.do(req, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("delete network %s: %w", name, err)
	}
	return nil
}

// AttachPort binds port on device to the network.
func (c *Client) AttachPort(ctx context.Context, network, deviceID string, port int) error {
	body := portRequest{
		NetworkID:        network,
		NetworkEndpoints: []string{Endpoint(deviceID, port)},
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/networks/port", body)
	if err != nil {
		return err
	}
	if err := c.do(req, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("attach %s to network %s: %w", body.NetworkEndpoints[0], network, err)
	}
	return nil
}

// Endpoint formats a device port as the controller expects it.
func Endpoint(deviceID string, port int) string {
	return fmt.Sprintf("%s/%d", deviceID, port)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
