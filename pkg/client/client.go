package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ti7w/bandd/pkg/protocol"
)

// APIClient talks to a running daemon over its HTTP API
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient creates a client for the daemon at baseURL,
// e.g. "http://localhost:8073"
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// doJSON performs the request and decodes the JSON response into out.
// Non-2xx responses are turned into errors using the error body when
// the daemon sent one.
func (c *APIClient) doJSON(method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr protocol.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// GetStatus gets the current daemon status
func (c *APIClient) GetStatus() (*protocol.Status, error) {
	var status protocol.Status
	if err := c.doJSON(http.MethodGet, "/api/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetDevices lists the band-pass filter devices the daemon is driving
func (c *APIClient) GetDevices() (*protocol.DeviceList, error) {
	var devices protocol.DeviceList
	if err := c.doJSON(http.MethodGet, "/api/v1/devices", nil, &devices); err != nil {
		return nil, err
	}
	return &devices, nil
}

// Start tells the daemon to begin decoding
func (c *APIClient) Start() error {
	return c.doJSON(http.MethodPost, "/api/v1/start", nil, nil)
}

// Stop tells the daemon to stop decoding
func (c *APIClient) Stop() error {
	return c.doJSON(http.MethodPost, "/api/v1/stop", nil, nil)
}

// GetConfig fetches the daemon's runtime settings
func (c *APIClient) GetConfig() (*protocol.ConfigView, error) {
	var view protocol.ConfigView
	if err := c.doJSON(http.MethodGet, "/api/v1/config", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateConfig applies the non-nil fields of update and returns the
// resulting settings
func (c *APIClient) UpdateConfig(update protocol.ConfigUpdate) (*protocol.ConfigView, error) {
	var view protocol.ConfigView
	if err := c.doJSON(http.MethodPut, "/api/v1/config", update, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// IsConnected tests if the daemon is reachable
func (c *APIClient) IsConnected() bool {
	_, err := c.GetStatus()
	return err == nil
}
