// Package protocol holds the JSON types shared between the bandd HTTP
// API and its clients.
package protocol

import (
	"time"
)

// Status is the daemon status document served at /api/v1/status and
// streamed over the websocket.
type Status struct {
	Active           bool      `json:"active"`
	FrequencyKHz     float64   `json:"frequency_khz"`
	Band             string    `json:"band"`
	BCD              int       `json:"bcd"`
	SwitchPort       int       `json:"switch_port"`
	SimulationMode   bool      `json:"simulation_mode"`
	LastSwitchStatus string    `json:"last_switch_status"`
	Uptime           string    `json:"uptime"`
	StartTime        time.Time `json:"start_time"`
	Version          string    `json:"version"`
}

// Device describes one filter-bank actuator slot.
type Device struct {
	Slot       int    `json:"slot"`
	URL        string `json:"url"`
	Configured bool   `json:"configured"`
	LastError  string `json:"last_error,omitempty"`
}

// DeviceList is served at /api/v1/devices.
type DeviceList struct {
	Simulation bool     `json:"simulation"`
	Devices    []Device `json:"devices"`
}

// ConfigUpdate carries the operator-editable settings accepted by
// PUT /api/v1/config. Pointer fields distinguish "unset" from zero.
type ConfigUpdate struct {
	LoggerAddress     *string `json:"logger_address,omitempty"`
	LoggerPort        *int    `json:"logger_port,omitempty"`
	SwitchAddress     *string `json:"switch_address,omitempty"`
	SwitchPort        *int    `json:"switch_port,omitempty"`
	SwitchRadioNumber *string `json:"switch_radio_number,omitempty"`
	ForceSimulation   *bool   `json:"force_simulation,omitempty"`
}

// ConfigView is the readable form of the operator settings, served by
// GET /api/v1/config.
type ConfigView struct {
	LoggerAddress     string `json:"logger_address"`
	LoggerPort        int    `json:"logger_port"`
	SwitchAddress     string `json:"switch_address"`
	SwitchPort        int    `json:"switch_port"`
	SwitchRadioNumber string `json:"switch_radio_number"`
	ForceSimulation   bool   `json:"force_simulation"`
}

// ErrorResponse is the uniform error body for API failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
