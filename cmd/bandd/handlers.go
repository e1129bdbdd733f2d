package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ti7w/bandd/pkg/protocol"
)

// currentStatus assembles the status document served over REST and the
// websocket.
func (d *BandDaemon) currentStatus() protocol.Status {
	freq, _ := d.engine.CurrentFrequency()
	b := d.engine.CurrentBand()

	return protocol.Status{
		Active:           d.engine.Active(),
		FrequencyKHz:     freq,
		Band:             b.String(),
		BCD:              int(b.BCD()),
		SwitchPort:       b.SwitchPort(),
		SimulationMode:   d.engine.Filters().SimulationMode(),
		LastSwitchStatus: d.engine.LastSwitchStatus(),
		Uptime:           time.Since(d.startTime).Round(time.Second).String(),
		StartTime:        d.startTime,
		Version:          Version,
	}
}

// configView returns the operator-editable settings under the config
// lock.
func (d *BandDaemon) configView() protocol.ConfigView {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	return protocol.ConfigView{
		LoggerAddress:     d.config.Logger.Address,
		LoggerPort:        d.config.Logger.Port,
		SwitchAddress:     d.config.Switch.Address,
		SwitchPort:        d.config.Switch.Port,
		SwitchRadioNumber: d.config.Switch.RadioNumber,
		ForceSimulation:   d.config.Hardware.ForceSimulation,
	}
}

// handleGetStatus returns the current daemon status
func (d *BandDaemon) handleGetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, d.currentStatus())
}

// handleGetDevices lists the band-pass filter actuator slots
func (d *BandDaemon) handleGetDevices(c *gin.Context) {
	filters := d.engine.Filters()

	list := protocol.DeviceList{
		Simulation: filters.SimulationMode(),
		Devices:    []protocol.Device{},
	}
	for _, slot := range filters.Slots() {
		list.Devices = append(list.Devices, protocol.Device{
			Slot:       slot.Slot,
			URL:        slot.URL,
			Configured: slot.Configured,
			LastError:  slot.LastError,
		})
	}

	c.JSON(http.StatusOK, list)
}

// handleGetConfig returns the operator-editable settings
func (d *BandDaemon) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, d.configView())
}

// handleUpdateConfig applies a partial settings update. Changes take
// effect on the next decode cycle and are persisted to the config
// file; force_simulation applies at the next daemon restart.
func (d *BandDaemon) handleUpdateConfig(c *gin.Context) {
	var update protocol.ConfigUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	if update.LoggerPort != nil && (*update.LoggerPort < 1 || *update.LoggerPort > 65535) {
		c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: "logger_port out of range"})
		return
	}
	if update.SwitchPort != nil && (*update.SwitchPort < 1 || *update.SwitchPort > 65535) {
		c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: "switch_port out of range"})
		return
	}
	if update.SwitchRadioNumber != nil && *update.SwitchRadioNumber == "" {
		c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: "switch_radio_number must not be empty"})
		return
	}

	d.cfgMu.Lock()
	loggerChanged := false
	if update.LoggerAddress != nil && *update.LoggerAddress != d.config.Logger.Address {
		d.config.Logger.Address = *update.LoggerAddress
		loggerChanged = true
	}
	if update.LoggerPort != nil && *update.LoggerPort != d.config.Logger.Port {
		d.config.Logger.Port = *update.LoggerPort
		loggerChanged = true
	}
	if update.SwitchAddress != nil {
		d.config.Switch.Address = *update.SwitchAddress
	}
	if update.SwitchPort != nil {
		d.config.Switch.Port = *update.SwitchPort
	}
	if update.SwitchRadioNumber != nil {
		d.config.Switch.RadioNumber = *update.SwitchRadioNumber
	}
	if update.ForceSimulation != nil {
		d.config.Hardware.ForceSimulation = *update.ForceSimulation
	}
	saveErr := d.config.Save(d.configPath)
	d.cfgMu.Unlock()

	if saveErr != nil {
		log.Printf("Failed to persist settings to %s: %v", d.configPath, saveErr)
	}

	// A new telemetry endpoint needs a fresh socket; restarting the
	// engine makes the next cycle rebind with the updated settings.
	if loggerChanged && d.engine.Active() {
		d.engine.Stop()
		d.engine.Start()
	}

	c.JSON(http.StatusOK, d.configView())
}

// handleStart begins decoding
func (d *BandDaemon) handleStart(c *gin.Context) {
	d.engine.Start()
	c.JSON(http.StatusOK, d.currentStatus())
}

// handleStop pauses decoding
func (d *BandDaemon) handleStop(c *gin.Context) {
	d.engine.Stop()
	c.JSON(http.StatusOK, d.currentStatus())
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// handleStatusWebSocket streams the status document at 1Hz
func (d *BandDaemon) handleStatusWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("Status WebSocket client connected")

	// Drain client frames so closes are noticed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	// Send an immediate snapshot so clients don't wait a full tick
	if err := conn.WriteJSON(d.currentStatus()); err != nil {
		return
	}

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteJSON(d.currentStatus()); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		case <-done:
			log.Printf("Status WebSocket client disconnected")
			return
		case <-d.ctx.Done():
			return
		}
	}
}
