package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ti7w/bandd/pkg/config"
	"github.com/ti7w/bandd/pkg/engine"
	"github.com/ti7w/bandd/pkg/genius"
	"github.com/ti7w/bandd/pkg/hardware"
	"github.com/ti7w/bandd/pkg/mqttpub"
	"github.com/ti7w/bandd/pkg/telemetry"
)

// tickInterval is how often the decode cycle runs.
const tickInterval = 500 * time.Millisecond

// BandDaemon ties the decode engine to the HTTP API and owns the
// process lifecycle.
type BandDaemon struct {
	configPath string
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	// cfgMu guards config; the engine reads a snapshot every tick and
	// the API mutates it.
	cfgMu  sync.RWMutex
	config *config.Config

	engine    *engine.Engine
	switcher  *genius.Client
	webServer *http.Server
	startTime time.Time
}

// NewBandDaemon creates a new daemon instance
func NewBandDaemon(cfg *config.Config, configPath string) (*BandDaemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	daemon := &BandDaemon{
		configPath: configPath,
		ctx:        ctx,
		cancel:     cancel,
		config:     cfg,
		startTime:  time.Now(),
	}

	// Band-pass filter hardware
	filters := hardware.NewFilterBank(hardware.NewPlatformEnumerator(), cfg.Hardware.ForceSimulation)

	// Antenna switch client reports delivery status back to the engine
	daemon.switcher = genius.NewClient(func(message string) {
		daemon.engine.NoteSwitchStatus(message)
	})

	// Optional MQTT band-change publisher
	publisher, err := mqttpub.NewPublisher(mqttpub.Config{
		Enabled:  cfg.MQTT.Enabled,
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		UseTLS:   cfg.MQTT.UseTLS,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topic:    cfg.MQTT.Topic,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create MQTT publisher: %w", err)
	}

	daemon.engine = engine.New(telemetry.NewListener(), daemon.switcher, filters, publisher, daemon.settingsSnapshot)

	// Initialize web server
	if err := daemon.setupWebServer(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup web server: %w", err)
	}

	return daemon, nil
}

// settingsSnapshot returns the current engine settings under the
// config lock.
func (d *BandDaemon) settingsSnapshot() engine.Settings {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	return engine.Settings{
		LoggerAddress: d.config.Logger.Address,
		LoggerPort:    d.config.Logger.Port,
		SwitchAddress: d.config.Switch.Address,
		SwitchPort:    d.config.Switch.Port,
		RadioNumber:   d.config.Switch.RadioNumber,
	}
}

// Start starts the daemon
func (d *BandDaemon) Start() error {
	log.Printf("Starting bandd daemon...")

	// Decoding begins immediately; the API can pause it
	d.engine.Start()

	// Decode loop
	d.wg.Add(1)
	go d.decodeLoop()

	// Web server
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		log.Printf("Starting web server on %s", d.webServer.Addr)
		if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Web server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the daemon gracefully
func (d *BandDaemon) Stop() error {
	log.Printf("Stopping daemon...")

	d.cancel()

	// Releasing the telemetry socket unblocks a decode cycle waiting
	// in a read.
	d.engine.Shutdown()
	d.switcher.Close()

	// Shutdown web server
	if d.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.webServer.Shutdown(ctx); err != nil {
			log.Printf("Web server shutdown error: %v", err)
		}
	}

	// Wait for goroutines to finish
	d.wg.Wait()

	log.Printf("Daemon stopped")
	return nil
}

// decodeLoop drives the engine. Ticks run serially; a cycle that
// overruns the interval simply delays the next one.
func (d *BandDaemon) decodeLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.engine.Tick()
		}
	}
}

// setupWebServer initializes the web server and routes
func (d *BandDaemon) setupWebServer() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// API routes
	api := router.Group("/api/v1")
	{
		api.GET("/status", d.handleGetStatus)
		api.GET("/devices", d.handleGetDevices)
		api.GET("/config", d.handleGetConfig)
		api.PUT("/config", d.handleUpdateConfig)
		api.POST("/start", d.handleStart)
		api.POST("/stop", d.handleStop)
	}

	// Live status stream
	router.GET("/ws", d.handleStatusWebSocket)

	d.cfgMu.RLock()
	addr := fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port)
	d.cfgMu.RUnlock()

	d.webServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return nil
}
