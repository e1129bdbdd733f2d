// Package mqttpub publishes band changes to an MQTT broker so other
// station software (rotator controllers, dashboards) can follow the
// decoder without speaking its protocols.
package mqttpub

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config holds broker connection settings.
type Config struct {
	Enabled  bool
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
	Topic    string
}

// BandChangeMessage is the JSON document published on every band
// change.
type BandChangeMessage struct {
	Band         string    `json:"band"`
	FrequencyKHz float64   `json:"frequency_khz"`
	BCD          int       `json:"bcd"`
	SwitchPort   int       `json:"switch_port"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher wraps the MQTT client. Publishing is best-effort; broker
// trouble never reaches the dispatch path.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// generateClientID creates a random MQTT client ID, falling back to a
// time-based one if the entropy source fails.
func generateClientID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("bandd_%d", time.Now().UnixNano())
	}
	return "bandd_" + hex.EncodeToString(bytes)
}

// NewPublisher connects to the broker described by config. Returns
// (nil, nil) when publishing is disabled. The initial connection is
// allowed to fail; auto-reconnect keeps trying in the background.
func NewPublisher(config Config) (*Publisher, error) {
	if !config.Enabled {
		return nil, nil
	}

	scheme := "tcp"
	if config.UseTLS {
		scheme = "tls"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, config.Host, config.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(generateClientID())

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("MQTT: Connected to broker")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT: Connection lost: %v (will auto-reconnect)", err)
	})

	client := mqtt.NewClient(opts)

	log.Printf("MQTT: Connecting to broker: %s", brokerURL)
	token := client.Connect()
	if token.WaitTimeout(5 * time.Second) {
		if token.Error() != nil {
			log.Printf("MQTT: Initial connection failed: %v (will retry in background)", token.Error())
		}
	} else {
		log.Printf("MQTT: Connection timeout (will retry in background)")
	}

	return &Publisher{
		client: client,
		topic:  config.Topic,
	}, nil
}

// PublishBandChange publishes msg without waiting for broker
// acknowledgement. Failures are logged only.
func (p *Publisher) PublishBandChange(msg BandChangeMessage) {
	if p == nil || !p.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("MQTT: failed to marshal band change: %v", err)
		return
	}

	token := p.client.Publish(p.topic, 0, true, payload)
	go func() {
		if token.WaitTimeout(2*time.Second) && token.Error() != nil {
			log.Printf("MQTT: publish failed: %v", token.Error())
		}
	}()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect(250)
	log.Println("MQTT: Disconnected")
}
