package indoor

import (
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// PositionHandler is called for every decoded locator event.
type PositionHandler func(pos Position)

// MQTTClient manages the broker connection and the locator subscription.
type MQTTClient struct {
	client       mqtt.Client
	locatorTopic string
	handler      PositionHandler
	isConnected  bool
	mu           sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once

	connectHooks []func()
}

// brokerSettings resolves connection settings, environment first.
func brokerSettings(config *Config) MQTTConfig {
	var cfg MQTTConfig
	if config != nil {
		cfg = config.MQTT
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.Broker = v
	}
	if v := os.Getenv("MQTT_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "terminalmap"
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("MQTT_LOCATOR_TOPIC"); v != "" {
		cfg.LocatorTopic = v
	}
	return cfg
}

// InitMQTT creates an MQTT client and starts connecting in the background.
// If no broker is configured, MQTT is disabled and this returns nil
func InitMQTT(config *Config, handler PositionHandler) (*MQTTClient, error) {
	cfg := brokerSettings(config)
	if cfg.Broker == "" {
		log.Println("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}

	client := &MQTTClient{
		locatorTopic: cfg.LocatorTopic,
		handler:      handler,
		stop:         make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // keep the locator subscription across reconnects
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()
	return client, nil
}

// connectWithRetry attempts to connect to the MQTT broker with exponential
// backoff until it succeeds or Disconnect is called.
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("Connecting to MQTT broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("Successfully connected to MQTT broker")
				c.setConnected(true)
				return
			}
			log.Printf("MQTT connection failed: %v", token.Error())
		} else {
			log.Println("MQTT connection timeout")
		}

		log.Printf("Retrying MQTT connection in %v...", retryDelay)
		select {
		case <-c.stop:
			return
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)
	c.subscribeLocator(client)

	c.mu.RLock()
	hooks := append([]func(){}, c.connectHooks...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

// OnConnect registers fn to run after every (re)connection, once the
// locator subscription has been made.
func (c *MQTTClient) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectHooks = append(c.connectHooks, fn)
}

func (c *MQTTClient) subscribeLocator(client mqtt.Client) {
	if c.locatorTopic == "" {
		log.Println("MQTT connected, no locator topic configured")
		return
	}

	log.Printf("MQTT connected, subscribing to %s", c.locatorTopic)
	token := client.Subscribe(c.locatorTopic, 0, c.createLocatorHandler())
	switch {
	case !token.WaitTimeout(5 * time.Second):
		log.Printf("Error subscribing to %s: timed out", c.locatorTopic)
	case token.Error() != nil:
		log.Printf("Error subscribing to %s: %v", c.locatorTopic, token.Error())
	default:
		log.Printf("Successfully subscribed to %s", c.locatorTopic)
	}
}

// onConnectionLost is called when the MQTT connection is lost.
// Auto-reconnect is enabled, so this is typically a transient event
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("MQTT reconnecting...")
}

// createLocatorHandler decodes locator payloads and forwards them.
func (c *MQTTClient) createLocatorHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		log.Printf("Received locator event (topic: %s, size: %d bytes)", msg.Topic(), len(payload))

		pos, err := DecodePosition(payload)
		if err != nil {
			log.Printf("Error decoding locator event: %v", err)
			return
		}
		if c.handler != nil {
			c.handler(pos)
		}
	}
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.client != nil && c.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// NewMQTTClient wraps an existing mqtt.Client. Clients that take a connect
// handler after construction, such as FakeClient, are hooked up to it.
func NewMQTTClient(client mqtt.Client, locatorTopic string, handler PositionHandler) *MQTTClient {
	c := &MQTTClient{
		client:       client,
		locatorTopic: locatorTopic,
		handler:      handler,
		stop:         make(chan struct{}),
	}
	if h, ok := client.(interface{ SetOnConnect(mqtt.OnConnectHandler) }); ok {
		h.SetOnConnect(c.onConnect)
	}
	return c
}
