package indoor

import (
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// FakeToken is an mqtt.Token that is either completed or never completes.
type FakeToken struct {
	err     error
	stalled bool
}

// NewFakeToken returns a completed token carrying err.
func NewFakeToken(err error) *FakeToken { return &FakeToken{err: err} }

func (t *FakeToken) Wait() bool                     { return !t.stalled }
func (t *FakeToken) WaitTimeout(time.Duration) bool { return !t.stalled }
func (t *FakeToken) Error() error                   { return t.err }

func (t *FakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.stalled {
		close(ch)
	}
	return ch
}

// PublishedMessage is a message captured by FakeClient.
type PublishedMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// FakeClient is an in-memory mqtt.Client. Published messages are recorded
// and delivered to matching subscriptions, wildcards included.
type FakeClient struct {
	mu            sync.RWMutex
	connected     bool
	connectErr    error
	publishErr    error
	subscribeErr  error
	subscriptions map[string]mqtt.MessageHandler
	published     []PublishedMessage
	onConnect     mqtt.OnConnectHandler
	stalled       bool
}

// NewFakeClient creates a disconnected fake client.
func NewFakeClient() *FakeClient {
	return &FakeClient{subscriptions: make(map[string]mqtt.MessageHandler)}
}

// SetConnected forces the connection state.
func (c *FakeClient) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// SetConnectError makes Connect fail with err.
func (c *FakeClient) SetConnectError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectErr = err
}

// SetPublishError makes Publish fail with err.
func (c *FakeClient) SetPublishError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishErr = err
}

// SetSubscribeError makes Subscribe fail with err.
func (c *FakeClient) SetSubscribeError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribeErr = err
}

// SetStalled makes Publish and Subscribe return tokens that never
// complete; nothing is recorded while stalled.
func (c *FakeClient) SetStalled(stalled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stalled = stalled
}

// SetOnConnect registers a handler run after a successful Connect.
func (c *FakeClient) SetOnConnect(h mqtt.OnConnectHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = h
}

// Published returns a copy of every published message.
func (c *FakeClient) Published() []PublishedMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]PublishedMessage, len(c.published))
	copy(out, c.published)
	return out
}

// PublishedTo returns the messages published on topic.
func (c *FakeClient) PublishedTo(topic string) []PublishedMessage {
	var out []PublishedMessage
	for _, m := range c.Published() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Deliver hands payload to every subscription matching topic.
func (c *FakeClient) Deliver(topic string, payload []byte) {
	c.mu.RLock()
	var handlers []mqtt.MessageHandler
	for filter, h := range c.subscriptions {
		if TopicMatches(filter, topic) && h != nil {
			handlers = append(handlers, h)
		}
	}
	c.mu.RUnlock()

	for _, h := range handlers {
		h(c, &fakeMessage{topic: topic, payload: payload})
	}
}

// TopicMatches reports whether topic matches an MQTT filter with + and #.
func TopicMatches(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, f := range fp {
		if f == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if f != "+" && f != tp[i] {
			return false
		}
	}
	return len(fp) == len(tp)
}

func (c *FakeClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *FakeClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *FakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	err := c.connectErr
	if err == nil {
		c.connected = true
	}
	onConnect := c.onConnect
	c.mu.Unlock()

	if err == nil && onConnect != nil {
		onConnect(c)
	}
	return NewFakeToken(err)
}

func (c *FakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *FakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return NewFakeToken(mqtt.ErrNotConnected)
	}
	if c.publishErr != nil {
		err := c.publishErr
		c.mu.Unlock()
		return NewFakeToken(err)
	}
	if c.stalled {
		c.mu.Unlock()
		return &FakeToken{stalled: true}
	}

	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	}
	c.published = append(c.published, PublishedMessage{Topic: topic, Payload: data, QoS: qos, Retain: retained})
	c.mu.Unlock()

	c.Deliver(topic, data)
	return NewFakeToken(nil)
}

func (c *FakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	return c.SubscribeMultiple(map[string]byte{topic: qos}, callback)
}

func (c *FakeClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return NewFakeToken(mqtt.ErrNotConnected)
	}
	if c.subscribeErr != nil {
		return NewFakeToken(c.subscribeErr)
	}
	if c.stalled {
		return &FakeToken{stalled: true}
	}
	for topic := range filters {
		c.subscriptions[topic] = callback
	}
	return NewFakeToken(nil)
}

func (c *FakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.subscriptions, topic)
	}
	return NewFakeToken(nil)
}

func (c *FakeClient) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[topic] = callback
}

func (c *FakeClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// fakeMessage implements mqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool     { return false }
func (m *fakeMessage) Qos() byte           { return 0 }
func (m *fakeMessage) Retained() bool      { return false }
func (m *fakeMessage) Topic() string       { return m.topic }
func (m *fakeMessage) MessageID() uint16   { return 0 }
func (m *fakeMessage) Payload() []byte     { return m.payload }
func (m *fakeMessage) Ack()                {}
func (m *fakeMessage) AutoAckOff()         {}
func (m *fakeMessage) AutoAckOn()          {}
func (m *fakeMessage) SetAutoAck(bool)     {}
func (m *fakeMessage) SetRetained(bool)    {}
func (m *fakeMessage) SetQoS(byte)         {}
func (m *fakeMessage) SetDuplicate(bool)   {}
func (m *fakeMessage) SetMessageID(uint16) {}
