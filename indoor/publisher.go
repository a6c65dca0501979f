package indoor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher sends viewport commands and user positions to MQTT so a
// remote rendering surface can follow the session. It implements Viewport.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool

	mu        sync.RWMutex
	lastFit   *FitCommand
	lastView  *ViewCommand
	lastStats *Stats
	unsent    map[string]bool

	// serializes sends with their unsent bookkeeping
	sendMu sync.Mutex
}

const (
	topicFit   = "viewport/fit"
	topicView  = "viewport/view"
	topicStats = "dataset"
)

// NewPublisher creates a publisher. The prefix comes from
// MQTT_PUBLISH_PREFIX, then prefix, then "terminalmap".
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = "terminalmap"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		retain:        true, // late subscribers get the current camera
		unsent:        make(map[string]bool),
	}
}

// Prefix returns the topic prefix.
func (p *Publisher) Prefix() string { return p.publishPrefix }

// FitBounds publishes to <prefix>/viewport/fit.
func (p *Publisher) FitBounds(cmd FitCommand) error {
	p.mu.Lock()
	c := cmd
	p.lastFit = &c
	p.mu.Unlock()

	if err := p.publishTracked(topicFit, cmd); err != nil {
		return err
	}
	log.Printf("Published viewport fit: sw=[%.1f, %.1f] ne=[%.1f, %.1f]",
		cmd.SouthWest[0], cmd.SouthWest[1], cmd.NorthEast[0], cmd.NorthEast[1])
	return nil
}

// SetView publishes to <prefix>/viewport/view.
func (p *Publisher) SetView(cmd ViewCommand) error {
	p.mu.Lock()
	c := cmd
	p.lastView = &c
	p.mu.Unlock()

	if err := p.publishTracked(topicView, cmd); err != nil {
		return err
	}
	log.Printf("Published viewport view: center=[%.1f, %.1f] zoom=%.0f",
		cmd.Center[0], cmd.Center[1], cmd.Zoom)
	return nil
}

// PublishPosition publishes the located user to <prefix>/position.
func (p *Publisher) PublishPosition(pos Position) error {
	return p.publish("position", pos)
}

// PublishStats publishes a dataset summary to <prefix>/dataset.
func (p *Publisher) PublishStats(stats Stats) error {
	p.mu.Lock()
	st := stats
	p.lastStats = &st
	p.mu.Unlock()
	return p.publishTracked(topicStats, statsMessage(stats))
}

func statsMessage(stats Stats) map[string]interface{} {
	return map[string]interface{}{
		"stats":     stats,
		"timestamp": time.Now().Unix(),
	}
}

// Republish resends the latest fit, view and stats whose last publish
// failed. It is run when the broker connection comes up, so a fit issued
// while disconnected still reaches subscribers exactly once.
func (p *Publisher) Republish() error {
	type pending struct {
		suffix string
		v      interface{}
	}
	var queue []pending

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.mu.RLock()
	if p.unsent[topicFit] && p.lastFit != nil {
		queue = append(queue, pending{topicFit, *p.lastFit})
	}
	if p.unsent[topicView] && p.lastView != nil {
		queue = append(queue, pending{topicView, *p.lastView})
	}
	if p.unsent[topicStats] && p.lastStats != nil {
		queue = append(queue, pending{topicStats, statsMessage(*p.lastStats)})
	}
	p.mu.RUnlock()

	var errs []error
	for _, m := range queue {
		if err := p.sendLocked(m.suffix, m.v); err != nil {
			errs = append(errs, err)
			continue
		}
		log.Printf("Republished %s/%s", p.publishPrefix, m.suffix)
	}
	return errors.Join(errs...)
}

// publishTracked publishes and remembers whether the topic still owes
// subscribers its latest message.
func (p *Publisher) publishTracked(suffix string, v interface{}) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	return p.sendLocked(suffix, v)
}

func (p *Publisher) sendLocked(suffix string, v interface{}) error {
	err := p.publish(suffix, v)
	p.mu.Lock()
	if err != nil {
		p.unsent[suffix] = true
	} else {
		delete(p.unsent, suffix)
	}
	p.mu.Unlock()
	return err
}

func (p *Publisher) publish(suffix string, v interface{}) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	topic := fmt.Sprintf("%s/%s", p.publishPrefix, suffix)
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", suffix, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// LastFit returns the most recent fit command, if any.
func (p *Publisher) LastFit() (FitCommand, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lastFit == nil {
		return FitCommand{}, false
	}
	return *p.lastFit, true
}

// LastView returns the most recent view command, if any.
func (p *Publisher) LastView() (ViewCommand, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.lastView == nil {
		return ViewCommand{}, false
	}
	return *p.lastView, true
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
