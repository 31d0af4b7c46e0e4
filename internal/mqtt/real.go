package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/sensor-pipeline/internal/reading"
)

// DefaultBufferSize is the number of messages held while the broker is unreachable.
const DefaultBufferSize = 256

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// client is the subset of paho.Client the publisher uses.
type client interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are held in an outbox and replayed on reconnect.
type RealPublisher struct {
	client client
	log    *slog.Logger

	mu  sync.Mutex
	buf *outbox
}

// NewRealPublisher creates a publisher for the given broker. A broker that is
// not reachable yet is not an error: paho keeps retrying in the background and
// messages are buffered until it connects.
func NewRealPublisher(broker, clientID string, bufferSize int, log *slog.Logger) (*RealPublisher, error) {
	if log == nil {
		log = slog.Default()
	}
	p := &RealPublisher{
		log: log,
		buf: newOutbox(bufferSize, log),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(WillPayload(time.Now())), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn("mqtt: connection lost", "err", err)
		})

	c := paho.NewClient(opts)
	p.client = c

	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn("mqtt: broker not reachable yet, buffering", "broker", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func newPublisher(c client, bufferSize int, log *slog.Logger) *RealPublisher {
	return &RealPublisher{client: c, log: log, buf: newOutbox(bufferSize, log)}
}

// Publish sends a pipeline event to the MQTT broker.
func (p *RealPublisher) Publish(event reading.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		return nil
	}
	return p.publishLocked(msg)
}

func (p *RealPublisher) publishLocked(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// replay flushes buffered messages in order once the connection is back.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs := p.buf.drain()
	for i, msg := range msgs {
		if err := p.publishLocked(msg); err != nil {
			p.log.Warn("mqtt: replay failed, re-buffering", "err", err, "remaining", len(msgs)-i)
			for _, rest := range msgs[i:] {
				p.buf.push(rest)
			}
			return
		}
	}
	if len(msgs) > 0 {
		p.log.Info("mqtt: connected, replayed buffered messages", "count", len(msgs))
	}
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the broker connection is open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
