// Package messaging provides a NATS client wrapper for pub/sub messaging
// between the signaling server and the janitor service. It handles connection
// lifecycle and subject-based subscriptions for the cleanup channel.
package messaging

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subject patterns.
const (
	// SubjectCleanupRequest carries requests to purge a user's persisted
	// content. Published by the signaling server's trigger endpoint,
	// consumed by the janitor. Deliberately the only traffic between the
	// two processes: the core matchmaking state never crosses NATS.
	SubjectCleanupRequest = "cleanup.request"
)

// NATSClient wraps the NATS connection with helper methods for pub/sub.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "pulse",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready client.
// It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to the given NATS subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// PublishCleanupRequest publishes a cleanup request payload for the janitor.
func (c *NATSClient) PublishCleanupRequest(data []byte) error {
	return c.Publish(SubjectCleanupRequest, data)
}

// SubscribeCleanupRequest registers a handler for incoming cleanup requests.
// The subscription is stored internally for cleanup on Close.
func (c *NATSClient) SubscribeCleanupRequest(handler func(data []byte)) error {
	sub, err := c.conn.Subscribe(SubjectCleanupRequest, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", SubjectCleanupRequest, err)
	}

	c.mu.Lock()
	c.subs[SubjectCleanupRequest] = sub
	c.mu.Unlock()

	return nil
}

// Close drains all subscriptions and closes the NATS connection. Draining
// lets in-flight cleanup requests finish before the process exits.
func (c *NATSClient) Close() {
	c.mu.Lock()
	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)
	c.mu.Unlock()

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] drain connection: %v", err)
	}
	c.conn.Close()
}
