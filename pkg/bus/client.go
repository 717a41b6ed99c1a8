package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/meghlabd275-byte/TigerEx--sub007/pkg/types"
)

// Client wraps a NATS connection with router-specific publishing.
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
	config *Config
}

// Config holds NATS configuration.
type Config struct {
	URL      string
	ClientID string
	Streams  []StreamConfig
}

// StreamConfig defines one JetStream stream.
type StreamConfig struct {
	Name      string
	Subjects  []string
	Retention nats.RetentionPolicy
	MaxAge    time.Duration
	MaxMsgs   int64
}

// NewClient connects to NATS and ensures the router streams exist.
func NewClient(config *Config) (*Client, error) {
	logger := logrus.WithField("component", "bus")

	opts := []nats.Option{
		nats.Name(config.ClientID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Errorf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{
		conn:   conn,
		js:     js,
		logger: logger,
		config: config,
	}

	if err := client.initializeStreams(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize streams: %w", err)
	}

	return client, nil
}

func (c *Client) initializeStreams() error {
	for _, streamConfig := range c.config.Streams {
		config := &nats.StreamConfig{
			Name:      streamConfig.Name,
			Subjects:  streamConfig.Subjects,
			Retention: streamConfig.Retention,
			MaxAge:    streamConfig.MaxAge,
			MaxMsgs:   streamConfig.MaxMsgs,
			Storage:   nats.FileStorage,
			Replicas:  1,
		}

		if _, err := c.js.StreamInfo(streamConfig.Name); err == nil {
			if _, err = c.js.UpdateStream(config); err != nil {
				return fmt.Errorf("failed to update stream %s: %w", streamConfig.Name, err)
			}
		} else {
			if _, err = c.js.AddStream(config); err != nil {
				return fmt.Errorf("failed to create stream %s: %w", streamConfig.Name, err)
			}
			c.logger.Infof("Created stream: %s", streamConfig.Name)
		}
	}
	return nil
}

// Close closes the NATS connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// PublishQuote fans out an accepted venue snapshot.
func (c *Client) PublishQuote(q *types.VenueQuote) error {
	return c.publish(QuoteSubject(q.Venue, q.Symbol), q)
}

// PublishVenueHealth fans out a venue status transition.
func (c *Client) PublishVenueHealth(h types.VenueHealth) error {
	return c.publish(HealthSubject(h.Venue), h)
}

// PublishExecution fans out a terminal execution record.
func (c *Client) PublishExecution(symbol, status string, record interface{}) error {
	return c.publish(ExecutionSubject(symbol, status), record)
}

func (c *Client) publish(subject string, data interface{}) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err = c.js.Publish(subject, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	c.logger.Debugf("Published to %s", subject)
	return nil
}

// MessageHandler processes incoming messages.
type MessageHandler func(subject string, data []byte) error

// Subscription wraps a NATS subscription.
type Subscription struct {
	sub    *nats.Subscription
	logger *logrus.Entry
}

// Unsubscribe removes the subscription.
func (s *Subscription) Unsubscribe() error {
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

// SubscribeQuotes subscribes to snapshot traffic, optionally narrowed to
// one venue.
func (c *Client) SubscribeQuotes(venue string, handler MessageHandler) (*Subscription, error) {
	if venue == "" {
		venue = "*"
	}
	return c.subscribe(fmt.Sprintf("quotes.%s.>", venue), handler)
}

// SubscribeVenueHealth subscribes to all venue status transitions.
func (c *Client) SubscribeVenueHealth(handler MessageHandler) (*Subscription, error) {
	return c.subscribe("venues.health.*", handler)
}

// SubscribeExecutions subscribes to all terminal execution records.
func (c *Client) SubscribeExecutions(handler MessageHandler) (*Subscription, error) {
	return c.subscribe("executions.>", handler)
}

func (c *Client) subscribe(subject string, handler MessageHandler) (*Subscription, error) {
	sub, err := c.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Subject, msg.Data); err != nil {
			c.logger.Errorf("Handler error for %s: %v", msg.Subject, err)
		}
		msg.Ack()
	}, nats.Durable(fmt.Sprintf("router-%s", NormalizeSubjectToken(subject))))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	c.logger.Infof("Subscribed to %s", subject)
	return &Subscription{sub: sub, logger: c.logger}, nil
}
