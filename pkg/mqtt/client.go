package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/peeredge-io/shadowbridge/pkg/log"
)

type pahoClient struct {
	cfg *ClientConfig
	cm  *autopaho.ConnectionManager

	// subscriptions holds the registered handlers in registration order.
	// Re-subscription on reconnect walks this slice, not a map, so the
	// re-subscribe invariant (same topic-string set, same order) holds.
	mu            sync.Mutex
	subscriptions []subscriptionEntry
	byTopic       map[string]int
}

type subscriptionEntry struct {
	topic   string
	qos     int
	handler MessageHandler
}

// NewClient creates a new MQTT client implementing the Client interface.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}

	setDefaultConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg:     cfg,
		byTopic: make(map[string]int),
	}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	brokerURL, _ := url.Parse(c.cfg.BrokerURL) // already validated

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(3 * time.Second),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg: &tls.Config{
			InsecureSkipVerify: c.cfg.InsecureSkipVerify,
		},
		WillMessage: c.willMessage(),
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				c.router,
			},
		},
		OnConnectionUp: c.onConnectionUp,
		OnConnectError: c.onConnectError,
	}

	log.Info("starting mqtt client", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return err
	}
	c.cm = cm
	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	if c.cm != nil {
		_ = c.cm.Disconnect(ctx)
		log.Info("mqtt client disconnected", "clientID", c.cfg.ClientID)
	}
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if c.cm == nil {
		return fmt.Errorf("client not started")
	}

	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})

	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error {
	if c.cm == nil {
		return fmt.Errorf("client not started")
	}

	c.mu.Lock()
	entry := subscriptionEntry{topic: topic, qos: qos, handler: handler}
	if idx, ok := c.byTopic[topic]; ok {
		c.subscriptions[idx] = entry
	} else {
		c.byTopic[topic] = len(c.subscriptions)
		c.subscriptions = append(c.subscriptions, entry)
	}
	c.mu.Unlock()

	// If not currently connected, onConnectionUp replays the whole list later.
	_, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: topic, QoS: byte(qos)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send subscription packet: %w", err)
	}

	log.Debug("subscribed to topic", "topic", topic)
	return nil
}

func (c *pahoClient) Unsubscribe(ctx context.Context, topic string) error {
	if c.cm == nil {
		return fmt.Errorf("client not started")
	}

	c.mu.Lock()
	if idx, ok := c.byTopic[topic]; ok {
		c.subscriptions = append(c.subscriptions[:idx], c.subscriptions[idx+1:]...)
		delete(c.byTopic, topic)
		for i := idx; i < len(c.subscriptions); i++ {
			c.byTopic[c.subscriptions[i].topic] = i
		}
	}
	c.mu.Unlock()

	_, err := c.cm.Unsubscribe(ctx, &paho.Unsubscribe{
		Topics: []string{topic},
	})
	return err
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return fmt.Errorf("client not started")
	}
	return c.cm.AwaitConnection(ctx)
}

func (c *pahoClient) SubscribedTopics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	topics := make([]string, len(c.subscriptions))
	for i, e := range c.subscriptions {
		topics[i] = e.topic
	}
	return topics
}

// --- Internal Callbacks ---

// onConnectionUp re-subscribes to every registered topic, in registration
// order, whenever the connection is established or re-established. This is
// what preserves the subscribed-topic-set invariant across a credential
// refresh / reconnect cycle.
func (c *pahoClient) onConnectionUp(cm *autopaho.ConnectionManager, ack *paho.Connack) {
	log.Info("mqtt connection established", "clientID", c.cfg.ClientID)

	c.mu.Lock()
	entries := make([]subscriptionEntry, len(c.subscriptions))
	copy(entries, c.subscriptions)
	c.mu.Unlock()

	for _, entry := range entries {
		log.Debug("re-subscribing", "topic", entry.topic)
		if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{
				{Topic: entry.topic, QoS: byte(entry.qos)},
			},
		}); err != nil {
			log.Error(err, "failed to re-subscribe", "topic", entry.topic)
		}
	}
}

func (c *pahoClient) onConnectError(err error) {
	log.Warn(err, "mqtt connection failed, retrying")
}

func (c *pahoClient) onClientError(err error) {
	log.Error(err, "mqtt client internal error")
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	reason := ""
	if d != nil && d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	log.Warn(nil, "mqtt server requested disconnect", "reason", reason)
}

// router dispatches an inbound publish to every handler whose topic filter
// matches. Each handler runs on its own goroutine so a slow callback never
// blocks the paho reader loop or another device's delivery.
func (c *pahoClient) router(p paho.PublishReceived) (bool, error) {
	c.mu.Lock()
	entries := make([]subscriptionEntry, len(c.subscriptions))
	copy(entries, c.subscriptions)
	c.mu.Unlock()

	matched := false
	for _, entry := range entries {
		if topicsMatch(topicFilter(entry.topic), p.Packet.Topic) {
			go func(h MessageHandler) {
				defer func() {
					if r := recover(); r != nil {
						log.Error(fmt.Errorf("%v", r), "mqtt handler panicked", "topic", p.Packet.Topic)
					}
				}()
				h(context.Background(), p.Packet.Topic, p.Packet.Payload)
			}(entry.handler)
			matched = true
		}
	}

	if !matched {
		log.Debug("received message on unhandled topic", "topic", p.Packet.Topic)
	}

	return true, nil
}

func (c *pahoClient) willMessage() *paho.WillMessage {
	if c.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.WillTopic,
		Payload: c.cfg.WillPayload,
		QoS:     c.cfg.WillQoS,
		Retain:  c.cfg.WillRetain,
	}
}

// topicsMatch checks if a filter matches a topic (supports + and # wildcards).
func topicsMatch(filter, topic string) bool {
	if filter == topic {
		return true
	}

	if !strings.Contains(filter, "+") && !strings.Contains(filter, "#") {
		return false
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}

func topicFilter(filter string) string {
	if strings.HasPrefix(filter, "$share/") {
		parts := strings.SplitN(filter, "/", 3)
		if len(parts) == 3 {
			return parts[2]
		}
	}
	return filter
}
