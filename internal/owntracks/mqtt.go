package owntracks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/clambin/go-common/set"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Broker is the subset of mqtt.Client that Client uses.
type Broker interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// Config configures the connection to the MQTT broker.
type Config struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"clientId"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Topic is the OwnTracks base topic, e.g. owntracks/#
	Topic string `mapstructure:"topic"`
	// Devices limits the OwnTracks devices (user/device) we listen to. Empty accepts all devices.
	Devices []string `mapstructure:"devices"`
}

const publishTimeout = 10 * time.Second

// Client receives OwnTracks messages from an MQTT broker and passes them to the Handler.
// It implements location.Requester: RequestLocation asks the phone to report its position.
type Client struct {
	Broker  Broker
	Handler *Dispatcher
	Topic   string
	devices set.Set[string]
	logger  *slog.Logger

	lock sync.Mutex
	seen set.Set[string]
}

// NewClient creates a Client connected to the broker in cfg.
func NewClient(cfg Config, handler *Dispatcher, logger *slog.Logger) *Client {
	c := newClient(nil, cfg, handler, logger)
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(10 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("lost connection to broker", "err", err)
		})
	c.Broker = mqtt.NewClient(opts)
	return c
}

func newClient(broker Broker, cfg Config, handler *Dispatcher, logger *slog.Logger) *Client {
	topic := cfg.Topic
	if topic == "" {
		topic = "owntracks/#"
	}
	return &Client{
		Broker:  broker,
		Handler: handler,
		Topic:   topic,
		devices: set.New(cfg.Devices...),
		logger:  logger,
		seen:    set.New[string](),
	}
}

// Run connects to the broker and processes messages until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	c.logger.Debug("started")
	defer c.logger.Debug("stopped")

	token := c.Broker.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
	case <-ctx.Done():
		c.Broker.Disconnect(250)
		return nil
	}

	<-ctx.Done()
	c.Broker.Disconnect(250)
	return nil
}

func (c *Client) onConnect(_ mqtt.Client) {
	c.logger.Info("connected to broker", "topic", c.Topic)
	if err := c.subscribe(); err != nil {
		c.logger.Error("failed to subscribe", "topic", c.Topic, "err", err)
	}
}

func (c *Client) subscribe() error {
	token := c.Broker.Subscribe(c.Topic, 1, c.handleMessage)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("timeout")
	}
	return token.Error()
}

func (c *Client) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	device, ok := deviceTopic(msg.Topic())
	if !ok {
		return
	}
	if len(c.devices) > 0 && !c.devices.Contains(device) {
		c.logger.Debug("ignoring message from unknown device", "device", device)
		return
	}
	c.lock.Lock()
	c.seen.Add(device)
	c.lock.Unlock()

	if err := c.Handler.Handle(context.Background(), msg.Payload()); err != nil {
		c.logger.Warn("failed to process message", "device", device, "err", err)
	}
}

// deviceTopic returns the OwnTracks device (user/device) for a message topic.
// Positions arrive on <prefix>/<user>/<device>, region transitions on <prefix>/<user>/<device>/event.
// Other sub-topics (cmd, info, waypoints, ...) are ignored.
func deviceTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	switch {
	case len(parts) == 3:
	case len(parts) == 4 && parts[3] == "event":
	default:
		return "", false
	}
	return parts[1] + "/" + parts[2], true
}

type command struct {
	Type   string `json:"_type"`
	Action string `json:"action"`
}

// RequestLocation asks all known devices to report their position.
func (c *Client) RequestLocation(ctx context.Context) error {
	payload, _ := json.Marshal(command{Type: "cmd", Action: "reportLocation"})
	prefix := strings.SplitN(c.Topic, "/", 2)[0]

	var errs []error
	for _, device := range c.targets() {
		topic := prefix + "/" + device + "/cmd"
		token := c.Broker.Publish(topic, 1, false, payload)
		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", device, err))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.Join(errs...)
}

func (c *Client) targets() []string {
	if len(c.devices) > 0 {
		return c.devices.ListOrdered()
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.seen.ListOrdered()
}
