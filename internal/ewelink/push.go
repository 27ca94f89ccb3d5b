package ewelink

import (
	"context"
	"fmt"
	"github.com/clambin/opendoor/internal/pubsub"
	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// A DeviceUpdate is sent when the push channel reports a new switch state for a device.
type DeviceUpdate struct {
	DeviceID  string    `json:"deviceId"`
	Switch    string    `json:"switch"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	defaultPingInterval = 2 * time.Minute
	minBackoff          = time.Second
	maxBackoff          = time.Minute
)

// Push listens on the eWeLink websocket for device updates and publishes them to its subscribers.
type Push struct {
	*pubsub.Publisher[DeviceUpdate]
	URL          string
	AppID        string
	APIKey       string
	Tokens       oauth2.TokenSource
	PingInterval time.Duration
	Dialer       *websocket.Dialer
	logger       *slog.Logger
}

// NewPush returns a Push for the configured region. The access token is taken from tokens each time we (re)connect.
func NewPush(cfg Config, tokens oauth2.TokenSource, logger *slog.Logger) *Push {
	url := cfg.PushURL
	if url == "" {
		url = "wss://" + cfg.Region + "-apia.coolkit.cc:8080/api/ws"
	}
	return &Push{
		Publisher:    pubsub.New[DeviceUpdate](logger),
		URL:          url,
		AppID:        cfg.AppID,
		APIKey:       cfg.APIKey,
		Tokens:       tokens,
		PingInterval: defaultPingInterval,
		Dialer:       websocket.DefaultDialer,
		logger:       logger,
	}
}

// Run connects to the push channel and reconnects, with exponential backoff, whenever the connection drops.
func (p *Push) Run(ctx context.Context) error {
	p.logger.Debug("started", "url", p.URL)
	defer p.logger.Debug("stopped")

	backoff := minBackoff
	for {
		start := time.Now()
		err := p.serve(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(start) > maxBackoff {
			backoff = minBackoff
		}
		p.logger.Warn("push channel disconnected", "err", err, "retry", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(2*backoff, maxBackoff)
	}
}

type pushMessage struct {
	Action    string         `json:"action,omitempty"`
	At        string         `json:"at,omitempty"`
	APIKey    string         `json:"apikey,omitempty"`
	AppID     string         `json:"appid,omitempty"`
	Seq       string         `json:"seq,omitempty"`
	Sequence  string         `json:"sequence,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	TS        string         `json:"ts,omitempty"`
	Version   int            `json:"version,omitempty"`
	DeviceID  string         `json:"deviceid,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Error     int            `json:"error,omitempty"`
}

func (p *Push) serve(ctx context.Context) error {
	token, err := p.Tokens.Token()
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	conn, _, err := p.Dialer.DialContext(ctx, p.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	var writeLock sync.Mutex
	write := func(msg pushMessage) error {
		writeLock.Lock()
		defer writeLock.Unlock()
		return conn.WriteJSON(msg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err = write(pushMessage{
		Action:    "userOnline",
		At:        token.AccessToken,
		APIKey:    p.APIKey,
		AppID:     p.AppID,
		Seq:       now,
		UserAgent: "app",
		TS:        now,
		Version:   8,
	}); err != nil {
		return fmt.Errorf("userOnline: %w", err)
	}
	p.logger.Debug("push channel connected")

	go p.ping(ctx, write)

	for {
		var msg pushMessage
		if err = conn.ReadJSON(&msg); err != nil {
			return err
		}
		p.handle(msg)
	}
}

func (p *Push) ping(ctx context.Context, write func(pushMessage) error) {
	ticker := time.NewTicker(p.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := write(pushMessage{Action: "ping", Seq: strconv.FormatInt(time.Now().Unix(), 10)}); err != nil {
				p.logger.Debug("ping failed", "err", err)
				return
			}
		}
	}
}

func (p *Push) handle(msg pushMessage) {
	switch msg.Action {
	case "update":
		state, ok := msg.Params["switch"].(string)
		if !ok || msg.DeviceID == "" {
			return
		}
		p.logger.Debug("device updated", "device", msg.DeviceID, "switch", state)
		p.Publish(DeviceUpdate{DeviceID: msg.DeviceID, Switch: state, Timestamp: time.Now()})
	case "sysmsg", "sysMsg":
	case "":
		if msg.Error != 0 {
			p.logger.Warn("push channel reported an error", "code", msg.Error)
		}
	default:
		p.logger.Debug("ignoring push message", "action", msg.Action)
	}
}
