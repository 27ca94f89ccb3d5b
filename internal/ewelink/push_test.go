package ewelink

import (
	"context"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPush(t *testing.T) {
	online := make(chan pushMessage, 1)
	upgrader := websocket.Upgrader{}
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		var msg pushMessage
		if err = conn.ReadJSON(&msg); err != nil {
			return
		}
		online <- msg
		_ = conn.WriteJSON(map[string]any{"error": 0, "apikey": "user"})
		_ = conn.WriteJSON(map[string]any{"action": "update", "deviceid": "1000abcdef", "params": map[string]any{"rssi": -50}})
		_ = conn.WriteJSON(map[string]any{"action": "update", "deviceid": "1000abcdef", "params": map[string]any{"switch": "on"}})

		for {
			if err = conn.ReadJSON(&msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.Close)

	p := NewPush(
		Config{AppID: "app", AppSecret: "secret", APIKey: "user-key", PushURL: "ws" + strings.TrimPrefix(s.URL, "http")},
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"}),
		discard,
	)
	p.PingInterval = 10 * time.Millisecond
	ch := p.Subscribe()
	defer p.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- p.Run(ctx) }()

	msg := <-online
	assert.Equal(t, "userOnline", msg.Action)
	assert.Equal(t, "token", msg.At)
	assert.Equal(t, "app", msg.AppID)
	assert.Equal(t, "user-key", msg.APIKey)
	assert.Equal(t, 8, msg.Version)

	update := <-ch
	assert.Equal(t, "1000abcdef", update.DeviceID)
	assert.Equal(t, SwitchOn, update.Switch)

	cancel()
	require.NoError(t, <-errCh)
}

func TestPush_Reconnect(t *testing.T) {
	connections := make(chan struct{}, 10)
	upgrader := websocket.Upgrader{}
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connections <- struct{}{}
		// drop the connection straight away
		_ = conn.Close()
	}))
	t.Cleanup(s.Close)

	p := NewPush(
		Config{AppID: "app", AppSecret: "secret", APIKey: "user-key", PushURL: "ws" + strings.TrimPrefix(s.URL, "http")},
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"}),
		discard,
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- p.Run(ctx) }()

	<-connections
	<-connections
	cancel()
	require.NoError(t, <-errCh)
}
