// Package health reports the state of the monitor: running check loops, the latest loop outcome, the phone's
// last known position and the device states received from the push channel.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/clambin/opendoor/internal/ewelink"
	"github.com/clambin/opendoor/internal/location"
	"github.com/clambin/opendoor/internal/notifier"
	"github.com/clambin/opendoor/internal/trigger"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const maxProgress = 20

// A Subscriber publishes updates of type T.
type Subscriber[T any] interface {
	Subscribe() chan T
	Unsubscribe(chan T)
}

// Loops reports the running check loops. *trigger.Trigger implements it.
type Loops interface {
	Subscriber[trigger.Report]
	Active() []trigger.ActiveLoop
}

// Positions reports the phone's last known position. *location.Tracker implements it.
type Positions interface {
	Last() (location.Fix, bool)
}

// Health collects the monitor's state and serves it as JSON. It also implements notifier.Notifier, keeping the most
// recent progress messages.
type Health struct {
	Loops     Loops
	Positions Positions
	// Updates is optional
	Updates Subscriber[ewelink.DeviceUpdate]
	// Notifier, if set, is told when a device changes state
	Notifier notifier.Notifier
	logger   *slog.Logger

	lock       sync.RWMutex
	lastReport *trigger.Report
	devices    map[string]ewelink.DeviceUpdate
	progress   []Message
}

var _ notifier.Notifier = &Health{}

// A Message is a progress message with the time it was received.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Status is the JSON document served by Health.
type Status struct {
	Active     []trigger.ActiveLoop            `json:"active"`
	LastReport *trigger.Report                 `json:"lastReport,omitempty"`
	LastFix    *location.Fix                   `json:"lastFix,omitempty"`
	Devices    map[string]ewelink.DeviceUpdate `json:"devices,omitempty"`
	Progress   []Message                       `json:"progress"`
}

func New(loops Loops, positions Positions, logger *slog.Logger) *Health {
	return &Health{
		Loops:     loops,
		Positions: positions,
		logger:    logger,
		devices:   make(map[string]ewelink.DeviceUpdate),
	}
}

func (h *Health) Run(ctx context.Context) error {
	h.logger.Debug("started")
	defer h.logger.Debug("stopped")

	reports := h.Loops.Subscribe()
	defer h.Loops.Unsubscribe(reports)

	var updates chan ewelink.DeviceUpdate
	if h.Updates != nil {
		updates = h.Updates.Subscribe()
		defer h.Updates.Unsubscribe(updates)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case report := <-reports:
			h.lock.Lock()
			h.lastReport = &report
			h.lock.Unlock()
		case update := <-updates:
			h.deviceUpdate(update)
		}
	}
}

func (h *Health) deviceUpdate(update ewelink.DeviceUpdate) {
	h.lock.Lock()
	previous, known := h.devices[update.DeviceID]
	h.devices[update.DeviceID] = update
	h.lock.Unlock()

	if h.Notifier != nil && known && previous.Switch != update.Switch {
		h.Notifier.Notify(fmt.Sprintf("device %s switched %s", update.DeviceID, update.Switch))
	}
}

// Notify records a progress message.
func (h *Health) Notify(msg string) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.progress = append(h.progress, Message{Timestamp: time.Now(), Text: msg})
	if len(h.progress) > maxProgress {
		h.progress = h.progress[len(h.progress)-maxProgress:]
	}
}

// Status returns the current state of the monitor.
func (h *Health) Status() Status {
	status := Status{Active: h.Loops.Active()}
	if fix, ok := h.Positions.Last(); ok {
		status.LastFix = &fix
	}

	h.lock.RLock()
	defer h.lock.RUnlock()
	status.LastReport = h.lastReport
	if len(h.devices) > 0 {
		status.Devices = make(map[string]ewelink.DeviceUpdate, len(h.devices))
		for id, update := range h.devices {
			status.Devices[id] = update
		}
	}
	status.Progress = append(make([]Message, 0, len(h.progress)), h.progress...)
	return status
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(h.Status()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
