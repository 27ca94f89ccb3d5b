// Package trigger starts and stops check loops in response to geofence transitions and manual requests.
package trigger

import (
	"context"
	"errors"
	"github.com/clambin/opendoor/internal/checker"
	"github.com/clambin/opendoor/internal/geo"
	"github.com/clambin/opendoor/internal/pubsub"
	"github.com/clambin/opendoor/internal/target"
	"log/slog"
	"sync"
	"time"
)

// EventType is the type of geofence transition.
type EventType int

const (
	Enter EventType = iota
	Exit
)

func (e EventType) String() string {
	if e == Exit {
		return "exit"
	}
	return "enter"
}

// An Event is a geofence transition for a target. Location is the position that triggered it, if known.
type Event struct {
	Type     EventType
	Target   target.Target
	Location *geo.Point
}

// A Runner validates the target and takes the guard, returning a session that runs the check loop. *checker.Loop implements it.
type Runner interface {
	Begin(ctx context.Context, t target.Target) (*checker.Session, error)
}

// A Report is published each time a check loop ends.
type Report struct {
	DeviceID string          `json:"deviceId"`
	Started  time.Time       `json:"started"`
	Outcome  checker.Outcome `json:"outcome"`
	Error    string          `json:"error,omitempty"`
}

// ActiveLoop describes a running check loop.
type ActiveLoop struct {
	DeviceID string    `json:"deviceId"`
	Started  time.Time `json:"started"`
}

// ErrStopped is returned when a check loop is requested after the Trigger has shut down.
var ErrStopped = errors.New("trigger stopped")

// Trigger starts a check loop when the phone enters the geofence and cancels it when the phone leaves.
// Loops run in the background, bound to the context passed to Run.
type Trigger struct {
	*pubsub.Publisher[Report]
	runner Runner
	logger *slog.Logger
	lock   sync.Mutex
	base   context.Context
	stop   context.CancelFunc
	closed bool
	active map[string]*activeLoop
	wg     sync.WaitGroup
}

type activeLoop struct {
	started time.Time
	cancel  context.CancelFunc
}

func New(runner Runner, logger *slog.Logger) *Trigger {
	base, stop := context.WithCancel(context.Background())
	return &Trigger{
		Publisher: pubsub.New[Report](logger),
		runner:    runner,
		logger:    logger,
		base:      base,
		stop:      stop,
		active:    make(map[string]*activeLoop),
	}
}

// Run sets the lifetime of the check loops, including those started before Run was called.
// When ctx is cancelled, all running loops are cancelled and Run waits for them to finish.
// Loops requested after that fail with ErrStopped.
func (t *Trigger) Run(ctx context.Context) error {
	t.logger.Debug("started")
	defer t.logger.Debug("stopped")

	<-ctx.Done()

	t.lock.Lock()
	t.closed = true
	t.stop()
	t.lock.Unlock()

	t.wg.Wait()
	return nil
}

// OnTransition handles a geofence transition. ENTER starts a check loop without waiting for it to finish.
// EXIT cancels the running loop for the target's device, but doesn't switch the device off.
//
// It returns target.ErrNotConfigured if no device or area is set, and checker.ErrGuardBusy if a loop is already running.
func (t *Trigger) OnTransition(ctx context.Context, e Event) error {
	t.logger.Debug("geofence transition", "type", e.Type.String(), "target", e.Target)
	switch e.Type {
	case Enter:
		return t.Start(ctx, e.Target)
	case Exit:
		if !e.Target.Configured() {
			return target.ErrNotConfigured
		}
		t.Stop(e.Target.DeviceID)
	}
	return nil
}

// Start starts a check loop for tgt in the background.
func (t *Trigger) Start(ctx context.Context, tgt target.Target) error {
	if !tgt.Configured() {
		t.logger.Warn("monitoring target not configured. ignoring")
		return target.ErrNotConfigured
	}
	if t.stopped() {
		return ErrStopped
	}

	s, err := t.runner.Begin(ctx, tgt)
	if err != nil {
		if errors.Is(err, checker.ErrGuardBusy) {
			t.logger.Debug("check loop already running", "device", tgt.DeviceID)
		} else {
			t.logger.Warn("failed to start check loop", "device", tgt.DeviceID, "err", err)
		}
		return err
	}

	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		// shut down while taking the guard: the session ends at once and releases it.
		s.Run(t.base)
		return ErrStopped
	}
	loopCtx, cancel := context.WithCancel(t.base)
	running := &activeLoop{started: time.Now(), cancel: cancel}
	t.active[tgt.DeviceID] = running
	t.wg.Add(1)
	t.lock.Unlock()

	go func() {
		defer t.wg.Done()
		defer cancel()

		outcome := s.Run(loopCtx)

		t.lock.Lock()
		if t.active[tgt.DeviceID] == running {
			delete(t.active, tgt.DeviceID)
		}
		t.lock.Unlock()

		report := Report{DeviceID: tgt.DeviceID, Started: running.started, Outcome: outcome}
		if outcome.LastErr != nil {
			report.Error = outcome.LastErr.Error()
		}
		t.Publish(report)
	}()
	return nil
}

func (t *Trigger) stopped() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.closed
}

// Stop cancels the check loop for deviceID. It returns false if no loop was running.
func (t *Trigger) Stop(deviceID string) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	running, ok := t.active[deviceID]
	if ok {
		t.logger.Info("stopping check loop", "device", deviceID)
		running.cancel()
		delete(t.active, deviceID)
	}
	return ok
}

// Active returns the running check loops.
func (t *Trigger) Active() []ActiveLoop {
	t.lock.Lock()
	defer t.lock.Unlock()
	loops := make([]ActiveLoop, 0, len(t.active))
	for deviceID, running := range t.active {
		loops = append(loops, ActiveLoop{DeviceID: deviceID, Started: running.started})
	}
	return loops
}
