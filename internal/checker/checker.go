// Package checker implements the location check loop: poll the phone's position until it is inside the target area,
// then switch the device on.
package checker

import (
	"context"
	"errors"
	"fmt"
	"github.com/clambin/opendoor/internal/actuator"
	"github.com/clambin/opendoor/internal/interval"
	"github.com/clambin/opendoor/internal/location"
	"github.com/clambin/opendoor/internal/notifier"
	"github.com/clambin/opendoor/internal/target"
	"log/slog"
	"time"
)

// ErrGuardBusy is returned when another loop is already running for the same device.
var ErrGuardBusy = errors.New("monitoring already active")

const releaseTimeout = 5 * time.Second

// Options tune the check loop. Zero values are replaced by their defaults.
type Options struct {
	// MaxDuration is the hard ceiling on the loop's duration
	MaxDuration time.Duration `mapstructure:"maxDuration"`
	// LocationTimeout bounds each location request
	LocationTimeout time.Duration `mapstructure:"locationTimeout"`
	// FastInterval is the fixed poll cadence while geofencing is enabled
	FastInterval time.Duration `mapstructure:"fastInterval"`
	// FallbackDelay is used when no distance is known yet
	FallbackDelay time.Duration `mapstructure:"fallbackDelay"`
	// Intervals maps the distance to the target to the delay before the next poll, when geofencing is disabled
	Intervals interval.Table `mapstructure:"intervals"`
}

var DefaultOptions = Options{
	MaxDuration:     10 * time.Minute,
	LocationTimeout: 30 * time.Second,
	FastInterval:    time.Second,
	FallbackDelay:   10 * time.Second,
	Intervals:       interval.DefaultTable,
}

func (o Options) withDefaults() Options {
	if o.MaxDuration <= 0 {
		o.MaxDuration = DefaultOptions.MaxDuration
	}
	if o.LocationTimeout <= 0 {
		o.LocationTimeout = DefaultOptions.LocationTimeout
	}
	if o.FastInterval <= 0 {
		o.FastInterval = DefaultOptions.FastInterval
	}
	if o.FallbackDelay <= 0 {
		o.FallbackDelay = DefaultOptions.FallbackDelay
	}
	if len(o.Intervals.Steps) == 0 && o.Intervals.Otherwise <= 0 {
		o.Intervals = DefaultOptions.Intervals
	}
	return o
}

// A Guard makes sure only one loop runs per device. See guard.Guard.
type Guard interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Loop runs check loops. A Loop can run loops for different targets concurrently; the guard returned by Guards
// serialises loops for the same device.
type Loop struct {
	Location location.Source
	Actuator actuator.Actuator
	Guards   func(deviceID string) Guard
	// Notifier receives the messages the user should see: the gate opened, or monitoring failed
	Notifier notifier.Notifier
	// Progress receives a message for every poll
	Progress notifier.Notifier
	Options  Options
	Clock    Clock
	Metrics  *Metrics
	Logger   *slog.Logger
}

// Run starts a check loop for t and waits for it to finish.
func (l *Loop) Run(ctx context.Context, t target.Target) (Outcome, error) {
	s, err := l.Begin(ctx, t)
	if err != nil {
		return Outcome{State: Failed, LastErr: err}, err
	}
	return s.Run(ctx), nil
}

// Begin validates the target and takes the device's guard. It returns target.ErrInvalidTarget or ErrGuardBusy
// if the loop cannot start. On success, the caller must call Run on the returned Session, which releases the guard.
func (l *Loop) Begin(ctx context.Context, t target.Target) (*Session, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	g := l.Guards(t.DeviceID)
	ok, err := g.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}
	if !ok {
		return nil, ErrGuardBusy
	}
	clock := l.Clock
	if clock == nil {
		clock = realClock{}
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		loop:     l,
		target:   t,
		guard:    g,
		options:  l.Options.withDefaults(),
		clock:    clock,
		notifier: orNop(l.Notifier),
		progress: orNop(l.Progress),
		logger:   logger.With("device", t.DeviceID),
	}, nil
}

// A Session is a single check loop. It holds the device's guard until Run returns.
type Session struct {
	loop     *Loop
	target   target.Target
	guard    Guard
	options  Options
	clock    Clock
	notifier notifier.Notifier
	progress notifier.Notifier
	logger   *slog.Logger
}

func orNop(n notifier.Notifier) notifier.Notifier {
	if n == nil {
		return notifier.Notifiers{}
	}
	return n
}

// Run polls the location until the phone is inside the target area, MaxDuration passes or ctx is cancelled.
// The guard is released on every exit path.
func (s *Session) Run(ctx context.Context) (outcome Outcome) {
	start := s.clock.Now()
	defer func() {
		outcome.Elapsed = s.clock.Now().Sub(start)
		s.release(ctx)
		s.loop.Metrics.run(outcome.State)
		s.logger.Info("check loop done", "outcome", outcome)
	}()

	s.logger.Info("check loop started", "target", s.target, "maxDuration", s.options.MaxDuration)
	outcome.State = Running

	var (
		distance    float64
		hasDistance bool
		gotFix      bool
		allDenied   = true
	)

	for outcome.State == Running {
		remaining := s.options.MaxDuration - s.clock.Now().Sub(start)
		if remaining <= 0 {
			outcome.State = TimedOut
			break
		}
		if ctx.Err() != nil {
			outcome.State = Cancelled
			break
		}

		outcome.Polls++
		s.loop.Metrics.poll()
		point, err := s.loop.Location.CurrentLocation(ctx, min(s.options.LocationTimeout, remaining))

		switch {
		case err != nil && ctx.Err() != nil:
			outcome.State = Cancelled
			continue
		case err != nil:
			outcome.LastErr = err
			allDenied = allDenied && errors.Is(err, location.ErrPermissionDenied)
			s.logger.Warn("location unavailable", "err", err)
			s.progress.Notify("location unavailable: " + err.Error())
		default:
			gotFix = true
			allDenied = false
			// the target was validated in Begin, so Contains can't fail
			inside, _ := s.target.Polygon.Contains(point, true)
			if inside {
				if ctx.Err() != nil {
					outcome.State = Cancelled
					continue
				}
				s.actuate(ctx, &outcome)
				continue
			}
			distance = s.target.Polygon.NearestVertexDistanceKm(point)
			hasDistance = true
			s.loop.Metrics.observeDistance(distance)
		}

		delay := s.nextDelay(distance, hasDistance)
		if remaining = s.options.MaxDuration - s.clock.Now().Sub(start); delay > remaining {
			delay = max(remaining, 0)
		}
		if err == nil {
			s.logger.Debug("outside target area", "location", point, "distance", distance, "delay", delay)
			s.progress.Notify(fmt.Sprintf("location %s: %.2f km from target. next check in %s", point, distance, delay))
		}

		select {
		case <-ctx.Done():
			outcome.State = Cancelled
		case <-s.clock.After(delay):
		}
	}

	if outcome.State == TimedOut && !gotFix && allDenied && outcome.Polls > 0 {
		outcome.State = Failed
		s.notifier.Notify("monitoring failed: location permission denied")
	}
	return outcome
}

func (s *Session) actuate(ctx context.Context, outcome *Outcome) {
	err := s.loop.Actuator.SetSwitch(ctx, s.target.DeviceID, actuator.On)
	s.loop.Metrics.actuation(err)
	outcome.ReachedTarget = true
	outcome.State = Succeeded
	if err != nil {
		outcome.LastErr = err
		s.logger.Warn("inside target area, but failed to switch device on", "err", err)
		s.notifier.Notify("inside target area, but the gate did not open: " + err.Error())
		return
	}
	s.logger.Info("inside target area. device switched on")
	s.notifier.Notify("gate opened at " + s.clock.Now().Format(time.TimeOnly))
}

func (s *Session) nextDelay(distance float64, hasDistance bool) time.Duration {
	switch {
	case s.target.GeofencingEnabled:
		return s.options.FastInterval
	case hasDistance:
		return s.options.Intervals.NextDelay(distance)
	default:
		return s.options.FallbackDelay
	}
}

func (s *Session) release(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.guard.Release(ctx); err != nil {
		s.logger.Error("failed to release guard", "err", err)
	}
}
