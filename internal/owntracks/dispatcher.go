package owntracks

import (
	"context"
	"errors"
	"fmt"
	"github.com/clambin/opendoor/internal/checker"
	"github.com/clambin/opendoor/internal/location"
	"github.com/clambin/opendoor/internal/target"
	"github.com/clambin/opendoor/internal/trigger"
	"log/slog"
)

// A Tracker receives the reported positions.
type Tracker interface {
	Report(location.Fix)
}

// A TransitionHandler receives geofence transitions.
type TransitionHandler interface {
	OnTransition(ctx context.Context, e trigger.Event) error
}

// Dispatcher sends positions to the Tracker and geofence transitions to the TransitionHandler.
type Dispatcher struct {
	Tracker     Tracker
	Transitions TransitionHandler
	// Target returns the monitoring target for a transition
	Target func() target.Target
	// Region only accepts transitions for the region with this name. Empty accepts all regions.
	Region string
	Logger *slog.Logger
}

// Handle processes one OwnTracks message. Messages of other types are ignored.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) error {
	msg, err := Decode(payload)
	if err != nil {
		return err
	}

	switch msg.Type {
	case TypeLocation:
		if err = msg.validate(); err != nil {
			return err
		}
		d.Tracker.Report(msg.Fix())
		return nil
	case TypeTransition:
		return d.transition(ctx, msg)
	default:
		d.Logger.Debug("ignoring message", "type", msg.Type)
		return nil
	}
}

func (d *Dispatcher) transition(ctx context.Context, msg Message) error {
	event := trigger.Event{Target: d.Target()}
	switch msg.Event {
	case EventEnter:
		event.Type = trigger.Enter
	case EventLeave:
		event.Type = trigger.Exit
	default:
		return fmt.Errorf("invalid transition event %q", msg.Event)
	}
	if d.Region != "" && msg.Desc != d.Region {
		d.Logger.Debug("ignoring transition for other region", "region", msg.Desc)
		return nil
	}
	if msg.validate() == nil {
		fix := msg.Fix()
		d.Tracker.Report(fix)
		event.Location = &fix.Point
	}
	d.Logger.Info("geofence transition", "event", msg.Event, "region", msg.Desc)
	if err := d.Transitions.OnTransition(ctx, event); !errors.Is(err, checker.ErrGuardBusy) {
		return err
	}
	// a check loop is already running
	return nil
}
