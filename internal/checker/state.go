package checker

import (
	"log/slog"
	"time"
)

// State of a check loop.
type State int

const (
	Idle State = iota
	Running
	Succeeded
	TimedOut
	Cancelled
	Failed
)

var stateNames = map[State]string{
	Idle:      "idle",
	Running:   "running",
	Succeeded: "succeeded",
	TimedOut:  "timed_out",
	Cancelled: "cancelled",
	Failed:    "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of a check loop.
type Outcome struct {
	State         State         `json:"state"`
	ReachedTarget bool          `json:"reachedTarget"`
	Elapsed       time.Duration `json:"elapsed"`
	Polls         int           `json:"polls"`
	// LastErr holds the last location or actuation error. It may be set for a Succeeded loop, if switching the device failed.
	LastErr error `json:"-"`
}

var _ slog.LogValuer = Outcome{}

func (o Outcome) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("state", o.State.String()),
		slog.Bool("reachedTarget", o.ReachedTarget),
		slog.Duration("elapsed", o.Elapsed),
		slog.Int("polls", o.Polls),
	}
	if o.LastErr != nil {
		attrs = append(attrs, slog.String("lastErr", o.LastErr.Error()))
	}
	return slog.GroupValue(attrs...)
}
