// Package interval decides how long to wait before checking the location again, based on the distance to the target area.
package interval

import (
	"errors"
	"fmt"
	"time"
)

// minDelay is returned when a table would otherwise produce a non-positive delay.
const minDelay = time.Second

// A Step applies Delay to any distance strictly below Below (in km).
type Step struct {
	Below float64       `mapstructure:"below" json:"below" yaml:"below"`
	Delay time.Duration `mapstructure:"delay" json:"delay" yaml:"delay"`
}

// A Table is a step function mapping distance to delay. Steps are evaluated in order; distances beyond the last step
// get the Otherwise delay.
type Table struct {
	Steps     []Step        `mapstructure:"steps" json:"steps" yaml:"steps"`
	Otherwise time.Duration `mapstructure:"otherwise" json:"otherwise" yaml:"otherwise"`
}

// DefaultTable is the reference table: the closer we are, the more often we check.
var DefaultTable = Table{
	Steps: []Step{
		{Below: 0.5, Delay: time.Second},
		{Below: 1, Delay: 10 * time.Second},
		{Below: 5, Delay: 5 * time.Minute},
		{Below: 20, Delay: 15 * time.Minute},
		{Below: 50, Delay: 30 * time.Minute},
	},
	Otherwise: time.Hour,
}

// NextDelay returns the delay before the next check, for the given distance to the target. It never returns a non-positive duration.
func (t Table) NextDelay(distanceKm float64) time.Duration {
	delay := t.Otherwise
	for _, step := range t.Steps {
		if distanceKm < step.Below {
			delay = step.Delay
			break
		}
	}
	if delay <= 0 {
		delay = minDelay
	}
	return delay
}

var (
	ErrNotAscending = errors.New("steps must have ascending distances")
	ErrNotMonotonic = errors.New("delays must not decrease with distance")
	ErrNonPositive  = errors.New("delays must be positive")
)

// Validate checks that the table is a monotonic step function: distances ascend, delays are positive and never shrink as the distance grows.
func (t Table) Validate() error {
	var last Step
	for i, step := range t.Steps {
		if step.Delay <= 0 {
			return fmt.Errorf("step %d: %w", i, ErrNonPositive)
		}
		if i > 0 {
			if step.Below <= last.Below {
				return fmt.Errorf("step %d: %w", i, ErrNotAscending)
			}
			if step.Delay < last.Delay {
				return fmt.Errorf("step %d: %w", i, ErrNotMonotonic)
			}
		}
		last = step
	}
	if t.Otherwise <= 0 {
		return fmt.Errorf("otherwise: %w", ErrNonPositive)
	}
	if t.Otherwise < last.Delay {
		return fmt.Errorf("otherwise: %w", ErrNotMonotonic)
	}
	return nil
}
