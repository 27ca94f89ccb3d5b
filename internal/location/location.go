// Package location provides the current position of the tracked phone.
package location

import (
	"context"
	"errors"
	"github.com/clambin/opendoor/internal/geo"
	"time"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("location unavailable")
	ErrTimeout          = errors.New("timeout waiting for location")
)

// A Source returns the current position. It does not retry: a failed request returns ErrPermissionDenied, ErrUnavailable or ErrTimeout
// and the caller decides whether to try again.
//
//go:generate mockery --name Source --with-expecter
type Source interface {
	CurrentLocation(ctx context.Context, timeout time.Duration) (geo.Point, error)
}

// A Fix is a position reported by the phone.
type Fix struct {
	geo.Point
	Timestamp time.Time `json:"timestamp"`
	// Accuracy in meters, if reported
	Accuracy int `json:"accuracy,omitempty"`
}
