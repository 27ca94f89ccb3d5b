// Package actuator switches the target device through the vendor API.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"github.com/clambin/opendoor/internal/ewelink"
)

// State is the requested state of a switch.
type State int

const (
	Off State = iota
	On
)

func (s State) String() string {
	if s == On {
		return "on"
	}
	return "off"
}

var (
	// ErrAuthExpired means the vendor no longer accepts our credentials, even after refreshing them.
	ErrAuthExpired = errors.New("authentication expired")
	// ErrNetworkFailure means the command may not have reached the vendor.
	ErrNetworkFailure = errors.New("network failure")
)

// RemoteRejectedError is returned when the vendor received the command but refused it.
type RemoteRejectedError struct {
	Code    int
	Message string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("command rejected: %s (code %d)", e.Message, e.Code)
}

func (e *RemoteRejectedError) Is(target error) bool {
	_, ok := target.(*RemoteRejectedError)
	return ok
}

// An Actuator changes the state of a device. A nil error means the vendor accepted the command; the real-world effect is not confirmed.
//
//go:generate mockery --name Actuator --with-expecter
type Actuator interface {
	SetSwitch(ctx context.Context, deviceID string, state State) error
}

// A Switcher is the vendor API collaborator. It handles authentication, request signing and token refresh.
type Switcher interface {
	SetSwitch(ctx context.Context, deviceID string, on bool) error
}

var _ Actuator = EWeLink{}

// EWeLink drives a device through the eWeLink API and maps its errors to ErrAuthExpired, *RemoteRejectedError or ErrNetworkFailure.
type EWeLink struct {
	Client Switcher
}

func (e EWeLink) SetSwitch(ctx context.Context, deviceID string, state State) error {
	return classify(e.Client.SetSwitch(ctx, deviceID, state == On))
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ewelink.ErrUnauthorized) {
		return fmt.Errorf("%w: %w", ErrAuthExpired, err)
	}
	var apiErr *ewelink.APIError
	if errors.As(err, &apiErr) {
		return &RemoteRejectedError{Code: apiErr.Code, Message: apiErr.Msg}
	}
	var httpErr *ewelink.HTTPError
	if errors.As(err, &httpErr) {
		return &RemoteRejectedError{Code: httpErr.StatusCode, Message: httpErr.Status}
	}
	return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
}
