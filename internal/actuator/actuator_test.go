package actuator

import (
	"context"
	"errors"
	"fmt"
	"github.com/clambin/opendoor/internal/ewelink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

type fakeSwitcher struct {
	err      error
	deviceID string
	on       bool
}

func (f *fakeSwitcher) SetSwitch(_ context.Context, deviceID string, on bool) error {
	f.deviceID = deviceID
	f.on = on
	return f.err
}

func TestEWeLink_SetSwitch(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "accepted"},
		{name: "unauthorized", err: fmt.Errorf("post: %w", ewelink.ErrUnauthorized), wantErr: ErrAuthExpired},
		{name: "rejected", err: &ewelink.APIError{Code: 4002, Msg: "device offline"}, wantErr: &RemoteRejectedError{}},
		{name: "http error", err: &ewelink.HTTPError{StatusCode: 500, Status: "500 Internal Server Error"}, wantErr: &RemoteRejectedError{}},
		{name: "network", err: errors.New("connection refused"), wantErr: ErrNetworkFailure},
		{name: "cancelled", err: context.Canceled, wantErr: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := fakeSwitcher{err: tt.err}
			err := EWeLink{Client: &s}.SetSwitch(context.Background(), "1000abcdef", On)
			assert.Equal(t, "1000abcdef", s.deviceID)
			assert.True(t, s.on)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRemoteRejectedError(t *testing.T) {
	err := classify(&ewelink.APIError{Code: 4002, Msg: "device offline"})
	var rejected *RemoteRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, 4002, rejected.Code)
	assert.Equal(t, "device offline", rejected.Message)
	assert.Equal(t, "command rejected: device offline (code 4002)", err.Error())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "on", On.String())
	assert.Equal(t, "off", Off.String())
}
