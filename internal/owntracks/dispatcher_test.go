package owntracks

import (
	"context"
	"github.com/clambin/opendoor/internal/checker"
	"github.com/clambin/opendoor/internal/geo"
	"github.com/clambin/opendoor/internal/location"
	"github.com/clambin/opendoor/internal/target"
	"github.com/clambin/opendoor/internal/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakeTracker struct {
	lock  sync.Mutex
	fixes []location.Fix
}

func (f *fakeTracker) Report(fix location.Fix) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.fixes = append(f.fixes, fix)
}

type fakeTransitions struct {
	events []trigger.Event
	err    error
}

func (f *fakeTransitions) OnTransition(_ context.Context, e trigger.Event) error {
	f.events = append(f.events, e)
	return f.err
}

var testTarget = target.Target{
	DeviceID: "1000abcd",
	Polygon:  geo.Polygon{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}},
}

func newDispatcher(region string) (*Dispatcher, *fakeTracker, *fakeTransitions) {
	tr := fakeTracker{}
	ev := fakeTransitions{}
	return &Dispatcher{
		Tracker:     &tr,
		Transitions: &ev,
		Target:      func() target.Target { return testTarget },
		Region:      region,
		Logger:      slog.Default(),
	}, &tr, &ev
}

func TestDispatcher_Handle(t *testing.T) {
	tests := []struct {
		name        string
		region      string
		payload     string
		wantErr     assert.ErrorAssertionFunc
		wantFixes   int
		wantEvents  []trigger.EventType
		wantLocated bool
	}{
		{
			name:      "location",
			payload:   `{"_type":"location","lat":0.5,"lon":0.5,"tst":1700000000,"acc":10,"tid":"ph"}`,
			wantErr:   assert.NoError,
			wantFixes: 1,
		},
		{
			name:    "invalid location",
			payload: `{"_type":"location","lat":95,"lon":0.5,"tst":1700000000}`,
			wantErr: assert.Error,
		},
		{
			name:    "invalid json",
			payload: `not json`,
			wantErr: assert.Error,
		},
		{
			name:    "other type",
			payload: `{"_type":"lwt","tst":1700000000}`,
			wantErr: assert.NoError,
		},
		{
			name:        "enter",
			payload:     `{"_type":"transition","event":"enter","desc":"home","lat":0.5,"lon":0.5,"tst":1700000000}`,
			wantErr:     assert.NoError,
			wantFixes:   1,
			wantEvents:  []trigger.EventType{trigger.Enter},
			wantLocated: true,
		},
		{
			name:       "leave without position",
			payload:    `{"_type":"transition","event":"leave","desc":"home"}`,
			wantErr:    assert.NoError,
			wantEvents: []trigger.EventType{trigger.Exit},
		},
		{
			name:        "matching region",
			region:      "home",
			payload:     `{"_type":"transition","event":"enter","desc":"home","lat":0.5,"lon":0.5,"tst":1700000000}`,
			wantErr:     assert.NoError,
			wantFixes:   1,
			wantEvents:  []trigger.EventType{trigger.Enter},
			wantLocated: true,
		},
		{
			name:    "other region",
			region:  "home",
			payload: `{"_type":"transition","event":"enter","desc":"work","lat":0.5,"lon":0.5,"tst":1700000000}`,
			wantErr: assert.NoError,
		},
		{
			name:    "invalid event",
			payload: `{"_type":"transition","event":"dwell","desc":"home"}`,
			wantErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, tr, ev := newDispatcher(tt.region)
			tt.wantErr(t, d.Handle(context.Background(), []byte(tt.payload)))
			assert.Len(t, tr.fixes, tt.wantFixes)
			require.Len(t, ev.events, len(tt.wantEvents))
			for i, e := range ev.events {
				assert.Equal(t, tt.wantEvents[i], e.Type)
				assert.Equal(t, testTarget.DeviceID, e.Target.DeviceID)
				assert.Equal(t, tt.wantLocated, e.Location != nil)
			}
		})
	}
}

func TestMessage_Fix(t *testing.T) {
	msg, err := Decode([]byte(`{"_type":"location","lat":50.85,"lon":4.35,"tst":1700000000,"acc":12}`))
	require.NoError(t, err)
	fix := msg.Fix()
	assert.Equal(t, geo.Point{Lat: 50.85, Lng: 4.35}, fix.Point)
	assert.Equal(t, time.Unix(1700000000, 0), fix.Timestamp)
	assert.Equal(t, 12, fix.Accuracy)
}

func TestDispatcher_Handle_AlreadyRunning(t *testing.T) {
	d, _, ev := newDispatcher("")
	ev.err = checker.ErrGuardBusy
	assert.NoError(t, d.Handle(context.Background(), []byte(`{"_type":"transition","event":"enter","desc":"home"}`)))
	assert.Len(t, ev.events, 1)

	ev.err = target.ErrNotConfigured
	assert.ErrorIs(t, d.Handle(context.Background(), []byte(`{"_type":"transition","event":"enter","desc":"home"}`)), target.ErrNotConfigured)
}
