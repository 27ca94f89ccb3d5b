package location

import (
	"context"
	"errors"
	"github.com/clambin/opendoor/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRequester struct {
	calls atomic.Int32
	err   error
	onReq func()
}

func (f *fakeRequester) RequestLocation(_ context.Context) error {
	f.calls.Add(1)
	if f.onReq != nil {
		go f.onReq()
	}
	return f.err
}

func TestTracker_CurrentLocation_Fresh(t *testing.T) {
	r := fakeRequester{}
	tr := NewTracker(&r, time.Minute, nil)
	tr.Report(Fix{Point: geo.Point{Lat: 1, Lng: 2}, Timestamp: time.Now()})

	p, err := tr.CurrentLocation(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: 1, Lng: 2}, p)
	assert.Zero(t, r.calls.Load())
}

func TestTracker_CurrentLocation_Requested(t *testing.T) {
	var tr *Tracker
	r := fakeRequester{onReq: func() {
		tr.Report(Fix{Point: geo.Point{Lat: 3, Lng: 4}, Timestamp: time.Now()})
	}}
	tr = NewTracker(&r, time.Minute, nil)
	tr.Report(Fix{Point: geo.Point{Lat: 1, Lng: 2}, Timestamp: time.Now().Add(-time.Hour)})

	p, err := tr.CurrentLocation(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: 3, Lng: 4}, p)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestTracker_CurrentLocation_Timeout(t *testing.T) {
	tr := NewTracker(nil, time.Minute, nil)
	_, err := tr.CurrentLocation(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTracker_CurrentLocation_Cancelled(t *testing.T) {
	tr := NewTracker(nil, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := tr.CurrentLocation(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTracker_CurrentLocation_PermissionDenied(t *testing.T) {
	r := fakeRequester{}
	tr := NewTracker(&r, time.Minute, nil)
	tr.Permitted = func() bool { return false }
	tr.Report(Fix{Point: geo.Point{Lat: 1, Lng: 2}, Timestamp: time.Now()})

	_, err := tr.CurrentLocation(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Zero(t, r.calls.Load())
}

func TestTracker_CurrentLocation_RequestFails(t *testing.T) {
	r := fakeRequester{err: errors.New("broker down")}
	tr := NewTracker(&r, time.Minute, nil)

	_, err := tr.CurrentLocation(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTracker_Report_OutOfOrder(t *testing.T) {
	tr := NewTracker(nil, time.Minute, nil)
	now := time.Now()
	tr.Report(Fix{Point: geo.Point{Lat: 1}, Timestamp: now})
	tr.Report(Fix{Point: geo.Point{Lat: 2}, Timestamp: now.Add(-time.Second)})

	fix, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, 1.0, fix.Lat)
}
