package location

import (
	"context"
	"fmt"
	"github.com/clambin/opendoor/internal/geo"
	"log/slog"
	"sync"
	"time"
)

// A Requester asks the phone to report its position as soon as possible.
type Requester interface {
	RequestLocation(ctx context.Context) error
}

var _ Source = &Tracker{}

// Tracker is a Source fed by positions that the phone reports asynchronously (e.g. through OwnTracks).
//
// CurrentLocation returns the latest reported position if it is recent enough. Otherwise, it asks the Requester (if any)
// for a new position and waits for it to arrive.
type Tracker struct {
	// Requester is optional. Without it, the Tracker waits for the phone's next regular report.
	Requester Requester
	// Permitted reports whether location tracking is allowed. Nil means always permitted.
	Permitted func() bool
	// MaxAge is how old a reported position may be and still count as current.
	MaxAge time.Duration
	Logger *slog.Logger

	now     func() time.Time
	lock    sync.Mutex
	last    Fix
	hasFix  bool
	updated chan struct{}
}

func NewTracker(requester Requester, maxAge time.Duration, logger *slog.Logger) *Tracker {
	return &Tracker{
		Requester: requester,
		MaxAge:    maxAge,
		Logger:    logger,
	}
}

// Report records a new position. Positions older than the current one are ignored.
func (t *Tracker) Report(fix Fix) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.init()
	if t.hasFix && fix.Timestamp.Before(t.last.Timestamp) {
		t.Logger.Debug("ignoring out-of-order position", "fix", fix.Point, "timestamp", fix.Timestamp)
		return
	}
	t.last = fix
	t.hasFix = true
	close(t.updated)
	t.updated = make(chan struct{})
}

// Last returns the latest reported position, if any.
func (t *Tracker) Last() (Fix, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.last, t.hasFix
}

func (t *Tracker) CurrentLocation(ctx context.Context, timeout time.Duration) (geo.Point, error) {
	if t.Permitted != nil && !t.Permitted() {
		return geo.Point{}, ErrPermissionDenied
	}

	t.lock.Lock()
	t.init()
	requested := t.now()
	if t.hasFix && requested.Sub(t.last.Timestamp) <= t.MaxAge {
		p := t.last.Point
		t.lock.Unlock()
		return p, nil
	}
	updated := t.updated
	t.lock.Unlock()

	if t.Requester != nil {
		if err := t.Requester.RequestLocation(ctx); err != nil {
			return geo.Point{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return geo.Point{}, ctx.Err()
		case <-timer.C:
			return geo.Point{}, ErrTimeout
		case <-updated:
		}

		t.lock.Lock()
		fix := t.last
		updated = t.updated
		t.lock.Unlock()

		// positions recorded before the request, but delivered late, are only accepted if still within MaxAge.
		if t.now().Sub(fix.Timestamp) <= t.MaxAge || !fix.Timestamp.Before(requested) {
			return fix.Point, nil
		}
	}
}

func (t *Tracker) init() {
	if t.updated == nil {
		t.updated = make(chan struct{})
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.Logger == nil {
		t.Logger = slog.Default()
	}
}
