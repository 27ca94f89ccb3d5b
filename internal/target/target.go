// Package target holds the monitoring target: the device to switch and the area where it should be switched.
package target

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/clambin/opendoor/internal/geo"
	"log/slog"
)

var (
	// ErrNotConfigured means no device was selected, or no area was drawn.
	ErrNotConfigured = errors.New("monitoring target not configured")
	// ErrInvalidTarget means the target cannot be monitored: the area has fewer than three points, or there is no device.
	ErrInvalidTarget = errors.New("invalid monitoring target")
)

// Target is the device to switch on once the phone is inside Polygon. It is read-only once loaded.
type Target struct {
	DeviceID             string      `json:"deviceId"`
	Polygon              geo.Polygon `json:"polygon"`
	Centroid             geo.Point   `json:"centroid"`
	GeofenceRadiusMeters float64     `json:"geofenceRadiusMeters"`
	GeofencingEnabled    bool        `json:"geofencingEnabled"`
}

var _ slog.LogValuer = Target{}

func (t Target) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("device", t.DeviceID),
		slog.Int("vertices", len(t.Polygon)),
		slog.Any("centroid", t.Centroid),
		slog.Bool("geofencing", t.GeofencingEnabled),
	)
}

// Configured reports whether a device and a usable area were set. An area of fewer than three points counts as not set.
func (t Target) Configured() bool {
	return t.DeviceID != "" && t.Polygon.Valid()
}

// Validate returns ErrInvalidTarget if the target cannot be monitored.
func (t Target) Validate() error {
	if t.DeviceID == "" {
		return fmt.Errorf("%w: no device", ErrInvalidTarget)
	}
	if !t.Polygon.Valid() {
		return fmt.Errorf("%w: area has %d points", ErrInvalidTarget, len(t.Polygon))
	}
	return nil
}

// Preferences gives read access to the persisted configuration. *viper.Viper satisfies it.
type Preferences interface {
	Get(key string) any
	GetString(key string) string
	GetFloat64(key string) float64
	GetBool(key string) bool
}

const (
	keyDeviceID       = "target.selectedDeviceId"
	keyPolygon        = "target.polygonCoordinates"
	keyCenter         = "target.polygonCenter"
	keyGeofenceRadius = "target.geofenceRadiusMeters"
	keyGeofencing     = "target.geofencingEnabled"
)

// Load reads the target from the configuration. The coordinates may be given as a JSON string (as the mobile app stores them)
// or as a list. If no centre is configured, the centroid of the area is used.
//
// Load does not validate the target: a missing device or area is reported by Configured and Validate.
func Load(p Preferences) (Target, error) {
	t := Target{
		DeviceID:             p.GetString(keyDeviceID),
		GeofenceRadiusMeters: p.GetFloat64(keyGeofenceRadius),
		GeofencingEnabled:    p.GetBool(keyGeofencing),
	}
	if err := decode(p.Get(keyPolygon), &t.Polygon); err != nil {
		return Target{}, fmt.Errorf("%s: %w", keyPolygon, err)
	}
	var center *geo.Point
	if err := decode(p.Get(keyCenter), &center); err != nil {
		return Target{}, fmt.Errorf("%s: %w", keyCenter, err)
	}
	if center != nil {
		t.Centroid = *center
	} else {
		t.Centroid = t.Polygon.Centroid()
	}
	return t, nil
}

func decode(value any, target any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		raw = []byte(v)
	default:
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, target)
}
