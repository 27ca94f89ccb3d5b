// Package owntracks receives positions and geofence transitions reported by the OwnTracks app, over MQTT or HTTP.
package owntracks

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/clambin/opendoor/internal/geo"
	"github.com/clambin/opendoor/internal/location"
	"time"
)

const (
	TypeLocation   = "location"
	TypeTransition = "transition"

	EventEnter = "enter"
	EventLeave = "leave"
)

// Message is the subset of the OwnTracks JSON format that we use.
type Message struct {
	Type string  `json:"_type"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	// Tst is the time of the fix (unix seconds)
	Tst int64 `json:"tst"`
	// Acc is the accuracy of the fix in meters
	Acc int    `json:"acc,omitempty"`
	Tid string `json:"tid,omitempty"`
	// Event and Desc are set for transitions: the event type (enter/leave) and the name of the region
	Event string `json:"event,omitempty"`
	Desc  string `json:"desc,omitempty"`
	// InRegions lists the regions the device is in, for location messages
	InRegions []string `json:"inregions,omitempty"`
}

var errNoPosition = errors.New("message has no valid position")

// Decode parses an OwnTracks payload.
func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("invalid message: %w", err)
	}
	return msg, nil
}

func (m Message) validate() error {
	if m.Lat < -90 || m.Lat > 90 || m.Lon < -180 || m.Lon > 180 || m.Tst <= 0 {
		return errNoPosition
	}
	return nil
}

// Fix returns the position reported by the message.
func (m Message) Fix() location.Fix {
	return location.Fix{
		Point:     geo.Point{Lat: m.Lat, Lng: m.Lon},
		Timestamp: time.Unix(m.Tst, 0),
		Accuracy:  m.Acc,
	}
}
