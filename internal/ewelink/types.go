package ewelink

import "log/slog"

// Device is a device registered in the user's account.
type Device struct {
	DeviceID     string `json:"deviceid" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Online       bool   `json:"online" yaml:"online"`
	ProductModel string `json:"productModel,omitempty" yaml:"model,omitempty"`
	Params       Params `json:"params" yaml:"params"`
}

var _ slog.LogValuer = Device{}

func (d Device) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", d.DeviceID),
		slog.String("name", d.Name),
		slog.Bool("online", d.Online),
		slog.String("switch", d.Params.Switch),
	)
}

// Params holds the device parameters we care about.
type Params struct {
	// Switch is "on" or "off"
	Switch string `json:"switch,omitempty" yaml:"switch,omitempty"`
}

const (
	SwitchOn  = "on"
	SwitchOff = "off"
)

func switchValue(on bool) string {
	if on {
		return SwitchOn
	}
	return SwitchOff
}
