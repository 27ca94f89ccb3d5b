// Package devices lists the devices in the eWeLink account, so the user can pick the one to control.
package devices

import (
	"context"
	"fmt"
	"github.com/clambin/opendoor/internal/cmd/ewelinktools"
	"github.com/clambin/opendoor/internal/ewelink"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"log/slog"
	"os"
)

var Cmd = cobra.Command{
	Use:   "devices",
	Short: "list the devices in the eWeLink account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := slog.Default()
		tokens, closeStore := ewelinktools.OpenTokenStore(viper.GetViper(), logger)
		defer closeStore()
		c, err := ewelinktools.NewClient(viper.GetViper(), tokens, nil, logger)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		defer func() { _ = enc.Close() }()
		return ShowDevices(cmd.Context(), c, enc)
	},
}

type Encoder interface {
	Encode(any) error
}

//go:generate mockery --name DeviceGetter --with-expecter
type DeviceGetter interface {
	GetDevices(context.Context) ([]ewelink.Device, error)
}

type entry struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Online bool   `yaml:"online" json:"online"`
	Switch string `yaml:"switch,omitempty" json:"switch,omitempty"`
}

type report struct {
	Devices []entry `yaml:"devices" json:"devices"`
}

func ShowDevices(ctx context.Context, c DeviceGetter, e Encoder) error {
	devices, err := c.GetDevices(ctx)
	if err != nil {
		return fmt.Errorf("ewelink: devices: %w", err)
	}
	r := report{Devices: make([]entry, 0, len(devices))}
	for _, device := range devices {
		r.Devices = append(r.Devices, entry{
			ID:     device.DeviceID,
			Name:   device.Name,
			Online: device.Online,
			Switch: device.Params.Switch,
		})
	}
	return e.Encode(r)
}
