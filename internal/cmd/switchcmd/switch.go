// Package switchcmd switches the configured device on or off, once.
package switchcmd

import (
	"context"
	"fmt"
	"github.com/clambin/opendoor/internal/actuator"
	"github.com/clambin/opendoor/internal/cmd/ewelinktools"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log/slog"
	"strings"
)

var Cmd = cobra.Command{
	Use:       "switch on|off",
	Short:     "switch the configured device on or off",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := parseState(args[0])
		if err != nil {
			return err
		}
		logger := slog.Default()
		tokens, closeStore := ewelinktools.OpenTokenStore(viper.GetViper(), logger)
		defer closeStore()
		c, err := ewelinktools.NewClient(viper.GetViper(), tokens, nil, logger)
		if err != nil {
			return err
		}
		deviceID := viper.GetString("device")
		if deviceID == "" {
			deviceID = viper.GetString("target.selectedDeviceId")
		}
		return Switch(cmd.Context(), actuator.EWeLink{Client: c}, deviceID, state, logger)
	},
}

func init() {
	Cmd.Flags().String("device", "", "device id (default: target.selectedDeviceId)")
	_ = viper.BindPFlag("device", Cmd.Flags().Lookup("device"))
}

func parseState(arg string) (actuator.State, error) {
	switch strings.ToLower(arg) {
	case "on":
		return actuator.On, nil
	case "off":
		return actuator.Off, nil
	default:
		return actuator.Off, fmt.Errorf("invalid state %q: must be on or off", arg)
	}
}

// Switch sends a single command to the device.
func Switch(ctx context.Context, a actuator.Actuator, deviceID string, state actuator.State, logger *slog.Logger) error {
	if deviceID == "" {
		return fmt.Errorf("no device selected")
	}
	if err := a.SetSwitch(ctx, deviceID, state); err != nil {
		return fmt.Errorf("switch %s: %w", state, err)
	}
	logger.Info("device switched", "device", deviceID, "state", state.String())
	return nil
}
