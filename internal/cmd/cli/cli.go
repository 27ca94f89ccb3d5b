package cli

import (
	"github.com/clambin/opendoor/internal/cmd/devices"
	"github.com/clambin/opendoor/internal/cmd/monitor"
	"github.com/clambin/opendoor/internal/cmd/switchcmd"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log/slog"
	"os"
	"strings"
	"time"
)

var (
	configFilename string
	RootCmd        = cobra.Command{
		Use:   "opendoor",
		Short: "opens the gate when you get home",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setLogger(viper.GetBool("debug"))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	RootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", RootCmd.PersistentFlags().Lookup("debug"))

	RootCmd.AddCommand(&monitor.Cmd, &devices.Cmd, &switchcmd.Cmd)
}

func setLogger(debug bool) {
	var opts slog.HandlerOptions
	if debug {
		opts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &opts)))
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/opendoor/")
		viper.AddConfigPath("$HOME/.opendoor")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	viper.SetDefault("debug", false)
	viper.SetDefault("ewelink.region", "eu")
	viper.SetDefault("mqtt.clientId", "opendoor")
	viper.SetDefault("owntracks.topic", "owntracks/#")
	viper.SetDefault("location.timeout", 30*time.Second)
	viper.SetDefault("location.maxAge", 30*time.Second)
	viper.SetDefault("guard.margin", time.Minute)

	viper.SetEnvPrefix("OPENDOOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		slog.Error("failed to read config file", "err", err)
		os.Exit(1)
	}
}
