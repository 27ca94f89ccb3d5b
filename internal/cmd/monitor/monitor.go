// Package monitor runs the opendoor daemon: it follows the phone's position and opens the gate when it enters the
// target area.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"github.com/clambin/go-common/charmer"
	"github.com/clambin/opendoor/internal/actuator"
	"github.com/clambin/opendoor/internal/checker"
	"github.com/clambin/opendoor/internal/cmd/ewelinktools"
	"github.com/clambin/opendoor/internal/ewelink"
	"github.com/clambin/opendoor/internal/guard"
	"github.com/clambin/opendoor/internal/health"
	"github.com/clambin/opendoor/internal/location"
	"github.com/clambin/opendoor/internal/notifier"
	"github.com/clambin/opendoor/internal/owntracks"
	"github.com/clambin/opendoor/internal/server"
	"github.com/clambin/opendoor/internal/store"
	"github.com/clambin/opendoor/internal/target"
	"github.com/clambin/opendoor/internal/trigger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var (
	Cmd = cobra.Command{
		Use:   "monitor",
		Short: "open the gate when the phone enters the target area",
		RunE:  run,
	}

	args = charmer.Arguments{
		"api.addr":               {Default: ":8080", Help: "Address of the API (health, monitoring, owntracks)"},
		"exporter.addr":          {Default: ":9090", Help: "Address of Prometheus exporter"},
		"ewelink.push.enabled":   {Default: true, Help: "Listen for device updates"},
		"mqtt.broker":            {Default: "", Help: "MQTT broker for OwnTracks (e.g. tcp://localhost:1883)"},
		"owntracks.region":       {Default: "", Help: "Only react to transitions for this OwnTracks region"},
		"owntracks.http.enabled": {Default: false, Help: "Accept OwnTracks messages on /owntracks"},
		"location.enabled":       {Default: true, Help: "Allow location tracking"},
		"store.path":             {Default: "opendoor.db", Help: "Database for leases and tokens"},
		"store.redis.url":        {Default: "", Help: "Redis server for leases (e.g. redis://localhost:6379/0)"},
		"slack.token":            {Default: "", Help: "Slack token"},
	}
)

func init() {
	_ = charmer.SetPersistentFlags(&Cmd, viper.GetViper(), args)
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("opendoor monitor starting", "version", cmd.Root().Version)
	defer logger.Info("opendoor monitor stopped")

	m, err := New(ctx, viper.GetViper(), prometheus.DefaultRegisterer, prometheus.DefaultGatherer, logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Run(ctx)
}

// A Task runs until its context is cancelled.
type Task interface {
	Run(ctx context.Context) error
}

// Monitor holds the daemon's components.
type Monitor struct {
	Trigger *trigger.Trigger
	Tracker *location.Tracker
	Health  *health.Health
	tasks   []Task
	closers []func() error
}

// New creates the components described by cfg and registers their metrics with registry.
func New(ctx context.Context, cfg *viper.Viper, registry prometheus.Registerer, gatherer prometheus.Gatherer, l *slog.Logger) (_ *Monitor, err error) {
	var m Monitor
	defer func() {
		if err != nil {
			m.Close()
		}
	}()

	tgt, err := target.Load(cfg)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	if !tgt.Configured() {
		l.Warn("monitoring target not configured. gate will not be opened")
	}

	db, err := store.OpenBolt(cfg.GetString("store.path"))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	m.closers = append(m.closers, db.Close)

	var leases guard.Store = db
	if url := cfg.GetString("store.redis.url"); url != "" {
		rdb, err := store.OpenRedis(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		m.closers = append(m.closers, rdb.Close)
		leases = &store.Redis{Client: rdb, Prefix: "opendoor:lease:"}
	}

	// eWeLink client
	requestMetrics := ewelinktools.NewRequestMetrics("opendoor", "ewelink", nil)
	registry.MustRegister(requestMetrics)
	client, err := ewelinktools.NewClient(cfg, db, requestMetrics, l.With("component", "ewelink"))
	if err != nil {
		return nil, err
	}

	// Notifications
	notifiers := notifier.Notifiers{notifier.SLogNotifier{Logger: l.With("component", "notifier")}}
	if token := cfg.GetString("slack.token"); token != "" {
		async := notifier.NewAsync(&notifier.SlackNotifier{
			Logger:      l.With("component", "slack"),
			SlackSender: slack.New(token),
			Title:       "opendoor",
		}, 16, l.With("component", "slack"))
		notifiers = append(notifiers, async)
		m.tasks = append(m.tasks, async)
	}

	// Location
	m.Tracker = location.NewTracker(nil, cfg.GetDuration("location.maxAge"), l.With("component", "location"))
	m.Tracker.Permitted = func() bool { return cfg.GetBool("location.enabled") }

	// Check loop
	options, err := loadOptions(cfg)
	if err != nil {
		return nil, err
	}
	checkerMetrics := checker.NewMetrics("opendoor", "checker", nil)
	registry.MustRegister(checkerMetrics)
	expiry := guard.Expiry(options.MaxDuration, cfg.GetDuration("guard.margin"))
	loop := checker.Loop{
		Location: m.Tracker,
		Actuator: actuator.EWeLink{Client: client},
		Guards: func(deviceID string) checker.Guard {
			return guard.New(leases, "gate/"+deviceID, expiry, l.With("component", "guard"))
		},
		Notifier: notifiers,
		Options:  options,
		Metrics:  checkerMetrics,
		Logger:   l.With("component", "checker"),
	}
	m.Trigger = trigger.New(&loop, l.With("component", "trigger"))
	m.tasks = append(m.tasks, m.Trigger)

	// Health
	m.Health = health.New(m.Trigger, m.Tracker, l.With("component", "health"))
	m.Health.Notifier = notifiers
	loop.Progress = m.Health
	m.tasks = append(m.tasks, m.Health)

	// Push channel
	if cfg.GetBool("ewelink.push.enabled") {
		push := ewelink.NewPush(ewelinktools.Config(cfg), client, l.With("component", "push"))
		m.Health.Updates = push
		m.tasks = append(m.tasks, push)
	}

	// OwnTracks
	dispatcher := owntracks.Dispatcher{
		Tracker:     m.Tracker,
		Transitions: m.Trigger,
		Target:      func() target.Target { return tgt },
		Region:      cfg.GetString("owntracks.region"),
		Logger:      l.With("component", "owntracks"),
	}
	if cfg.GetString("mqtt.broker") != "" {
		var mqttCfg owntracks.Config
		if err = cfg.UnmarshalKey("mqtt", &mqttCfg); err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		mqttCfg.Topic = cfg.GetString("owntracks.topic")
		mqttCfg.Devices = cfg.GetStringSlice("owntracks.devices")
		c := owntracks.NewClient(mqttCfg, &dispatcher, l.With("component", "mqtt"))
		m.Tracker.Requester = c
		m.tasks = append(m.tasks, c)
	}

	// API
	handlers := server.Handlers{
		Health:  m.Health,
		Monitor: m.Trigger,
		Target:  func() target.Target { return tgt },
	}
	if cfg.GetBool("owntracks.http.enabled") {
		handlers.OwnTracks = &dispatcher
	}
	m.tasks = append(m.tasks,
		server.New(cfg.GetString("api.addr"), handlers, l.With("component", "api")),
		server.NewMetricsServer(cfg.GetString("exporter.addr"), gatherer, l.With("component", "exporter")),
	)

	return &m, nil
}

func loadOptions(cfg *viper.Viper) (checker.Options, error) {
	var options checker.Options
	if err := cfg.UnmarshalKey("checker", &options); err != nil {
		return checker.Options{}, fmt.Errorf("checker: %w", err)
	}
	if len(options.Intervals.Steps) > 0 {
		if err := options.Intervals.Validate(); err != nil {
			return checker.Options{}, fmt.Errorf("checker.intervals: %w", err)
		}
	}
	options.LocationTimeout = cfg.GetDuration("location.timeout")
	if options.MaxDuration <= 0 {
		options.MaxDuration = checker.DefaultOptions.MaxDuration
	}
	return options, nil
}

// Run runs all tasks until ctx is cancelled or one of them fails.
func (m *Monitor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range m.tasks {
		g.Go(func() error { return task.Run(ctx) })
	}
	return g.Wait()
}

// Close releases the databases.
func (m *Monitor) Close() {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("failed to close", "err", err)
	}
	m.closers = nil
}
