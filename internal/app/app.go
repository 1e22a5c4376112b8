package app

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/CeeBeeEh/bvr-chirp/internal/config"
	"github.com/CeeBeeEh/bvr-chirp/internal/dispatch"
	"github.com/CeeBeeEh/bvr-chirp/internal/history"
	"github.com/CeeBeeEh/bvr-chirp/internal/ingest"
	"github.com/CeeBeeEh/bvr-chirp/internal/logging"
	"github.com/CeeBeeEh/bvr-chirp/internal/runtime/supervisor"
)

const shutdownGrace = 10 * time.Second

// Run wires the relay together and blocks until ctx is canceled: config,
// logging, history, destination workers, broker ingestion, config watcher,
// and the optional summary schedule.
func Run(ctx context.Context, configPath string) error {
	boot := logging.NewConsole("INFO")

	mgr, err := config.NewManager(configPath, boot)
	if err != nil {
		return err
	}
	cfg := mgr.Current()

	logSvc, log := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logging.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer logSvc.Close()
	log.Info().Str("config", configPath).Msg("bvr-chirp starting")

	sup := supervisor.New(ctx, supervisor.WithLogger(log))

	store := openHistory(cfg, log)
	if store != nil {
		defer store.Close()
	}

	d := dispatch.New(log)
	registered := startDestinations(ctx, sup, d, cfg, store, log)
	if registered == 0 {
		log.Warn().Msg("no destinations enabled, alerts will be received and dropped")
	}

	startIngest(sup, d, cfg, log)

	sup.GoRestart("config.watch", mgr.Watch)
	startReloadLoop(sup, mgr, logSvc, cfg, log)

	summary := startSummary(cfg, store, log)
	if summary != nil {
		defer summary.Stop()
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info().Strs("destinations", d.Destinations()).Msg("bvr-chirp ready")

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info().Msg("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := sup.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openHistory(cfg *config.Config, log zerolog.Logger) *history.Store {
	if cfg.History == nil {
		return nil
	}
	busy := config.DurationOr(cfg.History.BusyTimeout, 5*time.Second)
	store, err := history.Open(cfg.History.Path, busy)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.History.Path).Msg("history disabled, store open failed")
		return nil
	}
	log.Info().Str("path", cfg.History.Path).Msg("delivery history enabled")
	return store
}

func startIngest(sup *supervisor.Supervisor, d *dispatch.Dispatcher, cfg *config.Config, log zerolog.Logger) {
	svc := ingest.New(ingest.Options{
		Host:      cfg.MQTT.Host,
		Port:      cfg.MQTT.Port,
		Topic:     cfg.MQTT.Topic,
		DeviceID:  cfg.MQTT.DeviceID,
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
		KeepAlive: config.DurationOr(cfg.MQTT.KeepAlive, 5*time.Second),
	}, d.Broadcast, log)

	sup.GoRestart("ingest", svc.Run,
		supervisor.WithRestartBackoff(time.Second, time.Minute))
}

// startReloadLoop applies what can change live (log level and sinks) and
// warns about the rest, which needs a restart to take effect.
func startReloadLoop(sup *supervisor.Supervisor, mgr *config.Manager, logSvc *logging.Service, initial *config.Config, log zerolog.Logger) {
	sub := mgr.Subscribe()
	prev := initial

	sup.Go0("config.reload", func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case next := <-sub:
				logSvc.Apply(logging.Config{
					Level:   next.Logging.Level,
					Console: next.Logging.Console,
					File: logging.FileConfig{
						Enabled: next.Logging.File.Enabled,
						Path:    next.Logging.File.Path,
					},
				})
				if s := restartRequired(prev, next); s != "" {
					log.Warn().Str("changed", s).Msg("config change requires restart to take effect")
				}
				prev = next
			}
		}
	})
}

func restartRequired(prev, next *config.Config) string {
	switch {
	case !reflect.DeepEqual(prev.MQTT, next.MQTT):
		return "mqtt"
	case prev.AlertEndpoint != next.AlertEndpoint:
		return "alert_endpoint"
	case !reflect.DeepEqual(prev.Discord, next.Discord):
		return "discord"
	case !reflect.DeepEqual(prev.Slack, next.Slack):
		return "slack"
	case !reflect.DeepEqual(prev.Matrix, next.Matrix):
		return "matrix"
	case !reflect.DeepEqual(prev.Telegram, next.Telegram):
		return "telegram"
	case !reflect.DeepEqual(prev.Delivery, next.Delivery):
		return "delivery"
	case !reflect.DeepEqual(prev.History, next.History):
		return "history"
	}
	return ""
}

func startSummary(cfg *config.Config, store *history.Store, log zerolog.Logger) *cron.Cron {
	if store == nil || cfg.History == nil || cfg.History.SummarySchedule == "" {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(cfg.History.SummarySchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stats, err := store.StatsSince(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			log.Warn().Err(err).Msg("delivery summary failed")
			return
		}
		for _, st := range stats {
			log.Info().
				Str("destination", st.Destination).
				Int64("sent", st.Sent).
				Int64("failed", st.Failed).
				Msg("delivery summary (24h)")
		}
	})
	if err != nil {
		log.Warn().Err(err).Str("schedule", cfg.History.SummarySchedule).Msg("invalid summary schedule")
		return nil
	}
	c.Start()
	return c
}
