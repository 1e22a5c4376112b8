package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/CeeBeeEh/bvr-chirp/internal/config"
	"github.com/CeeBeeEh/bvr-chirp/internal/delivery"
	"github.com/CeeBeeEh/bvr-chirp/internal/delivery/discord"
	"github.com/CeeBeeEh/bvr-chirp/internal/delivery/matrix"
	"github.com/CeeBeeEh/bvr-chirp/internal/delivery/slack"
	"github.com/CeeBeeEh/bvr-chirp/internal/delivery/telegram"
	"github.com/CeeBeeEh/bvr-chirp/internal/dispatch"
	"github.com/CeeBeeEh/bvr-chirp/internal/history"
	"github.com/CeeBeeEh/bvr-chirp/internal/runtime/supervisor"
)

// startDestinations builds every enabled destination adapter and starts its
// worker. A destination that fails to initialize is logged and skipped; the
// others keep running. Returns the number of destinations started.
func startDestinations(ctx context.Context, sup *supervisor.Supervisor, d *dispatch.Dispatcher, cfg *config.Config, store *history.Store, log zerolog.Logger) int {
	type build struct {
		name    string
		enabled bool
		make    func() (delivery.Adapter, error)
	}

	builds := []build{
		{"discord", cfg.Discord.Enabled, func() (delivery.Adapter, error) {
			return discord.New(discord.Config{
				Token:     cfg.Discord.Token,
				ChannelID: cfg.Discord.ChannelID,
				Endpoint:  cfg.AlertEndpoint,
			}, log)
		}},
		{"slack", cfg.Slack.Enabled, func() (delivery.Adapter, error) {
			return slack.New(slack.Config{
				Token:       cfg.Slack.Token,
				ChannelID:   cfg.Slack.ChannelID,
				Endpoint:    cfg.AlertEndpoint,
				SettleDelay: config.DurationOr(cfg.Slack.SettleDelay, 3*time.Second),
			}, log)
		}},
		{"matrix", cfg.Matrix.Enabled, func() (delivery.Adapter, error) {
			return matrix.New(ctx, matrix.Config{
				Homeserver: cfg.Matrix.Homeserver,
				Username:   cfg.Matrix.Username,
				Password:   cfg.Matrix.Password,
				RoomID:     cfg.Matrix.RoomID,
				Endpoint:   cfg.AlertEndpoint,
			}, log)
		}},
		{"telegram", cfg.Telegram.Enabled, func() (delivery.Adapter, error) {
			return telegram.New(telegram.Config{
				Token:    cfg.Telegram.Token,
				ChatID:   cfg.Telegram.ChatID,
				Endpoint: cfg.AlertEndpoint,
			}, log)
		}},
	}

	opts := delivery.Options{
		RatePerSec:  cfg.Delivery.RatePerSec,
		SendTimeout: config.DurationOr(cfg.Delivery.SendTimeout, 30*time.Second),
		History:     store,
	}

	started := 0
	for _, b := range builds {
		if !b.enabled {
			continue
		}
		adapter, err := b.make()
		if err != nil {
			log.Error().Err(err).Str("destination", b.name).Msg("destination disabled, init failed")
			continue
		}

		queue := dispatch.NewQueue(b.name, cfg.Delivery.QueueSize)
		d.Register(queue)

		worker := delivery.NewWorker(adapter, queue, log, opts)
		sup.Go("worker."+b.name, worker.Run)

		if runner, ok := adapter.(delivery.Runner); ok {
			sup.GoRestart(b.name+".run", runner.Run,
				supervisor.WithRestartBackoff(time.Second, time.Minute))
		}

		log.Info().Str("destination", b.name).Msg("destination enabled")
		started++
	}
	return started
}
