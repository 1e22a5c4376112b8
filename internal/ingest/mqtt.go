package ingest

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
)

// Handler receives every successfully decoded alert.
type Handler func(a *alert.Alert)

// Options configures the broker subscription.
type Options struct {
	Host          string
	Port          int
	Topic         string
	DeviceID      string
	Username  string
	Password  string
	KeepAlive time.Duration
}

// Service subscribes to the alert topic and feeds decoded alerts to the
// handler. A message that fails validation is logged and dropped; the
// subscription keeps running.
type Service struct {
	opts   Options
	log    zerolog.Logger
	handle Handler
}

func New(opts Options, handle Handler, log zerolog.Logger) *Service {
	return &Service{
		opts:   opts,
		log:    log.With().Str("component", "ingest").Logger(),
		handle: handle,
	}
}

// Run connects to the broker and blocks until ctx is canceled. The client
// auto-reconnects and resubscribes after broker drops; an initial connect
// failure is returned to the caller, which restarts Run with backoff.
func (s *Service) Run(ctx context.Context) error {
	broker := fmt.Sprintf("tcp://%s:%d", s.opts.Host, s.opts.Port)

	co := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(s.opts.DeviceID).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if s.opts.Username != "" {
		co.SetUsername(s.opts.Username)
		co.SetPassword(s.opts.Password)
	}
	if s.opts.KeepAlive > 0 {
		co.SetKeepAlive(s.opts.KeepAlive)
	}

	co.SetOnConnectHandler(func(c mqtt.Client) {
		s.log.Info().Str("broker", broker).Str("topic", s.opts.Topic).Msg("connected, subscribing")
		t := c.Subscribe(s.opts.Topic, 0, s.onMessage)
		go func() {
			t.Wait()
			if err := t.Error(); err != nil {
				s.log.Error().Err(err).Str("topic", s.opts.Topic).Msg("subscribe failed")
			}
		}()
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warn().Err(err).Msg("broker connection lost, reconnecting")
	})

	client := mqtt.NewClient(co)
	token := client.Connect()

	select {
	case <-ctx.Done():
		client.Disconnect(250)
		return ctx.Err()
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("ingest: connect %s: %w", broker, err)
	}

	<-ctx.Done()
	s.log.Info().Msg("disconnecting from broker")
	client.Disconnect(250)
	return ctx.Err()
}

func (s *Service) onMessage(_ mqtt.Client, msg mqtt.Message) {
	a, err := Decode(msg.Payload())
	if err != nil {
		s.log.Error().Err(err).Str("topic", msg.Topic()).Msg("rejected alert message")
		return
	}
	s.log.Debug().
		Str("camera", a.CameraName).
		Str("detections", a.Detections).
		Int("image_bytes", len(a.Image)).
		Msg("alert received")
	s.handle(a)
}
