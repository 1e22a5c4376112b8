package discord

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
	"github.com/CeeBeeEh/bvr-chirp/internal/render"
)

// blitzBlue matches the embed accent color used for camera alerts.
const blitzBlue = 0x6FC6E2

// Adapter posts alerts to Discord as an embed with the camera image attached.
// It uses the REST API only; no gateway connection is opened.
type Adapter struct {
	session  *discordgo.Session
	fallback string
	endpoint string
	log      zerolog.Logger
}

type Config struct {
	Token string
	// ChannelID is the fallback channel when an alert's target is not a
	// numeric channel id.
	ChannelID string
	Endpoint  string
}

func New(cfg Config, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("discord: token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: session: %w", err)
	}
	return &Adapter{
		session:  session,
		fallback: strings.TrimSpace(cfg.ChannelID),
		endpoint: cfg.Endpoint,
		log:      log.With().Str("destination", "discord").Logger(),
	}, nil
}

func (a *Adapter) Name() string { return "discord" }

func (a *Adapter) Process(ctx context.Context, al *alert.Alert) error {
	channel, err := a.channelFor(al)
	if err != nil {
		return err
	}

	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{buildEmbed(al, a.endpoint)},
	}
	if len(al.Image) > 0 {
		msg.Files = []*discordgo.File{{
			Name:        al.CameraName + ".jpg",
			ContentType: "image/jpeg",
			Reader:      bytes.NewReader(al.Image),
		}}
	}
	if _, err := a.session.ChannelMessageSendComplex(channel, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send: %w", err)
	}
	return nil
}

// channelFor picks the target channel: a numeric alert target wins, otherwise
// the configured fallback channel is used.
func (a *Adapter) channelFor(al *alert.Alert) (string, error) {
	if s := strings.TrimSpace(al.Target); s != "" {
		if _, err := strconv.ParseUint(s, 10, 64); err == nil {
			return s, nil
		}
	}
	if a.fallback == "" {
		return "", fmt.Errorf("discord: invalid channel id %q", al.Target)
	}
	return a.fallback, nil
}

func buildEmbed(al *alert.Alert, endpoint string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Detection on %s camera", al.CameraName),
		URL:   render.AlertLink(endpoint, al.DBID, al.CameraName),
		Color: blitzBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "**Detections**", Value: al.Detections},
			{Name: "**Time**", Value: al.Time},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
