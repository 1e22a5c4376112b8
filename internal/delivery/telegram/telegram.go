package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
	"github.com/CeeBeeEh/bvr-chirp/internal/render"
)

// Adapter delivers alerts to a Telegram chat as a photo with an HTML caption.
// It is send-only; no update polling is started.
type Adapter struct {
	bot      *tele.Bot
	fallback int64
	endpoint string
	log      zerolog.Logger
}

type Config struct {
	Token    string
	ChatID   string
	Endpoint string
}

func New(cfg Config, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("telegram: token is required")
	}
	var fallback int64
	if s := strings.TrimSpace(cfg.ChatID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram: invalid chat_id %q", s)
		}
		fallback = id
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot: %w", err)
	}
	return &Adapter{
		bot:      bot,
		fallback: fallback,
		endpoint: cfg.Endpoint,
		log:      log.With().Str("destination", "telegram").Logger(),
	}, nil
}

func (a *Adapter) Name() string { return "telegram" }

func (a *Adapter) Process(_ context.Context, al *alert.Alert) error {
	chat, err := a.chatFor(al)
	if err != nil {
		return err
	}

	caption := render.Render(render.TelegramTemplate, render.Substitutions(al, a.endpoint))

	var what any = caption
	if len(al.Image) > 0 {
		what = &tele.Photo{
			File:    tele.FromReader(bytes.NewReader(al.Image)),
			Caption: caption,
		}
	}
	if _, err := a.bot.Send(chat, what, &tele.SendOptions{ParseMode: tele.ModeHTML}); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

// chatFor picks the target chat: a numeric alert target wins, otherwise the
// configured fallback chat is used.
func (a *Adapter) chatFor(al *alert.Alert) (tele.ChatID, error) {
	if s := strings.TrimSpace(al.Target); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return tele.ChatID(id), nil
		}
	}
	if a.fallback == 0 {
		return 0, fmt.Errorf("telegram: no chat for alert from %q", al.CameraName)
	}
	return tele.ChatID(a.fallback), nil
}
