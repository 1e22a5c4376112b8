package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
	"github.com/CeeBeeEh/bvr-chirp/internal/render"
)

// api is the slice of the Slack client the adapter uses. *slack.Client
// satisfies it.
type api interface {
	GetUploadURLExternalContext(ctx context.Context, params slack.GetUploadURLExternalParameters) (*slack.GetUploadURLExternalResponse, error)
	CompleteUploadExternalContext(ctx context.Context, params slack.CompleteUploadExternalParameters) (*slack.CompleteUploadExternalResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Adapter delivers alerts to a Slack channel. Sending is a strict sequence:
// reserve an external upload slot, push the image bytes to the returned URL,
// complete the upload, wait for it to settle, then post the Block Kit message
// referencing the file. Any step failing aborts the rest for that alert.
type Adapter struct {
	client   api
	channel  string
	endpoint string
	settle   time.Duration
	log      zerolog.Logger

	// Injection points for tests.
	upload func(ctx context.Context, url string, data []byte) error
	sleep  func(ctx context.Context, d time.Duration) error
}

type Config struct {
	Token       string
	ChannelID   string
	Endpoint    string
	SettleDelay time.Duration
}

func New(cfg Config, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("slack: token is required")
	}
	if strings.TrimSpace(cfg.ChannelID) == "" {
		return nil, fmt.Errorf("slack: channel_id is required")
	}
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = 3 * time.Second
	}
	return &Adapter{
		client:   slack.New(cfg.Token),
		channel:  cfg.ChannelID,
		endpoint: cfg.Endpoint,
		settle:   settle,
		log:      log.With().Str("destination", "slack").Logger(),
		upload:   uploadTo,
		sleep:    sleepCtx,
	}, nil
}

func (a *Adapter) Name() string { return "slack" }

func (a *Adapter) Process(ctx context.Context, al *alert.Alert) error {
	fileID, err := a.uploadImage(ctx, al)
	if err != nil {
		return err
	}

	// Slack marks uploads complete before they are reliably retrievable;
	// posting immediately produces a message with a broken image.
	if err := a.sleep(ctx, a.settle); err != nil {
		return err
	}

	return a.postMessage(ctx, al, fileID)
}

func (a *Adapter) uploadImage(ctx context.Context, al *alert.Alert) (string, error) {
	name := al.CameraName + ".jpg"
	res, err := a.client.GetUploadURLExternalContext(ctx, slack.GetUploadURLExternalParameters{
		FileName: name,
		FileSize: len(al.Image),
	})
	if err != nil {
		return "", fmt.Errorf("slack: get upload url: %w", err)
	}

	if err := a.upload(ctx, res.UploadURL, al.Image); err != nil {
		return "", fmt.Errorf("slack: upload image: %w", err)
	}

	_, err = a.client.CompleteUploadExternalContext(ctx, slack.CompleteUploadExternalParameters{
		Files: []slack.FileSummary{{ID: res.FileID, Title: name}},
	})
	if err != nil {
		return "", fmt.Errorf("slack: complete upload: %w", err)
	}
	return res.FileID, nil
}

func (a *Adapter) postMessage(ctx context.Context, al *alert.Alert, fileID string) error {
	subs := render.Substitutions(al, a.endpoint)
	subs["<IMG_ID>"] = fileID
	rendered := render.Render(render.SlackTemplate, subs)

	var blocks slack.Blocks
	if err := json.Unmarshal([]byte(rendered), &blocks); err != nil {
		return fmt.Errorf("slack: template: %w", err)
	}

	_, _, err := a.client.PostMessageContext(ctx, a.channel,
		slack.MsgOptionText(fmt.Sprintf("Detection on %s camera", al.CameraName), false),
		slack.MsgOptionBlocks(blocks.BlockSet...),
	)
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

func uploadTo(ctx context.Context, url string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "image/jpeg")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload returned %s", resp.Status)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
