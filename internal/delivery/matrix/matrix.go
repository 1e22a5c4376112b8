package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
	"github.com/CeeBeeEh/bvr-chirp/internal/render"
)

// Adapter delivers alerts to Matrix rooms. Each send uploads the image to the
// homeserver's media repo and posts a rendered m.room.message event pointing
// at the resulting mxc URI. Run keeps a sync loop alive so room invites are
// accepted automatically.
type Adapter struct {
	client   *mautrix.Client
	fallback id.RoomID
	endpoint string
	log      zerolog.Logger
}

type Config struct {
	Homeserver string
	Username   string
	Password   string
	RoomID     string
	Endpoint   string
}

// New connects and logs in to the homeserver. A login failure here disables
// the destination without affecting the others.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Homeserver) == "" {
		return nil, fmt.Errorf("matrix: homeserver is required")
	}
	client, err := mautrix.NewClient(cfg.Homeserver, "", "")
	if err != nil {
		return nil, fmt.Errorf("matrix: client: %w", err)
	}
	_, err = client.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: cfg.Username,
		},
		Password:         cfg.Password,
		StoreCredentials: true,
	})
	if err != nil {
		return nil, fmt.Errorf("matrix: login: %w", err)
	}
	return &Adapter{
		client:   client,
		fallback: id.RoomID(cfg.RoomID),
		endpoint: cfg.Endpoint,
		log:      log.With().Str("destination", "matrix").Logger(),
	}, nil
}

func (a *Adapter) Name() string { return "matrix" }

func (a *Adapter) Process(ctx context.Context, al *alert.Alert) error {
	room := a.roomFor(al)
	if room == "" {
		return fmt.Errorf("matrix: no room for alert from %q", al.CameraName)
	}

	upload, err := a.client.UploadMedia(ctx, mautrix.ReqUploadMedia{
		ContentBytes: al.Image,
		ContentType:  "image/jpeg",
		FileName:     al.CameraName + ".jpg",
	})
	if err != nil {
		return fmt.Errorf("matrix: upload image: %w", err)
	}

	subs := render.Substitutions(al, a.endpoint)
	subs["<IMG_URI>"] = upload.ContentURI.String()
	content := render.Render(render.MatrixTemplate, subs)

	_, err = a.client.SendMessageEvent(ctx, room, event.EventMessage, json.RawMessage(content))
	if err != nil {
		return fmt.Errorf("matrix: send: %w", err)
	}
	return nil
}

// roomFor picks the target room: an alert targeting a room id or alias wins,
// otherwise the configured fallback room is used.
func (a *Adapter) roomFor(al *alert.Alert) id.RoomID {
	t := strings.TrimSpace(al.Target)
	if strings.HasPrefix(t, "!") || strings.HasPrefix(t, "#") {
		return id.RoomID(t)
	}
	return a.fallback
}

// Run keeps the client syncing so invites arrive. It returns on ctx cancel or
// a sync failure; the caller restarts it with backoff.
func (a *Adapter) Run(ctx context.Context) error {
	syncer, ok := a.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("matrix: unexpected syncer type %T", a.client.Syncer)
	}
	syncer.OnEventType(event.StateMember, func(ctx context.Context, evt *event.Event) {
		a.onMember(ctx, evt)
	})

	a.log.Info().Msg("matrix sync started")
	if err := a.client.SyncWithContext(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("matrix: sync: %w", err)
	}
	return ctx.Err()
}

func (a *Adapter) onMember(ctx context.Context, evt *event.Event) {
	member := evt.Content.AsMember()
	if member == nil || member.Membership != event.MembershipInvite {
		return
	}
	if evt.GetStateKey() != a.client.UserID.String() {
		return
	}
	room := evt.RoomID
	a.log.Info().Str("room", room.String()).Msg("room invite received")
	go func() {
		err := joinWithBackoff(ctx, a.log, room.String(), func(ctx context.Context) error {
			_, err := a.client.JoinRoomByID(ctx, room)
			return err
		}, sleepCtx, joinBaseDelay, joinMaxDelay)
		if err == nil {
			a.log.Info().Str("room", room.String()).Msg("room joined")
		}
	}()
}
