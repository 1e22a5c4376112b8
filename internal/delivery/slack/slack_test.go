package slack

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
)

type fakeAPI struct {
	calls []string

	getErr      error
	completeErr error
	postErr     error
}

func (f *fakeAPI) GetUploadURLExternalContext(_ context.Context, params slack.GetUploadURLExternalParameters) (*slack.GetUploadURLExternalResponse, error) {
	f.calls = append(f.calls, "get:"+params.FileName)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &slack.GetUploadURLExternalResponse{UploadURL: "https://upload.example/u", FileID: "F123"}, nil
}

func (f *fakeAPI) CompleteUploadExternalContext(_ context.Context, params slack.CompleteUploadExternalParameters) (*slack.CompleteUploadExternalResponse, error) {
	f.calls = append(f.calls, "complete:"+params.Files[0].ID)
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &slack.CompleteUploadExternalResponse{}, nil
}

func (f *fakeAPI) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.calls = append(f.calls, "post:"+channelID)
	if f.postErr != nil {
		return "", "", f.postErr
	}
	return channelID, "1", nil
}

func newTestAdapter(api *fakeAPI) (*Adapter, *[]string) {
	calls := &api.calls
	a := &Adapter{
		client:   api,
		channel:  "C1",
		endpoint: "http://127.0.0.1:81",
		settle:   3 * time.Second,
		log:      zerolog.Nop(),
		upload: func(_ context.Context, url string, _ []byte) error {
			api.calls = append(api.calls, "upload:"+url)
			return nil
		},
		sleep: func(_ context.Context, d time.Duration) error {
			api.calls = append(api.calls, "settle:"+d.String())
			return nil
		},
	}
	return a, calls
}

func testAlert() *alert.Alert {
	return &alert.Alert{
		CameraName: "front_door",
		Detections: "person",
		DBID:       "42",
		Time:       "2024-01-01 10:00:00",
		Image:      []byte{0xff, 0xd8},
	}
}

func TestProcessStepOrder(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	a, calls := newTestAdapter(api)

	if err := a.Process(context.Background(), testAlert()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	want := []string{
		"get:front_door.jpg",
		"upload:https://upload.example/u",
		"complete:F123",
		"settle:3s",
		"post:C1",
	}
	if len(*calls) != len(want) {
		t.Fatalf("calls = %v, want %v", *calls, want)
	}
	for i := range want {
		if (*calls)[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, (*calls)[i], want[i])
		}
	}
}

func TestProcessAbortsWhenUploadReservationFails(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{getErr: errors.New("upstream down")}
	a, calls := newTestAdapter(api)

	err := a.Process(context.Background(), testAlert())
	if err == nil || !strings.Contains(err.Error(), "get upload url") {
		t.Fatalf("Process error = %v, want get upload url failure", err)
	}
	for _, c := range *calls {
		if strings.HasPrefix(c, "post:") || strings.HasPrefix(c, "complete:") || strings.HasPrefix(c, "settle:") {
			t.Fatalf("step %q ran after failed reservation (calls: %v)", c, *calls)
		}
	}
}

func TestProcessAbortsWhenCompleteFails(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{completeErr: errors.New("not found")}
	a, calls := newTestAdapter(api)

	err := a.Process(context.Background(), testAlert())
	if err == nil || !strings.Contains(err.Error(), "complete upload") {
		t.Fatalf("Process error = %v, want complete upload failure", err)
	}
	for _, c := range *calls {
		if strings.HasPrefix(c, "post:") {
			t.Fatalf("message posted after failed upload (calls: %v)", *calls)
		}
	}
}

func TestTemplateParsesAsBlocks(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	a, _ := newTestAdapter(api)

	// postMessage unmarshals the rendered template into Block Kit blocks; a
	// template drift that breaks parsing must fail loudly.
	if err := a.postMessage(context.Background(), testAlert(), "F123"); err != nil {
		t.Fatalf("postMessage: %v", err)
	}
}
