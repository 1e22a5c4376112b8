package matrix

import (
	"encoding/json"
	"testing"

	"maunium.net/go/mautrix/id"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
	"github.com/CeeBeeEh/bvr-chirp/internal/render"
)

func TestRoomFor(t *testing.T) {
	t.Parallel()

	a := &Adapter{fallback: id.RoomID("!fallback:hs")}

	tests := []struct {
		name   string
		target string
		want   id.RoomID
	}{
		{"room id target", "!room:hs", id.RoomID("!room:hs")},
		{"room alias target", "#alerts:hs", id.RoomID("#alerts:hs")},
		{"plain target falls back", "alerts", id.RoomID("!fallback:hs")},
		{"empty target falls back", "", id.RoomID("!fallback:hs")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := a.roomFor(&alert.Alert{Target: tt.target}); got != tt.want {
				t.Fatalf("roomFor(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestRenderedEventContentIsValidJSON(t *testing.T) {
	t.Parallel()

	al := &alert.Alert{
		CameraName: "front_door",
		Detections: "person",
		DBID:       "42",
		Time:       "2024-01-01 10:00:00",
	}
	subs := render.Substitutions(al, "http://127.0.0.1:81")
	subs["<IMG_URI>"] = "mxc://hs/abcdef"
	content := render.Render(render.MatrixTemplate, subs)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		t.Fatalf("rendered event content is not valid JSON: %v\n%s", err, content)
	}
	if decoded["msgtype"] != "m.room.message" {
		t.Fatalf("msgtype = %v", decoded["msgtype"])
	}
	if decoded["url"] != "mxc://hs/abcdef" {
		t.Fatalf("url = %v", decoded["url"])
	}
}
