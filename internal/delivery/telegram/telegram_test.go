package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
)

func TestChatFor(t *testing.T) {
	t.Parallel()

	a := &Adapter{fallback: -100123}

	tests := []struct {
		name    string
		target  string
		want    tele.ChatID
		wantErr bool
	}{
		{"numeric target wins", "42", tele.ChatID(42), false},
		{"negative group id", "-100456", tele.ChatID(-100456), false},
		{"empty target falls back", "", tele.ChatID(-100123), false},
		{"non-numeric target falls back", "alerts", tele.ChatID(-100123), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := a.chatFor(&alert.Alert{Target: tt.target})
			if (err != nil) != tt.wantErr {
				t.Fatalf("chatFor(%q) error = %v", tt.target, err)
			}
			if got != tt.want {
				t.Fatalf("chatFor(%q) = %d, want %d", tt.target, got, tt.want)
			}
		})
	}
}

func TestChatForNoFallback(t *testing.T) {
	t.Parallel()

	a := &Adapter{}
	if _, err := a.chatFor(&alert.Alert{Target: "not-a-chat"}); err == nil {
		t.Fatal("chatFor: expected error without fallback chat")
	}
}
