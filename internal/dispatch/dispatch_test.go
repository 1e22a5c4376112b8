package dispatch

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
)

func drain(q *Queue) []*alert.Alert {
	var out []*alert.Alert
	for {
		select {
		case a := <-q.C():
			out = append(out, a)
		default:
			return out
		}
	}
}

func TestBroadcastReachesEveryQueue(t *testing.T) {
	t.Parallel()

	d := New(zerolog.Nop())
	q1 := NewQueue("one", 4)
	q2 := NewQueue("two", 4)
	q3 := NewQueue("three", 4)
	d.Register(q1)
	d.Register(q2)
	d.Register(q3)

	a := &alert.Alert{CameraName: "front_door"}
	d.Broadcast(a)

	for _, q := range []*Queue{q1, q2, q3} {
		got := drain(q)
		if len(got) != 1 || got[0] != a {
			t.Fatalf("queue %s: got %d alerts, want exactly the broadcast alert once", q.Name(), len(got))
		}
	}
}

func TestBroadcastSkipsClosedQueue(t *testing.T) {
	t.Parallel()

	d := New(zerolog.Nop())
	dead := NewQueue("dead", 4)
	live := NewQueue("live", 4)
	d.Register(dead)
	d.Register(live)

	dead.Close()
	dead.Close() // idempotent

	a := &alert.Alert{CameraName: "cam"}
	d.Broadcast(a)

	if got := drain(dead); len(got) != 0 {
		t.Fatalf("dead queue received %d alerts, want 0", len(got))
	}
	if got := drain(live); len(got) != 1 {
		t.Fatalf("live queue received %d alerts, want 1", len(got))
	}
}

func TestBroadcastDropsOldestWhenFull(t *testing.T) {
	t.Parallel()

	d := New(zerolog.Nop())
	q := NewQueue("slow", 2)
	d.Register(q)

	a1 := &alert.Alert{CameraName: "a1"}
	a2 := &alert.Alert{CameraName: "a2"}
	a3 := &alert.Alert{CameraName: "a3"}
	d.Broadcast(a1)
	d.Broadcast(a2)
	d.Broadcast(a3)

	got := drain(q)
	if len(got) != 2 {
		t.Fatalf("got %d alerts, want 2", len(got))
	}
	if got[0] != a2 || got[1] != a3 {
		t.Fatalf("got [%s %s], want newest two [a2 a3]", got[0].CameraName, got[1].CameraName)
	}
}

func TestDestinations(t *testing.T) {
	t.Parallel()

	d := New(zerolog.Nop())
	q1 := NewQueue("one", 1)
	q2 := NewQueue("two", 1)
	d.Register(q1)
	d.Register(q2)
	q1.Close()

	got := d.Destinations()
	if len(got) != 1 || got[0] != "two" {
		t.Fatalf("Destinations = %v, want [two]", got)
	}
}
