package broadcast

import (
	"encoding/json"
	"sync"
	"testing"
)

func drain(sub *Subscription) []Event {
	var out []Event
	for {
		select {
		case data := <-sub.Messages():
			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				panic(err)
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestEmitFiltersByChannel(t *testing.T) {
	r := NewRouter()
	three, cancel3 := r.Subscribe()
	defer cancel3()
	four, cancel4 := r.Subscribe()
	defer cancel4()
	none, cancelNone := r.Subscribe()
	defer cancelNone()

	r.SetChannel(three, 3)
	r.SetChannel(four, 4)

	r.Emit(LayerEvent("play", 4, 0))
	r.Emit(LayerEvent("pause", 3, 1))
	r.Emit(Event{Action: "hello"})

	got := drain(three)
	if len(got) != 2 {
		t.Fatalf("channel 3 got %d events, want 2: %+v", len(got), got)
	}
	for _, ev := range got {
		if ev.Channel != nil && *ev.Channel != 3 {
			t.Fatalf("channel 3 received event for channel %d", *ev.Channel)
		}
	}
	if got[0].Action != "pause" || got[1].Action != "hello" {
		t.Fatalf("unexpected events %+v", got)
	}

	if got := drain(four); len(got) != 2 || got[0].Action != "play" {
		t.Fatalf("channel 4 got %+v", got)
	}

	// An unsubscribed client only sees global events.
	if got := drain(none); len(got) != 1 || got[0].Action != "hello" {
		t.Fatalf("unsubscribed client got %+v", got)
	}
}

func TestEmitChannelZeroIsNotGlobal(t *testing.T) {
	r := NewRouter()
	sub, cancel := r.Subscribe()
	defer cancel()
	r.SetChannel(sub, 1)

	r.Emit(ChannelEvent("loadLayer", 0))
	if got := drain(sub); len(got) != 0 {
		t.Fatalf("channel 1 received channel 0 event: %+v", got)
	}
}

func TestSendSync(t *testing.T) {
	r := NewRouter()
	a, cancelA := r.Subscribe()
	defer cancelA()
	b, cancelB := r.Subscribe()
	defer cancelB()
	idle, cancelIdle := r.Subscribe()
	defer cancelIdle()

	r.SetChannel(a, 2)
	r.SetChannel(b, 5)

	r.SendSync(map[int][]SyncEntry{
		2: {{Channel: 2, Layer: 0, Timestamp: 1.5}, {Channel: 2, Layer: 1, Timestamp: 1.5}},
	})

	got := drain(a)
	if len(got) != 1 || got[0].Action != "sync" || len(got[0].Layers) != 2 {
		t.Fatalf("channel 2 got %+v", got)
	}
	if got := drain(b); len(got) != 0 {
		t.Fatalf("channel 5 with nothing playing got %+v", got)
	}
	if got := drain(idle); len(got) != 0 {
		t.Fatalf("unsubscribed client got %+v", got)
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	r := NewRouter()
	sub, cancel := r.Subscribe()
	defer cancel()
	r.SetChannel(sub, 0)

	for i := 0; i < queueCap+10; i++ {
		r.Emit(ChannelEvent("stop", 0))
	}
	if sub.Dropped() != 10 {
		t.Fatalf("dropped = %d, want 10", sub.Dropped())
	}
}

func TestCancelDuringBroadcast(t *testing.T) {
	r := NewRouter()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				sub, cancel := r.Subscribe()
				r.SetChannel(sub, j%16)
				cancel()
				cancel()
			}
		}()
	}
	for i := 0; i < 500; i++ {
		r.Emit(ChannelEvent("play", i%16))
	}
	wg.Wait()

	if r.Count() != 0 {
		t.Fatalf("count = %d after all cancels", r.Count())
	}
}

func TestCloseCancelsAll(t *testing.T) {
	r := NewRouter()
	a, _ := r.Subscribe()
	b, cancelB := r.Subscribe()

	r.Close()
	cancelB()

	for _, s := range []*Subscription{a, b} {
		select {
		case <-s.Done():
		default:
			t.Fatalf("subscription %s still live", s.ID)
		}
	}
	if r.Count() != 0 {
		t.Fatalf("count = %d", r.Count())
	}
}

func TestSendToMakesRoomOnFullQueue(t *testing.T) {
	r := NewRouter()
	sub, cancel := r.Subscribe()
	defer cancel()
	r.SetChannel(sub, 3)

	for i := 0; i < queueCap; i++ {
		r.Emit(ChannelEvent("sync", 3))
	}
	r.SendTo(sub, ChannelEvent("channelState", 3))

	if sub.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", sub.Dropped())
	}
	var last []byte
	n := 0
	for len(sub.Messages()) > 0 {
		last = <-sub.Messages()
		n++
	}
	if n != queueCap {
		t.Fatalf("queued = %d, want %d", n, queueCap)
	}
	var ev Event
	if err := json.Unmarshal(last, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Action != "channelState" {
		t.Fatalf("last message = %s", last)
	}
}

func TestSendToCancelled(t *testing.T) {
	r := NewRouter()
	sub, cancel := r.Subscribe()
	cancel()
	for i := 0; i < queueCap; i++ {
		sub.out <- []byte("{}")
	}
	r.SendTo(sub, ChannelEvent("channelState", 0))
	if len(sub.Messages()) != queueCap {
		t.Fatalf("queue changed after cancel")
	}
}
