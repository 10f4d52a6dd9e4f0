package broadcast

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/layercast/internal/proto"
)

var log = logging.Logger("broadcast")

// NoChannel is the channel of a subscription that has not subscribed yet.
const NoChannel = -1

// queueCap is how many undelivered messages a subscriber may lag behind
// before new ones are dropped for it.
const queueCap = 64

// Subscription is one connected client.
type Subscription struct {
	ID string

	out  chan []byte
	done chan struct{}

	// guarded by Router.mu
	channel int

	dropped atomic.Int64
	cancel  func()
}

// Messages returns the queue of serialized events for this client.
func (s *Subscription) Messages() <-chan []byte { return s.out }

// Done is closed when the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Dropped returns how many messages were discarded because the client lagged.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

func (s *Subscription) deliver(data []byte) {
	select {
	case <-s.done:
	case s.out <- data:
	default:
		s.dropped.Add(1)
	}
}

// deliverReply is deliver that evicts queued messages instead of dropping
// data. It fails only when the subscription is gone or other senders keep
// refilling the queue.
func (s *Subscription) deliverReply(data []byte) bool {
	for attempt := 0; attempt < 3; attempt++ {
		select {
		case <-s.done:
			return false
		case s.out <- data:
			return true
		default:
		}
		select {
		case <-s.out:
			s.dropped.Add(1)
			log.Warnf("client %s lagging, evicted a queued message", s.ID)
		default:
		}
	}
	s.dropped.Add(1)
	return false
}

// Router is the registry of client subscriptions.
type Router struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{subs: make(map[string]*Subscription)}
}

// Subscribe registers a new client with no channel of interest. The cancel
// func is idempotent.
func (r *Router) Subscribe() (sub *Subscription, cancel func()) {
	sub = &Subscription{
		ID:      uuid.NewString(),
		out:     make(chan []byte, queueCap),
		done:    make(chan struct{}),
		channel: NoChannel,
	}

	r.mu.Lock()
	r.subs[sub.ID] = sub
	r.mu.Unlock()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, sub.ID)
			r.mu.Unlock()
			close(sub.done)
		})
	}
	sub.cancel = cancel
	return sub, cancel
}

// Close cancels every subscription. Their owners see Done and hang up.
func (r *Router) Close() {
	for _, t := range r.snapshot() {
		t.sub.cancel()
	}
}

// SetChannel changes the channel a subscription listens to.
func (r *Router) SetChannel(sub *Subscription, channel int) {
	r.mu.Lock()
	sub.channel = channel
	r.mu.Unlock()
}

// Channel returns the channel a subscription listens to, or NoChannel.
func (r *Router) Channel(sub *Subscription) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sub.channel
}

// Count returns the number of live subscriptions.
func (r *Router) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

type target struct {
	sub     *Subscription
	channel int
}

// snapshot copies the subscription set so delivery never holds the lock
// and subscribers may come and go mid-broadcast.
func (r *Router) snapshot() []target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]target, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, target{sub: s, channel: s.channel})
	}
	return out
}

// Emit delivers ev to every subscription on its channel, or to all of them
// when ev has no channel.
func (r *Router) Emit(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("marshal %s: %v", ev.Action, err)
		return
	}
	log.Debugf("emit %s", data)

	for _, t := range r.snapshot() {
		if ev.Channel != nil && t.channel != *ev.Channel {
			continue
		}
		t.sub.deliver(data)
	}
}

// SendTo delivers ev to one subscription regardless of its channel. It is
// used for replies a client cannot do without, so when the queue is full the
// oldest queued message is discarded to make room.
func (r *Router) SendTo(sub *Subscription, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("marshal %s: %v", ev.Action, err)
		return
	}
	if !sub.deliverReply(data) {
		log.Warnf("client %s: %s reply dropped", sub.ID, ev.Action)
	}
}

// SendSync sends one batched sync event to each subscription whose channel
// has playing layers. Channels without entries send nothing.
func (r *Router) SendSync(byChannel map[int][]SyncEntry) {
	if len(byChannel) == 0 {
		return
	}

	encoded := make(map[int][]byte, len(byChannel))
	for _, t := range r.snapshot() {
		if t.channel == NoChannel {
			continue
		}
		entries := byChannel[t.channel]
		if len(entries) == 0 {
			continue
		}
		data, ok := encoded[t.channel]
		if !ok {
			var err error
			data, err = json.Marshal(Event{Action: proto.ActionSync, Layers: entries})
			if err != nil {
				log.Errorf("marshal sync: %v", err)
				continue
			}
			encoded[t.channel] = data
		}
		t.sub.deliver(data)
	}
}
