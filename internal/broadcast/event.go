// Package broadcast delivers JSON state events to connected clients. Each
// client subscribes to a single channel and only receives events for that
// channel plus global (channel-less) events.
package broadcast

// Event is one outbound JSON message. A nil Channel makes the event global.
type Event struct {
	Action       string      `json:"action"`
	Channel      *int        `json:"channel,omitempty"`
	Layer        *int        `json:"layer,omitempty"`
	CurrentTime  *float64    `json:"currentTime,omitempty"`
	DisplayState string      `json:"displayState,omitempty"`
	LayerState   any         `json:"layerState,omitempty"`
	ChannelState any         `json:"channelState,omitempty"`
	Layers       []SyncEntry `json:"layers,omitempty"`
}

// SyncEntry is one playing layer's position in a heartbeat.
type SyncEntry struct {
	Channel   int     `json:"channel"`
	Layer     int     `json:"layer"`
	Timestamp float64 `json:"timestamp"`
}

// LayerEvent builds an event addressed to one layer of a channel.
func LayerEvent(action string, channel, layer int) Event {
	return Event{Action: action, Channel: &channel, Layer: &layer}
}

// ChannelEvent builds an event addressed to a channel.
func ChannelEvent(action string, channel int) Event {
	return Event{Action: action, Channel: &channel}
}

// Emitter is implemented by anything that can publish events.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a plain function to the Emitter interface.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }
