// Package playback holds the canonical synchronization state: channels, their
// layers and the transport of each layer. Nothing in here is safe for
// concurrent use; the engine serializes every call.
package playback

import (
	"time"

	"github.com/petervdpas/layercast/internal/broadcast"
	"github.com/petervdpas/layercast/internal/media"
	"github.com/petervdpas/layercast/internal/proto"
)

// SyncMode selects the clock a layer follows.
type SyncMode uint8

const (
	// Master layers run their own wall clock, driven by MMC.
	Master SyncMode = iota
	// ExternalTimecode layers mirror the incoming MTC position.
	ExternalTimecode
)

func (m SyncMode) String() string {
	switch m {
	case Master:
		return "master"
	case ExternalTimecode:
		return "external"
	}
	return "unknown"
}

func (m SyncMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// DisplayState is how clients present a layer.
type DisplayState string

const (
	Visible  DisplayState = "visible"
	Hidden   DisplayState = "hidden"
	Inactive DisplayState = "inactive"
)

// DisplayFromCC maps a visibility controller value.
func DisplayFromCC(v byte) DisplayState {
	switch v {
	case 0:
		return Inactive
	case 1:
		return Hidden
	}
	return Visible
}

// TimecodeSource is the shared decoded timecode.
type TimecodeSource interface {
	Playing() bool
	Seconds() float64
}

// Env carries the collaborators a layer needs for one operation.
type Env struct {
	Timecode TimecodeSource
	Emitter  broadcast.Emitter
	Now      func() time.Time
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Env) emit(ev broadcast.Event) {
	if e.Emitter != nil {
		e.Emitter.Emit(ev)
	}
}

// Layer is one independently synchronized element of a channel.
type Layer struct {
	channel int
	index   int
	mode    SyncMode

	mediaRef     string
	mimeType     string
	hasTransport bool

	baseTime  float64
	startedAt time.Time

	display DisplayState

	followsList bool
	slot        int
	offset      int
}

// LayerView is the JSON rendering of a layer.
type LayerView struct {
	Channel            int          `json:"channel"`
	Layer              int          `json:"layer"`
	SyncMode           SyncMode     `json:"syncMode"`
	MediaFile          *string      `json:"mediaFile"`
	MimeType           *string      `json:"mimeType"`
	HasTransport       bool         `json:"hasTransport"`
	CurrentTime        *float64     `json:"currentTime"`
	IsPlaying          bool         `json:"isPlaying"`
	DisplayState       DisplayState `json:"displayState"`
	FollowsProgramList bool         `json:"followsProgramList"`
	ProgramSlot        int          `json:"programSlot"`
	ProgramOffset      int          `json:"programOffset"`
}

func (l *Layer) Channel() int { return l.channel }
func (l *Layer) Index() int { return l.index }
func (l *Layer) Mode() SyncMode { return l.mode }
func (l *Layer) MediaRef() string { return l.mediaRef }
func (l *Layer) HasTransport() bool { return l.hasTransport }
func (l *Layer) Display() DisplayState { return l.display }
func (l *Layer) FollowsProgramList() bool { return l.followsList }
func (l *Layer) ProgramSlot() int { return l.slot }
func (l *Layer) ProgramOffset() int { return l.offset }
func (l *Layer) running() bool { return !l.startedAt.IsZero() }

func (l *Layer) event(action string) broadcast.Event {
	return broadcast.LayerEvent(action, l.channel, l.index)
}

// SetMedia replaces the layer's media. The new asset starts paused at zero.
func (l *Layer) SetMedia(ref string) {
	l.mediaRef = ref
	l.mimeType = media.MimeType(ref)
	l.hasTransport = media.HasTransport(ref)
	l.baseTime = 0
	l.startedAt = time.Time{}
}

// CurrentTime returns the playback position, or nil without transport.
func (l *Layer) CurrentTime(env Env) *float64 {
	if !l.hasTransport {
		return nil
	}
	var t float64
	switch l.mode {
	case Master:
		t = l.baseTime
		if l.running() {
			t += env.now().Sub(l.startedAt).Seconds()
		}
	case ExternalTimecode:
		if env.Timecode == nil {
			return nil
		}
		t = env.Timecode.Seconds()
	}
	return &t
}

// IsPlaying reports whether the layer's timeline is advancing.
func (l *Layer) IsPlaying(env Env) bool {
	if !l.hasTransport {
		return false
	}
	switch l.mode {
	case Master:
		return l.running()
	case ExternalTimecode:
		return env.Timecode != nil && env.Timecode.Playing()
	}
	return false
}

// Play starts a master layer. External layers ignore it.
func (l *Layer) Play(env Env) {
	if !l.hasTransport || l.mode != Master || l.running() {
		return
	}
	l.startedAt = env.now()
	l.emitTransport(env, proto.ActionPlay)
}

// Pause freezes a running master layer at its current position.
func (l *Layer) Pause(env Env) {
	if !l.hasTransport || l.mode != Master || !l.running() {
		return
	}
	l.baseTime += env.now().Sub(l.startedAt).Seconds()
	l.startedAt = time.Time{}
	l.emitTransport(env, proto.ActionPause)
}

// Stop rewinds a master layer. It emits even when already stopped so
// clients can resynchronize.
func (l *Layer) Stop(env Env) {
	if !l.hasTransport || l.mode != Master {
		return
	}
	l.startedAt = time.Time{}
	l.baseTime = 0
	env.emit(l.event(proto.ActionStop))
}

// TimecodeStarted announces that the shared timecode began running.
func (l *Layer) TimecodeStarted(env Env) {
	if l.hasTransport && l.mode == ExternalTimecode {
		l.emitTransport(env, proto.ActionPlay)
	}
}

// TimecodeStopped announces a jam sync that halted the shared timecode.
func (l *Layer) TimecodeStopped(env Env) {
	if l.hasTransport && l.mode == ExternalTimecode {
		l.emitTransport(env, proto.ActionPause)
	}
}

func (l *Layer) emitTransport(env Env, action string) {
	ev := l.event(action)
	ev.CurrentTime = l.CurrentTime(env)
	env.emit(ev)
}

// SetDisplay changes how clients present the layer.
func (l *Layer) SetDisplay(env Env, state DisplayState) {
	l.display = state
	ev := l.event(proto.ActionShow)
	ev.DisplayState = string(state)
	env.emit(ev)
}

// Render returns the full client view of the layer.
func (l *Layer) Render(env Env) LayerView {
	v := LayerView{
		Channel:            l.channel,
		Layer:              l.index,
		SyncMode:           l.mode,
		HasTransport:       l.hasTransport,
		CurrentTime:        l.CurrentTime(env),
		IsPlaying:          l.IsPlaying(env),
		DisplayState:       l.display,
		FollowsProgramList: l.followsList,
		ProgramSlot:        l.slot,
		ProgramOffset:      l.offset,
	}
	if l.mediaRef != "" {
		ref := l.mediaRef
		v.MediaFile = &ref
	}
	if l.mimeType != "" {
		mt := l.mimeType
		v.MimeType = &mt
	}
	return v
}
