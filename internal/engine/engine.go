// Package engine is the single sequence through which MIDI input, client
// subscriptions, program-list reloads and heartbeat ticks touch the shared
// timecode and channel state.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/layercast/internal/broadcast"
	"github.com/petervdpas/layercast/internal/config"
	"github.com/petervdpas/layercast/internal/playback"
	"github.com/petervdpas/layercast/internal/programlist"
	"github.com/petervdpas/layercast/internal/proto"
	"github.com/petervdpas/layercast/internal/timecode"
)

var trace = logging.Logger("engine")

type Options struct {
	Config   config.Config
	Programs *programlist.List // nil when no program list is configured
	Router   *broadcast.Router // nil gets a private router

	// Now overrides the wall clock (tests).
	Now func() time.Time
}

// Engine owns the timecode decoder and the channel registry. Every exported
// method holds the engine lock for its whole duration.
type Engine struct {
	mu sync.Mutex

	tc       *timecode.State
	reg      *playback.Registry
	res      *playback.Resolver
	router   *broadcast.Router
	programs *programlist.List
	now      func() time.Time

	visibilityCC  int
	programSlotCC int
	heartbeat     time.Duration
}

func New(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	// Keep a nil list a nil interface so the resolver sees "no list".
	var src playback.ProgramSource
	if opts.Programs != nil {
		src = opts.Programs
	}

	// Events still need somewhere to go when nobody listens.
	router := opts.Router
	if router == nil {
		router = broadcast.NewRouter()
	}

	reg := playback.NewRegistry(opts.Config, src)
	return &Engine{
		tc:            timecode.New(),
		reg:           reg,
		res:           playback.NewResolver(reg, src),
		router:        router,
		programs:      opts.Programs,
		now:           now,
		visibilityCC:  opts.Config.Engine.VisibilityCC,
		programSlotCC: opts.Config.Engine.ProgramSlotCC,
		heartbeat:     time.Duration(opts.Config.Engine.HeartbeatMS) * time.Millisecond,
	}
}

func (e *Engine) env() playback.Env {
	return playback.Env{Timecode: e.tc, Emitter: e.router, Now: e.now}
}

// ── MIDI input ──────────────────────────────────────────────────────────────

// HandleMIDI applies one complete MIDI message. Unknown or malformed
// messages are ignored.
func (e *Engine) HandleMIDI(msg []byte) {
	if len(msg) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	status := msg[0]
	if status&0xF0 == 0xF0 {
		switch status {
		case proto.MtcQuarterFrame:
			if len(msg) == 2 {
				e.quarterFrame(msg[1])
			}
		case proto.Sysex:
			e.sysex(msg)
		}
		return
	}

	channel := int(status & 0x0F)
	switch status & 0xF0 {
	case proto.ControlChange:
		if len(msg) == 3 && msg[1] < 0x80 && msg[2] < 0x80 {
			e.controlChange(channel, int(msg[1]), msg[2])
		}
	case proto.ProgramChange:
		if len(msg) == 2 && msg[1] < 0x80 {
			trace.Debugf("program change ch %d -> %d", channel, msg[1])
			e.res.ProgramChange(e.env(), channel, 0, int(msg[1]), false)
		}
	}
}

func (e *Engine) quarterFrame(data byte) {
	if !e.tc.QuarterFrame(data) {
		return
	}
	env := e.env()
	for _, l := range e.reg.ExternalLayers() {
		l.TimecodeStarted(env)
	}
}

func (e *Engine) sysex(msg []byte) {
	if isMMC(msg) {
		e.mmc(int(msg[2]), msg[4])
		return
	}
	if e.tc.FullFrame(msg) {
		env := e.env()
		for _, l := range e.reg.ExternalLayers() {
			l.TimecodeStopped(env)
		}
		return
	}
	trace.Debugf("ignored sysex % X", msg)
}

func isMMC(msg []byte) bool {
	return len(msg) == proto.MmcMessageLen &&
		msg[1] == proto.UniversalRealtime &&
		msg[3] == proto.MmcCommandSubID &&
		msg[5] == proto.SysexEnd
}

// mmc applies a transport command. Device 0 addresses every channel,
// device N channel N-1.
func (e *Engine) mmc(device int, command byte) {
	if device > proto.MaxMmcDeviceID {
		trace.Debugf("ignored MMC for device %d", device)
		return
	}

	var apply func(*playback.Channel, playback.Env)
	switch command {
	case proto.MmcPlay, proto.MmcDeferredPlay:
		apply = (*playback.Channel).Play
	case proto.MmcPause:
		apply = (*playback.Channel).Pause
	case proto.MmcStop:
		apply = (*playback.Channel).Stop
	default:
		trace.Debugf("ignored MMC command %#02x", command)
		return
	}

	env := e.env()
	if device == 0 {
		for _, ch := range e.reg.Channels() {
			apply(ch, env)
		}
		return
	}
	apply(e.reg.Channel(device-1), env)
}

func (e *Engine) controlChange(channel, cc int, value byte) {
	ch := e.reg.Channel(channel)

	switch {
	case cc == proto.BankSelectMsb:
		ch.SetBankMSB(value)
	case cc == proto.BankSelectLsb:
		ch.SetBankLSB(value)
	case cc >= e.visibilityCC && cc < e.visibilityCC+proto.LayerVisibilityCCCount:
		l := ch.Layer(cc - e.visibilityCC)
		if l == nil {
			return
		}
		l.SetDisplay(e.env(), playback.DisplayFromCC(value))
	case cc >= e.programSlotCC && cc < e.programSlotCC+proto.ProgramSlotCCCount:
		e.res.ProgramChange(e.env(), channel, cc-e.programSlotCC, int(value), false)
	}
}

// ── Clients ─────────────────────────────────────────────────────────────────

// Subscribe points sub at channel and replies with the channel's full state.
func (e *Engine) Subscribe(sub *broadcast.Subscription, channel int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.reg.Channel(channel)
	if ch == nil {
		return fmt.Errorf("channel %d out of range", channel)
	}

	e.router.SetChannel(sub, channel)
	ev := broadcast.ChannelEvent(proto.ActionChannelState, channel)
	ev.ChannelState = ch.Render(e.env())
	e.router.SendTo(sub, ev)
	return nil
}

// ── Heartbeat ───────────────────────────────────────────────────────────────

// Heartbeat sends every subscriber the positions of the playing layers on
// its channel. The lock is held through delivery so a sync never reaches a
// client after a transport event that ended the playback it reports.
func (e *Engine) Heartbeat() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.router.SendSync(e.reg.Playing(e.env()))
}

// Run drives the heartbeat until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Heartbeat()
		}
	}
}

// ── Program list ────────────────────────────────────────────────────────────

// SetProgramList swaps in a reloaded program list and re-resolves every
// slot, loading only layers whose media changed.
func (e *Engine) SetProgramList(list *programlist.List) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.programs = list
	if list == nil {
		e.res.SetList(nil)
		return
	}
	e.res.SetList(list)
	e.res.Reload(e.env())
	log.Printf("ENGINE: program list applied (%d entries)", list.Len())
}

// ── State ───────────────────────────────────────────────────────────────────

type TimecodeView struct {
	Position string  `json:"position"`
	Format   string  `json:"format"`
	Seconds  float64 `json:"seconds"`
	Playing  bool    `json:"playing"`
}

type Snapshot struct {
	Timecode    TimecodeView           `json:"timecode"`
	ProgramList string                 `json:"programList,omitempty"`
	Clients     int                    `json:"clients"`
	Channels    []playback.ChannelView `json:"channels"`
}

// Snapshot renders the whole engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Timecode: TimecodeView{
			Position: e.tc.Smpte().String(),
			Format:   e.tc.Format().String(),
			Seconds:  e.tc.Seconds(),
			Playing:  e.tc.Playing(),
		},
		Channels: e.reg.Render(e.env()),
	}
	if e.programs != nil {
		s.ProgramList = e.programs.Path()
	}
	s.Clients = e.router.Count()
	return s
}
