package playback

import (
	"github.com/petervdpas/layercast/internal/broadcast"
	"github.com/petervdpas/layercast/internal/config"
	"github.com/petervdpas/layercast/internal/media"
	"github.com/petervdpas/layercast/internal/proto"
)

// Channel groups the layers of one MIDI channel with its bank and program
// selection.
type Channel struct {
	Index          int
	Bank           int
	ProgramNumbers []int
	Layers         []*Layer
}

// ChannelView is the JSON rendering of a channel.
type ChannelView struct {
	Channel        int         `json:"channel"`
	Bank           int         `json:"bank"`
	ProgramNumbers []int       `json:"programNumbers"`
	Layers         []LayerView `json:"layers"`
}

// SetBankMSB replaces the upper seven bits of the 14-bit bank.
func (c *Channel) SetBankMSB(v byte) {
	c.Bank = c.Bank&0x7F | int(v&0x7F)<<7
}

// SetBankLSB replaces the lower seven bits of the 14-bit bank.
func (c *Channel) SetBankLSB(v byte) {
	c.Bank = c.Bank&(0x7F<<7) | int(v&0x7F)
}

// Layer returns layer i, or nil when the channel has no such layer.
func (c *Channel) Layer(i int) *Layer {
	if i < 0 || i >= len(c.Layers) {
		return nil
	}
	return c.Layers[i]
}

func (c *Channel) Play(env Env) {
	for _, l := range c.Layers {
		l.Play(env)
	}
}

func (c *Channel) Pause(env Env) {
	for _, l := range c.Layers {
		l.Pause(env)
	}
}

func (c *Channel) Stop(env Env) {
	for _, l := range c.Layers {
		l.Stop(env)
	}
}

// Render returns the full client view of the channel.
func (c *Channel) Render(env Env) ChannelView {
	v := ChannelView{
		Channel:        c.Index,
		Bank:           c.Bank,
		ProgramNumbers: append([]int(nil), c.ProgramNumbers...),
		Layers:         make([]LayerView, len(c.Layers)),
	}
	for i, l := range c.Layers {
		v.Layers[i] = l.Render(env)
	}
	return v
}

// Registry is the fixed set of sixteen channels, built once at startup.
type Registry struct {
	channels [proto.NumChannels]*Channel
}

// NewRegistry builds every channel from cfg. Layers that follow the program
// list and have no configured media start on the entry for program zero
// (plus their offset) when a list is given.
func NewRegistry(cfg config.Config, list ProgramSource) *Registry {
	slots := cfg.Engine.ProgramSlots
	if slots <= 0 {
		slots = proto.DefaultProgramSlots
	}

	r := &Registry{}
	for i := range r.channels {
		ch := &Channel{
			Index:          i,
			ProgramNumbers: make([]int, slots),
		}
		for j, lc := range cfg.ChannelLayers(i) {
			ch.Layers = append(ch.Layers, newLayer(i, j, lc, list))
		}
		r.channels[i] = ch
	}
	return r
}

func newLayer(channel, index int, lc config.Layer, list ProgramSource) *Layer {
	l := &Layer{
		channel:     channel,
		index:       index,
		mode:        Master,
		display:     Visible,
		followsList: lc.FollowsList(),
		slot:        lc.ProgramSlot,
		offset:      lc.ProgramOffset,
	}
	if lc.External() {
		l.mode = ExternalTimecode
	}
	if lc.Display != "" {
		l.display = DisplayState(lc.Display)
	}

	ref := lc.Media
	if ref == "" && l.followsList && list != nil {
		if f, ok := list.MediaFile(l.offset); ok {
			ref = media.Qualify(f)
		}
	}
	l.SetMedia(ref)
	return l
}

// Channel returns channel i, or nil when i is out of range.
func (r *Registry) Channel(i int) *Channel {
	if i < 0 || i >= len(r.channels) {
		return nil
	}
	return r.channels[i]
}

// Channels returns all channels in index order.
func (r *Registry) Channels() []*Channel {
	return r.channels[:]
}

// ExternalLayers returns every layer driven by timecode that can play.
func (r *Registry) ExternalLayers() []*Layer {
	var out []*Layer
	for _, ch := range r.channels {
		for _, l := range ch.Layers {
			if l.mode == ExternalTimecode && l.hasTransport {
				out = append(out, l)
			}
		}
	}
	return out
}

// Playing collects the position of every playing layer, keyed by channel.
// Stopped layers and layers without transport are omitted.
func (r *Registry) Playing(env Env) map[int][]broadcast.SyncEntry {
	out := make(map[int][]broadcast.SyncEntry)
	for _, ch := range r.channels {
		for _, l := range ch.Layers {
			if !l.IsPlaying(env) {
				continue
			}
			t := l.CurrentTime(env)
			if t == nil {
				continue
			}
			out[ch.Index] = append(out[ch.Index], broadcast.SyncEntry{
				Channel:   ch.Index,
				Layer:     l.index,
				Timestamp: *t,
			})
		}
	}
	return out
}

// Render returns the view of every channel.
func (r *Registry) Render(env Env) []ChannelView {
	out := make([]ChannelView, len(r.channels))
	for i, ch := range r.channels {
		out[i] = ch.Render(env)
	}
	return out
}
