package playback

import (
	"log"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/layercast/internal/media"
	"github.com/petervdpas/layercast/internal/proto"
)

var trace = logging.Logger("playback")

// ProgramSource maps program numbers to media references.
type ProgramSource interface {
	MediaFile(program int) (string, bool)
}

// Resolver turns program selections into media loads.
type Resolver struct {
	reg  *Registry
	list ProgramSource
}

func NewResolver(reg *Registry, list ProgramSource) *Resolver {
	return &Resolver{reg: reg, list: list}
}

// SetList replaces the program list. A nil list disables resolution.
func (r *Resolver) SetList(list ProgramSource) {
	r.list = list
}

// HasList reports whether a program list is loaded.
func (r *Resolver) HasList() bool {
	return r.list != nil
}

// ProgramChange stores program into the channel's slot and loads the mapped
// media into every layer that follows that slot. With ignoreRedundant,
// layers already showing the resolved media are left alone.
func (r *Resolver) ProgramChange(env Env, channel, slot, program int, ignoreRedundant bool) {
	ch := r.reg.Channel(channel)
	if ch == nil || slot < 0 || slot >= len(ch.ProgramNumbers) {
		return
	}
	ch.ProgramNumbers[slot] = program

	if r.list == nil {
		log.Printf("PROGRAMS: program change ignored on ch %d (no program list loaded)", channel)
		return
	}

	number := ch.Bank<<7 | program
	for _, l := range ch.Layers {
		if !l.followsList || l.slot != slot {
			continue
		}

		f, ok := r.list.MediaFile(number + l.offset)
		if !ok {
			trace.Debugf("no media file for program %d on ch %d layer %d", number+l.offset, channel, l.index)
			continue
		}
		ref := media.Qualify(f)
		if ignoreRedundant && ref == l.mediaRef {
			continue
		}

		l.SetMedia(ref)
		trace.Infof("loading media file %s on ch %d layer %d", ref, channel, l.index)

		ev := l.event(proto.ActionLoadLayer)
		ev.LayerState = l.Render(env)
		env.emit(ev)
	}
}

// Reload re-resolves every slot of every channel against the current list,
// leaving layers whose media did not change untouched.
func (r *Resolver) Reload(env Env) {
	if r.list == nil {
		return
	}
	for _, ch := range r.reg.Channels() {
		for slot, program := range ch.ProgramNumbers {
			r.ProgramChange(env, ch.Index, slot, program, true)
		}
	}
}
