// Package proto holds the MIDI wire constants layercast consumes and the
// action names of the JSON events it sends to browser clients.
package proto

// Status bytes. Channel messages carry the channel in the low nibble.
const (
	NoteOff         = 0x80
	NoteOn          = 0x90
	AfterTouch      = 0xA0
	ControlChange   = 0xB0
	ProgramChange   = 0xC0
	ChannelPressure = 0xD0
	PitchBend       = 0xE0

	Sysex           = 0xF0
	MtcQuarterFrame = 0xF1
	SongPosition    = 0xF2
	SongSelect      = 0xF3
	TuneRequest     = 0xF6
	SysexEnd        = 0xF7
	Clock           = 0xF8
	Start           = 0xFA
	Continue        = 0xFB
	Stop            = 0xFC
	ActiveSense     = 0xFE
	Reset           = 0xFF
)

// Controller numbers.
const (
	BankSelectMsb = 0
	BankSelectLsb = 32
)

// Default reserved controller ranges (undefined controllers in the GM table).
// Both are overridable from the config file.
const (
	DefaultLayerVisibilityCC = 102 // 102..111: one controller per layer
	LayerVisibilityCCCount   = 10

	DefaultProgramSlotCC = 112 // 112..115: one controller per program slot
	ProgramSlotCCCount   = 4
)

// MMC command bytes (F0 7F <device> 06 <command> F7).
const (
	MmcStop           = 0x01
	MmcPlay           = 0x02
	MmcDeferredPlay   = 0x03
	MmcFastForward    = 0x04
	MmcRewind         = 0x05
	MmcRecordPunchIn  = 0x06
	MmcRecordPunchOut = 0x07
	MmcRecordReady    = 0x08
	MmcPause          = 0x09
	MmcEject          = 0x0A
	MmcChase          = 0x0B
	MmcReset          = 0x0F
)

// Sysex framing.
const (
	UniversalRealtime = 0x7F
	AllCallDevice     = 0x7F
	MmcCommandSubID   = 0x06
	MtcSubID          = 0x01
	MtcFullFrameSubID = 0x01

	MmcMessageLen       = 6
	MtcFullFrameLen     = 10
	MaxMmcDeviceID      = 16
	NumChannels         = 16
	DefaultProgramSlots = 4
)

// Event actions sent to clients.
const (
	ActionPlay         = "play"
	ActionPause        = "pause"
	ActionStop         = "stop"
	ActionLoadLayer    = "loadLayer"
	ActionShow         = "show"
	ActionSync         = "sync"
	ActionChannelState = "channelState"
)

// Actions accepted from clients.
const (
	ActionSubscribe = "subscribe"
)
