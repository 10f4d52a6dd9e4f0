// Package timecode decodes MIDI Time Code. A single State reassembles the
// eight quarter-frame pieces of the running code and applies full-frame
// jam-sync messages; every reader of the shared position goes through it.
package timecode

import (
	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/layercast/internal/proto"
)

var log = logging.Logger("timecode")

// Transmission of the reassembled position started two frames before the
// quarter frame that completes it.
const reassemblyLatency = 2 * QFramesPerFrame

const fullPieceMask = 0xFF

// State is the process-wide MTC state. It is not safe for concurrent use;
// the engine serializes access to it.
type State struct {
	format  Format
	qframe  int
	playing bool
	pieces  [8]byte
	mask    uint8
}

// New returns a stopped state at 00:00:00:00, 30fps.
func New() *State {
	return &State{format: Format30}
}

// QuarterFrame applies the data byte of an F1 message. It reports true when
// this frame starts a new run (the shared playing flag rose).
func (s *State) QuarterFrame(data byte) bool {
	wasPlaying := s.playing

	// Quarter frames only stream while the source is running.
	s.playing = true
	s.qframe++

	piece := (data & 0x70) >> 4
	s.pieces[piece] = data & 0x0F
	s.mask |= 1 << piece

	if piece == 7 && s.mask == fullPieceMask {
		s.format = Format((s.pieces[7] >> 1) & 0x03)

		p := s.pieces
		reassembled := ToQFrames(
			s.format,
			int(p[6]&0x0F)|int(p[7]&0x01)<<4,
			int(p[4]&0x0F)|int(p[5]&0x03)<<4,
			int(p[2]&0x0F)|int(p[3]&0x03)<<4,
			int(p[0]&0x0F)|int(p[1]&0x01)<<4,
			0,
		) + reassemblyLatency

		if reassembled != s.qframe {
			log.Warnf("unexpected partial frame, jumping (%d != %d) %v", s.qframe, reassembled, p)
			s.qframe = reassembled
		}
		s.mask = 0
	}

	log.Debugf("position %s", s.Smpte())
	return !wasPlaying
}

// FullFrame applies an MTC full-frame sysex (F0 7F 7F 01 01 hh mm ss ff F7).
// It reports false and leaves the state untouched for any other payload.
func (s *State) FullFrame(msg []byte) bool {
	if !IsFullFrame(msg) {
		return false
	}

	s.format = Format((msg[5] >> 5) & 0x03)
	s.qframe = ToQFrames(
		s.format,
		int(msg[5]&0x1F),
		int(msg[6]),
		int(msg[7]),
		int(msg[8]),
		0,
	)
	s.playing = false
	s.mask = 0

	log.Debugf("full frame %s", s.Smpte())
	return true
}

// IsFullFrame reports whether msg is an MTC full-frame message.
func IsFullFrame(msg []byte) bool {
	return len(msg) == proto.MtcFullFrameLen &&
		msg[0] == proto.Sysex &&
		msg[1] == proto.UniversalRealtime &&
		msg[2] == proto.AllCallDevice &&
		msg[3] == proto.MtcSubID &&
		msg[4] == proto.MtcFullFrameSubID
}

// Playing reports whether quarter frames are currently streaming.
func (s *State) Playing() bool { return s.playing }

// Seconds returns the decoded position in seconds.
func (s *State) Seconds() float64 { return QFramesToSeconds(s.format, s.qframe) }

// Format returns the last received frame-rate code.
func (s *State) Format() Format { return s.format }

// QFrame returns the absolute position in quarter frames.
func (s *State) QFrame() int { return s.qframe }

// Smpte returns the decomposed position.
func (s *State) Smpte() Smpte { return QFramesToSmpte(s.format, s.qframe) }
