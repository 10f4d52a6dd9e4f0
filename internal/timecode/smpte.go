package timecode

import "fmt"

// Format is the 2-bit SMPTE rate code carried by MTC.
type Format uint8

const (
	Format24     Format = 0
	Format25     Format = 1
	Format30Drop Format = 2
	Format30     Format = 3
)

// QFramesPerFrame is the decoder's sub-frame resolution.
const QFramesPerFrame = 4

// Drop-frame is not really supported and runs as plain 30fps.
var fpsForFormat = [4]int{24, 25, 30, 30}

// FPS returns the frame rate used for arithmetic in this format.
func (f Format) FPS() int {
	return fpsForFormat[f&3]
}

func (f Format) String() string {
	switch f & 3 {
	case Format24:
		return "24fps"
	case Format25:
		return "25fps"
	case Format30Drop:
		return "30fps-drop"
	default:
		return "30fps"
	}
}

// Smpte is a decomposed timecode position.
type Smpte struct {
	Format  Format `json:"format"`
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Seconds int    `json:"seconds"`
	Frames  int    `json:"frames"`
	QFrames int    `json:"qframes"`
}

// String formats as hh:mm:ss:ff.q where q is the quarter frame 0..3.
func (s Smpte) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d.%d", s.Hours, s.Minutes, s.Seconds, s.Frames, s.QFrames)
}

// ToQFrames converts an SMPTE time into a total number of quarter frames.
func ToQFrames(f Format, hours, minutes, seconds, frames, qframes int) int {
	return ((seconds+minutes*60+hours*3600)*f.FPS()+frames)*QFramesPerFrame + qframes
}

// QFramesToSeconds converts a quarter-frame count into elapsed seconds.
func QFramesToSeconds(f Format, qframe int) float64 {
	perSecond := QFramesPerFrame * f.FPS()
	whole := qframe / perSecond
	rem := qframe % perSecond
	return float64(whole) + float64(rem)/float64(perSecond)
}

// QFramesToSmpte decomposes a quarter-frame count.
func QFramesToSmpte(f Format, qframe int) Smpte {
	perSecond := QFramesPerFrame * f.FPS()
	totalSeconds := qframe / perSecond
	rem := qframe % perSecond
	return Smpte{
		Format:  f & 3,
		Seconds: totalSeconds % 60,
		Minutes: (totalSeconds / 60) % 60,
		Hours:   totalSeconds / 3600,
		Frames:  rem / QFramesPerFrame,
		QFrames: rem % QFramesPerFrame,
	}
}

// Total is the inverse of QFramesToSmpte.
func (s Smpte) Total() int {
	return ToQFrames(s.Format, s.Hours, s.Minutes, s.Seconds, s.Frames, s.QFrames)
}
