package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/petervdpas/layercast/internal/proto"
	"github.com/petervdpas/layercast/internal/util"
)

// Sync modes accepted in layer config. "mtc" is an alias for "external".
const (
	SyncMaster   = "master"
	SyncExternal = "external"
	SyncMTC      = "mtc"
)

// Display states accepted in layer config.
const (
	DisplayVisible  = "visible"
	DisplayHidden   = "hidden"
	DisplayInactive = "inactive"
)

type Config struct {
	Server   Server    `json:"server"`
	Media    Media     `json:"media"`
	MIDI     MIDI      `json:"midi"`
	Engine   Engine    `json:"engine"`
	Log      Log       `json:"log"`
	Channels []Channel `json:"channels"`
}

type Server struct {
	HTTPAddr string `json:"http_addr"`

	// Directory holding the browser client. Empty serves the embedded client.
	PublicDir string `json:"public_dir"`
}

type Media struct {
	// Directory served under /media/.
	BaseDir string `json:"base_dir"`

	// Optional program list mapping program numbers to media files.
	ProgramList string `json:"program_list"`

	// Ghostscript binary. Empty means look it up on PATH (and in the usual
	// install locations on Windows).
	GhostscriptPath string `json:"ghostscript_path"`
	PDFResolution   int    `json:"pdf_resolution"`
}

type MIDI struct {
	// Input port, either its exact name or its index as listed by
	// -list-midi-devices. Empty runs without MIDI input.
	Port string `json:"port"`
}

type Engine struct {
	HeartbeatMS int `json:"heartbeat_ms"`

	// Number of program slots per channel.
	ProgramSlots int `json:"program_slots"`

	// First controller of the layer visibility range and of the program
	// slot range.
	VisibilityCC  int `json:"visibility_cc"`
	ProgramSlotCC int `json:"program_slot_cc"`
}

type Log struct {
	// Level for the protocol trace loggers (debug, info, warn, error).
	Level string `json:"level"`
	Lines int    `json:"buffer_lines"`
}

// Channel holds the layers of one MIDI channel. The position in
// Config.Channels is the channel index.
type Channel struct {
	Layers []Layer `json:"layers"`
}

type Layer struct {
	SyncMode string `json:"sync_mode"`

	// Initial media reference, used verbatim as the client URL.
	Media string `json:"media"`

	Display string `json:"display"`

	// Nil means true.
	FollowsProgramList *bool `json:"follows_program_list,omitempty"`
	ProgramSlot        int   `json:"program_slot"`
	ProgramOffset      int   `json:"program_offset"`
}

// FollowsList reports whether program changes load media into this layer.
func (l Layer) FollowsList() bool {
	return l.FollowsProgramList == nil || *l.FollowsProgramList
}

// External reports whether the layer follows incoming timecode.
func (l Layer) External() bool {
	return l.SyncMode == SyncExternal || l.SyncMode == SyncMTC
}

func Default() Config {
	return Config{
		Server: Server{
			HTTPAddr: "127.0.0.1:3000",
		},
		Media: Media{
			BaseDir:       "media",
			PDFResolution: 150,
		},
		Engine: Engine{
			HeartbeatMS:   1000,
			ProgramSlots:  proto.DefaultProgramSlots,
			VisibilityCC:  proto.DefaultLayerVisibilityCC,
			ProgramSlotCC: proto.DefaultProgramSlotCC,
		},
		Log: Log{
			Level: "info",
			Lines: 2000,
		},
	}
}

// ChannelLayers returns the configured layers of channel i, or a single
// master layer following the program list when the channel is not
// configured.
func (c *Config) ChannelLayers(i int) []Layer {
	if i >= 0 && i < len(c.Channels) && len(c.Channels[i].Layers) > 0 {
		return c.Channels[i].Layers
	}
	return []Layer{{SyncMode: SyncMaster}}
}

func (c *Config) Validate() error {
	// Server
	if strings.TrimSpace(c.Server.HTTPAddr) == "" {
		return errors.New("server.http_addr is required")
	}
	if _, _, err := net.SplitHostPort(c.Server.HTTPAddr); err != nil {
		return fmt.Errorf("server.http_addr: %w", err)
	}

	// Media
	if strings.TrimSpace(c.Media.BaseDir) == "" {
		return errors.New("media.base_dir is required")
	}
	if c.Media.PDFResolution < 10 || c.Media.PDFResolution > 1200 {
		return errors.New("media.pdf_resolution must be 10..1200")
	}

	// Engine
	if c.Engine.HeartbeatMS < 50 {
		return errors.New("engine.heartbeat_ms must be >= 50")
	}
	if c.Engine.ProgramSlots < 1 || c.Engine.ProgramSlots > proto.ProgramSlotCCCount {
		return fmt.Errorf("engine.program_slots must be 1..%d", proto.ProgramSlotCCCount)
	}
	if err := validateCCRange("engine.visibility_cc", c.Engine.VisibilityCC, proto.LayerVisibilityCCCount); err != nil {
		return err
	}
	if err := validateCCRange("engine.program_slot_cc", c.Engine.ProgramSlotCC, proto.ProgramSlotCCCount); err != nil {
		return err
	}
	if overlaps(c.Engine.VisibilityCC, proto.LayerVisibilityCCCount, c.Engine.ProgramSlotCC, proto.ProgramSlotCCCount) {
		return errors.New("engine.visibility_cc and engine.program_slot_cc ranges overlap")
	}

	// Log
	if c.Log.Lines <= 0 {
		return errors.New("log.buffer_lines must be > 0")
	}

	// Channels
	if len(c.Channels) > proto.NumChannels {
		return fmt.Errorf("channels: at most %d channels", proto.NumChannels)
	}
	for i, ch := range c.Channels {
		if len(ch.Layers) > proto.LayerVisibilityCCCount {
			return fmt.Errorf("channels[%d]: at most %d layers", i, proto.LayerVisibilityCCCount)
		}
		for j, l := range ch.Layers {
			if err := l.validate(c.Engine.ProgramSlots); err != nil {
				return fmt.Errorf("channels[%d].layers[%d].%w", i, j, err)
			}
		}
	}

	return nil
}

func (l Layer) validate(slots int) error {
	switch l.SyncMode {
	case "", SyncMaster, SyncExternal, SyncMTC:
	default:
		return fmt.Errorf("sync_mode %q must be master or external", l.SyncMode)
	}
	switch l.Display {
	case "", DisplayVisible, DisplayHidden, DisplayInactive:
	default:
		return fmt.Errorf("display %q must be visible, hidden or inactive", l.Display)
	}
	if l.ProgramSlot < 0 || l.ProgramSlot >= slots {
		return fmt.Errorf("program_slot must be 0..%d", slots-1)
	}
	return nil
}

func validateCCRange(key string, base, count int) error {
	// Bank select MSB/LSB are reserved.
	if base < 0 || base+count > 128 {
		return fmt.Errorf("%s must be 0..%d", key, 128-count)
	}
	if overlaps(base, count, proto.BankSelectMsb, 1) || overlaps(base, count, proto.BankSelectLsb, 1) {
		return fmt.Errorf("%s range must not include bank select controllers", key)
	}
	return nil
}

func overlaps(a, na, b, nb int) bool {
	return a < b+nb && b < a+na
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}
