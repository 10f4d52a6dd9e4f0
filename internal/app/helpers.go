package app

import (
	"fmt"
	"io"
	"log"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/layercast/internal/config"
)

func logBanner(version, cfgPath string, cfg config.Config) {
	log.Println("────────────────────────────────────────")
	log.Printf("layercast %s", version)
	log.Printf(" Config file  : %s", cfgPath)
	log.Printf(" Media folder : %s", cfg.Media.BaseDir)
	if cfg.Media.ProgramList != "" {
		log.Printf(" Program list : %s", cfg.Media.ProgramList)
	}
	if cfg.MIDI.Port != "" {
		log.Printf(" MIDI input   : %s", cfg.MIDI.Port)
	} else {
		log.Println(" MIDI input   : none")
	}
	log.Printf(" Listening on : http://%s", cfg.Server.HTTPAddr)
	log.Println("────────────────────────────────────────")
}

// setupTracing configures the protocol trace loggers and copies their output
// into sink. The returned func stops the copy.
func setupTracing(level string, verbose bool, sink io.Writer) (func(), error) {
	if verbose {
		level = "debug"
	}
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	logging.SetupLogging(logging.Config{
		Format: logging.PlaintextOutput,
		Level:  lvl,
		Stderr: true,
	})

	pr := logging.NewPipeReader(logging.PipeFormat(logging.PlaintextOutput))
	go func() { _, _ = io.Copy(sink, pr) }()

	return func() { _ = pr.Close() }, nil
}
