package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/petervdpas/layercast/internal/broadcast"
	"github.com/petervdpas/layercast/internal/config"
	"github.com/petervdpas/layercast/internal/docs"
	"github.com/petervdpas/layercast/internal/engine"
	"github.com/petervdpas/layercast/internal/media"
	"github.com/petervdpas/layercast/internal/midiin"
	"github.com/petervdpas/layercast/internal/pdf"
	"github.com/petervdpas/layercast/internal/programlist"
	"github.com/petervdpas/layercast/internal/util"
	"github.com/petervdpas/layercast/internal/viewer"
)

type Options struct {
	CfgPath string
	Version string

	// Watch reloads the program list when it changes on disk.
	Watch bool

	// Verbose forces the trace loggers to debug.
	Verbose bool
}

// Run starts the server and blocks until ctx is cancelled. Errors returned
// before the server is up (config, program list, MIDI port) are fatal.
func Run(ctx context.Context, opt Options) error {
	cfg, created, err := config.Ensure(opt.CfgPath)
	if err != nil {
		return err
	}

	logBuf := viewer.NewLogBuffer(cfg.Log.Lines)
	log.SetOutput(io.MultiWriter(os.Stderr, logBuf))

	stopTracing, err := setupTracing(cfg.Log.Level, opt.Verbose, logBuf)
	if err != nil {
		return err
	}
	defer stopTracing()

	if created {
		log.Printf("ENGINE: wrote default config to %s", opt.CfgPath)
	}

	// Relative paths in the config are relative to the config file.
	base := filepath.Dir(opt.CfgPath)
	cfg.Media.BaseDir = util.ResolvePath(base, cfg.Media.BaseDir)
	cfg.Media.ProgramList = util.ResolvePath(base, cfg.Media.ProgramList)
	if cfg.Server.PublicDir != "" {
		cfg.Server.PublicDir = util.ResolvePath(base, cfg.Server.PublicDir)
	}

	logBanner(opt.Version, opt.CfgPath, cfg)

	var programs *programlist.List
	if cfg.Media.ProgramList != "" {
		programs, err = programlist.Load(cfg.Media.ProgramList)
		if err != nil {
			return err
		}
		log.Printf("PROGRAMS: loaded %d entries from %s", programs.Len(), programs.Path())
	} else {
		log.Printf("PROGRAMS: no program list configured")
	}

	lib, err := media.NewLibrary(cfg.Media.BaseDir)
	if err != nil {
		return fmt.Errorf("media directory: %w", err)
	}
	site, err := docs.New()
	if err != nil {
		return fmt.Errorf("docs: %w", err)
	}

	router := broadcast.NewRouter()
	eng := engine.New(engine.Options{
		Config:   cfg,
		Programs: programs,
		Router:   router,
	})

	var input *midiin.Input
	if cfg.MIDI.Port != "" {
		input, err = midiin.Open(cfg.MIDI.Port, eng.HandleMIDI)
		if err != nil {
			return err
		}
		defer input.Close()
	} else {
		log.Printf("MIDI: no input port configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	goRun := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	goRun(func() { eng.Run(ctx) })
	if input != nil {
		goRun(func() { input.Supervise(ctx) })
	}
	if opt.Watch && programs != nil {
		goRun(func() {
			err := programlist.Watch(ctx, cfg.Media.ProgramList, eng.SetProgramList)
			if err != nil {
				log.Printf("PROGRAMS: watcher stopped: %v", err)
			}
		})
	}

	err = viewer.Start(ctx, cfg.Server.HTTPAddr, viewer.Viewer{
		Engine:    eng,
		Router:    router,
		Logs:      logBuf,
		Docs:      site,
		Media:     lib,
		PDF:       pdf.New(cfg.Media.GhostscriptPath, cfg.Media.PDFResolution),
		PublicDir: cfg.Server.PublicDir,
	})

	cancel()
	wg.Wait()
	return err
}
