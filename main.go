// main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/petervdpas/layercast/internal/app"
	"github.com/petervdpas/layercast/internal/midiin"
)

var (
	cfgPath  = flag.String("config", "layercast.json", "Path to the config file (created with defaults if missing)")
	watch    = flag.Bool("watch", false, "Reload the program list when it changes")
	verbose  = flag.Bool("verbose", false, "Log timecode and MIDI traffic")
	listMIDI = flag.Bool("list-midi-devices", false, "List MIDI input ports and exit")
	version  = flag.Bool("version", false, "Show version")
	showHelp = flag.Bool("h", false, "Show help")
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

func main() {
	flag.Usage = showUsage
	flag.Parse()

	if *version {
		fmt.Printf("layercast v%s\n", appVersion)
		return
	}

	if *showHelp {
		showUsage()
		return
	}

	if *listMIDI {
		listMIDIDevices()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutting down gracefully...")
		cancel()
	}()

	if err := app.Run(ctx, app.Options{
		CfgPath: *cfgPath,
		Version: appVersion,
		Watch:   *watch,
		Verbose: *verbose,
	}); err != nil {
		log.Fatalf("layercast failed: %v", err)
	}
}

func listMIDIDevices() {
	names, err := midiin.Ports()
	if err != nil {
		log.Fatalf("Failed to list MIDI devices: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No MIDI input ports found.")
		return
	}
	fmt.Println("MIDI input ports:")
	for i, name := range names {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

func showUsage() {
	fmt.Println("layercast - MIDI driven media layers for browser displays")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  layercast [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # List MIDI inputs, then put the name or index in midi.port")
	fmt.Println("  layercast -list-midi-devices")
	fmt.Println()
	fmt.Println("  # Run a show, picking up program list edits")
	fmt.Println("  layercast -config show/layercast.json -watch")
	fmt.Println()
	fmt.Println("Documentation:")
	fmt.Println("  • http://<http_addr>/docs/")
}
