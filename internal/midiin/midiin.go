// Package midiin feeds raw messages from a hardware MIDI input port into a
// handler. Sysex and timecode are enabled so MMC and MTC come through.
package midiin

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var trace = logging.Logger("midi")

const rescanInterval = time.Second

// Handler receives one complete MIDI message. The slice must not be retained.
type Handler func(msg []byte)

// Ports lists the available input port names in driver order.
func Ports() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	return portNames(ins), nil
}

func portNames(ins []drivers.In) []string {
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names
}

// FindPort picks a port by exact name, or by index when port is a number.
func FindPort(names []string, port string) (int, error) {
	for i, n := range names {
		if n == port {
			return i, nil
		}
	}
	if idx, err := strconv.Atoi(strings.TrimSpace(port)); err == nil {
		if idx < 0 || idx >= len(names) {
			return -1, fmt.Errorf("MIDI port index %d out of range (%d ports)", idx, len(names))
		}
		return idx, nil
	}
	return -1, fmt.Errorf("MIDI port '%s' doesn't exist", port)
}

// Input is an open MIDI input port. If the device is unplugged, Supervise
// reconnects when a port with the same name reappears.
type Input struct {
	mu        sync.Mutex
	drv       *rtmididrv.Driver
	in        drivers.In
	stop      func()
	name      string
	connected bool
	handler   Handler
}

// Open opens the port selected by port (see FindPort) and starts delivering
// its messages to h.
func Open(port string, h Handler) (*Input, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}

	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	idx, err := FindPort(portNames(ins), port)
	if err != nil {
		drv.Close()
		return nil, err
	}

	i := &Input{drv: drv, handler: h}
	i.mu.Lock()
	err = i.connectLocked(ins[idx])
	i.mu.Unlock()
	if err != nil {
		drv.Close()
		return nil, err
	}
	return i, nil
}

// Name returns the name of the opened port.
func (i *Input) Name() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.name
}

func (i *Input) connectLocked(in drivers.In) error {
	name := in.String()
	if err := in.Open(); err != nil {
		return fmt.Errorf("open MIDI port %q: %w", name, err)
	}

	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		trace.Debugf("% X", []byte(msg))
		i.handler(msg)
	},
		midi.UseSysEx(),
		midi.UseTimeCode(),
		midi.HandleError(func(err error) {
			log.Printf("MIDI: listener error on %s: %v", name, err)
			// The listener goroutine must not tear itself down.
			go i.disconnect(name)
		}),
	)
	if err != nil {
		_ = in.Close()
		return fmt.Errorf("listen on MIDI port %q: %w", name, err)
	}

	i.in = in
	i.stop = stop
	i.name = name
	i.connected = true
	log.Printf("MIDI: listening on %s", name)
	return nil
}

func (i *Input) disconnect(name string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.connected && i.name == name {
		i.closeLocked()
	}
}

func (i *Input) closeLocked() {
	if i.stop != nil {
		i.stop()
		i.stop = nil
	}
	if i.in != nil {
		_ = i.in.Close()
		i.in = nil
	}
	i.connected = false
}

// Supervise watches for the port disappearing and reopens it when it comes
// back. It returns when ctx is cancelled.
func (i *Input) Supervise(ctx context.Context) {
	ticker := time.NewTicker(rescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.rescan()
		}
	}
}

func (i *Input) rescan() {
	i.mu.Lock()
	defer i.mu.Unlock()

	ins, err := i.drv.Ins()
	if err != nil {
		log.Printf("MIDI: list inputs failed: %v", err)
		return
	}

	var found drivers.In
	for _, in := range ins {
		if in.String() == i.name {
			found = in
			break
		}
	}

	switch {
	case i.connected && found == nil:
		log.Printf("MIDI: %s disappeared", i.name)
		i.closeLocked()
	case !i.connected && found != nil:
		if err := i.connectLocked(found); err != nil {
			log.Printf("MIDI: reconnect failed: %v", err)
		}
	}
}

// Close stops listening and releases the driver.
func (i *Input) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closeLocked()
	return i.drv.Close()
}
