package programlist

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay coalesces the burst of events editors produce on save.
const settleDelay = 200 * time.Millisecond

// Watch reloads the program list at path whenever it changes on disk and
// hands each successfully parsed list to onReload. A list that fails to parse
// is logged and the previous one stays in effect. Watch blocks until ctx is
// cancelled.
func Watch(ctx context.Context, path string, onReload func(*List)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors that save by rename replace the inode.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(settleDelay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(settleDelay)
		case <-timer.C:
			l, err := Load(abs)
			if err != nil {
				log.Printf("PROGRAMS: failed to reload program list - %v", err)
				continue
			}
			log.Printf("PROGRAMS: program list re-loaded (%d entries)", l.Len())
			onReload(l)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("PROGRAMS: watcher error: %v", err)
		}
	}
}
