// internal/viewer/logbuf.go
package viewer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/petervdpas/layercast/internal/util"
)

type LogEntry struct {
	TS        time.Time `json:"ts"`
	Subsystem string    `json:"subsystem,omitempty"`
	Msg       string    `json:"msg"`
}

// LogBuffer keeps the most recent log lines of both the operator log and the
// tracing loggers.
type LogBuffer struct {
	mu      sync.Mutex
	entries *util.RingBuffer[LogEntry]

	subs map[chan LogEntry]struct{}

	partial bytes.Buffer
}

func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = 500
	}
	return &LogBuffer{
		entries: util.NewRingBuffer[LogEntry](max),
		subs:    make(map[chan LogEntry]struct{}),
	}
}

// Write implements io.Writer for log.SetOutput/io.MultiWriter.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.partial.Write(p)

	for {
		data := b.partial.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i == -1 {
			break
		}

		line := string(data[:i])
		b.partial.Next(i + 1)

		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		e := LogEntry{TS: time.Now(), Subsystem: subsystemOf(line), Msg: line}
		b.entries.Push(e)
		b.broadcastLocked(e)
	}

	return len(p), nil
}

// subsystemOf finds the subsystem a line was logged by: the "ENGINE:" style
// prefix of operator messages, or the logger name column of tracing output
// ("<time>\t<LEVEL>\t<name>\t...").
func subsystemOf(line string) string {
	if cols := strings.Split(line, "\t"); len(cols) >= 4 {
		return strings.ToLower(strings.TrimSpace(cols[2]))
	}
	fields := strings.Fields(line)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	for _, f := range fields {
		if isPrefixTag(f) {
			return strings.ToLower(strings.TrimSuffix(f, ":"))
		}
	}
	return ""
}

func isPrefixTag(f string) bool {
	if len(f) < 3 || !strings.HasSuffix(f, ":") {
		return false
	}
	for _, c := range f[:len(f)-1] {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func (b *LogBuffer) broadcastLocked(e LogEntry) {
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// drop on slow subscriber
		}
	}
}

func (b *LogBuffer) Snapshot() []LogEntry {
	return b.entries.Snapshot()
}

func (b *LogBuffer) Subscribe() (ch chan LogEntry, cancel func()) {
	ch = make(chan LogEntry, 64)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel = func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// GET /api/logs?subsystem=engine&n=100
func (b *LogBuffer) ServeLogsJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n := -1
	if v, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil && v >= 0 {
		n = v
	}

	var entries []LogEntry
	if sub := strings.ToLower(r.URL.Query().Get("subsystem")); sub != "" {
		for _, e := range b.entries.Snapshot() {
			if e.Subsystem == sub {
				entries = append(entries, e)
			}
		}
		if n >= 0 && n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	} else {
		entries = b.entries.Tail(n)
	}
	if entries == nil {
		entries = []LogEntry{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(entries)
}

// GET /api/logs/stream  (Server-Sent Events) - tail only (no snapshot)
func (b *LogBuffer) ServeLogsSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := strings.ToLower(r.URL.Query().Get("subsystem"))

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch, cancel := b.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if sub != "" && e.Subsystem != sub {
				continue
			}
			writeSSE(w, e)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, e LogEntry) {
	b, _ := json.Marshal(e)
	_, _ = w.Write([]byte("event: message\n"))
	_, _ = w.Write([]byte("data: " + string(b) + "\n\n"))
}
