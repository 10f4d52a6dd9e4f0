package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/petervdpas/layercast/internal/broadcast"
)

func TestEmbeddedClient(t *testing.T) {
	h, err := Handler(Viewer{})
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/app.js") {
		t.Fatalf("index: %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Fatal("client served cacheable")
	}

	raw, err := clientFS.ReadFile("client/app.js")
	if err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/javascript; charset=utf-8" {
		t.Fatalf("content type %q", ct)
	}
	if rec.Body.Len() == 0 || rec.Body.Len() >= len(raw) {
		t.Fatalf("app.js not minified: %d >= %d", rec.Body.Len(), len(raw))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope.js", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing file: %d", rec.Code)
	}
}

func TestPublicDirClient(t *testing.T) {
	dir := t.TempDir()
	css := "body {\n  color : red ;\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "style.css"), []byte(css), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := Handler(Viewer{PublicDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/style.css", nil))
	if got := rec.Body.String(); got != "body{color:red}" {
		t.Fatalf("style.css = %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("index without file: %d", rec.Code)
	}
}

func TestClientRel(t *testing.T) {
	cases := map[string]string{
		"/":              "index.html",
		"":               "index.html",
		"/app.js":        "app.js",
		"/../../etc/pwd": "etc/pwd",
	}
	for in, want := range cases {
		if got := clientRel(in); got != want {
			t.Errorf("clientRel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLogBufferSubsystems(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("2024/05/01 20:00:00 ENGINE: program list applied\n"))
	_, _ = b.Write([]byte("2024-05-01T20:00:00.000Z\tDEBUG\ttimecode\ttimecode/state.go:80\tfull frame\n"))
	_, _ = b.Write([]byte("partial "))
	_, _ = b.Write([]byte("MIDI: opened\r\n\n"))

	got := b.Snapshot()
	if len(got) != 3 {
		t.Fatalf("entries = %+v", got)
	}
	for i, want := range []string{"engine", "timecode", "midi"} {
		if got[i].Subsystem != want {
			t.Errorf("entry %d subsystem = %q, want %q", i, got[i].Subsystem, want)
		}
	}
	if got[2].Msg != "partial MIDI: opened" {
		t.Fatalf("joined line = %q", got[2].Msg)
	}

	rec := httptest.NewRecorder()
	b.ServeLogsJSON(rec, httptest.NewRequest(http.MethodGet, "/api/logs?subsystem=timecode", nil))
	var entries []LogEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Subsystem != "timecode" {
		t.Fatalf("filtered = %+v", entries)
	}

	rec = httptest.NewRecorder()
	b.ServeLogsJSON(rec, httptest.NewRequest(http.MethodGet, "/api/logs?n=1", nil))
	entries = nil
	_ = json.NewDecoder(rec.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].Subsystem != "midi" {
		t.Fatalf("tail = %+v", entries)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Start(ctx, "127.0.0.1:0", Viewer{Router: broadcast.NewRouter(), Logs: NewLogBuffer(10)})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Start did not return")
	}
}
