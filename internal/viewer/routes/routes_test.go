package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petervdpas/layercast/internal/broadcast"
	"github.com/petervdpas/layercast/internal/config"
	"github.com/petervdpas/layercast/internal/engine"
	"github.com/petervdpas/layercast/internal/media"
	"github.com/petervdpas/layercast/internal/pdf"
)

type fixture struct {
	srv    *httptest.Server
	engine *engine.Engine
	router *broadcast.Router
	lib    *media.Library
	pdf    *pdf.Renderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Channels = make([]config.Channel, 2)
	cfg.Channels[1].Layers = []config.Layer{{Media: "/media/clip.mp4"}}

	lib, err := media.NewLibrary(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		router: broadcast.NewRouter(),
		lib:    lib,
		// Never executed by these tests.
		pdf: pdf.New(filepath.Join(t.TempDir(), "no-gs"), 150),
	}
	f.engine = engine.New(engine.Options{Config: cfg, Router: f.router})

	mux := http.NewServeMux()
	Register(mux, Deps{Engine: f.engine, Router: f.router, Media: lib, PDF: f.pdf})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) writeMedia(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(f.lib.Root(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func dial(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev map[string]any
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestSocketSubscribeAndReceive(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)

	// Ignored without closing the connection.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{nope")); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(map[string]any{"action": "dance"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(map[string]any{"action": "subscribe", "channel": 1}); err != nil {
		t.Fatal(err)
	}

	ev := readEvent(t, conn)
	if ev["action"] != "channelState" || ev["channel"] != float64(1) {
		t.Fatalf("reply = %v", ev)
	}
	state := ev["channelState"].(map[string]any)
	layers := state["layers"].([]any)
	if len(layers) != 1 || layers[0].(map[string]any)["mediaFile"] != "/media/clip.mp4" {
		t.Fatalf("channel state = %v", state)
	}

	f.engine.HandleMIDI([]byte{0xF0, 0x7F, 0x00, 0x06, 0x02, 0xF7})

	ev = readEvent(t, conn)
	if ev["action"] != "play" || ev["channel"] != float64(1) || ev["layer"] != float64(0) {
		t.Fatalf("event = %v", ev)
	}
	if _, ok := ev["currentTime"]; !ok {
		t.Fatal("play without currentTime")
	}
}

func TestSocketClosedByRouter(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f)
	if err := conn.WriteJSON(map[string]any{"action": "subscribe", "channel": 0}); err != nil {
		t.Fatal(err)
	}
	readEvent(t, conn)

	f.router.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("err = %v, want going-away close", err)
	}
}

func TestMediaRanges(t *testing.T) {
	f := newFixture(t)
	f.writeMedia(t, "clip.mp4", "0123456789")

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/media/clip.mp4", nil)
	req.Header.Set("Range", "bytes=2-4")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusPartialContent || string(body) != "234" {
		t.Fatalf("got %d %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "video/mp4" {
		t.Fatalf("content type %q", ct)
	}

	resp2, err := http.Get(f.srv.URL + "/media/missing.mp4")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("missing file: %d", resp2.StatusCode)
	}
}

func TestPDFPages(t *testing.T) {
	f := newFixture(t)
	f.writeMedia(t, "score.pdf", "%PDF-1.4\n")
	file, err := f.lib.Resolve("score.pdf")
	if err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("bad page", func(t *testing.T) {
		resp, err := http.Get(f.srv.URL + "/media/score.pdf?page=0")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status %d", resp.StatusCode)
		}
	})

	t.Run("not modified", func(t *testing.T) {
		etag := f.pdf.ETag(file, 2, fi.ModTime())
		req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/media/score.pdf?page=2", nil)
		req.Header.Set("If-None-Match", etag)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotModified || resp.Header.Get("ETag") != etag {
			t.Fatalf("got %d etag %q", resp.StatusCode, resp.Header.Get("ETag"))
		}
	})

	t.Run("plain file without page count", func(t *testing.T) {
		resp, err := http.Get(f.srv.URL + "/media/score.pdf")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Page-Count") != "" {
			t.Fatalf("got %d page count %q", resp.StatusCode, resp.Header.Get("X-Page-Count"))
		}
	})
}

func TestState(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"timecode"`) {
		t.Fatalf("got %d %s", resp.StatusCode, body)
	}

	post, err := http.Post(f.srv.URL+"/api/state", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status %d", post.StatusCode)
	}
}

func TestLogLevel(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.srv.URL+"/api/logs/level?subsystem=broadcast&level=debug", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status %d", resp.StatusCode)
	}

	resp, err = http.Post(f.srv.URL+"/api/logs/level?subsystem=broadcast&level=loud", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
