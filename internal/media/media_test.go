package media

import (
	"path/filepath"
	"testing"
)

func TestHasTransport(t *testing.T) {
	cases := map[string]bool{
		"":                                false,
		"/media/clip.mp4":                 true,
		"/media/CLIP.WEBM":                true,
		"/media/song.mp3":                 true,
		"/media/slide.png":                false,
		"/media/score.pdf":                false,
		"webrtc+https://cam.local/whep":   false,
		"webrtc+https://cam.local/a.mp4":  false,
		"https://cdn.example.com/a.mp4?x": true,
		"/media/noext":                    false,
	}
	for ref, want := range cases {
		if got := HasTransport(ref); got != want {
			t.Errorf("HasTransport(%q) = %v, want %v", ref, got, want)
		}
	}
}

func TestMimeType(t *testing.T) {
	if got := MimeType("a/b/c.JPG"); got != "image/jpeg" {
		t.Fatalf("got %q", got)
	}
	if got := MimeType("a.unknown"); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestQualify(t *testing.T) {
	cases := map[string]string{
		"clip.mp4":                 "/media/clip.mp4",
		"/sub/clip.mp4":            "/media/sub/clip.mp4",
		"http://host/clip.mp4":     "http://host/clip.mp4",
		"webrtc+https://host/whep": "webrtc+https://host/whep",
	}
	for in, want := range cases {
		if got := Qualify(in); got != want {
			t.Errorf("Qualify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLibraryResolve(t *testing.T) {
	lib, err := NewLibrary(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	got, err := lib.Resolve("/shows/a.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(lib.Root(), "shows", "a.mp4"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	for _, bad := range []string{"", "../etc/passwd", "a/../../b", `a\b`} {
		if _, err := lib.Resolve(bad); err == nil {
			t.Errorf("Resolve(%q) succeeded", bad)
		}
	}
}
