package pdf

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParsePageCount(t *testing.T) {
	out := []byte("Processing pages 1 through 12.\nFile has 12 pages.\n")
	n, err := parsePageCount(out)
	if err != nil || n != 12 {
		t.Fatalf("parsePageCount = %d, %v", n, err)
	}

	if _, err := parsePageCount([]byte("Error: /undefined in --file--")); err == nil {
		t.Fatal("expected error without page count")
	}
}

func TestFindWindowsGhostscriptPicksNewest(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)
	for i, v := range []string{"gs9.56.1", "gs10.02.0"} {
		bin := filepath.Join(dir, v, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatal(err)
		}
		exe := filepath.Join(bin, "gswin64c.exe")
		if err := os.WriteFile(exe, nil, 0o755); err != nil {
			t.Fatal(err)
		}
		mt := old.Add(time.Duration(i) * time.Hour)
		if err := os.Chtimes(exe, mt, mt); err != nil {
			t.Fatal(err)
		}
	}
	// A directory without a binary is skipped.
	if err := os.MkdirAll(filepath.Join(dir, "fonts"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := findWindowsGhostscript(dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "gs10.02.0", "bin", "gswin64c.exe"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	if _, err := findWindowsGhostscript(filepath.Join(dir, "fonts")); err == nil {
		t.Fatal("expected error for empty install dir")
	}
}

func TestETag(t *testing.T) {
	r := &Renderer{gs: "gs", resolution: 150}
	mt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	a := r.ETag("/m/a.pdf", 1, mt)
	if a != r.ETag("/m/a.pdf", 1, mt) {
		t.Fatal("etag not stable")
	}
	if a == r.ETag("/m/a.pdf", 2, mt) || a == r.ETag("/m/a.pdf", 1, mt.Add(time.Second)) {
		t.Fatal("etag did not change")
	}
	hi := &Renderer{gs: "gs", resolution: 300}
	if a == hi.ETag("/m/a.pdf", 1, mt) {
		t.Fatal("etag ignores resolution")
	}
}

func TestUnavailable(t *testing.T) {
	r := &Renderer{resolution: 150}
	if _, err := r.PageCount(context.Background(), "x.pdf"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("PageCount err = %v", err)
	}
	if err := r.RenderPage(context.Background(), "x.pdf", 1, io.Discard); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("RenderPage err = %v", err)
	}
}
