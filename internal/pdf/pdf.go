// Package pdf counts and rasterizes PDF pages with Ghostscript so clients
// can show documents as a sequence of images.
package pdf

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable is returned when no Ghostscript executable was found.
var ErrUnavailable = errors.New("ghostscript not available")

const windowsInstallDir = `C:\Program Files\gs`

var pageCountRe = regexp.MustCompile(`File has (\d+) page`)

type Renderer struct {
	gs         string
	resolution int
}

// New locates Ghostscript. An explicit gsPath is used as is; otherwise the
// newest install under Program Files is used on Windows and "gs" on PATH
// elsewhere. A missing Ghostscript is not an error: the renderer reports
// ErrUnavailable from every call instead.
func New(gsPath string, resolution int) *Renderer {
	r := &Renderer{gs: gsPath, resolution: resolution}
	if r.gs == "" {
		if runtime.GOOS == "windows" {
			p, err := findWindowsGhostscript(windowsInstallDir)
			if err != nil {
				log.Printf("PDF: WARNING: PDF support won't work: %v", err)
			} else {
				log.Printf("PDF: found Ghostscript executable at %s", p)
			}
			r.gs = p
		} else if p, err := exec.LookPath("gs"); err == nil {
			r.gs = p
		} else {
			log.Printf("PDF: WARNING: PDF support won't work: gs not found on PATH")
		}
	}
	if r.gs != "" {
		log.Printf("PDF: rendering resolution %d dpi", r.resolution)
	}
	return r
}

// Available reports whether a Ghostscript executable is configured.
func (r *Renderer) Available() bool { return r.gs != "" }

// findWindowsGhostscript returns the most recently modified
// <dir>\*\bin\gswin64c.exe.
func findWindowsGhostscript(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("unable to locate Ghostscript: %w", err)
	}

	var found string
	var foundMod time.Time
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name(), "bin", "gswin64c.exe")
		st, err := os.Stat(p)
		if err != nil {
			continue
		}
		if found == "" || st.ModTime().After(foundMod) {
			found, foundMod = p, st.ModTime()
		}
	}
	if found == "" {
		return "", fmt.Errorf("unable to locate Ghostscript matching %s", filepath.Join(dir, "*", "bin", "gswin64c.exe"))
	}
	return found, nil
}

// PageCount returns the number of pages in file.
func (r *Renderer) PageCount(ctx context.Context, file string) (int, error) {
	if !r.Available() {
		return 0, ErrUnavailable
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.gs, "-q", "-dNODISPLAY", "-dPDFINFO", file, "-c", "quit")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("gs page count %s: %w: %s", file, err, strings.TrimSpace(stderr.String()))
	}

	// PDFINFO writes to stderr, but some builds use stdout.
	if n, err := parsePageCount(stderr.Bytes()); err == nil {
		return n, nil
	}
	return parsePageCount(stdout.Bytes())
}

func parsePageCount(out []byte) (int, error) {
	m := pageCountRe.FindSubmatch(out)
	if m == nil {
		return 0, errors.New("page count not found in gs output")
	}
	return strconv.Atoi(string(m[1]))
}

// RenderPage writes page (1-based) of file to w as a PNG.
func (r *Renderer) RenderPage(ctx context.Context, file string, page int, w io.Writer) error {
	if !r.Available() {
		return ErrUnavailable
	}
	if page < 1 {
		return fmt.Errorf("invalid page %d", page)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.gs,
		"-q",
		"-sstdout=%stderr",
		"-dSAFER",
		"-dNOPAUSE",
		"-dBATCH",
		"-sDEVICE=png16m",
		"-dTextAlphaBits=4",
		"-dGraphicsAlphaBits=4",
		"-dFirstPage="+strconv.Itoa(page),
		"-dLastPage="+strconv.Itoa(page),
		"-r"+strconv.Itoa(r.resolution),
		"-sOutputFile=-",
		file,
	)
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("gs render %s page %d: %w: %s", file, page, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// ETag identifies one rendering of a page. Editing the file on disk
// invalidates it.
func (r *Renderer) ETag(file string, page int, modTime time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s//%d//%d//%s", file, r.resolution, page, modTime.UTC().Format(time.RFC3339Nano))))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
