package routes

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/petervdpas/layercast/internal/media"
	"github.com/petervdpas/layercast/internal/pdf"
)

func registerMediaRoutes(mux *http.ServeMux, d Deps) {
	if d.Media == nil {
		return
	}

	// GET /media/<file>            file contents, byte ranges honoured
	// GET /media/<file>.pdf?page=N page N as PNG
	handleGet(mux, media.URLPrefix, func(w http.ResponseWriter, r *http.Request) {
		file, err := d.Media.Resolve(strings.TrimPrefix(r.URL.Path, media.URLPrefix))
		if err != nil {
			if errors.Is(err, media.ErrOutsideRoot) {
				http.Error(w, "forbidden", http.StatusForbidden)
			} else {
				http.Error(w, "bad media path", http.StatusBadRequest)
			}
			return
		}

		f, err := os.Open(file)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		fi, err := f.Stat()
		if err != nil || fi.IsDir() {
			http.NotFound(w, r)
			return
		}

		if d.PDF != nil && strings.EqualFold(filepath.Ext(file), ".pdf") {
			if q := r.URL.Query().Get("page"); q != "" {
				servePDFPage(w, r, d.PDF, file, fi, q)
				return
			}
			n, err := d.PDF.PageCount(r.Context(), file)
			switch {
			case err == nil:
				w.Header().Set("X-Page-Count", strconv.Itoa(n))
			case !errors.Is(err, pdf.ErrUnavailable):
				log.Printf("PDF: %v", err)
			}
		}

		if ct := media.MimeType(file); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
	})
}

func servePDFPage(w http.ResponseWriter, r *http.Request, rnd *pdf.Renderer, file string, fi os.FileInfo, q string) {
	page := atoiOrNeg(q)
	if page < 1 {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	if !rnd.Available() {
		http.Error(w, pdf.ErrUnavailable.Error(), http.StatusServiceUnavailable)
		return
	}

	etag := rnd.ETag(file, page, fi.ModTime())
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var buf bytes.Buffer
	if err := rnd.RenderPage(r.Context(), file, page, &buf); err != nil {
		log.Printf("PDF: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
}
