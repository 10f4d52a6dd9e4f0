package viewer

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed client
var clientFS embed.FS

var minifier = newMinifier()

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	return m
}

// minifyAsset shrinks .css and .js files. Anything else, and anything the
// minifier rejects, is returned unchanged.
func minifyAsset(rel string, raw []byte) []byte {
	var mt string
	switch strings.ToLower(path.Ext(rel)) {
	case ".css":
		mt = "text/css"
	case ".js":
		mt = "application/javascript"
	default:
		return raw
	}
	out, err := minifier.Bytes(mt, raw)
	if err != nil {
		log.Printf("HTTP: minify warning: %s: %v (using original)", rel, err)
		return raw
	}
	return out
}

// clientHandler serves the display client. With publicDir set, files are read
// from disk on every request so they can be edited during a rehearsal;
// otherwise the embedded client is served, minified once at startup.
func clientHandler(publicDir string) (http.Handler, error) {
	if publicDir != "" {
		return diskClient(publicDir), nil
	}

	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		return nil, err
	}
	files := make(map[string][]byte)
	err = fs.WalkDir(sub, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, err := fs.ReadFile(sub, p)
		if err != nil {
			return err
		}
		files[p] = minifyAsset(p, raw)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[clientRel(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		serveAsset(w, r, clientRel(r.URL.Path), data)
	}), nil
}

func diskClient(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := clientRel(r.URL.Path)
		// clientRel cleans against "/", so rel cannot climb out of dir.
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		serveAsset(w, r, rel, minifyAsset(rel, data))
	})
}

// clientRel maps a request path to a client file; "/" is index.html.
func clientRel(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return "index.html"
	}
	return p
}

func serveAsset(w http.ResponseWriter, r *http.Request, rel string, data []byte) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", contentTypeForPath(rel, data))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}
