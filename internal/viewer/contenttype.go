package viewer

import (
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/petervdpas/layercast/internal/media"
)

// contentTypeForPath returns a browser-safe Content-Type for client files.
// .css and .js are fixed so browsers never block them on a MIME mismatch.
func contentTypeForPath(rel string, data []byte) string {
	ext := strings.ToLower(path.Ext(rel))

	switch ext {
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	}

	if mt := media.MimeType(rel); mt != "" {
		return mt
	}
	if ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return mt
		}
	}

	return http.DetectContentType(data)
}
