// Package media classifies media references by kind and maps program-list
// entries onto the URLs clients load them from.
package media

import (
	"path"
	"strings"
)

// LivePrefix marks a real-time source (e.g. a WHEP endpoint). Live sources
// have no timeline to synchronize.
const LivePrefix = "webrtc+"

// URLPrefix is the HTTP mount point for files under the media directory.
const URLPrefix = "/media/"

var mimeTypes = map[string]string{
	".apng": "image/apng",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".ogv":  "video/ogg",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".pdf":  "application/pdf",
}

// MimeType returns the MIME type for ref's extension, or "" when unknown.
func MimeType(ref string) string {
	if ref == "" {
		return ""
	}
	// Ignore any query string or fragment on URL references.
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	return mimeTypes[strings.ToLower(path.Ext(ref))]
}

// IsLive reports whether ref names a real-time source.
func IsLive(ref string) bool {
	return strings.HasPrefix(ref, LivePrefix)
}

// HasTransport reports whether ref can be played, paused and seeked.
func HasTransport(ref string) bool {
	if ref == "" || IsLive(ref) {
		return false
	}
	mt := MimeType(ref)
	return strings.HasPrefix(mt, "video/") || strings.HasPrefix(mt, "audio/")
}

// Qualify turns a program-list entry into the reference clients load:
// URLs pass through, anything else is served from URLPrefix.
func Qualify(ref string) string {
	if strings.Index(ref, "://") > 0 {
		return ref
	}
	return URLPrefix + strings.TrimPrefix(ref, "/")
}
