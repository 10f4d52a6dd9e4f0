// internal/viewer/routes/register.go
package routes

import (
	"net/http"

	"github.com/petervdpas/layercast/internal/broadcast"
	"github.com/petervdpas/layercast/internal/engine"
	"github.com/petervdpas/layercast/internal/media"
	"github.com/petervdpas/layercast/internal/pdf"
)

type Logs interface {
	ServeLogsJSON(w http.ResponseWriter, r *http.Request)
	ServeLogsSSE(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Engine *engine.Engine
	Router *broadcast.Router
	Logs   Logs
	Docs   http.Handler

	Media *media.Library
	PDF   *pdf.Renderer
}

func Register(mux *http.ServeMux, d Deps) {
	registerAPILogRoutes(mux, d)
	registerStateRoutes(mux, d)
	registerSocketRoutes(mux, d)
	registerMediaRoutes(mux, d)
	registerDocsRoutes(mux, d)
}
