package routes

import "net/http"

func registerStateRoutes(mux *http.ServeMux, d Deps) {
	if d.Engine == nil {
		return
	}
	handleGet(mux, "/api/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, d.Engine.Snapshot())
	})
}
