// internal/viewer/routes/api_logs.go

package routes

import (
	"log"
	"net/http"

	logging "github.com/ipfs/go-log/v2"
)

func registerAPILogRoutes(mux *http.ServeMux, d Deps) {
	if d.Logs != nil {
		mux.HandleFunc("/api/logs", d.Logs.ServeLogsJSON)
		mux.HandleFunc("/api/logs/stream", d.Logs.ServeLogsSSE)
	}

	// POST /api/logs/level?subsystem=timecode&level=debug
	// An empty subsystem applies the level to every tracing subsystem.
	mux.HandleFunc("/api/logs/level", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, logging.GetSubsystems())
			return
		}
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		sub := r.URL.Query().Get("subsystem")
		level := r.URL.Query().Get("level")
		if level == "" {
			http.Error(w, "missing level", http.StatusBadRequest)
			return
		}

		var err error
		if sub == "" {
			var lvl logging.LogLevel
			if lvl, err = logging.LevelFromString(level); err == nil {
				logging.SetAllLoggers(lvl)
			}
		} else {
			err = logging.SetLogLevel(sub, level)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("HTTP: log level of %q set to %s", sub, level)
		w.WriteHeader(http.StatusNoContent)
	})
}
