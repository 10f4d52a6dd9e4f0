// Operator documentation pages.

package routes

import "net/http"

func registerDocsRoutes(mux *http.ServeMux, d Deps) {
	if d.Docs == nil {
		return
	}
	mux.Handle("/docs", d.Docs)
	mux.Handle("/docs/", d.Docs)
}
