package viewer

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/petervdpas/layercast/internal/broadcast"
	"github.com/petervdpas/layercast/internal/engine"
	"github.com/petervdpas/layercast/internal/media"
	"github.com/petervdpas/layercast/internal/pdf"
	"github.com/petervdpas/layercast/internal/viewer/routes"
)

const shutdownTimeout = 5 * time.Second

type Viewer struct {
	Engine *engine.Engine
	Router *broadcast.Router
	Logs   *LogBuffer
	Docs   http.Handler

	Media *media.Library
	PDF   *pdf.Renderer

	// PublicDir overrides the embedded display client when set.
	PublicDir string
}

// Handler builds the complete HTTP surface.
func Handler(v Viewer) (http.Handler, error) {
	client, err := clientHandler(v.PublicDir)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/", noCache(client))

	deps := routes.Deps{
		Engine: v.Engine,
		Router: v.Router,
		Docs:   v.Docs,
		Media:  v.Media,
		PDF:    v.PDF,
	}
	// A nil *LogBuffer must stay a nil interface.
	if v.Logs != nil {
		deps.Logs = v.Logs
	}
	routes.Register(mux, deps)

	return mux, nil
}

// Start serves v on addr until ctx is cancelled, then hangs up every client
// socket and shuts the server down.
func Start(ctx context.Context, addr string, v Viewer) error {
	h, err := Handler(v)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		// Ends long-lived requests (log streams) when ctx is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Printf("HTTP: listening on http://%s", ln.Addr())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// Hijacked websocket connections are not covered by Shutdown.
	if v.Router != nil {
		v.Router.Close()
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("HTTP: server stopped")
	return nil
}
