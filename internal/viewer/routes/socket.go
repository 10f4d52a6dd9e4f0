package routes

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petervdpas/layercast/internal/broadcast"
	"github.com/petervdpas/layercast/internal/proto"
)

const writeWait = 10 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	// Display clients are served from anywhere on the show network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type clientRequest struct {
	Action  string `json:"action"`
	Channel *int   `json:"channel"`
}

func registerSocketRoutes(mux *http.ServeMux, d Deps) {
	if d.Engine == nil || d.Router == nil {
		return
	}

	// GET /ws: one display client per connection.
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("HTTP: websocket upgrade from %s: %v", r.RemoteAddr, err)
			return
		}
		serveClient(conn, d)
	})
}

func serveClient(conn *websocket.Conn, d Deps) {
	sub, cancel := d.Router.Subscribe()
	log.Printf("HTTP: client %s connected from %s", sub.ID, conn.RemoteAddr())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeLoop(conn, sub)
	}()

	readLoop(conn, sub, d)

	cancel()
	<-writerDone
	_ = conn.Close()
	log.Printf("HTTP: client %s disconnected (%d messages dropped)", sub.ID, sub.Dropped())
}

// writeLoop is the only writer on conn. It hangs up once the subscription
// is cancelled, which also unblocks readLoop on server shutdown.
func writeLoop(conn *websocket.Conn, sub *broadcast.Subscription) {
	for {
		select {
		case <-sub.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
			return
		case data := <-sub.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				// Unblocks readLoop.
				_ = conn.Close()
				return
			}
		}
	}
}

func readLoop(conn *websocket.Conn, sub *broadcast.Subscription, d Deps) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req clientRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("HTTP: client %s: malformed message ignored: %v", sub.ID, err)
			continue
		}

		switch req.Action {
		case proto.ActionSubscribe:
			if req.Channel == nil {
				log.Printf("HTTP: client %s: subscribe without channel ignored", sub.ID)
				continue
			}
			if err := d.Engine.Subscribe(sub, *req.Channel); err != nil {
				log.Printf("HTTP: client %s: %v", sub.ID, err)
				continue
			}
			log.Printf("HTTP: client %s subscribed to channel %d", sub.ID, *req.Channel)
		default:
			log.Printf("HTTP: client %s: unknown action %q ignored", sub.ID, req.Action)
		}
	}
}
