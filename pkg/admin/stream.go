package admin

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The admin API binds to loopback; the dashboard connects from a
	// file:// or localhost origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStreamLogs handles GET /api/logs/stream - SSE endpoint pushing
// each new entry as a "log" event.
func (a *API) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported",
			"Streaming not supported by this connection")
		return
	}

	// Subscribe before the handshake completes so entries added right
	// after the client connects are not missed.
	sub, unsubscribe := a.store.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case entry, ok := <-sub:
			if !ok {
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: log\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleLiveLogs handles GET /api/logs/live - WebSocket live tail.
// Each new entry is sent as one JSON text message.
func (a *API) handleLiveLogs(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the upgrade handshake completes so entries
	// added right after the client connects are not missed.
	sub, unsubscribe := a.store.Subscribe()
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Reader goroutine: surfaces client disconnects and drains control
	// frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case entry, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(entry); err != nil {
				return
			}
		}
	}
}
