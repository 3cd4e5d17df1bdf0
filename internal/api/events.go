package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Events handles GET /v1/events. It pushes the full state on connect and
// again whenever the change version advances.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Events] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// reads only serve to notice the client closing
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	st := h.orch.State()
	if err := conn.WriteJSON(st); err != nil {
		return
	}
	last := st.Version

	ticker := time.NewTicker(h.eventInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if h.orch.Version() == last {
				continue
			}
			st := h.orch.State()
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(st); err != nil {
				log.Printf("[Events] Write failed: %v", err)
				return
			}
			last = st.Version
		}
	}
}
