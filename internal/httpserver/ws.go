package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"tanbroker/internal/auth"
	"tanbroker/internal/events"

	"github.com/gorilla/websocket"
)

// WSHandler streams action events to an operator console.
type WSHandler struct {
	bus      *events.Bus
	authSvc  *auth.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *events.Bus, authSvc *auth.Service, origin string) *WSHandler {
	return &WSHandler{
		bus:     bus,
		authSvc: authSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

// wsControlMessage narrows the stream, e.g. {"type":"filter","events":["challenge"]}.
// An empty list restores everything.
type wsControlMessage struct {
	Type   string   `json:"type"`
	Events []string `json:"events,omitempty"`
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	if reqOrigin == "" {
		return true
	}
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// browsers cannot set headers on a websocket handshake
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	if _, err := h.authSvc.ParseToken(token); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	var filterMu sync.RWMutex
	var filter map[string]bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ctrl wsControlMessage
			if err := json.Unmarshal(payload, &ctrl); err != nil {
				continue
			}
			if strings.ToLower(strings.TrimSpace(ctrl.Type)) != "filter" {
				continue
			}
			next := map[string]bool{}
			for _, e := range ctrl.Events {
				next[strings.ToLower(strings.TrimSpace(e))] = true
			}
			if len(next) == 0 {
				next = nil
			}
			filterMu.Lock()
			filter = next
			filterMu.Unlock()
		}
	}()
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			filterMu.RLock()
			skip := filter != nil && !filter[evt.Type]
			filterMu.RUnlock()
			if skip {
				continue
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
