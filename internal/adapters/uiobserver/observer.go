// Package uiobserver is the external-collaborator boundary spec.md §6
// describes: a thin broadcaster translating the consolidation model's
// on_network/on_heartbeat/on_state/on_disconnect callback contract into
// JSON frames over a websocket, the way a UI would subscribe to them. There
// is no served HTML/JS here -- the GUI itself stays out of scope -- only the
// socket hub, grounded on the teacher's own external-consumer pattern in
// internal/adapters/web/websocket/ws_manager.go.
package uiobserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is one JSON frame sent to every connected observer.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// NetworkPayload mirrors one on_network callback: a changed record plus the
// reason it changed.
type NetworkPayload struct {
	Kind    string               `json:"kind"`
	Address string               `json:"address"`
	SSID    string               `json:"ssid"`
	Record  domain.NetworkRecord `json:"-"`
}

// StatePayload mirrors one on_state callback: a named component (the SSH
// driver, the gpsd client) transitioning to a new state.
type StatePayload struct {
	Component string `json:"component"`
	State     string `json:"state"`
}

// DisconnectPayload mirrors one on_disconnect callback.
type DisconnectPayload struct {
	Component string `json:"component"`
	Reason    string `json:"reason"`
}

// Broadcaster fans callback events out to every connected websocket client.
// It holds no business logic of its own; Notify* methods are called directly
// by the app package as producer status, gpsd state and drain events occur.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New creates an empty broadcaster.
func New() *Broadcaster {
	return &Broadcaster{clients: make(map[*websocket.Conn]struct{})}
}

// Run serves the websocket endpoint on addr until ctx is cancelled,
// mirroring the teacher's Server.Run graceful-shutdown shape in
// internal/adapters/web/server/server.go.
func (b *Broadcaster) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.HandleWebSocket)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("uiobserver: shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("uiobserver: shutdown error: %v", err)
		}
	}()

	log.Printf("uiobserver listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// HandleWebSocket upgrades an HTTP request to a websocket and registers the
// connection as an observer until it disconnects or errors on read.
func (b *Broadcaster) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("uiobserver: upgrade failed: %v", err)
		return
	}

	b.mu.Lock()
	b.clients[conn] = struct{}{}
	b.mu.Unlock()

	go func() {
		defer conn.Close()
		defer func() {
			b.mu.Lock()
			delete(b.clients, conn)
			b.mu.Unlock()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// NotifyNetwork publishes one on_network event.
func (b *Broadcaster) NotifyNetwork(kind domain.UpdateKind, rec domain.NetworkRecord) {
	b.send(Message{
		Type: "network",
		Payload: NetworkPayload{
			Kind:    updateKindLabel(kind),
			Address: addressHex(rec.Address),
			SSID:    rec.SSID,
		},
	})
}

// NotifyHeartbeat publishes one on_heartbeat event (no payload beyond the
// type tag: observers re-fetch state if they need it).
func (b *Broadcaster) NotifyHeartbeat() {
	b.send(Message{Type: "heartbeat"})
}

// NotifyState publishes one on_state event for a named component.
func (b *Broadcaster) NotifyState(component, state string) {
	b.send(Message{Type: "state", Payload: StatePayload{Component: component, State: state}})
}

// NotifyDisconnect publishes one on_disconnect event.
func (b *Broadcaster) NotifyDisconnect(component, reason string) {
	b.send(Message{Type: "disconnect", Payload: DisconnectPayload{Component: component, Reason: reason}})
}

// ClientCount reports how many observers are currently connected.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *Broadcaster) send(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("uiobserver: marshal error: %v", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(b.clients, conn)
		}
	}
}

func updateKindLabel(kind domain.UpdateKind) string {
	switch kind {
	case domain.UpdateOnlyInactive:
		return "inactive"
	case domain.UpdateExisting:
		return "update"
	case domain.UpdateNew:
		return "new"
	case domain.UpdateNewHighlight:
		return "new_highlight"
	case domain.UpdateNewAlarm:
		return "new_alarm"
	default:
		return "unknown"
	}
}

func addressHex(addr [6]byte) string {
	const hexDigits = "0123456789ABCDEF"
	buf := make([]byte, 12)
	for i, b := range addr {
		buf[i*2] = hexDigits[b>>4]
		buf[i*2+1] = hexDigits[b&0x0f]
	}
	return string(buf)
}
