package uiobserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

func TestAddressHex(t *testing.T) {
	assert.Equal(t, "001122AABBCC", addressHex([6]byte{0x00, 0x11, 0x22, 0xAA, 0xBB, 0xCC}))
}

func TestUpdateKindLabel(t *testing.T) {
	assert.Equal(t, "new_alarm", updateKindLabel(domain.UpdateNewAlarm))
	assert.Equal(t, "inactive", updateKindLabel(domain.UpdateOnlyInactive))
}

func TestBroadcaster_NetworkEventReachesClient(t *testing.T) {
	b := New()
	server := httptest.NewServer(http.HandlerFunc(b.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine a moment to register the client.
	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, b.ClientCount())

	b.NotifyNetwork(domain.UpdateNew, domain.NetworkRecord{
		Address: [6]byte{1, 2, 3, 4, 5, 6},
		SSID:    "testnet",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "network", msg.Type)
}

func TestBroadcaster_HeartbeatHasNoPayload(t *testing.T) {
	b := New()
	server := httptest.NewServer(http.HandlerFunc(b.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	b.NotifyHeartbeat()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"heartbeat"}`, string(data))
}

func TestBroadcaster_Run_ServesWebsocketOnAddr(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, addr) }()

	wsURL := "ws://" + addr + "/ws"
	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, _, err = websocket.DefaultDialer.Dial(wsURL, nil)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer conn.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not shut down after context cancellation")
	}
}
