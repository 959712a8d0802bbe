package eventstream

import (
	"encoding/json"
	"image"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phonewatch/domain/monitor"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(Handler(hub, nil))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients (have %d)", want, hub.ClientCount())
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHubBroadcastsToObservers(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	hub.Publish(Event{Type: TypeLog, Timestamp: time.Now(), Message: "monitoring started"})

	ev := readEvent(t, conn)
	assert.Equal(t, TypeLog, ev.Type)
	assert.Equal(t, "monitoring started", ev.Message)
}

func TestHubObserverDisconnect(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestCallbacksPublishWireEvents(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	cb := hub.Callbacks()
	det := monitor.ActionableDetection{RawDetection: monitor.RawDetection{
		Label:      "smartphone",
		Confidence: 0.92,
		Box:        image.Rect(100, 200, 260, 420),
	}}
	cb.OnNotification(det, time.Now())
	cb.OnStateChange(monitor.StateRunning, monitor.StateStopping)

	ev := readEvent(t, conn)
	assert.Equal(t, TypeNotification, ev.Type)
	require.NotNil(t, ev.Detection)
	assert.Equal(t, "smartphone", ev.Detection.Label)
	assert.Equal(t, 100, ev.Detection.X)
	assert.Equal(t, 160, ev.Detection.Width)
	assert.Equal(t, 220, ev.Detection.Height)

	ev = readEvent(t, conn)
	assert.Equal(t, TypeState, ev.Type)
	assert.Equal(t, "running", ev.From)
	assert.Equal(t, "stopping", ev.To)
}

func TestPublishDropsWhenBufferFullWithoutBlocking(t *testing.T) {
	hub := NewHub(nil) // Run never started, buffer fills up

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(Event{Type: TypeLog, Message: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full broadcast buffer")
	}
}
