package bridge

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Hub never registered the client")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return msg
}

func TestHub_BroadcastsCommands(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	conn := dialHub(t, hub)

	if err := hub.PublishGesture(ttypes.GestureCommand{Name: "Waving", Speed: 2, Magnitude: 1.5}); err != nil {
		t.Fatalf("PublishGesture failed: %v", err)
	}
	if err := hub.PublishLipsyncState(ttypes.LipsyncStart); err != nil {
		t.Fatalf("PublishLipsyncState failed: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != TypeGesture {
		t.Fatalf("Expected gesture, got %s", msg.Type)
	}
	var g ttypes.GestureCommand
	if err := json.Unmarshal(msg.Payload, &g); err != nil {
		t.Fatalf("Bad payload: %v", err)
	}
	if g.Name != "Waving" || g.Speed != 2 || g.Magnitude != 1.5 {
		t.Errorf("Unexpected gesture: %+v", g)
	}

	msg = readMessage(t, conn)
	if msg.Type != TypeLipsyncState || string(msg.Payload) != `"start"` {
		t.Errorf("Expected lipsync start, got %s %s", msg.Type, msg.Payload)
	}
}

func TestHub_ControlMessages(t *testing.T) {
	got := make(chan ttypes.ControlSignal, 4)
	hub := NewHub(func(sig ttypes.ControlSignal) { got <- sig })
	defer hub.Close()
	conn := dialHub(t, hub)

	for _, raw := range []string{
		`{"type":"control","payload":"ready"}`,
		`{"type":"control","payload":"bogus"}`,
		`{"type":"other","payload":"shutup"}`,
		`{"type":"control","payload":"stop"}`,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	for _, want := range []ttypes.ControlSignal{ttypes.SignalReady, ttypes.SignalShutUp} {
		select {
		case sig := <-got:
			if sig != want {
				t.Errorf("Expected %s, got %s", want, sig)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for %s", want)
		}
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)
	conn := dialHub(t, hub)

	hub.Close()
	hub.Close()

	if err := hub.PublishViseme(ttypes.VisemeCommand{Name: "O"}); !errors.Is(err, ErrHubClosed) {
		t.Errorf("Expected ErrHubClosed, got %v", err)
	}
	if hub.Clients() != 0 {
		t.Errorf("Expected no clients after close, got %d", hub.Clients())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to be closed")
	}
}

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	if err := hub.RequestMuxSwitch(ttypes.TrackLipsync); err != nil {
		t.Errorf("Expected publish without consumers to succeed, got %v", err)
	}
}

func TestLogPort(t *testing.T) {
	var port ttypes.OutputPort = NewLogPort(nil)

	if err := port.PublishEmotion(ttypes.EmotionCommand{Name: "happy", Magnitude: 1, Duration: time.Second}); err != nil {
		t.Errorf("LogPort returned %v", err)
	}
	if err := port.PublishLipsyncState(ttypes.DurationState(1.5)); err != nil {
		t.Errorf("LogPort returned %v", err)
	}
}
