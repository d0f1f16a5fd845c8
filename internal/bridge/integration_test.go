package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dgnsrekt/ttstalker/internal/audio"
	"github.com/dgnsrekt/ttstalker/internal/config"
	"github.com/dgnsrekt/ttstalker/internal/tts"
	"github.com/dgnsrekt/ttstalker/internal/tts/engines"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

func TestIntegration_SayOverHTTP(t *testing.T) {
	var talker *tts.Talker
	hub := NewHub(func(sig ttypes.ControlSignal) { talker.Signal(sig) })
	defer hub.Close()

	talker, err := tts.NewTalker(hub, audio.DefaultMockPlayer(), t.TempDir())
	if err != nil {
		t.Fatalf("NewTalker failed: %v", err)
	}
	engine := engines.NewMockEngine()
	engine.LetterTime = 5 * time.Millisecond
	talker.RegisterEngine("mock", engine)

	s := config.Default()
	s.TTSDelay = 0
	s.Animations = map[string]string{"wave": "gesture:Waving"}
	talker.Reconfigure(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	talker.Start(ctx)
	defer talker.Close()

	server := httptest.NewServer(NewServer(talker, hub))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	for deadline := time.Now().Add(2 * time.Second); hub.Clients() == 0; {
		if time.Now().After(deadline) {
			t.Fatal("Hub never registered the client")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Post(server.URL+"/say", "application/json", strings.NewReader(`{"text":"Hello [wave] there","lang":"en-US"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	seen := map[string]int{}
	var states []string
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for seen[TypeGesture] == 0 || !contains(states, `"stop"`) {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON failed after %v: %v", seen, err)
		}
		seen[msg.Type]++
		if msg.Type == TypeLipsyncState {
			states = append(states, string(msg.Payload))
		}
	}

	if states[0] != `"start"` {
		t.Errorf("Expected start first, got %v", states)
	}
	if seen[TypeViseme] == 0 {
		t.Errorf("Expected blended visemes, got %v", seen)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
