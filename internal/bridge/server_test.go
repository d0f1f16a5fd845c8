package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/ttstalker/internal/tts"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

type fakeSpeaker struct {
	mu      sync.Mutex
	said    []SayRequest
	signals []ttypes.ControlSignal
	sayErr  error
	panics  bool
}

func (f *fakeSpeaker) Say(ctx context.Context, text, lang string) (tts.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("speaker exploded")
	}
	if f.sayErr != nil {
		return tts.Result{}, f.sayErr
	}
	f.said = append(f.said, SayRequest{Text: text, Lang: lang})
	return tts.Result{CycleID: "abc", Dispatched: 3, Elapsed: 1500 * time.Millisecond}, nil
}

func (f *fakeSpeaker) Length(ctx context.Context, text, lang string) float64 {
	if lang == "xx-XX" {
		return tts.FallbackLength
	}
	return float64(len(text)) / 10
}

func (f *fakeSpeaker) Signal(sig ttypes.ControlSignal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, sig)
}

func TestServer_Say(t *testing.T) {
	speaker := &fakeSpeaker{}
	server := httptest.NewServer(NewServer(speaker, nil))
	defer server.Close()

	resp, err := http.Post(server.URL+"/say", "application/json", strings.NewReader(`{"text":"hello","lang":"en-US"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body SayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Bad body: %v", err)
	}
	if body.CycleID != "abc" || body.Dispatched != 3 || body.Elapsed != 1.5 {
		t.Errorf("Unexpected response: %+v", body)
	}
	if len(speaker.said) != 1 || speaker.said[0].Lang != "en-US" {
		t.Errorf("Unexpected calls: %+v", speaker.said)
	}
}

func TestServer_SayErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{tts.NewTTSError(tts.ErrorCodeDisabled, "off", tts.ErrDisabled), http.StatusServiceUnavailable},
		{tts.NewTTSError(tts.ErrorCodeUnknownLang, "no voice", tts.ErrUnknownLanguage), http.StatusBadRequest},
		{fmt.Errorf("%w: boom", tts.ErrSynthesisFailed), http.StatusBadGateway},
		{fmt.Errorf("%w: disk", tts.ErrAudioUnavailable), http.StatusInternalServerError},
		{tts.NewTTSError(tts.ErrorCodeCanceled, "gone", context.Canceled), statusClientClosed},
		{tts.NewTTSError(tts.ErrorCodeCanceled, "slow", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			server := httptest.NewServer(NewServer(&fakeSpeaker{sayErr: tt.err}, nil))
			defer server.Close()

			resp, err := http.Post(server.URL+"/say", "application/json", strings.NewReader(`{"text":"hi","lang":"en-US"}`))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestServer_SayBadBody(t *testing.T) {
	server := httptest.NewServer(NewServer(&fakeSpeaker{}, nil))
	defer server.Close()

	resp, err := http.Post(server.URL+"/say", "application/json", strings.NewReader(`not json`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestServer_Length(t *testing.T) {
	server := httptest.NewServer(NewServer(&fakeSpeaker{}, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/length?text=hello&lang=xx-XX")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var body LengthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Bad body: %v", err)
	}
	if body.Length != tts.FallbackLength {
		t.Errorf("Expected fallback length, got %v", body.Length)
	}
}

func TestServer_Control(t *testing.T) {
	speaker := &fakeSpeaker{}
	server := httptest.NewServer(NewServer(speaker, nil))
	defer server.Close()

	resp, err := http.Post(server.URL+"/control", "application/json", strings.NewReader(`{"signal":"shutup"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/control", "application/json", strings.NewReader(`{"signal":"louder"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown signal, got %d", resp.StatusCode)
	}

	if len(speaker.signals) != 1 || speaker.signals[0] != ttypes.SignalShutUp {
		t.Errorf("Expected one shutup, got %v", speaker.signals)
	}
}

func TestServer_Metrics(t *testing.T) {
	server := httptest.NewServer(NewServer(&fakeSpeaker{}, NewHub(nil)))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "ttstalker_bridge_clients") {
		t.Errorf("Expected ttstalker metrics, got:\n%s", body)
	}
}

func TestServer_WrongMethod(t *testing.T) {
	server := httptest.NewServer(NewServer(&fakeSpeaker{}, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/say")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestServer_RecoversFromPanics(t *testing.T) {
	speaker := &fakeSpeaker{panics: true}
	server := httptest.NewServer(NewServer(speaker, nil))
	defer server.Close()

	resp, err := http.Post(server.URL+"/say", "application/json", strings.NewReader(`{"text":"hi","lang":"en-US"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected server to keep serving, got %d", resp.StatusCode)
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	server := httptest.NewServer(NewServer(&fakeSpeaker{}, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without a hub, got %d", resp.StatusCode)
	}
}
