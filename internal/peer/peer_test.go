package peer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNotify(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
	}))
	defer srv.Close()

	n, err := NewNotifier(Config{URL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewNotifier failed: %v", err)
	}

	if err := n.Notify(context.Background(), "  hello world/ok?  "); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if want := "/say/hello%20world%2Fok%3F"; gotPath != want {
		t.Errorf("Expected path %s, got %s", want, gotPath)
	}
}

func TestNotify_EmptyTextSkipped(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	n, _ := NewNotifier(Config{URL: srv.URL})
	if err := n.Notify(context.Background(), "   "); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if called {
		t.Error("Peer was called for empty text")
	}
}

func TestNotify_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n, _ := NewNotifier(Config{URL: srv.URL})
	if err := n.Notify(context.Background(), "hi"); err == nil {
		t.Error("Expected error for 500 response")
	}
}

func TestNotify_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	n, _ := NewNotifier(Config{URL: srv.URL, Timeout: 50 * time.Millisecond})
	begin := time.Now()
	err := n.Notify(context.Background(), "hi")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Errorf("Notify took %v", elapsed)
	}
}

func TestNotify_RateLimited(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls++ }))
	defer srv.Close()

	// One request per minute: the second call cannot get a token in time.
	n, _ := NewNotifier(Config{URL: srv.URL, RequestsPerMinute: 1, Timeout: 50 * time.Millisecond})
	if err := n.Notify(context.Background(), "one"); err != nil {
		t.Fatalf("First notify failed: %v", err)
	}
	if err := n.Notify(context.Background(), "two"); err == nil {
		t.Error("Expected rate limit error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestNewNotifier_RequiresURL(t *testing.T) {
	if _, err := NewNotifier(Config{}); !errors.Is(err, ErrNoURL) {
		t.Errorf("Expected ErrNoURL, got %v", err)
	}
}
