package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"epstream/pkg/config"
	"epstream/pkg/logger"
)

type fixedSize int

func (f fixedSize) Len() int { return int(f) }

func TestWebSocketLogTail(t *testing.T) {
	logger.Init("DEBUG")
	logger.Info("before connect", "marker", "history-line")

	s := NewServer(config.Default(), "test", fixedSize(3))
	defer s.Close()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first WSMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if first.Type != "log_history" {
		t.Fatalf("Expected log_history first, got %q", first.Type)
	}
	var history []string
	if err := json.Unmarshal(first.Payload, &history); err != nil {
		t.Fatalf("Bad history payload: %v", err)
	}
	found := false
	for _, line := range history {
		if strings.Contains(line, "history-line") {
			found = true
		}
	}
	if !found {
		t.Errorf("History does not contain earlier log line: %v", history)
	}

	// Wait until the client is registered before logging the live line.
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	logger.Info("after connect", "marker", "live-line")

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Did not receive live log line: %v", err)
		}
		if msg.Type != "log_entry" {
			continue
		}
		var line string
		if err := json.Unmarshal(msg.Payload, &line); err != nil {
			t.Fatalf("Bad log_entry payload: %v", err)
		}
		if strings.Contains(line, "live-line") {
			break
		}
	}
}

func TestLogsAndStatsEndpoints(t *testing.T) {
	logger.Init("INFO")
	logger.Info("endpoint check")

	s := NewServer(config.Default(), "1.2.3", fixedSize(7))
	defer s.Close()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/logs")
	if err != nil {
		t.Fatalf("GET /api/logs: %v", err)
	}
	var lines []string
	if err := json.NewDecoder(resp.Body).Decode(&lines); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	resp.Body.Close()
	if len(lines) == 0 {
		t.Error("Expected log history")
	}

	resp, err = http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET /api/stats: %v", err)
	}
	var stats SystemStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	resp.Body.Close()
	if stats.Version != "1.2.3" || stats.CatalogPages != 7 || stats.Goroutines == 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestCloseStopsLogForwarding(t *testing.T) {
	logger.Init("INFO")
	s := NewServer(config.Default(), "test", fixedSize(0))

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	select {
	case <-s.done:
	default:
		t.Error("Forwarding goroutine still running after Close")
	}

	// Logging after Close must not reach the closed channel.
	logger.Info("after close")
	s.Close()
}
