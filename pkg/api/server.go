package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"epstream/pkg/config"
	"epstream/pkg/logger"
)

// CacheSizer reports how many entries a cache currently holds.
type CacheSizer interface {
	Len() int
}

// Server exposes the admin API: effective configuration, runtime stats and
// a live log tail over websocket.
type Server struct {
	config  *config.Config
	version string
	started time.Time
	catalog CacheSizer

	// WebSocket Client Registry
	clients   map[*Client]bool
	clientsMu sync.Mutex
	logCh     chan string
	closeOnce sync.Once
	done      chan struct{}
}

type Client struct {
	conn *websocket.Conn
	send chan WSMessage
}

// NewServer creates a new API server and starts forwarding log lines to
// connected websocket clients.
func NewServer(cfg *config.Config, version string, catalog CacheSizer) *Server {
	s := &Server{
		config:  cfg,
		version: version,
		started: time.Now(),
		catalog: catalog,
		clients: make(map[*Client]bool),
		logCh:   make(chan string, 100),
		done:    make(chan struct{}),
	}

	logger.SetBroadcast(s.logCh)
	go s.broadcastLogs()

	return s
}

// Close stops log forwarding and waits for the forwarding goroutine to exit.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		logger.SetBroadcast(nil)
		close(s.logCh)
	})
	<-s.done
}

func (s *Server) broadcastLogs() {
	defer close(s.done)
	for msgStr := range s.logCh {
		msg := WSMessage{Type: "log_entry", Payload: json.RawMessage(fmt.Sprintf("%q", msgStr))}

		s.clientsMu.Lock()
		for client := range s.clients {
			select {
			case client.send <- msg:
			default:
				// Drop message if client buffer is full
			}
		}
		s.clientsMu.Unlock()
	}
}

// AddClient registers a new websocket client
func (s *Server) AddClient(client *Client) {
	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()
}

// RemoveClient unregisters a websocket client
func (s *Server) RemoveClient(client *Client) {
	s.clientsMu.Lock()
	delete(s.clients, client)
	s.clientsMu.Unlock()
}

// ClientCount returns the number of connected websocket clients
func (s *Server) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// Handler returns the HTTP handler for the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ws", s.handleWebSocket)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/config", s.handleConfig)

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write API response", "err", err)
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, logger.GetHistory())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.collectStats())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.configView())
}

// configView is the config as shown to admins, with the keys overridden by
// the environment listed alongside.
func (s *Server) configView() map[string]any {
	return map[string]any{
		"config":        s.config,
		"env_overrides": config.GetEnvOverrideKeys(),
	}
}
