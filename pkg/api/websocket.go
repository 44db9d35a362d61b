package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"epstream/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const statsInterval = 5 * time.Second

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WS upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	client := &Client{conn: conn, send: make(chan WSMessage, 256)}

	// Nothing else writes to conn until the write loop starts.
	if err := s.writeSnapshot(client); err != nil {
		return
	}
	s.AddClient(client)
	defer s.RemoveClient(client)

	logger.Debug("WS client connected", "remote", r.RemoteAddr)

	requests := make(chan string, 8)
	done := make(chan struct{})

	// Read loop (Client -> Server)
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Debug("WS read error", "err", err)
				}
				return
			}
			select {
			case requests <- msg.Type:
			default:
			}
		}
	}()

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	// Write loop (Server -> Client)
	for {
		var out WSMessage
		select {
		case <-done:
			logger.Debug("WS client disconnected", "remote", r.RemoteAddr)
			return
		case <-ticker.C:
			out = s.message("stats", s.collectStats())
		case req := <-requests:
			switch req {
			case "get_config":
				out = s.message("config", s.configView())
			case "get_stats":
				out = s.message("stats", s.collectStats())
			case "get_logs":
				out = s.message("log_history", logger.GetHistory())
			default:
				continue
			}
		case out = <-client.send:
		}
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}

// writeSnapshot sends the log history, config and stats to a fresh client.
func (s *Server) writeSnapshot(client *Client) error {
	for _, msg := range []WSMessage{
		s.message("log_history", logger.GetHistory()),
		s.message("config", s.configView()),
		s.message("stats", s.collectStats()),
	} {
		if err := client.conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) message(kind string, v any) WSMessage {
	payload, err := json.Marshal(v)
	if err != nil {
		logger.Debug("WS marshal failed", "type", kind, "err", err)
	}
	return WSMessage{Type: kind, Payload: payload}
}
