package http

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/landledger/landledger/internal/pkg/metrics"
)

// wsMessage is sent by clients to change what they receive.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "registered" | "transferred" | "all" (default)
	LandID  string `json:"land_id"` // optional, narrows to one land
}

// wsSubject maps a client request onto a NATS subject.
func wsSubject(m wsMessage) (string, bool) {
	channel := m.Channel
	if channel == "" {
		channel = "all"
	}
	land := ">"
	if id := strings.TrimSpace(m.LandID); id != "" {
		if strings.ContainsAny(id, ".*> ") {
			return "", false
		}
		land = id
	}
	switch channel {
	case "registered", "transferred":
		return "land." + channel + "." + land, true
	case "all":
		if land != ">" {
			return "land.*." + land, true
		}
		return "land.>", true
	}
	return "", false
}

// WebSocketHandler relays land events from NATS to the client. New
// connections receive every event until they subscribe to something
// narrower and unsubscribe from "all".
// Clients send JSON: {"action":"subscribe","channel":"transferred","land_id":"42"}
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remote := c.RemoteAddr().String()
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		slog.Debug("ws client connected", "remote", remote)

		var mu sync.Mutex
		write := func(messageType int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(messageType, data)
		}
		writeJSON := func(v interface{}) {
			data, err := json.Marshal(v)
			if err == nil {
				_ = write(websocket.TextMessage, data)
			}
		}
		relay := func(msg *nats.Msg) {
			_ = write(websocket.TextMessage, msg.Data)
		}

		subs := make(map[string]*nats.Subscription)
		defer func() {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
		}()

		sub, err := nc.Subscribe("land.>", relay)
		if err != nil {
			slog.Warn("ws default subscribe failed", "error", err)
			return
		}
		subs["land.>"] = sub

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := write(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			subject, ok := wsSubject(m)
			if !ok {
				writeJSON(map[string]string{"error": "unknown channel or land id"})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				s, exists := subs[subject]
				if !exists {
					writeJSON(map[string]string{"error": "not subscribed to " + subject})
					continue
				}
				_ = s.Unsubscribe()
				delete(subs, subject)
				writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})

			default:
				writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		slog.Debug("ws client disconnected", "remote", remote)
	}
}
