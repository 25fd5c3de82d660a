package dashboard

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// Message is the envelope pushed to websocket listeners.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub fans messages out to connected websocket clients. Only Run touches the
// client set.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	obs ports.Observability
	log zerolog.Logger
}

func NewHub(obs ports.Observability, log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		obs:        obs,
		log:        log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.obs.SetGauge("nuro_dashboard_listeners", 0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.log.Debug().Str("remote", c.remote).Msg("ws_client_registered")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Debug().Str("remote", c.remote).Msg("ws_client_unregistered")
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn().Str("remote", c.remote).Msg("ws_client_slow_dropped")
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
		h.obs.SetGauge("nuro_dashboard_listeners", float64(len(h.clients)))
	}
}

// add hands c to Run. It reports false once the hub has stopped.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues a message for every client. It never blocks; when the hub is
// backed up the message is dropped.
func (h *Hub) Publish(typ string, payload any) {
	b, err := json.Marshal(Message{Type: typ, Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Str("type", typ).Msg("ws_marshal_failed")
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.log.Warn().Str("type", typ).Msg("ws_broadcast_dropped")
	}
}
