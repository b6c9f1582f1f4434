// Package websocket fans auction events out to WebSocket watchers.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 256
)

// Manager tracks the clients watching each auction. Its Run loop owns the
// subscriber sets; other goroutines talk to it over channels.
type Manager struct {
	subscribers map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	// counts mirrors len(subscribers[id]) for readers outside Run.
	mu     sync.RWMutex
	counts map[string]int

	log zerolog.Logger
}

// Client is one WebSocket connection watching one auction.
type Client struct {
	ID        string
	AuctionID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// BroadcastMessage is a payload for every client watching an auction.
type BroadcastMessage struct {
	AuctionID string
	Payload   []byte
}

// NewManager creates a new WebSocket manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		subscribers: make(map[string]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *BroadcastMessage, sendBuffer),
		done:        make(chan struct{}),
		counts:      make(map[string]int),
		log:         log.With().Str("component", "ws_manager").Logger(),
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// disconnects every client.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			for auctionID, set := range m.subscribers {
				for client := range set {
					m.remove(auctionID, client)
				}
			}
			return

		case client := <-m.register:
			set, ok := m.subscribers[client.AuctionID]
			if !ok {
				set = make(map[*Client]struct{})
				m.subscribers[client.AuctionID] = set
			}
			set[client] = struct{}{}
			m.setCount(client.AuctionID, len(set))
			m.log.Debug().Str("client_id", client.ID).Str("auction_id", client.AuctionID).Msg("client subscribed")

		case client := <-m.unregister:
			m.remove(client.AuctionID, client)

		case message := <-m.broadcast:
			m.broadcastToAuction(message.AuctionID, message.Payload)
		}
	}
}

// RegisterClient adds a client to the manager
func (m *Manager) RegisterClient(client *Client) {
	select {
	case m.register <- client:
	case <-m.done:
		close(client.Send)
	}
}

// UnregisterClient removes a client from the manager
func (m *Manager) UnregisterClient(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Broadcast queues payload for every client watching auctionID.
func (m *Manager) Broadcast(auctionID string, payload []byte) {
	select {
	case m.broadcast <- &BroadcastMessage{AuctionID: auctionID, Payload: payload}:
	case <-m.done:
	}
}

// SubscriberCount returns the number of clients watching an auction.
func (m *Manager) SubscriberCount(auctionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[auctionID]
}

func (m *Manager) broadcastToAuction(auctionID string, payload []byte) {
	delivered := 0
	for client := range m.subscribers[auctionID] {
		select {
		case client.Send <- payload:
			delivered++
		default:
			// A client that cannot keep up is dropped rather than
			// stalling the others.
			m.log.Warn().Str("client_id", client.ID).Str("auction_id", auctionID).Msg("client send buffer full, disconnecting")
			m.remove(auctionID, client)
		}
	}
	m.log.Debug().Str("auction_id", auctionID).Int("clients", delivered).Msg("broadcast auction event")
}

// remove drops client and closes its send channel exactly once.
func (m *Manager) remove(auctionID string, client *Client) {
	set, ok := m.subscribers[auctionID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(m.subscribers, auctionID)
	}
	m.setCount(auctionID, len(set))
	m.log.Debug().Str("client_id", client.ID).Str("auction_id", auctionID).Msg("client unsubscribed")
}

func (m *Manager) setCount(auctionID string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n == 0 {
		delete(m.counts, auctionID)
		return
	}
	m.counts[auctionID] = n
}

// writePump pumps messages from the Send channel to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
// Watchers never send commands; anything they send is ignored.
func (c *Client) readPump(m *Manager) {
	defer m.UnregisterClient(c)

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.log.Debug().Err(err).Str("client_id", c.ID).Msg("websocket read error")
			}
			return
		}
	}
}
