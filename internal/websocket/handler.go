package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development (use proper CORS in production)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket connections
type Handler struct {
	manager *Manager
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *Manager) *Handler {
	return &Handler{
		manager: manager,
	}
}

// SetupRoutes configures WebSocket routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/ws/auctions/{id}", h.HandleWebSocket)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/stats/auctions/{id}", h.GetStats).Methods(http.MethodGet)

	return router
}

// HandleWebSocket upgrades the connection and subscribes it to one auction.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.manager.log.Warn().Err(err).Str("auction_id", auctionID).Msg("failed to upgrade connection")
		return
	}

	client := &Client{
		ID:        uuid.NewString(),
		AuctionID: auctionID,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
	}

	welcome, _ := json.Marshal(map[string]string{
		"type":       "connected",
		"auction_id": auctionID,
		"client_id":  client.ID,
	})
	client.Send <- welcome

	go client.writePump()
	h.manager.RegisterClient(client)
	go client.readPump(h.manager)
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy", "service": "broadcast-service"})
}

// GetStats returns the number of watchers of an auction.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	writeJSON(w, map[string]any{
		"auction_id":  auctionID,
		"subscribers": h.manager.SubscriberCount(auctionID),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
