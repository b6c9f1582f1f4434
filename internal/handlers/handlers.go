// Package handlers exposes the auction service over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/danwhitston/auction-api/internal/auction"
	"github.com/danwhitston/auction-api/internal/models"
)

// maxBodyBytes caps request bodies; a listing description alone may be 32 KiB.
const maxBodyBytes = 64 << 10

// BiddingService is the application surface the handlers drive.
type BiddingService interface {
	CreateListing(ctx context.Context, req models.CreateItemRequest) (*models.CreateItemResponse, error)
	GetAuction(ctx context.Context, auctionID string) (*models.Auction, error)
	ListAuctions(ctx context.Context, status models.AuctionStatus) ([]*models.Auction, error)
	ListItems(ctx context.Context) ([]*models.Item, error)
	PlaceBid(ctx context.Context, auctionID string, req *models.BidRequest) (*models.BidResponse, error)
}

// Handler contains HTTP request handlers
type Handler struct {
	biddingService BiddingService
	log            zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(biddingService BiddingService, log zerolog.Logger) *Handler {
	return &Handler{
		biddingService: biddingService,
		log:            log,
	}
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	api.HandleFunc("/items", h.CreateItem).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auctions", h.ListAuctions).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/auctions/{id}", h.GetAuction).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/auctions/{id}/bids", h.PlaceBid).Methods(http.MethodPost, http.MethodOptions)

	router.Use(loggingMiddleware(h.log))
	router.Use(corsMiddleware)

	return router
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "api-gateway",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateItem lists a new item and opens its auction.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.biddingService.CreateListing(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// ListItems lists every item.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.biddingService.ListItems(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// ListAuctions lists auctions, filtered by the optional status query parameter.
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	status := models.AuctionStatus(strings.TrimSpace(r.URL.Query().Get("status")))

	auctions, err := h.biddingService.ListAuctions(r.Context(), status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"auctions": auctions,
		"count":    len(auctions),
	})
}

// GetAuction retrieves one auction with its bids and current winner.
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	a, err := h.biddingService.GetAuction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// placeBidBody is the wire form of a bid. Amount is a pointer so a missing
// amount is rejected instead of being read as a zero bid.
type placeBidBody struct {
	UserID string           `json:"user_id"`
	Amount *decimal.Decimal `json:"amount"`
}

// PlaceBid handles bid placement requests
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	var body placeBidBody
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Amount == nil {
		respondJSON(w, http.StatusBadRequest, errorBody{
			Error:  "amount is required",
			Kind:   string(auction.KindValidation),
			Reason: string(auction.ReasonInvalidAmount),
		})
		return
	}

	bidReq := models.BidRequest{UserID: body.UserID, Amount: *body.Amount}
	response, err := h.biddingService.PlaceBid(r.Context(), mux.Vars(r)["id"], &bidReq)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, response)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Reason    string `json:"reason,omitempty"`
	AuctionID string `json:"auction_id,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError maps a service error to its status code. Internal details of
// server-side failures are logged, not returned.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := auction.HTTPStatus(err)
	body := errorBody{Error: http.StatusText(status)}

	var ae *auction.Error
	if errors.As(err, &ae) {
		body.Kind = string(ae.Kind)
		body.Reason = string(ae.Reason)
		body.AuctionID = ae.AuctionID
		if status < http.StatusInternalServerError {
			body.Error = ae.Message
		}
	}

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	respondJSON(w, status, body)
}
