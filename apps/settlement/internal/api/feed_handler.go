package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/model"
)

// FeedReader reads the materialized settlement feed.
type FeedReader interface {
	GetByOrderHash(orderHash string) ([]model.FeedEntry, error)
}

// FeedHandler handles the settlement feed endpoint
type FeedHandler struct {
	feed   FeedReader
	logger *zap.Logger
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feed FeedReader, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, logger: logger}
}

// GetFeed handles GET /api/feed/{order_hash}
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderHash := vars["order_hash"]

	entries, err := h.feed.GetByOrderHash(orderHash)
	if err != nil {
		h.logger.Error("Failed to read settlement feed", zap.String("order_hash", orderHash), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to read settlement feed")
		return
	}
	if len(entries) == 0 {
		h.writeError(w, http.StatusNotFound, "feed_entry_not_found", "No feed entries for order")
		return
	}

	response := make([]FeedEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, FeedEntryResponse{
			OrderHash:  entry.OrderHash,
			ChainID:    entry.ChainID,
			EventType:  entry.EventType,
			Status:     entry.Status,
			ObservedAt: entry.ObservedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode feed response", zap.Error(err))
	}
}

func (h *FeedHandler) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: errorCode, Message: message}); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}
