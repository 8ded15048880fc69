package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"settlement/apps/settlement/internal/chains"
	"settlement/apps/settlement/internal/engine"
)

// InfoHandler handles the node information endpoint
type InfoHandler struct {
	engine              *engine.Engine
	registry            *chains.ChainRegistry
	chainID             uint64
	lightClientVKeyHash string
	logger              *zap.Logger
}

// NewInfoHandler creates a new InfoHandler
func NewInfoHandler(settlementEngine *engine.Engine, registry *chains.ChainRegistry, chainID uint64, lightClientVKeyHash string, logger *zap.Logger) *InfoHandler {
	return &InfoHandler{
		engine:              settlementEngine,
		registry:            registry,
		chainID:             chainID,
		lightClientVKeyHash: lightClientVKeyHash,
		logger:              logger,
	}
}

// GetInfo handles GET /api/info
func (h *InfoHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	chainName := "unknown"
	if chain, ok := h.registry.GetByID(h.chainID); ok {
		chainName = chain.Name
	}

	response := InfoResponse{
		ChainID:             h.chainID,
		ChainName:           chainName,
		SupportedChains:     h.registry.GetSupportedNames(),
		VKeyHash:            h.engine.VerificationKey().Hex(),
		LightClientVKeyHash: h.lightClientVKeyHash,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode info response", zap.Error(err))
	}
}
