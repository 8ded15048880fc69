package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/engine"
	"settlement/apps/settlement/internal/model"
)

// SettlementHandler handles order submission, settlement and status endpoints
type SettlementHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(settlementEngine *engine.Engine, logger *zap.Logger) *SettlementHandler {
	return &SettlementHandler{
		engine: settlementEngine,
		logger: logger,
	}
}

// SubmitOrder handles POST /api/orders
func (h *SettlementHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	order, errCode, errMsg := parseOrder(req)
	if errCode != "" {
		h.writeErrorResponse(w, http.StatusBadRequest, errCode, errMsg)
		return
	}

	orderHash, err := h.engine.SubmitOrder(order)
	if err != nil {
		h.writeEngineError(w, err, "Failed to submit order")
		return
	}

	response := SubmitOrderResponse{
		OrderHash: orderHash.Hex(),
		Status:    model.StatusUnsettled,
	}

	h.writeJSONResponse(w, http.StatusCreated, response)
}

// HashOrder handles POST /api/orders/hash
func (h *SettlementHandler) HashOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	order, errCode, errMsg := parseOrder(req)
	if errCode != "" {
		h.writeErrorResponse(w, http.StatusBadRequest, errCode, errMsg)
		return
	}

	response := HashOrderResponse{
		OrderHash: h.engine.HashOrder(order).Hex(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// GetOrderStatus handles GET /api/orders/{order_hash}
func (h *SettlementHandler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderHash := vars["order_hash"]

	if orderHash == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "missing_order_hash", "Order hash is required")
		return
	}

	record, err := h.engine.OrderStatus(orderHash)
	if err != nil {
		h.writeEngineError(w, err, "Failed to retrieve order")
		return
	}

	response := OrderStatusResponse{
		OrderHash:          record.OrderHash,
		SourceChainID:      record.SourceChainID,
		DestinationChainID: record.DestinationChainID,
		Receiver:           record.Receiver,
		Amount:             record.Amount,
		BlockNumber:        record.BlockNumber,
		Status:             record.Status,
		CreatedAt:          record.CreatedAt,
		SettledAt:          record.SettledAt,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// SettleOrders handles POST /api/settlements
func (h *SettlementHandler) SettleOrders(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	proofBytes, err := hexutil.Decode(req.Proof)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_proof", "Proof must be a 0x-prefixed hex string")
		return
	}

	publicValues, err := hexutil.Decode(req.PublicValues)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_public_values", "Public values must be a 0x-prefixed hex string")
		return
	}

	orderProofs := make([]model.OrderProof, 0, len(req.Orders))
	for _, op := range req.Orders {
		proof := make([]common.Hash, 0, len(op.Proof))
		for _, node := range op.Proof {
			proof = append(proof, common.HexToHash(node))
		}
		orderProofs = append(orderProofs, model.OrderProof{
			OrderHash: common.HexToHash(op.OrderHash),
			Proof:     proof,
			LeafIndex: op.LeafIndex,
		})
	}

	if err := h.engine.SettleOrders(proofBytes, publicValues, orderProofs); err != nil {
		h.writeEngineError(w, err, "Failed to settle orders")
		return
	}

	root, err := model.RootFromPublicValues(publicValues)
	if err != nil {
		// Unreachable after a successful settlement; keep the response honest.
		h.writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to read settlement root")
		return
	}

	response := SettleResponse{
		SettledCount: len(orderProofs),
		MerkleRoot:   root.Hex(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// ResetOrders handles POST /api/orders/reset
func (h *SettlementHandler) ResetOrders(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}
	if len(req.OrderHashes) == 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "missing_order_hashes", "Order hashes are required")
		return
	}

	count, err := h.engine.ResetOrders(req.OrderHashes)
	if err != nil {
		h.writeEngineError(w, err, "Failed to reset orders")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, ResetResponse{ResetCount: count})
}

// GetVKey handles GET /api/vkey
func (h *SettlementHandler) GetVKey(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, VKeyResponse{
		VKeyHash: h.engine.VerificationKey().Hex(),
	})
}

// parseOrder validates an order request and converts it to the value type.
// Returns an empty error code on success.
func parseOrder(req OrderRequest) (model.Order, string, string) {
	if req.Amount == "" {
		return model.Order{}, "missing_amount", "Amount is required"
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() < 0 {
		return model.Order{}, "invalid_amount", "Amount must be a non-negative base-10 integer"
	}
	if !common.IsHexAddress(req.Receiver) {
		return model.Order{}, "invalid_receiver", "Receiver must be a hex-encoded address"
	}

	return model.Order{
		SourceChainID:      req.SourceChainID,
		DestinationChainID: req.DestinationChainID,
		Receiver:           common.HexToAddress(req.Receiver),
		Amount:             amount,
		BlockNumber:        req.BlockNumber,
	}, "", ""
}

// writeEngineError maps engine sentinel errors to HTTP responses
func (h *SettlementHandler) writeEngineError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, engine.ErrChainMismatch):
		h.writeErrorResponse(w, http.StatusBadRequest, "chain_mismatch", "Order does not originate from this chain")
	case errors.Is(err, engine.ErrDuplicateOrder):
		h.writeErrorResponse(w, http.StatusConflict, "duplicate_order", "Order already exists")
	case errors.Is(err, engine.ErrUnknownOrder):
		h.writeErrorResponse(w, http.StatusNotFound, "order_not_found", "Order not found")
	case errors.Is(err, engine.ErrVerificationKeyMismatch):
		h.writeErrorResponse(w, http.StatusBadRequest, "vkey_mismatch", "Proof is bound to a different verification key")
	case errors.Is(err, engine.ErrInvalidProof):
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_proof", "Settlement proof verification failed")
	case errors.Is(err, engine.ErrInvalidMembershipProof):
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_membership_proof", "Order membership proof verification failed")
	default:
		h.logger.Error(logMsg, zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "internal_error", logMsg)
	}
}

// writeJSONResponse writes a JSON response with the specified status code
func (h *SettlementHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func (h *SettlementHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}
	h.writeJSONResponse(w, statusCode, errorResponse)
}
