package api

import (
	"time"
)

// OrderRequest represents the order fields shared by the submit and hash
// endpoints. Amount is a base-10 string to avoid JSON number precision loss.
type OrderRequest struct {
	SourceChainID      uint64 `json:"source_chain_id" validate:"required"`
	DestinationChainID uint64 `json:"destination_chain_id" validate:"required"`
	Receiver           string `json:"receiver" validate:"required"`
	Amount             string `json:"amount" validate:"required"`
	BlockNumber        uint64 `json:"block_number" validate:"required"`
}

// SubmitOrderResponse represents the response for a successful order submission
type SubmitOrderResponse struct {
	OrderHash string `json:"order_hash"`
	Status    string `json:"status"`
}

// HashOrderResponse represents the response for the order hashing endpoint
type HashOrderResponse struct {
	OrderHash string `json:"order_hash"`
}

// OrderStatusResponse represents the API response for order information
type OrderStatusResponse struct {
	OrderHash          string     `json:"order_hash"`
	SourceChainID      uint64     `json:"source_chain_id"`
	DestinationChainID uint64     `json:"destination_chain_id"`
	Receiver           string     `json:"receiver"`
	Amount             string     `json:"amount"`
	BlockNumber        uint64     `json:"block_number"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	SettledAt          *time.Time `json:"settled_at,omitempty"`
}

// OrderProofRequest represents one order's membership proof inside a
// settlement request
type OrderProofRequest struct {
	OrderHash string   `json:"order_hash"`
	Proof     []string `json:"proof"`
	LeafIndex int      `json:"leaf_index"`
}

// SettleRequest represents the request body for settling a batch of orders.
// Proof and public values are 0x-prefixed hex strings.
type SettleRequest struct {
	Proof        string              `json:"proof" validate:"required"`
	PublicValues string              `json:"public_values" validate:"required"`
	Orders       []OrderProofRequest `json:"orders" validate:"required"`
}

// SettleResponse represents the response for a successful settlement
type SettleResponse struct {
	SettledCount int    `json:"settled_count"`
	MerkleRoot   string `json:"merkle_root"`
}

// ResetRequest represents the request body for resetting order statuses
type ResetRequest struct {
	OrderHashes []string `json:"order_hashes" validate:"required"`
}

// ResetResponse represents the response for a settlement state reset
type ResetResponse struct {
	ResetCount int64 `json:"reset_count"`
}

// VKeyResponse represents the response for the verification key endpoint
type VKeyResponse struct {
	VKeyHash string `json:"vkey_hash"`
}

// FeedEntryResponse represents one row of the materialized settlement feed
type FeedEntryResponse struct {
	OrderHash  string    `json:"order_hash"`
	ChainID    uint64    `json:"chain_id"`
	EventType  string    `json:"event_type"`
	Status     string    `json:"status"`
	ObservedAt time.Time `json:"observed_at"`
}

// InfoResponse represents the API response for node information
type InfoResponse struct {
	ChainID             uint64   `json:"chain_id"`
	ChainName           string   `json:"chain_name"`
	SupportedChains     []string `json:"supported_chains"`
	VKeyHash            string   `json:"vkey_hash"`
	LightClientVKeyHash string   `json:"light_client_vkey_hash,omitempty"`
}

// ErrorResponse represents the API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
