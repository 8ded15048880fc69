package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Order statuses
const (
	StatusUnsettled = "unsettled"
	StatusSettled   = "settled"
)

// Order is the five-field record a solver asks to settle. It is a pure value:
// once hashed, the hash is the order's only identity.
type Order struct {
	SourceChainID      uint64
	DestinationChainID uint64
	Receiver           common.Address
	Amount             *big.Int
	BlockNumber        uint64
}

// ClaimedExecution points at the reference-chain transaction a solver claims
// fulfilled an order.
type ClaimedExecution struct {
	ChainID uint64      `json:"chain_id"`
	TxHash  common.Hash `json:"tx_hash"`
}

// OrderProof is the per-order evidence passed to a settlement call: the order
// hash, its Merkle membership proof and its position in the batch tree.
type OrderProof struct {
	OrderHash common.Hash   `json:"order_hash"`
	Proof     []common.Hash `json:"proof"`
	LeafIndex int           `json:"leaf_index"`
}

// SubmittedTransaction is one line of the prover input file (the original
// txs.json shape): an order plus the reference-chain transaction backing it.
type SubmittedTransaction struct {
	SourceChainID      uint64 `json:"source_chain_id"`
	DestinationChainID uint64 `json:"destination_chain_id"`
	Receiver           string `json:"receiver"`
	Amount             string `json:"amount"`
	BlockNumber        uint64 `json:"block_number"`
	TxHash             string `json:"tx_hash"`
}

// Order converts the file representation into the value type. Returns false
// if the amount does not parse as a base-10 integer.
func (s SubmittedTransaction) Order() (Order, bool) {
	amount, ok := new(big.Int).SetString(s.Amount, 10)
	if !ok {
		return Order{}, false
	}
	return Order{
		SourceChainID:      s.SourceChainID,
		DestinationChainID: s.DestinationChainID,
		Receiver:           common.HexToAddress(s.Receiver),
		Amount:             amount,
		BlockNumber:        s.BlockNumber,
	}, true
}
