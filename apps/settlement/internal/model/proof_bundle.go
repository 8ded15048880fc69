package model

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PublicValuesLen is the minimum length of a provable program's public
// output: an 8-byte big-endian element count followed by a 32-byte root.
const PublicValuesLen = 40

// EncodePublicValues lays out public output bytes: count at [0:8], root at
// [8:40]. The settlement program commits the order count and the order
// Merkle root; the consensus program commits the header count and the
// accumulator root in the same layout.
func EncodePublicValues(count uint64, root common.Hash) []byte {
	out := make([]byte, PublicValuesLen)
	binary.BigEndian.PutUint64(out[0:8], count)
	copy(out[8:40], root[:])
	return out
}

// RootFromPublicValues reads the 32-byte root at its fixed offset.
func RootFromPublicValues(publicValues []byte) (common.Hash, error) {
	if len(publicValues) < PublicValuesLen {
		return common.Hash{}, fmt.Errorf("public values too short: %d bytes, need %d", len(publicValues), PublicValuesLen)
	}
	return common.BytesToHash(publicValues[8:40]), nil
}

// CountFromPublicValues reads the element count at its fixed offset.
func CountFromPublicValues(publicValues []byte) (uint64, error) {
	if len(publicValues) < PublicValuesLen {
		return 0, fmt.Errorf("public values too short: %d bytes, need %d", len(publicValues), PublicValuesLen)
	}
	return binary.BigEndian.Uint64(publicValues[0:8]), nil
}

// OrderProofJSON is the file representation of one order's proof inside a
// proof bundle.
type OrderProofJSON struct {
	Order     SubmittedTransaction `json:"order"`
	OrderHash string               `json:"order_hash"`
	Proof     []string             `json:"proof"`
	LeafIndex int                  `json:"leaf_index"`
}

// ProofBundle is the artifact the prover run writes (the original proof.json
// shape): the succinct proof, the program's public values, the verification
// key hash, the order Merkle root, and per-order proofs grouped by the chain
// each order settles on.
type ProofBundle struct {
	Proof               string                      `json:"proof"`
	PublicValues        string                      `json:"publicValues"`
	VKey                string                      `json:"vkey"`
	MerkleRoot          string                      `json:"merkleRoot"`
	ProofsBySourceChain map[string][]OrderProofJSON `json:"proofsBySourceChain"`
}
