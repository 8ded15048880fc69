// Package verifier is the proof-verifier capability each settling chain and
// the verification pipeline depend on: given a verification key, a public
// output and proof bytes, accept or reject cryptographic validity.
package verifier

import (
	"crypto/sha256"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/ethereum/go-ethereum/common"
)

// ProofVerifier accepts or rejects a succinct proof over the given public
// values. Rejection is returned as a non-nil error; callers treat any error
// as fatal to the operation that supplied the proof.
type ProofVerifier interface {
	Verify(vkeyHash common.Hash, publicValues, proofBytes []byte) error
}

// PublicInputs derives the two field elements a proof commits to: the
// verification key hash and the SHA-256 digest of the public values masked
// to 253 bits so it fits the BN254 scalar field. This layout mirrors the
// on-chain verifier the settlement contracts call.
func PublicInputs(vkeyHash common.Hash, publicValues []byte) [2]*big.Int {
	vkeyField := new(big.Int).SetBytes(vkeyHash[:])
	vkeyField.Mod(vkeyField, ecc.BN254.ScalarField())

	digest := sha256.Sum256(publicValues)
	committed := new(big.Int).SetBytes(digest[:])
	mask := new(big.Int).Lsh(big.NewInt(1), 253)
	mask.Sub(mask, big.NewInt(1))
	committed.And(committed, mask)

	return [2]*big.Int{vkeyField, committed}
}
