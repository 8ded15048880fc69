package verifier

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Groth16Verifier verifies BN254 Groth16 proofs against a fixed verifying
// key. The key is deserialized once at construction; Verify is safe for
// concurrent use.
type Groth16Verifier struct {
	vk       groth16.VerifyingKey
	vkeyHash common.Hash
	logger   *zap.Logger
}

// NewGroth16Verifier deserializes the verifying key bytes and binds them to
// the given key hash.
func NewGroth16Verifier(vkBytes []byte, vkeyHash common.Hash, logger *zap.Logger) (*Groth16Verifier, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return nil, fmt.Errorf("failed to deserialize verifying key: %w", err)
	}

	return &Groth16Verifier{
		vk:       vk,
		vkeyHash: vkeyHash,
		logger:   logger,
	}, nil
}

// VKeyHash returns the hash the verifying key is bound to.
func (v *Groth16Verifier) VKeyHash() common.Hash {
	return v.vkeyHash
}

// Verify checks the proof against the stored verifying key and the public
// inputs derived from (vkeyHash, publicValues). Key mismatch, malformed
// proof bytes and cryptographic rejection are all returned as errors.
func (v *Groth16Verifier) Verify(vkeyHash common.Hash, publicValues, proofBytes []byte) error {
	if vkeyHash != v.vkeyHash {
		return fmt.Errorf("verification key mismatch: proof bound to %s, verifier holds %s", vkeyHash.Hex(), v.vkeyHash.Hex())
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return fmt.Errorf("failed to deserialize proof: %w", err)
	}

	inputs := PublicInputs(vkeyHash, publicValues)
	publicWitness, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("failed to allocate witness: %w", err)
	}
	values := make(chan any, len(inputs))
	for _, in := range inputs {
		values <- in
	}
	close(values)
	if err := publicWitness.Fill(len(inputs), 0, values); err != nil {
		return fmt.Errorf("failed to fill public witness: %w", err)
	}

	if err := groth16.Verify(proof, v.vk, publicWitness); err != nil {
		v.logger.Warn("Proof rejected", zap.String("vkey_hash", vkeyHash.Hex()), zap.Error(err))
		return fmt.Errorf("proof rejected: %w", err)
	}

	return nil
}
