package verifier

import (
	"bytes"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// commitmentCircuit stands in for the settlement program's recursion
// wrapper: two public inputs (the vkey hash and the committed-values
// digest) plus a private witness, with the same public-input shape the
// Groth16Verifier reconstructs.
type commitmentCircuit struct {
	VKeyHash        frontend.Variable `gnark:",public"`
	CommittedValues frontend.Variable `gnark:",public"`
	Salt            frontend.Variable
}

func (c *commitmentCircuit) Define(api frontend.API) error {
	sum := api.Add(c.VKeyHash, c.CommittedValues, c.Salt)
	api.AssertIsEqual(sum, api.Add(c.Salt, api.Add(c.VKeyHash, c.CommittedValues)))
	return nil
}

// proveFixture compiles the stand-in circuit, runs setup, and produces a
// serialized (vk, proof) pair committing to the given public values.
func proveFixture(t *testing.T, vkeyHash common.Hash, publicValues []byte) (vkBytes, proofBytes []byte) {
	t.Helper()

	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &commitmentCircuit{})
	if err != nil {
		t.Fatalf("Failed to compile circuit: %v", err)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		t.Fatalf("Failed to run setup: %v", err)
	}

	inputs := PublicInputs(vkeyHash, publicValues)
	assignment := &commitmentCircuit{
		VKeyHash:        inputs[0],
		CommittedValues: inputs[1],
		Salt:            42,
	}
	fullWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		t.Fatalf("Failed to build witness: %v", err)
	}

	proof, err := groth16.Prove(ccs, pk, fullWitness)
	if err != nil {
		t.Fatalf("Failed to prove: %v", err)
	}

	var vkBuf, proofBuf bytes.Buffer
	if _, err := vk.WriteTo(&vkBuf); err != nil {
		t.Fatalf("Failed to serialize vk: %v", err)
	}
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		t.Fatalf("Failed to serialize proof: %v", err)
	}

	return vkBuf.Bytes(), proofBuf.Bytes()
}

func TestGroth16Verifier(t *testing.T) {
	vkeyHash := crypto.Keccak256Hash([]byte("settlement-program-vkey"))
	publicValues := bytes.Repeat([]byte{0xab}, 40)

	vkBytes, proofBytes := proveFixture(t, vkeyHash, publicValues)

	v, err := NewGroth16Verifier(vkBytes, vkeyHash, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to construct verifier: %v", err)
	}

	t.Run("accepts valid proof", func(t *testing.T) {
		if err := v.Verify(vkeyHash, publicValues, proofBytes); err != nil {
			t.Fatalf("Expected acceptance, got %v", err)
		}
	})

	t.Run("rejects mismatched vkey hash", func(t *testing.T) {
		other := crypto.Keccak256Hash([]byte("some-other-program"))
		if err := v.Verify(other, publicValues, proofBytes); err == nil {
			t.Fatal("Expected rejection for mismatched verification key")
		}
	})

	t.Run("rejects tampered public values", func(t *testing.T) {
		tampered := append([]byte(nil), publicValues...)
		tampered[8] ^= 0x01
		if err := v.Verify(vkeyHash, tampered, proofBytes); err == nil {
			t.Fatal("Expected rejection for tampered public values")
		}
	})

	t.Run("rejects malformed proof bytes", func(t *testing.T) {
		if err := v.Verify(vkeyHash, publicValues, []byte{0x01, 0x02}); err == nil {
			t.Fatal("Expected rejection for malformed proof bytes")
		}
	})
}

func TestNewGroth16VerifierRejectsGarbageKey(t *testing.T) {
	if _, err := NewGroth16Verifier([]byte{0xde, 0xad}, common.Hash{}, zap.NewNop()); err == nil {
		t.Fatal("Expected error for malformed verifying key bytes")
	}
}

func TestPublicInputsDeterministic(t *testing.T) {
	vkeyHash := crypto.Keccak256Hash([]byte("vk"))
	values := []byte("public values")

	a := PublicInputs(vkeyHash, values)
	b := PublicInputs(vkeyHash, values)
	if a[0].Cmp(b[0]) != 0 || a[1].Cmp(b[1]) != 0 {
		t.Fatal("PublicInputs must be deterministic")
	}

	c := PublicInputs(vkeyHash, []byte("different values"))
	if a[1].Cmp(c[1]) == 0 {
		t.Fatal("Different public values must yield a different digest")
	}
}
