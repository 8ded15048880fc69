package mmr

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func testLeaves(n int) []common.Hash {
	leaves := make([]common.Hash, n)
	for i := range leaves {
		leaves[i] = crypto.Keccak256Hash([]byte{byte(i), byte(i >> 8)})
	}
	return leaves
}

func TestBuildEmptyRejected(t *testing.T) {
	if _, err := Build(nil); err != ErrEmptyAccumulator {
		t.Fatalf("Expected ErrEmptyAccumulator, got %v", err)
	}
}

func TestSingleLeaf(t *testing.T) {
	leaves := testLeaves(1)
	acc, err := Build(leaves)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if acc.Root() != leaves[0] {
		t.Errorf("Single-leaf root must equal the leaf")
	}

	proof, err := acc.Proof(0)
	if err != nil {
		t.Fatalf("Proof failed: %v", err)
	}
	if !VerifyProof(leaves[0], proof, acc.Root()) {
		t.Error("Single-leaf proof did not verify")
	}
}

func TestMembershipAcrossShapes(t *testing.T) {
	// 11 = 8 + 2 + 1 exercises multiple mountains and all peak positions.
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 11, 16} {
		leaves := testLeaves(n)
		acc, err := Build(leaves)
		if err != nil {
			t.Fatalf("Build(%d) failed: %v", n, err)
		}
		if acc.LeafCount() != uint64(n) {
			t.Errorf("LeafCount: got %d, want %d", acc.LeafCount(), n)
		}

		for i := 0; i < n; i++ {
			proof, err := acc.Proof(i)
			if err != nil {
				t.Fatalf("Proof(%d) of %d failed: %v", i, n, err)
			}
			if !VerifyProof(leaves[i], proof, acc.Root()) {
				t.Errorf("Leaf %d of %d did not verify", i, n)
			}
		}
	}
}

func TestVerifyRejectsMutations(t *testing.T) {
	leaves := testLeaves(11)
	acc, err := Build(leaves)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	proof, err := acc.Proof(4)
	if err != nil {
		t.Fatalf("Proof failed: %v", err)
	}

	t.Run("wrong leaf", func(t *testing.T) {
		if VerifyProof(leaves[5], proof, acc.Root()) {
			t.Error("Proof for leaf 4 verified leaf 5")
		}
	})

	t.Run("mutated sibling", func(t *testing.T) {
		bad := proof
		bad.Siblings = append([]Sibling(nil), proof.Siblings...)
		bad.Siblings[0].Hash[0] ^= 0x01
		if VerifyProof(leaves[4], bad, acc.Root()) {
			t.Error("Mutated sibling still verified")
		}
	})

	t.Run("flipped side", func(t *testing.T) {
		bad := proof
		bad.Siblings = append([]Sibling(nil), proof.Siblings...)
		bad.Siblings[0].Left = !bad.Siblings[0].Left
		if VerifyProof(leaves[4], bad, acc.Root()) {
			t.Error("Flipped side flag still verified")
		}
	})

	t.Run("mutated peak", func(t *testing.T) {
		bad := proof
		bad.Peaks = append([]common.Hash(nil), proof.Peaks...)
		bad.Peaks[len(bad.Peaks)-1][0] ^= 0x01
		if VerifyProof(leaves[4], bad, acc.Root()) {
			t.Error("Mutated peak still verified")
		}
	})

	t.Run("wrong root", func(t *testing.T) {
		badRoot := acc.Root()
		badRoot[31] ^= 0x01
		if VerifyProof(leaves[4], proof, badRoot) {
			t.Error("Proof verified against a mutated root")
		}
	})

	t.Run("peak index out of range", func(t *testing.T) {
		bad := proof
		bad.PeakIndex = len(proof.Peaks)
		if VerifyProof(leaves[4], bad, acc.Root()) {
			t.Error("Out-of-range peak index still verified")
		}
	})
}

func TestProofIndexOutOfRange(t *testing.T) {
	acc, err := Build(testLeaves(3))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := acc.Proof(3); err == nil {
		t.Error("Expected error for out-of-range leaf index")
	}
	if _, err := acc.Proof(-1); err == nil {
		t.Error("Expected error for negative leaf index")
	}
}
