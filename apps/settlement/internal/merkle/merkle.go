// Package merkle builds and verifies the sorted-pair Merkle tree that binds
// a settlement batch under a single root.
//
// Sibling order at every combination step is decided by byte-wise comparison
// of the digests, so a verifier never needs to know whether its running hash
// was the left or right child. The trade-off: position cannot be proven
// without the explicit leaf index carried alongside the proof.
package merkle

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrEmptyTree is returned when building over zero leaves. An empty batch
// has no defined root.
var ErrEmptyTree = errors.New("merkle: cannot build a tree over zero leaves")

// Proof is the ordered sequence of sibling digests from a leaf to the root.
type Proof []common.Hash

// Tree holds a built batch tree with one proof per leaf. Leaves keep their
// submission order; duplicate leaves are legal at this layer (uniqueness is
// the settlement state machine's concern).
type Tree struct {
	leaves []common.Hash
	proofs []Proof
	root   common.Hash
}

// Build constructs the tree over the given leaves. At each level adjacent
// nodes are paired with hashPair; a trailing unpaired node is promoted to
// the next level unchanged. A single leaf is its own root with an empty
// proof.
func Build(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	tree := &Tree{
		leaves: append([]common.Hash(nil), leaves...),
		proofs: make([]Proof, len(leaves)),
	}

	// position[i] tracks where leaf i currently sits in the working level
	position := make([]int, len(leaves))
	for i := range position {
		position[i] = i
	}

	level := append([]common.Hash(nil), leaves...)
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashPair(level[i], level[i+1]))
			} else {
				// odd node: promoted, no sibling recorded
				next = append(next, level[i])
			}
		}

		for leaf, pos := range position {
			if pos+1 < len(level) || pos%2 == 1 {
				sibling := pos ^ 1
				tree.proofs[leaf] = append(tree.proofs[leaf], level[sibling])
			}
			position[leaf] = pos / 2
		}

		level = next
	}

	tree.root = level[0]
	return tree, nil
}

// Root returns the batch root.
func (t *Tree) Root() common.Hash {
	return t.root
}

// Len returns the leaf count.
func (t *Tree) Len() int {
	return len(t.leaves)
}

// Leaf returns the leaf at index i.
func (t *Tree) Leaf(i int) (common.Hash, error) {
	if i < 0 || i >= len(t.leaves) {
		return common.Hash{}, fmt.Errorf("leaf index %d out of range [0, %d)", i, len(t.leaves))
	}
	return t.leaves[i], nil
}

// Proof returns the membership proof for the leaf at index i.
func (t *Tree) Proof(i int) (Proof, error) {
	if i < 0 || i >= len(t.proofs) {
		return nil, fmt.Errorf("leaf index %d out of range [0, %d)", i, len(t.proofs))
	}
	return append(Proof(nil), t.proofs[i]...), nil
}

// Verify recomputes a root from leaf and proof with the sorted-pair rule and
// compares it to the claimed root. It returns false on any mismatch and
// never fails for well-formed inputs.
func Verify(leaf common.Hash, proof Proof, root common.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

// hashPair combines two digests commutatively: keccak(min || max).
func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return crypto.Keccak256Hash(a[:], b[:])
	}
	return crypto.Keccak256Hash(b[:], a[:])
}
