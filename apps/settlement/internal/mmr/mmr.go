// Package mmr implements the keccak header accumulator the verification
// pipeline trusts after consensus admission: a mountain range of perfect
// binary trees over block-header hashes, with membership proofs against a
// bagged-peaks root.
//
// Unlike the order tree, node pairing here is positional, so every proof
// step carries an explicit side flag. A proof is self-describing: the path
// to the leaf's peak plus the full peak list.
package mmr

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrEmptyAccumulator is returned when building over zero leaves.
var ErrEmptyAccumulator = errors.New("mmr: cannot build an accumulator over zero leaves")

// Sibling is one step of a membership path. Left reports whether the sibling
// sits to the left of the running node.
type Sibling struct {
	Hash common.Hash `json:"hash"`
	Left bool        `json:"left"`
}

// Proof proves one leaf's membership: the path to its mountain's peak, the
// full ordered peak list, and which peak the path lands on.
type Proof struct {
	Siblings  []Sibling     `json:"siblings"`
	Peaks     []common.Hash `json:"peaks"`
	PeakIndex int           `json:"peak_index"`
}

// Accumulator is a built mountain range. Mountains are perfect binary trees
// whose sizes are the descending powers of two that sum to the leaf count.
type Accumulator struct {
	leafCount int
	// mountains[m][level][i]; level 0 holds the leaves, the last level the peak
	mountains [][][]common.Hash
	peaks     []common.Hash
	root      common.Hash
}

// Build constructs the accumulator over the given leaves in order.
func Build(leaves []common.Hash) (*Accumulator, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyAccumulator
	}

	acc := &Accumulator{leafCount: len(leaves)}

	remaining := leaves
	for len(remaining) > 0 {
		// largest power of two not exceeding the remaining leaf count
		size := 1 << (bits.Len(uint(len(remaining))) - 1)
		mountain := buildMountain(remaining[:size])
		acc.mountains = append(acc.mountains, mountain)
		acc.peaks = append(acc.peaks, mountain[len(mountain)-1][0])
		remaining = remaining[size:]
	}

	acc.root = bagPeaks(acc.peaks)
	return acc, nil
}

// Root returns the bagged-peaks commitment.
func (a *Accumulator) Root() common.Hash {
	return a.root
}

// LeafCount returns the number of leaves committed.
func (a *Accumulator) LeafCount() uint64 {
	return uint64(a.leafCount)
}

// Proof builds the membership proof for the leaf at index i.
func (a *Accumulator) Proof(i int) (Proof, error) {
	if i < 0 || i >= a.leafCount {
		return Proof{}, fmt.Errorf("leaf index %d out of range [0, %d)", i, a.leafCount)
	}

	// locate the mountain holding leaf i
	mountainIdx, offset := 0, i
	for offset >= len(a.mountains[mountainIdx][0]) {
		offset -= len(a.mountains[mountainIdx][0])
		mountainIdx++
	}

	proof := Proof{
		Peaks:     append([]common.Hash(nil), a.peaks...),
		PeakIndex: mountainIdx,
	}

	mountain := a.mountains[mountainIdx]
	pos := offset
	for level := 0; level < len(mountain)-1; level++ {
		sibling := pos ^ 1
		proof.Siblings = append(proof.Siblings, Sibling{
			Hash: mountain[level][sibling],
			Left: sibling < pos,
		})
		pos /= 2
	}

	return proof, nil
}

// VerifyProof folds the path, checks it lands on the claimed peak, and
// recomputes the bagged root. It returns false on any mismatch.
func VerifyProof(leaf common.Hash, proof Proof, root common.Hash) bool {
	if proof.PeakIndex < 0 || proof.PeakIndex >= len(proof.Peaks) {
		return false
	}

	computed := leaf
	for _, s := range proof.Siblings {
		if s.Left {
			computed = crypto.Keccak256Hash(s.Hash[:], computed[:])
		} else {
			computed = crypto.Keccak256Hash(computed[:], s.Hash[:])
		}
	}

	if computed != proof.Peaks[proof.PeakIndex] {
		return false
	}
	return bagPeaks(proof.Peaks) == root
}

// buildMountain builds a perfect positional tree; leaves must be a power of
// two.
func buildMountain(leaves []common.Hash) [][]common.Hash {
	levels := [][]common.Hash{append([]common.Hash(nil), leaves...)}
	for len(levels[len(levels)-1]) > 1 {
		prev := levels[len(levels)-1]
		next := make([]common.Hash, len(prev)/2)
		for i := range next {
			next[i] = crypto.Keccak256Hash(prev[2*i][:], prev[2*i+1][:])
		}
		levels = append(levels, next)
	}
	return levels
}

// bagPeaks folds the peak list right to left into a single commitment.
func bagPeaks(peaks []common.Hash) common.Hash {
	acc := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		acc = crypto.Keccak256Hash(peaks[i][:], acc[:])
	}
	return acc
}
