// Package pipeline implements the staged verification a proving run
// executes to turn raw chain-inclusion evidence into a trusted order root.
//
// The stages are strictly ordered (consensus admission, header inclusion,
// transaction inclusion, semantic matching, root emission) because each
// consumes the trusted output of the previous one. A run is all-or-nothing:
// the batch yields one proof and one root, so there is no way to emit a
// partial result, and any failing order fails the entire run.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/codec"
	"settlement/apps/settlement/internal/merkle"
	"settlement/apps/settlement/internal/mmr"
	"settlement/apps/settlement/internal/model"
	"settlement/apps/settlement/internal/verifier"
)

// ErrEmptyBatch is returned when a run is attempted over zero orders.
var ErrEmptyBatch = errors.New("pipeline: batch contains no orders")

// ConsensusEvidence is the light-client collaborator's output for a batch:
// a recursive consensus proof and its public values, which carry the header
// accumulator root at the fixed offset.
type ConsensusEvidence struct {
	Proof        []byte
	PublicValues []byte
}

// HeaderEvidence is one reference-chain header plus its accumulator
// membership proof.
type HeaderEvidence struct {
	Header *types.Header
	Proof  mmr.Proof
}

// TransactionEvidence backs one order: the trie-inclusion proof of the
// claimed transaction inside its block, keyed by transaction index.
type TransactionEvidence struct {
	Order      model.Order
	TxIndex    uint64
	ProofNodes [][]byte
}

// BatchInput is the complete evidence for one proving run. The pipeline
// performs no I/O; everything must be supplied up front.
type BatchInput struct {
	Consensus    ConsensusEvidence
	Headers      []HeaderEvidence
	Transactions []TransactionEvidence
}

// Result is a successful run's output. PublicValues is the only part bound
// into the succinct proof; the rest is returned for the orchestrator to
// build per-chain settlement calls.
type Result struct {
	Root         common.Hash
	OrderHashes  []common.Hash
	PublicValues []byte
	Tree         *merkle.Tree
}

// Pipeline verifies settlement batches against a fixed light-client
// verification key.
type Pipeline struct {
	verifier        verifier.ProofVerifier
	lightClientVKey common.Hash
	logger          *zap.Logger
}

func New(v verifier.ProofVerifier, lightClientVKey common.Hash, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		verifier:        v,
		lightClientVKey: lightClientVKey,
		logger:          logger,
	}
}

// Run executes the five stages over the batch. On any failure it returns an
// error with no public output; failure causes are only visible to the
// operator running the pipeline.
func (p *Pipeline) Run(input BatchInput) (*Result, error) {
	if len(input.Transactions) == 0 {
		return nil, ErrEmptyBatch
	}

	// Stage 1: consensus admission
	if err := p.verifier.Verify(p.lightClientVKey, input.Consensus.PublicValues, input.Consensus.Proof); err != nil {
		return nil, fmt.Errorf("consensus admission failed: %w", err)
	}
	accumulatorRoot, err := model.RootFromPublicValues(input.Consensus.PublicValues)
	if err != nil {
		return nil, fmt.Errorf("consensus admission failed: %w", err)
	}

	// Stage 2: header inclusion
	trusted := make(map[uint64]*types.Header, len(input.Headers))
	for _, ev := range input.Headers {
		blockNumber := ev.Header.Number.Uint64()
		if !mmr.VerifyProof(ev.Header.Hash(), ev.Proof, accumulatorRoot) {
			return nil, fmt.Errorf("header inclusion failed for block %d", blockNumber)
		}
		trusted[blockNumber] = ev.Header
	}
	p.logger.Info("Headers admitted", zap.Int("count", len(trusted)))

	// Stages 3 and 4: transaction inclusion, then semantic matching
	orderHashes := make([]common.Hash, len(input.Transactions))
	orders := make([]model.Order, len(input.Transactions))
	for i, ev := range input.Transactions {
		header, ok := trusted[ev.Order.BlockNumber]
		if !ok {
			return nil, fmt.Errorf("order %d references block %d with no admitted header", i, ev.Order.BlockNumber)
		}

		tx, err := verifyTxInclusion(header.TxHash, ev.TxIndex, ev.ProofNodes)
		if err != nil {
			return nil, fmt.Errorf("transaction inclusion failed for order %d: %w", i, err)
		}

		if err := matchOrder(ev.Order, tx); err != nil {
			return nil, fmt.Errorf("semantic mismatch for order %d: %w", i, err)
		}

		orders[i] = ev.Order
		orderHashes[i] = codec.Hash(ev.Order)
	}

	// Stage 5: root emission
	tree, err := merkle.Build(orderHashes)
	if err != nil {
		return nil, fmt.Errorf("failed to build order tree: %w", err)
	}

	root := tree.Root()
	p.logger.Info("Batch verified",
		zap.Int("orders", len(orders)),
		zap.String("root", root.Hex()))

	return &Result{
		Root:         root,
		OrderHashes:  orderHashes,
		PublicValues: model.EncodePublicValues(uint64(len(orders)), root),
		Tree:         tree,
	}, nil
}

// verifyTxInclusion proves the transaction at txIndex against the header's
// transactions root and decodes it.
func verifyTxInclusion(txRoot common.Hash, txIndex uint64, proofNodes [][]byte) (*types.Transaction, error) {
	proofDb := memorydb.New()
	for _, node := range proofNodes {
		if err := proofDb.Put(crypto.Keccak256(node), node); err != nil {
			return nil, fmt.Errorf("failed to stage proof node: %w", err)
		}
	}

	key, err := rlp.EncodeToBytes(txIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction index: %w", err)
	}

	value, err := trie.VerifyProof(txRoot, key, proofDb)
	if err != nil {
		return nil, fmt.Errorf("trie proof rejected: %w", err)
	}
	if len(value) == 0 {
		return nil, fmt.Errorf("no transaction at index %d", txIndex)
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(value); err != nil {
		return nil, fmt.Errorf("failed to decode proven transaction: %w", err)
	}
	return tx, nil
}

// matchOrder asserts exact equality between the order's claimed fields and
// the proven transaction.
func matchOrder(order model.Order, tx *types.Transaction) error {
	if tx.To() == nil {
		return errors.New("proven transaction is a contract creation")
	}
	if *tx.To() != order.Receiver {
		return fmt.Errorf("receiver %s does not match transaction recipient %s", order.Receiver.Hex(), tx.To().Hex())
	}
	if tx.Value().Cmp(order.Amount) != 0 {
		return fmt.Errorf("amount %s does not match transaction value %s", order.Amount, tx.Value())
	}
	if tx.ChainId().Uint64() != order.DestinationChainID {
		return fmt.Errorf("destination chain %d does not match transaction chain %d", order.DestinationChainID, tx.ChainId().Uint64())
	}
	return nil
}
