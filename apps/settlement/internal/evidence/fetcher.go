// Package evidence is the chain-RPC collaborator: it gathers everything a
// proving run needs (headers, transaction inclusion proofs, the header
// accumulator) and assembles the pipeline input. The pipeline itself never
// performs I/O; this package front-loads all of it.
package evidence

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/mmr"
	"settlement/apps/settlement/internal/model"
	"settlement/apps/settlement/internal/pipeline"
)

type Fetcher struct {
	client *ethclient.Client
	logger *zap.Logger
}

// NewFetcher connects to the reference chain's RPC endpoint.
func NewFetcher(rpcURL string, logger *zap.Logger) (*Fetcher, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	return &Fetcher{client: client, logger: logger}, nil
}

func (f *Fetcher) Close() {
	f.client.Close()
}

// AssembleBatch builds the complete pipeline input for the submitted
// transactions. Orders that do not parse are rejected here: the pipeline
// is all-or-nothing, so a malformed order must never reach a proving run.
//
// The consensus proof itself comes from the light-client collaborator; the
// assembler only fills in the evidence that proof ranges over, so the
// returned input carries the accumulator's public values and leaves the
// proof bytes for the caller to attach.
func (f *Fetcher) AssembleBatch(ctx context.Context, submitted []model.SubmittedTransaction) (*pipeline.BatchInput, error) {
	if len(submitted) == 0 {
		return nil, fmt.Errorf("no submitted transactions to assemble")
	}

	orders := make([]model.Order, len(submitted))
	claims := make([]model.ClaimedExecution, len(submitted))
	for i, s := range submitted {
		order, ok := s.Order()
		if !ok {
			return nil, fmt.Errorf("submitted transaction %d has malformed amount %q", i, s.Amount)
		}
		orders[i] = order
		claims[i] = model.ClaimedExecution{
			ChainID: s.DestinationChainID,
			TxHash:  common.HexToHash(s.TxHash),
		}
	}

	// Fetch every distinct referenced block once.
	blockNumbers := distinctBlockNumbers(orders)
	blocks := make(map[uint64]*types.Block, len(blockNumbers))
	for _, n := range blockNumbers {
		block, err := f.client.BlockByNumber(ctx, new(big.Int).SetUint64(n))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch block %d: %w", n, err)
		}
		blocks[n] = block
		f.logger.Info("Fetched block",
			zap.Uint64("number", n),
			zap.String("hash", block.Hash().Hex()),
			zap.Int("txs", block.Transactions().Len()))
	}

	// Header accumulator over the referenced headers, in block order.
	leaves := make([]common.Hash, len(blockNumbers))
	for i, n := range blockNumbers {
		leaves[i] = blocks[n].Header().Hash()
	}
	accumulator, err := mmr.Build(leaves)
	if err != nil {
		return nil, fmt.Errorf("failed to build header accumulator: %w", err)
	}

	input := &pipeline.BatchInput{
		Consensus: pipeline.ConsensusEvidence{
			PublicValues: model.EncodePublicValues(accumulator.LeafCount(), accumulator.Root()),
		},
	}

	for i, n := range blockNumbers {
		proof, err := accumulator.Proof(i)
		if err != nil {
			return nil, fmt.Errorf("failed to build accumulator proof for block %d: %w", n, err)
		}
		input.Headers = append(input.Headers, pipeline.HeaderEvidence{
			Header: blocks[n].Header(),
			Proof:  proof,
		})
	}

	// Per-order transaction inclusion evidence.
	for i, order := range orders {
		block := blocks[order.BlockNumber]
		txIndex, err := locateTransaction(block, claims[i].TxHash)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}

		root, proofNodes, err := TxInclusionProof(block.Transactions(), txIndex)
		if err != nil {
			return nil, fmt.Errorf("order %d: failed to build inclusion proof: %w", i, err)
		}
		if root != block.TxHash() {
			return nil, fmt.Errorf("order %d: rebuilt transaction trie root %s does not match header %s", i, root.Hex(), block.TxHash().Hex())
		}

		input.Transactions = append(input.Transactions, pipeline.TransactionEvidence{
			Order:      order,
			TxIndex:    txIndex,
			ProofNodes: proofNodes,
		})
	}

	return input, nil
}

func locateTransaction(block *types.Block, txHash common.Hash) (uint64, error) {
	for i, tx := range block.Transactions() {
		if tx.Hash() == txHash {
			return uint64(i), nil
		}
	}
	return 0, fmt.Errorf("transaction %s not found in block %d", txHash.Hex(), block.NumberU64())
}

func distinctBlockNumbers(orders []model.Order) []uint64 {
	seen := make(map[uint64]bool)
	var numbers []uint64
	for _, order := range orders {
		if !seen[order.BlockNumber] {
			seen[order.BlockNumber] = true
			numbers = append(numbers, order.BlockNumber)
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers
}
