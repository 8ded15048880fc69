package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/chains"
	"settlement/apps/settlement/internal/evidence"
	"settlement/apps/settlement/internal/model"
	"settlement/apps/settlement/internal/pipeline"
	"settlement/apps/settlement/internal/verifier"
)

// noopVerifier skips consensus proof verification. Only for local runs
// against trusted RPC endpoints.
type noopVerifier struct{}

func (noopVerifier) Verify(vkeyHash common.Hash, publicValues, proofBytes []byte) error {
	return nil
}

func main() {
	var (
		txsPath      = flag.String("txs", "txs.json", "path to the submitted transactions file")
		outPath      = flag.String("out", "proof.json", "path to write the proof bundle")
		rpcURL       = flag.String("rpc-url", "", "reference chain RPC endpoint (defaults to the chain registry lookup)")
		chainName    = flag.String("chain", "sepolia", "reference chain name")
		vkeyHashHex  = flag.String("vkey-hash", "", "settlement program verification key hash (hex)")
		lcVKeyPath   = flag.String("lc-vkey", "", "path to the light client Groth16 verifying key")
		lcVKeyHash   = flag.String("lc-vkey-hash", "", "light client verification key hash (hex)")
		lcProofPath  = flag.String("lc-proof", "", "path to the light client proof bytes")
		skipLCVerify = flag.Bool("skip-consensus-verify", false, "assemble and prove without checking the light client proof")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if err := run(logger, *txsPath, *outPath, *rpcURL, *chainName, *vkeyHashHex, *lcVKeyPath, *lcVKeyHash, *lcProofPath, *skipLCVerify); err != nil {
		logger.Fatal("Proving run failed", zap.Error(err))
	}
}

func run(logger *zap.Logger, txsPath, outPath, rpcURL, chainName, vkeyHashHex, lcVKeyPath, lcVKeyHash, lcProofPath string, skipLCVerify bool) error {
	registry := chains.NewChainRegistry()
	chain, ok := registry.GetByName(chainName)
	if !ok {
		return fmt.Errorf("unknown chain %q", chainName)
	}
	if rpcURL == "" {
		var err error
		rpcURL, err = chain.RPCURL()
		if err != nil {
			return err
		}
	}

	// Load the submitted transactions.
	txsBytes, err := os.ReadFile(txsPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", txsPath, err)
	}
	var submitted []model.SubmittedTransaction
	if err := json.Unmarshal(txsBytes, &submitted); err != nil {
		return fmt.Errorf("failed to parse %s: %w", txsPath, err)
	}
	logger.Info("Loaded submitted transactions", zap.Int("count", len(submitted)), zap.String("chain", chain.Name))

	// Assemble the pipeline input from chain state.
	fetcher, err := evidence.NewFetcher(rpcURL, logger)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	input, err := fetcher.AssembleBatch(ctx, submitted)
	if err != nil {
		return fmt.Errorf("failed to assemble batch: %w", err)
	}

	// Wire up the consensus verifier and the light client proof.
	var consensusVerifier verifier.ProofVerifier
	lightClientVKey := common.HexToHash(lcVKeyHash)
	if skipLCVerify {
		logger.Warn("Skipping light client proof verification")
		consensusVerifier = noopVerifier{}
	} else {
		if lcVKeyPath == "" || lcProofPath == "" {
			return fmt.Errorf("light client vkey and proof are required unless -skip-consensus-verify is set")
		}
		vkBytes, err := os.ReadFile(lcVKeyPath)
		if err != nil {
			return fmt.Errorf("failed to read light client vkey: %w", err)
		}
		consensusVerifier, err = verifier.NewGroth16Verifier(vkBytes, lightClientVKey, logger)
		if err != nil {
			return err
		}
		input.Consensus.Proof, err = os.ReadFile(lcProofPath)
		if err != nil {
			return fmt.Errorf("failed to read light client proof: %w", err)
		}
	}

	// Run the verification pipeline.
	result, err := pipeline.New(consensusVerifier, lightClientVKey, logger).Run(*input)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	logger.Info("Pipeline complete",
		zap.String("root", result.Root.Hex()),
		zap.Int("orders", len(result.OrderHashes)))

	// Group per-order proofs by the chain each order came from.
	proofsBySourceChain := make(map[string][]model.OrderProofJSON)
	for i, orderHash := range result.OrderHashes {
		proof, err := result.Tree.Proof(i)
		if err != nil {
			return fmt.Errorf("failed to build membership proof %d: %w", i, err)
		}
		nodes := make([]string, 0, len(proof))
		for _, node := range proof {
			nodes = append(nodes, node.Hex())
		}

		key := fmt.Sprintf("%d", submitted[i].SourceChainID)
		if source, ok := registry.GetByID(submitted[i].SourceChainID); ok {
			key = source.Name
		}
		proofsBySourceChain[key] = append(proofsBySourceChain[key], model.OrderProofJSON{
			Order:     submitted[i],
			OrderHash: orderHash.Hex(),
			Proof:     nodes,
			LeafIndex: i,
		})
	}

	// The settlement proof envelope binds the verification key hash.
	vkeyHash := common.HexToHash(vkeyHashHex)
	bundle := model.ProofBundle{
		Proof:               hexutil.Encode(append(vkeyHash.Bytes(), input.Consensus.Proof...)),
		PublicValues:        hexutil.Encode(result.PublicValues),
		VKey:                vkeyHash.Hex(),
		MerkleRoot:          result.Root.Hex(),
		ProofsBySourceChain: proofsBySourceChain,
	}

	out, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal proof bundle: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	logger.Info("Wrote proof bundle", zap.String("path", outPath))
	return nil
}
