package pipeline_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/codec"
	"settlement/apps/settlement/internal/evidence"
	"settlement/apps/settlement/internal/merkle"
	"settlement/apps/settlement/internal/mmr"
	"settlement/apps/settlement/internal/model"
	"settlement/apps/settlement/internal/pipeline"
)

var lightClientVKey = crypto.Keccak256Hash([]byte("light-client-program"))

// stubVerifier stands in for the succinct-proof collaborator.
type stubVerifier struct {
	err   error
	calls int
}

func (s *stubVerifier) Verify(vkeyHash common.Hash, publicValues, proofBytes []byte) error {
	s.calls++
	return s.err
}

// batchFixture holds a fully valid two-order batch: one order per block.
type batchFixture struct {
	input  pipeline.BatchInput
	orders []model.Order
}

func buildFixture(t *testing.T) *batchFixture {
	t.Helper()

	orders := []model.Order{
		{
			SourceChainID:      84532,
			DestinationChainID: 11155111,
			Receiver:           common.HexToAddress("0x9eCD8e7Cf6b5360C1dA2E421BDd38b5F0bEdF758"),
			Amount:             big.NewInt(2500000000000000000),
			BlockNumber:        9452270,
		},
		{
			SourceChainID:      84532,
			DestinationChainID: 11155111,
			Receiver:           common.HexToAddress("0x1234567890123456789012345678901234567890"),
			Amount:             big.NewInt(1000000000000000000),
			BlockNumber:        9452271,
		},
	}

	fixture := &batchFixture{orders: orders}

	headers := make([]*types.Header, len(orders))
	txEvidence := make([]pipeline.TransactionEvidence, len(orders))
	for i, order := range orders {
		receiver := order.Receiver
		txs := types.Transactions{types.NewTx(&types.DynamicFeeTx{
			ChainID:   new(big.Int).SetUint64(order.DestinationChainID),
			Nonce:     uint64(i),
			GasTipCap: big.NewInt(1),
			GasFeeCap: big.NewInt(100),
			Gas:       21000,
			To:        &receiver,
			Value:     order.Amount,
		})}

		root, proofNodes, err := evidence.TxInclusionProof(txs, 0)
		if err != nil {
			t.Fatalf("Failed to build tx proof: %v", err)
		}

		headers[i] = &types.Header{
			ParentHash: crypto.Keccak256Hash([]byte{byte(i)}),
			Number:     new(big.Int).SetUint64(order.BlockNumber),
			Difficulty: big.NewInt(0),
			TxHash:     root,
			GasLimit:   30_000_000,
			Time:       1_700_000_000 + uint64(i),
		}

		txEvidence[i] = pipeline.TransactionEvidence{
			Order:      order,
			TxIndex:    0,
			ProofNodes: proofNodes,
		}
	}

	leaves := make([]common.Hash, len(headers))
	for i, h := range headers {
		leaves[i] = h.Hash()
	}
	accumulator, err := mmr.Build(leaves)
	if err != nil {
		t.Fatalf("Failed to build accumulator: %v", err)
	}

	fixture.input = pipeline.BatchInput{
		Consensus: pipeline.ConsensusEvidence{
			Proof:        []byte("recursive-proof-bytes"),
			PublicValues: model.EncodePublicValues(accumulator.LeafCount(), accumulator.Root()),
		},
		Transactions: txEvidence,
	}
	for i, h := range headers {
		proof, err := accumulator.Proof(i)
		if err != nil {
			t.Fatalf("Failed to build accumulator proof: %v", err)
		}
		fixture.input.Headers = append(fixture.input.Headers, pipeline.HeaderEvidence{Header: h, Proof: proof})
	}

	return fixture
}

func TestRunEmitsExpectedRoot(t *testing.T) {
	fixture := buildFixture(t)
	v := &stubVerifier{}
	p := pipeline.New(v, lightClientVKey, zap.NewNop())

	result, err := p.Run(fixture.input)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if v.calls != 1 {
		t.Errorf("Expected one consensus verification, got %d", v.calls)
	}

	// Cross-implementation regression root for this two-order batch.
	want := common.HexToHash("0x189644e4b0f27c322988d9fb6d3d4a3693824b0b43f297cf4531f38fe53bad9f")
	if result.Root != want {
		t.Errorf("Root mismatch: got %s, want %s", result.Root.Hex(), want.Hex())
	}

	gotRoot, err := model.RootFromPublicValues(result.PublicValues)
	if err != nil {
		t.Fatalf("Failed to read public values: %v", err)
	}
	if gotRoot != result.Root {
		t.Error("Public values root does not match the emitted root")
	}
	count, err := model.CountFromPublicValues(result.PublicValues)
	if err != nil {
		t.Fatalf("Failed to read public values count: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected order count 2 in public values, got %d", count)
	}

	// Every order hash must be provable against the emitted root.
	for i, order := range fixture.orders {
		proof, err := result.Tree.Proof(i)
		if err != nil {
			t.Fatalf("Proof(%d) failed: %v", i, err)
		}
		if !merkle.Verify(codec.Hash(order), proof, result.Root) {
			t.Errorf("Order %d not provable against the emitted root", i)
		}
	}
}

func TestRunEmptyBatchRejected(t *testing.T) {
	p := pipeline.New(&stubVerifier{}, lightClientVKey, zap.NewNop())
	if _, err := p.Run(pipeline.BatchInput{}); !errors.Is(err, pipeline.ErrEmptyBatch) {
		t.Fatalf("Expected ErrEmptyBatch, got %v", err)
	}
}

func TestRunConsensusRejectionAborts(t *testing.T) {
	fixture := buildFixture(t)
	v := &stubVerifier{err: errors.New("bad recursive proof")}
	p := pipeline.New(v, lightClientVKey, zap.NewNop())

	if _, err := p.Run(fixture.input); err == nil {
		t.Fatal("Expected consensus admission failure to abort the run")
	}
}

func TestRunCorruptHeaderProofAborts(t *testing.T) {
	fixture := buildFixture(t)
	fixture.input.Headers[1].Proof.Peaks[0][0] ^= 0x01

	p := pipeline.New(&stubVerifier{}, lightClientVKey, zap.NewNop())
	if _, err := p.Run(fixture.input); err == nil {
		t.Fatal("Expected corrupt header proof to abort the run")
	}
}

func TestRunCorruptTxProofAborts(t *testing.T) {
	fixture := buildFixture(t)
	nodes := fixture.input.Transactions[0].ProofNodes
	nodes[len(nodes)-1][0] ^= 0x01

	p := pipeline.New(&stubVerifier{}, lightClientVKey, zap.NewNop())
	if _, err := p.Run(fixture.input); err == nil {
		t.Fatal("Expected corrupt transaction proof to abort the run")
	}
}

func TestRunSemanticMismatchAborts(t *testing.T) {
	mutations := map[string]func(*model.Order){
		"amount":      func(o *model.Order) { o.Amount = new(big.Int).Add(o.Amount, big.NewInt(1)) },
		"receiver":    func(o *model.Order) { o.Receiver = common.HexToAddress("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef") },
		"destination": func(o *model.Order) { o.DestinationChainID++ },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			fixture := buildFixture(t)
			mutate(&fixture.input.Transactions[1].Order)

			p := pipeline.New(&stubVerifier{}, lightClientVKey, zap.NewNop())
			if _, err := p.Run(fixture.input); err == nil {
				t.Fatal("Expected semantic mismatch to abort the run")
			}
		})
	}
}

func TestRunMissingHeaderAborts(t *testing.T) {
	fixture := buildFixture(t)
	fixture.input.Transactions[0].Order.BlockNumber = 1 // no admitted header for block 1

	p := pipeline.New(&stubVerifier{}, lightClientVKey, zap.NewNop())
	if _, err := p.Run(fixture.input); err == nil {
		t.Fatal("Expected missing header to abort the run")
	}
}
