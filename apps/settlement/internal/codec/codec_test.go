package codec

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"settlement/apps/settlement/internal/model"
)

// Shared regression vector: every execution environment must derive this
// exact digest for this order.
var regressionOrder = model.Order{
	SourceChainID:      84532,
	DestinationChainID: 11155111,
	Receiver:           common.HexToAddress("0x9eCD8e7Cf6b5360C1dA2E421BDd38b5F0bEdF758"),
	Amount:             big.NewInt(2500000000000000000),
	BlockNumber:        9452270,
}

const regressionDigest = "0x86ad1ee1ebf399222814ec2b026eafb4f46c6db6e11584202e0eb9399bd58884"

func TestEncodeLayout(t *testing.T) {
	encoded := Encode(regressionOrder)

	if len(encoded) != EncodedLen {
		t.Fatalf("Expected %d bytes, got %d", EncodedLen, len(encoded))
	}

	// Word 1: source chain id, big-endian in the last 8 bytes
	if got := new(big.Int).SetBytes(encoded[0:32]).Uint64(); got != 84532 {
		t.Errorf("Expected source chain id 84532, got %d", got)
	}

	// Word 2: destination chain id
	if got := new(big.Int).SetBytes(encoded[32:64]).Uint64(); got != 11155111 {
		t.Errorf("Expected destination chain id 11155111, got %d", got)
	}

	// Word 3: receiver left-padded to 32 bytes
	if !bytes.Equal(encoded[64:76], make([]byte, 12)) {
		t.Error("Expected 12 zero bytes of receiver padding")
	}
	if !bytes.Equal(encoded[76:96], regressionOrder.Receiver.Bytes()) {
		t.Error("Receiver bytes not at expected offset")
	}

	// Word 4: amount
	if got := new(big.Int).SetBytes(encoded[96:128]); got.Cmp(regressionOrder.Amount) != 0 {
		t.Errorf("Expected amount %s, got %s", regressionOrder.Amount, got)
	}

	// Word 5: block number
	if got := new(big.Int).SetBytes(encoded[128:160]).Uint64(); got != 9452270 {
		t.Errorf("Expected block number 9452270, got %d", got)
	}
}

func TestHashRegressionVector(t *testing.T) {
	if got := Hash(regressionOrder); got != common.HexToHash(regressionDigest) {
		t.Fatalf("Expected digest %s, got %s", regressionDigest, got.Hex())
	}
}

func TestHashDeterministic(t *testing.T) {
	first := Hash(regressionOrder)
	for i := 0; i < 10; i++ {
		if got := Hash(regressionOrder); got != first {
			t.Fatalf("Hash not deterministic: %s vs %s", first.Hex(), got.Hex())
		}
	}
}

func TestHashDistinguishesFields(t *testing.T) {
	base := regressionOrder
	baseHash := Hash(base)

	mutations := map[string]model.Order{
		"source_chain_id":      {SourceChainID: base.SourceChainID + 1, DestinationChainID: base.DestinationChainID, Receiver: base.Receiver, Amount: base.Amount, BlockNumber: base.BlockNumber},
		"destination_chain_id": {SourceChainID: base.SourceChainID, DestinationChainID: base.DestinationChainID + 1, Receiver: base.Receiver, Amount: base.Amount, BlockNumber: base.BlockNumber},
		"receiver":             {SourceChainID: base.SourceChainID, DestinationChainID: base.DestinationChainID, Receiver: common.HexToAddress("0x1234567890123456789012345678901234567890"), Amount: base.Amount, BlockNumber: base.BlockNumber},
		"amount":               {SourceChainID: base.SourceChainID, DestinationChainID: base.DestinationChainID, Receiver: base.Receiver, Amount: new(big.Int).Add(base.Amount, big.NewInt(1)), BlockNumber: base.BlockNumber},
		"block_number":         {SourceChainID: base.SourceChainID, DestinationChainID: base.DestinationChainID, Receiver: base.Receiver, Amount: base.Amount, BlockNumber: base.BlockNumber + 1},
	}

	for field, mutated := range mutations {
		t.Run(field, func(t *testing.T) {
			if Hash(mutated) == baseHash {
				t.Errorf("Mutating %s did not change the hash", field)
			}
		})
	}
}

func TestHashZeroValues(t *testing.T) {
	// Encoding is total: the zero order hashes without error too.
	zero := model.Order{Amount: big.NewInt(0)}
	if got := Hash(zero); got == (common.Hash{}) {
		t.Error("Zero order should not hash to the zero digest")
	}
}
