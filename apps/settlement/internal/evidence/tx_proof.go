package evidence

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
)

// proofList collects trie proof nodes in traversal order.
type proofList [][]byte

func (p *proofList) Put(key []byte, value []byte) error {
	*p = append(*p, value)
	return nil
}

func (p *proofList) Delete(key []byte) error {
	return errors.New("not supported")
}

// TxInclusionProof rebuilds the block's transaction trie and produces the
// inclusion proof for the transaction at the given index. The returned root
// must equal the block header's transactions root; callers should treat a
// mismatch as corrupt RPC data.
func TxInclusionProof(txs types.Transactions, index uint64) (common.Hash, [][]byte, error) {
	if index >= uint64(txs.Len()) {
		return common.Hash{}, nil, fmt.Errorf("transaction index %d out of range [0, %d)", index, txs.Len())
	}

	tr := trie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
	for i := 0; i < txs.Len(); i++ {
		key, err := rlp.EncodeToBytes(uint64(i))
		if err != nil {
			return common.Hash{}, nil, fmt.Errorf("failed to encode key %d: %w", i, err)
		}
		value, err := txs[i].MarshalBinary()
		if err != nil {
			return common.Hash{}, nil, fmt.Errorf("failed to encode transaction %d: %w", i, err)
		}
		if err := tr.Update(key, value); err != nil {
			return common.Hash{}, nil, fmt.Errorf("failed to insert transaction %d: %w", i, err)
		}
	}

	key, err := rlp.EncodeToBytes(index)
	if err != nil {
		return common.Hash{}, nil, fmt.Errorf("failed to encode proof key: %w", err)
	}

	var proof proofList
	if err := tr.Prove(key, &proof); err != nil {
		return common.Hash{}, nil, fmt.Errorf("failed to build inclusion proof: %w", err)
	}

	return tr.Hash(), proof, nil
}
