// Package codec defines the canonical byte encoding and hash of an order.
//
// Every settling chain derives the same 32-byte identity for the same
// logical order without sharing code, so the layout is frozen: five 32-byte
// big-endian words in declaration order, hashed with Keccak-256. This
// matches Solidity's keccak256(abi.encode(order)) for the equivalent struct.
package codec

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"settlement/apps/settlement/internal/model"
)

// EncodedLen is the fixed size of an encoded order.
const EncodedLen = 5 * 32

// Encode serializes an order as five 32-byte big-endian words: source chain
// id, destination chain id, receiver (left-padded from 20 bytes), amount,
// block number. Encoding is total; it cannot fail.
func Encode(order model.Order) []byte {
	buf := make([]byte, 0, EncodedLen)
	buf = appendUint64Word(buf, order.SourceChainID)
	buf = appendUint64Word(buf, order.DestinationChainID)
	buf = append(buf, common.LeftPadBytes(order.Receiver.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(order.Amount.Bytes(), 32)...)
	buf = appendUint64Word(buf, order.BlockNumber)
	return buf
}

// Hash computes the Keccak-256 digest of the canonical encoding. The digest
// is the order's sole identity wherever it is stored or proven.
func Hash(order model.Order) common.Hash {
	return crypto.Keccak256Hash(Encode(order))
}

func appendUint64Word(buf []byte, v uint64) []byte {
	var word [32]byte
	word[24] = byte(v >> 56)
	word[25] = byte(v >> 48)
	word[26] = byte(v >> 40)
	word[27] = byte(v >> 32)
	word[28] = byte(v >> 24)
	word[29] = byte(v >> 16)
	word[30] = byte(v >> 8)
	word[31] = byte(v)
	return append(buf, word[:]...)
}
