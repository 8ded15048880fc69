package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/codec"
	"settlement/apps/settlement/internal/events"
	"settlement/apps/settlement/internal/merkle"
	"settlement/apps/settlement/internal/model"
	"settlement/apps/settlement/internal/verifier"
)

// Sentinel errors for the order lifecycle. Callers map these to responses.
var (
	ErrChainMismatch           = errors.New("order does not originate from this chain")
	ErrDuplicateOrder          = errors.New("order already exists")
	ErrUnknownOrder            = errors.New("order not found")
	ErrVerificationKeyMismatch = errors.New("verification key mismatch")
	ErrInvalidProof            = errors.New("invalid settlement proof")
	ErrInvalidMembershipProof  = errors.New("invalid order membership proof")
)

// proofEnvelopeHeaderLen is the length of the verification key hash prefixed
// to the raw proof bytes inside a settlement call.
const proofEnvelopeHeaderLen = 32

// OrderStore is the persistence boundary of the engine. GetByHash returns
// (nil, nil) when no record exists. MarkSettled applies its full set of
// changes in one transaction or not at all. MarkUnsettled skips hashes with
// no record and reports how many records it touched.
type OrderStore interface {
	GetByHash(orderHash string) (*model.OrderRecord, error)
	Insert(record model.OrderRecord) error
	MarkSettled(orderHashes []string, settledAt time.Time) error
	MarkUnsettled(orderHashes []string) (int64, error)
}

// NotificationSink receives one event per order lifecycle transition. The
// engine treats delivery as best effort: a sink failure is logged, never
// propagated, because the state change has already committed.
type NotificationSink interface {
	Publish(event events.SettlementEvent) error
}

// Engine is the chain-local settlement state machine. One instance serves one
// chain id; orders that originate elsewhere are rejected at submission.
type Engine struct {
	chainID  uint64
	vkeyHash common.Hash
	verifier verifier.ProofVerifier
	store    OrderStore
	sink     NotificationSink
	logger   *zap.Logger
}

func NewEngine(chainID uint64, vkeyHash common.Hash, v verifier.ProofVerifier, store OrderStore, sink NotificationSink, logger *zap.Logger) *Engine {
	return &Engine{
		chainID:  chainID,
		vkeyHash: vkeyHash,
		verifier: v,
		store:    store,
		sink:     sink,
		logger:   logger,
	}
}

// SubmitOrder registers an order originating on this chain and returns its
// hash. The hash is the record key, so resubmitting the same five fields is
// rejected as a duplicate.
func (e *Engine) SubmitOrder(order model.Order) (common.Hash, error) {
	if order.SourceChainID != e.chainID {
		return common.Hash{}, fmt.Errorf("%w: order originates from chain %d, engine serves chain %d",
			ErrChainMismatch, order.SourceChainID, e.chainID)
	}

	orderHash := codec.Hash(order)
	existing, err := e.store.GetByHash(orderHash.Hex())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to look up order %s: %w", orderHash.Hex(), err)
	}
	if existing != nil {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrDuplicateOrder, orderHash.Hex())
	}

	record := model.OrderRecord{
		OrderHash:          orderHash.Hex(),
		SourceChainID:      order.SourceChainID,
		DestinationChainID: order.DestinationChainID,
		Receiver:           order.Receiver.Hex(),
		Amount:             order.Amount.String(),
		BlockNumber:        order.BlockNumber,
		Status:             model.StatusUnsettled,
		CreatedAt:          time.Now().UTC(),
	}
	if err := e.store.Insert(record); err != nil {
		return common.Hash{}, fmt.Errorf("failed to insert order %s: %w", orderHash.Hex(), err)
	}

	e.publish(events.SettlementEvent{
		EventType: events.EventTypeNewOrder,
		OrderHash: record.OrderHash,
		ChainID:   e.chainID,
		Status:    record.Status,
		Order: &events.OrderPayload{
			SourceChainID:      record.SourceChainID,
			DestinationChainID: record.DestinationChainID,
			Receiver:           record.Receiver,
			Amount:             record.Amount,
			BlockNumber:        record.BlockNumber,
		},
		Timestamp: time.Now().UTC(),
	})

	e.logger.Info("Order submitted",
		zap.String("order_hash", record.OrderHash),
		zap.Uint64("source_chain_id", record.SourceChainID),
		zap.String("amount", record.Amount))

	return orderHash, nil
}

// SettleOrders verifies the settlement proof and marks every listed order
// settled. The call is all or nothing: every order is validated against the
// proven root before any status changes, so one bad membership proof leaves
// the whole batch unsettled.
//
// proofBytes carries a 32-byte verification key hash followed by the raw
// proof. A key hash that differs from the engine's is reported as
// ErrVerificationKeyMismatch before any cryptographic work happens.
func (e *Engine) SettleOrders(proofBytes, publicValues []byte, orderProofs []model.OrderProof) error {
	if len(orderProofs) == 0 {
		return fmt.Errorf("%w: no orders in settlement call", ErrInvalidProof)
	}
	if len(proofBytes) < proofEnvelopeHeaderLen {
		return fmt.Errorf("%w: proof too short to carry a verification key hash", ErrInvalidProof)
	}
	envelopeVKey := common.BytesToHash(proofBytes[:proofEnvelopeHeaderLen])
	if envelopeVKey != e.vkeyHash {
		return fmt.Errorf("%w: proof bound to %s, engine expects %s",
			ErrVerificationKeyMismatch, envelopeVKey.Hex(), e.vkeyHash.Hex())
	}

	if err := e.verifier.Verify(envelopeVKey, publicValues, proofBytes[proofEnvelopeHeaderLen:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	root, err := model.RootFromPublicValues(publicValues)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	// Validate every order before touching any record.
	records := make([]*model.OrderRecord, len(orderProofs))
	for i, op := range orderProofs {
		record, err := e.store.GetByHash(op.OrderHash.Hex())
		if err != nil {
			return fmt.Errorf("failed to look up order %s: %w", op.OrderHash.Hex(), err)
		}
		if record == nil {
			return fmt.Errorf("%w: %s", ErrUnknownOrder, op.OrderHash.Hex())
		}
		if !merkle.Verify(op.OrderHash, op.Proof, root) {
			return fmt.Errorf("%w: order %s not in proven root %s",
				ErrInvalidMembershipProof, op.OrderHash.Hex(), root.Hex())
		}
		records[i] = record
	}

	settledAt := time.Now().UTC()
	orderHashes := make([]string, len(records))
	for i, record := range records {
		orderHashes[i] = record.OrderHash
	}
	if err := e.store.MarkSettled(orderHashes, settledAt); err != nil {
		return fmt.Errorf("failed to mark orders settled: %w", err)
	}

	for _, record := range records {
		e.publish(events.SettlementEvent{
			EventType: events.EventTypeOrderSettled,
			OrderHash: record.OrderHash,
			ChainID:   e.chainID,
			Status:    model.StatusSettled,
			Timestamp: settledAt,
		})
	}

	e.logger.Info("Orders settled",
		zap.Int("count", len(orderHashes)),
		zap.String("root", root.Hex()))

	return nil
}

// ResetOrders moves each listed order back to unsettled and returns the
// number of records touched. Hashes with no record are skipped. The
// operation is deliberately unauthenticated: settling again requires a
// fresh valid proof, so a reset costs an attacker nothing but gas.
func (e *Engine) ResetOrders(orderHashes []string) (int64, error) {
	count, err := e.store.MarkUnsettled(orderHashes)
	if err != nil {
		return 0, fmt.Errorf("failed to reset orders: %w", err)
	}

	now := time.Now().UTC()
	for _, orderHash := range orderHashes {
		record, err := e.store.GetByHash(orderHash)
		if err != nil || record == nil {
			continue
		}
		e.publish(events.SettlementEvent{
			EventType: events.EventTypeOrdersReset,
			OrderHash: orderHash,
			ChainID:   e.chainID,
			Status:    model.StatusUnsettled,
			Timestamp: now,
		})
	}

	e.logger.Info("Orders reset", zap.Int("requested", len(orderHashes)), zap.Int64("count", count))
	return count, nil
}

// HashOrder computes the canonical order hash without touching state.
func (e *Engine) HashOrder(order model.Order) common.Hash {
	return codec.Hash(order)
}

// OrderStatus returns the stored record for an order hash.
func (e *Engine) OrderStatus(orderHash string) (*model.OrderRecord, error) {
	record, err := e.store.GetByHash(orderHash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order %s: %w", orderHash, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, orderHash)
	}
	return record, nil
}

// VerificationKey returns the verification key hash the engine settles
// against.
func (e *Engine) VerificationKey() common.Hash {
	return e.vkeyHash
}

func (e *Engine) publish(event events.SettlementEvent) {
	if err := e.sink.Publish(event); err != nil {
		e.logger.Error("Failed to publish settlement event",
			zap.String("event_type", event.EventType),
			zap.String("order_hash", event.OrderHash),
			zap.Error(err))
	}
}
