package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/model"
)

type OrderRecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRecordRepository(db *sql.DB, logger *zap.Logger) *OrderRecordRepository {
	return &OrderRecordRepository{db: db, logger: logger}
}

// GetByHash returns the record for an order hash, or (nil, nil) when no such
// order exists.
func (o *OrderRecordRepository) GetByHash(orderHash string) (*model.OrderRecord, error) {
	var record model.OrderRecord
	err := o.db.QueryRow(`
		SELECT order_hash, source_chain_id, destination_chain_id, receiver, amount, block_number, status, created_at, settled_at
		FROM order_records
		WHERE order_hash = $1
	`, orderHash).Scan(&record.OrderHash, &record.SourceChainID, &record.DestinationChainID,
		&record.Receiver, &record.Amount, &record.BlockNumber, &record.Status, &record.CreatedAt, &record.SettledAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderHash, err)
	}

	return &record, nil
}

func (o *OrderRecordRepository) Insert(record model.OrderRecord) error {
	_, err := o.db.Exec(`
		INSERT INTO order_records (order_hash, source_chain_id, destination_chain_id, receiver, amount, block_number, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.OrderHash, record.SourceChainID, record.DestinationChainID, record.Receiver,
		record.Amount, record.BlockNumber, record.Status, record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert order %s: %w", record.OrderHash, err)
	}

	o.logger.Info("Stored order", zap.String("order_hash", record.OrderHash), zap.String("amount", record.Amount))
	return nil
}

// MarkSettled flips the given orders to settled inside one transaction. If
// any listed order is missing the whole update rolls back.
func (o *OrderRecordRepository) MarkSettled(orderHashes []string, settledAt time.Time) error {
	tx, err := o.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	result, err := tx.Exec(`
		UPDATE order_records
		SET status = $1, settled_at = $2
		WHERE order_hash = ANY($3)
	`, model.StatusSettled, settledAt, pq.Array(orderHashes))
	if err != nil {
		return fmt.Errorf("failed to mark orders settled: %w", err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if updated != int64(len(orderHashes)) {
		return fmt.Errorf("expected to settle %d orders, matched %d", len(orderHashes), updated)
	}

	return tx.Commit()
}

// MarkUnsettled moves the listed orders back to unsettled and returns the
// number of rows touched. Hashes with no record are skipped.
func (o *OrderRecordRepository) MarkUnsettled(orderHashes []string) (int64, error) {
	result, err := o.db.Exec(`
		UPDATE order_records
		SET status = $1, settled_at = NULL
		WHERE order_hash = ANY($2)
	`, model.StatusUnsettled, pq.Array(orderHashes))
	if err != nil {
		return 0, fmt.Errorf("failed to reset orders: %w", err)
	}

	return result.RowsAffected()
}
