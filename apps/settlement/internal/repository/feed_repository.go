package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"settlement/apps/settlement/internal/model"
)

type FeedRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewFeedRepository(db *sql.DB, logger *zap.Logger) *FeedRepository {
	return &FeedRepository{db: db, logger: logger}
}

// Upsert records the latest observed lifecycle state for an order. The feed
// is rebuilt from the event stream, so replays just overwrite.
func (f *FeedRepository) Upsert(entry model.FeedEntry) error {
	_, err := f.db.Exec(`
		INSERT INTO settlement_feed (order_hash, chain_id, event_type, status, observed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_hash, chain_id) DO UPDATE SET
			event_type = EXCLUDED.event_type,
			status = EXCLUDED.status,
			observed_at = EXCLUDED.observed_at
	`, entry.OrderHash, entry.ChainID, entry.EventType, entry.Status, entry.ObservedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert feed entry for %s: %w", entry.OrderHash, err)
	}

	return nil
}

// GetByOrderHash returns all feed rows for an order across chains.
func (f *FeedRepository) GetByOrderHash(orderHash string) ([]model.FeedEntry, error) {
	rows, err := f.db.Query(`
		SELECT order_hash, chain_id, event_type, status, observed_at
		FROM settlement_feed
		WHERE order_hash = $1
		ORDER BY chain_id
	`, orderHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed for %s: %w", orderHash, err)
	}
	defer rows.Close()

	var entries []model.FeedEntry
	for rows.Next() {
		var entry model.FeedEntry
		if err := rows.Scan(&entry.OrderHash, &entry.ChainID, &entry.EventType, &entry.Status, &entry.ObservedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
