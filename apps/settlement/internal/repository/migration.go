package repository

import (
	"database/sql"
	"fmt"
)

// InitMigration initializes the database. In production, this would use a proper migration
// library like go-migrate
func InitMigration(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS order_records (
			order_hash VARCHAR(66) PRIMARY KEY,
			source_chain_id BIGINT NOT NULL,
			destination_chain_id BIGINT NOT NULL,
			receiver VARCHAR(42) NOT NULL,
			amount DECIMAL(78,0) NOT NULL,
			block_number BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'unsettled',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			settled_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_records_status ON order_records (status, created_at)`,
		`CREATE TABLE IF NOT EXISTS event_outbox (
			event_id UUID PRIMARY KEY,
			event_type VARCHAR(20) NOT NULL,
			order_hash VARCHAR(66) NOT NULL,
			chain_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'unsent',
			event_blob JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_outbox_status ON event_outbox (status, created_at)`,
		`CREATE TABLE IF NOT EXISTS settlement_feed (
			order_hash VARCHAR(66) NOT NULL,
			chain_id BIGINT NOT NULL,
			event_type VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL,
			observed_at TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (order_hash, chain_id)
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}
