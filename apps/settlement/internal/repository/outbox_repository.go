package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/events"
	"settlement/apps/settlement/internal/model"
)

type OutboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOutboxRepository(db *sql.DB, logger *zap.Logger) *OutboxRepository {
	return &OutboxRepository{db: db, logger: logger}
}

// Publish stores a settlement event in the outbox. The event publisher drains
// the outbox to Kafka asynchronously, so a broker outage never blocks the
// state machine.
func (o *OutboxRepository) Publish(event events.SettlementEvent) error {
	blob, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = o.db.Exec(`
		INSERT INTO event_outbox (event_id, event_type, order_hash, chain_id, status, event_blob, created_at)
		VALUES ($1, $2, $3, $4, 'unsent', $5, $6)
	`, uuid.New().String(), event.EventType, event.OrderHash, event.ChainID, blob, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("failed to store outbox event: %w", err)
	}

	o.logger.Info("Stored event", zap.String("event_type", event.EventType), zap.String("order_hash", event.OrderHash))
	return nil
}

func (o *OutboxRepository) GetUnsentEventsForProcessing(limit int) ([]model.OutboxEvent, error) {
	// Use a transaction to ensure atomicity
	tx, err := o.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	// Select and lock unsent events for processing
	rows, err := tx.Query(`
		SELECT event_id, event_type, order_hash, chain_id, status, event_blob, created_at
		FROM event_outbox
		WHERE status = 'unsent'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outboxEvents []model.OutboxEvent
	for rows.Next() {
		var event model.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.EventType, &event.OrderHash,
			&event.ChainID, &event.Status, &event.EventBlob, &event.CreatedAt); err != nil {
			return nil, err
		}
		outboxEvents = append(outboxEvents, event)
	}
	rows.Close()

	// Mark selected events as 'processing' to prevent other threads from picking them up
	for _, event := range outboxEvents {
		_, err = tx.Exec(`
			UPDATE event_outbox
			SET status = 'processing'
			WHERE event_id = $1 AND status = 'unsent'
		`, event.EventID)
		if err != nil {
			return nil, err
		}
	}

	// Commit the transaction
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return outboxEvents, nil
}

func (o *OutboxRepository) MarkEventAsSent(eventID string) error {
	_, err := o.db.Exec(`
		UPDATE event_outbox
		SET status = 'sent'
		WHERE event_id = $1
	`, eventID)
	return err
}

func (o *OutboxRepository) MarkEventAsFailed(eventID string) error {
	_, err := o.db.Exec(`
		UPDATE event_outbox
		SET status = 'unsent'
		WHERE event_id = $1 AND status = 'processing'
	`, eventID)
	return err
}
