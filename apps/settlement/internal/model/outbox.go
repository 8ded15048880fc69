package model

import (
	"encoding/json"
	"time"
)

type OutboxEvent struct {
	EventID   string          `db:"event_id"`
	EventType string          `db:"event_type"`
	OrderHash string          `db:"order_hash"`
	ChainID   uint64          `db:"chain_id"`
	Status    string          `db:"status"`
	EventBlob json.RawMessage `db:"event_blob"`
	CreatedAt time.Time       `db:"created_at"`
}
