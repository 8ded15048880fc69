package model

import (
	"time"
)

// OrderRecord is the chain-local persistent state for one submitted order.
// The record is keyed by the order hash; submission is the only insertion
// path and the status only ever moves between "unsettled" and "settled".
type OrderRecord struct {
	OrderHash          string     `db:"order_hash"`
	SourceChainID      uint64     `db:"source_chain_id"`
	DestinationChainID uint64     `db:"destination_chain_id"`
	Receiver           string     `db:"receiver"`
	Amount             string     `db:"amount"`
	BlockNumber        uint64     `db:"block_number"`
	Status             string     `db:"status"` // "unsettled" or "settled"
	CreatedAt          time.Time  `db:"created_at"`
	SettledAt          *time.Time `db:"settled_at"` // nullable field
}

// FeedEntry is a row of the materialized settlement feed, built from the
// event stream. Observational only; never consulted by the state machine.
type FeedEntry struct {
	OrderHash   string    `db:"order_hash"`
	ChainID     uint64    `db:"chain_id"`
	EventType   string    `db:"event_type"`
	Status      string    `db:"status"`
	ObservedAt  time.Time `db:"observed_at"`
}
