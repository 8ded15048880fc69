package events

import "time"

const (
	EventTypeNewOrder     = "new_order"
	EventTypeOrderSettled = "order_settled"
	EventTypeOrdersReset  = "orders_reset"
)

// OrderPayload carries the order fields on the wire. Amount is a decimal
// string so consumers never lose precision to float parsing.
type OrderPayload struct {
	SourceChainID      uint64 `json:"source_chain_id"`
	DestinationChainID uint64 `json:"destination_chain_id"`
	Receiver           string `json:"receiver"`
	Amount             string `json:"amount"`
	BlockNumber        uint64 `json:"block_number"`
}

// SettlementEvent is the message published to the settlement topic for every
// order lifecycle transition.
type SettlementEvent struct {
	EventType string        `json:"event_type"`
	OrderHash string        `json:"order_hash"`
	ChainID   uint64        `json:"chain_id"`
	Status    string        `json:"status"`
	Order     *OrderPayload `json:"order,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}
