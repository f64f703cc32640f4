// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// OrderClaimedEvent is published when a manager claims an order by
// leaving its first comment. It carries enough information for
// downstream consumers to log or notify without querying the primary
// database.
type OrderClaimedEvent struct {
	OrderID      uint64 `json:"order_id"`
	ManagerID    uint64 `json:"manager_id"`
	ManagerEmail string `json:"manager_email"`
	Status       string `json:"status"`
	ClaimedAt    string `json:"claimed_at"`
}
