// Package msg defines the interface for different message brokers.
package msg

import (
	"sync"
	"time"
)

// Kinds of store event.
const (
	ADDRESS = "address"
	TX      = "transaction"
)

// StoreEvent is published whenever the service inserts or updates a cached record, so other services can follow
// cache activity in real time.
type StoreEvent struct {
	Kind    string    `json:"kind"`    // kind of record, address or transaction
	Key     string    `json:"key"`     // address string or transaction hash
	New     bool      `json:"new"`     // true on insert, false on update
	Balance int64     `json:"balance"` // address balance, 0 for transactions
	TxCount int       `json:"txcount"` // confirmed-transaction count, 0 for transactions
	TS      time.Time `json:"ts"`
}

type MsgBroker interface {
	Setup(interface{}) error
	Close() error

	// SendStoreEvent publishes a store event.
	SendStoreEvent(ev StoreEvent) error
	// GetStoreEvents consumes store events pushing them to the returned channel.
	GetStoreEvents(consumer string, mut *sync.Mutex) (<-chan StoreEvent, <-chan error, error)
}
