// Package chain defines the interface required for upstream block-explorer connections.
package chain

import (
	"context"
	"errors"
	"time"
)

// Source is an interface over a block-explorer API. It has been designed to be as much standard as possible,
// however, there may be specific explorers that would require different types or more methods.
type Source interface {
	// AddressFull returns the live balance and transaction summaries of an address.
	AddressFull(ctx context.Context, address string) (AddressInfo, error)
	// Transaction returns the live details of a transaction by hash.
	Transaction(ctx context.Context, hash string) (TxInfo, error)
}

// TxSummary is the per-transaction slice of an address payload. Confirmed is nil for unconfirmed transactions.
type TxSummary struct {
	Hash      string     `json:"hash"`
	Confirmed *time.Time `json:"confirmed,omitempty"`
}

// AddressInfo is the full address payload of the explorer.
type AddressInfo struct {
	Address string      `json:"address"`
	Balance int64       `json:"balance"`
	Txs     []TxSummary `json:"txs"`
}

// ConfirmedTxs returns the number of confirmed transactions in the payload.
func (a AddressInfo) ConfirmedTxs() int {
	var n int

	for _, tx := range a.Txs {
		if tx.Confirmed != nil {
			n++
		}
	}

	return n
}

// TxInfo is the transaction payload of the explorer.
type TxInfo struct {
	Hash      string                   `json:"hash"`
	Fees      int64                    `json:"fees"`
	Confirmed time.Time                `json:"confirmed"`
	Inputs    []map[string]interface{} `json:"inputs"`
	Outputs   []map[string]interface{} `json:"outputs"`
}

// Error codes.
var (
	ErrNotFound = errors.New("object not found in upstream source")
	ErrUpstream = errors.New("upstream source replied an error")
)
