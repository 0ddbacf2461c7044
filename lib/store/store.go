// Package store defines the interface for database implementations to the lookup microservice.
package store

import (
	"context"
	"errors"
)

// DB defines required methods for the lookup service
type DB interface {
	// address cache
	GetAddress(ctx context.Context, address string) (Address, error)
	AddAddress(ctx context.Context, a Address) error
	UpdateAddress(ctx context.Context, address string, balance int64, txCount int) error
	// transaction cache
	GetTransaction(ctx context.Context, hash string) (Transaction, error)
	AddTransaction(ctx context.Context, tx Transaction) error
}

// Errors returned
var (
	ErrAddrNotFound = errors.New("address was not found in store")
	ErrTxNotFound   = errors.New("transaction was not found in store")
)
