// Package postgres implements the store interface for PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq" //nolint:gci // load the postgres driver that is used by the system

	"github.com/tarancss/simpliance/lib/store"
)

type Postgres struct {
	db *sql.DB
}

// New returns a postgres client connection to the specified database in 'connection'. The schema is created if it
// does not exist yet.
func New(connection string) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	p := &Postgres{db: db}
	if err = p.createSchema(); err != nil {
		return nil, err
	}

	return p, nil
}

// ClosePostgres will close any database connection. Must be called at termination time.
func (p *Postgres) ClosePostgres() error {
	return p.db.Close()
}

func (p *Postgres) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS addresses (
			address TEXT PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL DEFAULT now(),
			balance BIGINT NOT NULL,
			tx_count INTEGER NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			hash TEXT PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL DEFAULT now(),
			fees BIGINT NOT NULL,
			confirmed TIMESTAMPTZ,
			inputs JSONB,
			outputs JSONB)`,
	}
	for _, s := range stmts {
		if _, err := p.db.Exec(s); err != nil {
			return fmt.Errorf("cannot create schema: %w", err)
		}
	}

	return nil
}

// GetAddress returns the cached record for the given address.
func (p *Postgres) GetAddress(ctx context.Context, address string) (store.Address, error) {
	var a store.Address

	row := p.db.QueryRowContext(ctx,
		"SELECT address, ts, balance, tx_count FROM addresses WHERE address = $1", address)

	err := row.Scan(&a.Addr, &a.Timestamp, &a.Balance, &a.TxCount)
	if errors.Is(err, sql.ErrNoRows) {
		return a, store.ErrAddrNotFound
	}

	if err != nil {
		return a, fmt.Errorf("could not get address from db: %w", err)
	}

	return a, nil
}

// AddAddress inserts a new address record.
func (p *Postgres) AddAddress(ctx context.Context, a store.Address) error {
	_, err := p.db.ExecContext(ctx,
		"INSERT INTO addresses (address, ts, balance, tx_count) VALUES ($1, $2, $3, $4)",
		a.Addr, a.Timestamp, a.Balance, a.TxCount)
	if err != nil {
		return fmt.Errorf("could not insert address in db: %w", err)
	}

	return nil
}

// UpdateAddress sets the balance and confirmed-transaction count of an existing address record.
func (p *Postgres) UpdateAddress(ctx context.Context, address string, balance int64, txCount int) error {
	res, err := p.db.ExecContext(ctx,
		"UPDATE addresses SET balance = $2, tx_count = $3 WHERE address = $1", address, balance, txCount)
	if err != nil {
		return fmt.Errorf("could not update address in db: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrAddrNotFound
	}

	return nil
}

// GetTransaction returns the cached record for the given transaction hash.
func (p *Postgres) GetTransaction(ctx context.Context, hash string) (store.Transaction, error) {
	var tx store.Transaction

	var inputs, outputs []byte

	row := p.db.QueryRowContext(ctx,
		"SELECT hash, ts, fees, confirmed, inputs, outputs FROM transactions WHERE hash = $1", hash)

	err := row.Scan(&tx.Hash, &tx.Timestamp, &tx.Fees, &tx.Confirmed, &inputs, &outputs)
	if errors.Is(err, sql.ErrNoRows) {
		return tx, store.ErrTxNotFound
	}

	if err != nil {
		return tx, fmt.Errorf("could not get transaction from db: %w", err)
	}

	if len(inputs) > 0 {
		if err = json.Unmarshal(inputs, &tx.Inputs); err != nil {
			return tx, fmt.Errorf("could not decode transaction inputs: %w", err)
		}
	}

	if len(outputs) > 0 {
		if err = json.Unmarshal(outputs, &tx.Outputs); err != nil {
			return tx, fmt.Errorf("could not decode transaction outputs: %w", err)
		}
	}

	return tx, nil
}

// AddTransaction inserts a new transaction record.
func (p *Postgres) AddTransaction(ctx context.Context, tx store.Transaction) error {
	inputs, err := json.Marshal(tx.Inputs)
	if err != nil {
		return fmt.Errorf("could not encode transaction inputs: %w", err)
	}

	outputs, err := json.Marshal(tx.Outputs)
	if err != nil {
		return fmt.Errorf("could not encode transaction outputs: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		"INSERT INTO transactions (hash, ts, fees, confirmed, inputs, outputs) VALUES ($1, $2, $3, $4, $5, $6)",
		tx.Hash, tx.Timestamp, tx.Fees, tx.Confirmed, inputs, outputs)
	if err != nil {
		return fmt.Errorf("could not insert transaction in db: %w", err)
	}

	return nil
}
