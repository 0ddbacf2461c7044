// Package mongo implements the store interface for MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/simpliance/lib/store"
)

const (
	database = "simpliance"
	addrCol  = "addresses"
	txCol    = "transactions"
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c *mgo.Client
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string) (*Mongo, error) {
	// get a client
	c, err := mgo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}
	// connect client
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	err = c.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	return &Mongo{c: c}, nil
}

// CloseMongo will close a database connection. Must be called at termination time.
func (m *Mongo) CloseMongo() error {
	return m.c.Disconnect(context.Background())
}

// GetAddress returns the cached record for the given address.
func (m *Mongo) GetAddress(ctx context.Context, address string) (store.Address, error) {
	var a store.Address

	col := m.c.Database(database).Collection(addrCol)

	err := col.FindOne(ctx, bson.M{"address": address}).Decode(&a)
	if errors.Is(err, mgo.ErrNoDocuments) {
		return a, store.ErrAddrNotFound
	}

	if err != nil {
		return a, fmt.Errorf("could not get address from db: %w", err)
	}

	return a, nil
}

// AddAddress inserts a new address record.
func (m *Mongo) AddAddress(ctx context.Context, a store.Address) error {
	col := m.c.Database(database).Collection(addrCol)

	if _, err := col.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("could not insert address in db: %w", err)
	}

	return nil
}

// UpdateAddress sets the balance and confirmed-transaction count of an existing address record.
func (m *Mongo) UpdateAddress(ctx context.Context, address string, balance int64, txCount int) error {
	col := m.c.Database(database).Collection(addrCol)

	res, err := col.UpdateOne(ctx,
		bson.M{"address": address}, // filter
		bson.D{ // update
			{
				Key: "$set", Value: bson.D{
					{Key: "balance", Value: balance},
					{Key: "transaction_count", Value: txCount},
				},
			},
		})
	if err != nil {
		return fmt.Errorf("could not update address in db: %w", err)
	}

	if res.MatchedCount == 0 {
		return store.ErrAddrNotFound
	}

	return nil
}

// GetTransaction returns the cached record for the given transaction hash.
func (m *Mongo) GetTransaction(ctx context.Context, hash string) (store.Transaction, error) {
	var tx store.Transaction

	col := m.c.Database(database).Collection(txCol)

	err := col.FindOne(ctx, bson.M{"hash": hash}).Decode(&tx)
	if errors.Is(err, mgo.ErrNoDocuments) {
		return tx, store.ErrTxNotFound
	}

	if err != nil {
		return tx, fmt.Errorf("could not get transaction from db: %w", err)
	}

	return tx, nil
}

// AddTransaction inserts a new transaction record.
func (m *Mongo) AddTransaction(ctx context.Context, tx store.Transaction) error {
	col := m.c.Database(database).Collection(txCol)

	if _, err := col.InsertOne(ctx, tx); err != nil {
		return fmt.Errorf("could not insert transaction in db: %w", err)
	}

	return nil
}
