package store

import "time"

// Address contains the cached balance and confirmed-transaction count of a Bitcoin address.
type Address struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Addr      string    `json:"address" bson:"address"`
	Balance   int64     `json:"balance" bson:"balance"`
	TxCount   int       `json:"transaction_count" bson:"transaction_count"`
}

// Transaction contains the cached details of a Bitcoin transaction. Inputs and Outputs are kept as free-form
// documents, the upstream explorer owns their schema.
type Transaction struct {
	Timestamp time.Time                `json:"timestamp" bson:"timestamp"`
	Hash      string                   `json:"hash" bson:"hash"`
	Fees      int64                    `json:"fees" bson:"fees"`
	Confirmed time.Time                `json:"confirmed" bson:"confirmed"`
	Inputs    []map[string]interface{} `json:"inputs" bson:"inputs"`
	Outputs   []map[string]interface{} `json:"outputs" bson:"outputs"`
}
