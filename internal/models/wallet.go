package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// Transaction is an immutable wallet ledger entry. Reference is the
// idempotency key (normally the trip request id); Name is only a display
// label and is never used for matching.
type Transaction struct {
	ID        string          `json:"id" bson:"id"`
	Name      string          `json:"name" bson:"name"`
	Amount    int64           `json:"amount" bson:"amount"` // currency minor units
	Reference string          `json:"reference" bson:"reference"`
	Type      TransactionType `json:"type" bson:"type"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
}

// Wallet is one document per user in the "wallets" collection. Balance is
// the running sum of signed transaction amounts and must never go negative
// from a debit this service initiates. Transactions are keyed by
// transaction id; insertion order is irrelevant, display sorts by timestamp.
type Wallet struct {
	ID           primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	UserID       string                 `json:"user_id" bson:"userId"`
	Balance      int64                  `json:"balance" bson:"balance"` // currency minor units
	Transactions map[string]Transaction `json:"transactions" bson:"transactions"`
	// References duplicates every ledger entry's idempotency key in a flat
	// array so conditional writes can filter on it directly.
	References []string  `json:"-" bson:"references"`
	CreatedAt  time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updatedAt"`
}

// HasReference reports whether any ledger entry already carries the given
// idempotency reference.
func (w *Wallet) HasReference(ref string) bool {
	if ref == "" {
		return false
	}
	for _, r := range w.References {
		if r == ref {
			return true
		}
	}
	for _, tx := range w.Transactions {
		if tx.Reference == ref {
			return true
		}
	}
	return false
}

// SortedTransactions returns ledger entries ordered newest first.
func (w *Wallet) SortedTransactions() []Transaction {
	out := make([]Transaction, 0, len(w.Transactions))
	for _, tx := range w.Transactions {
		out = append(out, tx)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Timestamp.After(out[j-1].Timestamp); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
