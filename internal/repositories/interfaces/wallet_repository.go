package interfaces

import (
	"context"

	"swiftride/internal/models"
)

// WalletRepository is the store contract for per-user wallets. Debits and
// credits are single conditional writes: the balance check, the idempotency
// check and the ledger append commit atomically, so concurrent attempts
// serialize at the store instead of racing an optimistic read.
type WalletRepository interface {
	// GetOrCreate returns the user's wallet, creating it with the seed
	// balance on first access.
	GetOrCreate(ctx context.Context, userID string, seedBalance int64) (*models.Wallet, error)

	// ApplyDebit appends a debit entry and decrements the balance iff
	// balance >= amount and no entry with the same reference exists.
	// Returns ErrInsufficientBalance or ErrAlreadyProcessed accordingly.
	ApplyDebit(ctx context.Context, userID string, tx models.Transaction) error

	// ApplyCredit appends a credit entry and increments the balance.
	// Credits have no balance floor but share the reference idempotency
	// check; a duplicate returns ErrAlreadyProcessed.
	ApplyCredit(ctx context.Context, userID string, tx models.Transaction) error
}
