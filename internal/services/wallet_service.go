package services

import (
	"context"
	"time"

	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"
	"swiftride/pkg/logger"

	"github.com/google/uuid"
)

// WalletService wraps the wallet store with ledger-entry construction. The
// balance floor and idempotency live in the store's conditional writes; this
// layer only shapes transactions and logs outcomes.
type WalletService struct {
	wallets     interfaces.WalletRepository
	seedBalance int64
	log         *logger.Logger
}

func NewWalletService(wallets interfaces.WalletRepository, seedBalance int64, log *logger.Logger) *WalletService {
	return &WalletService{
		wallets:     wallets,
		seedBalance: seedBalance,
		log:         log,
	}
}

// GetWallet returns the user's wallet, creating it with the seed balance on
// first access.
func (s *WalletService) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	return s.wallets.GetOrCreate(ctx, userID, s.seedBalance)
}

// Debit charges the wallet. Reference is the idempotency key: a repeat call
// with the same reference returns ErrAlreadyProcessed and applies nothing.
func (s *WalletService) Debit(ctx context.Context, userID string, amount int64, label, reference string) error {
	if _, err := s.wallets.GetOrCreate(ctx, userID, s.seedBalance); err != nil {
		return err
	}
	tx := models.Transaction{
		ID:        uuid.NewString(),
		Name:      label,
		Amount:    amount,
		Reference: reference,
		Type:      models.TransactionTypeDebit,
		Timestamp: time.Now(),
	}
	if err := s.wallets.ApplyDebit(ctx, userID, tx); err != nil {
		s.log.WithUserID(userID).WithError(err).Warn("wallet debit rejected")
		return err
	}
	s.log.WithUserID(userID).WithFields(map[string]interface{}{
		"amount":    amount,
		"reference": reference,
	}).Info("wallet debited")
	return nil
}

// Credit tops up the wallet. No balance floor; shares the reference
// idempotency check with debits.
func (s *WalletService) Credit(ctx context.Context, userID string, amount int64, label, reference string) error {
	if _, err := s.wallets.GetOrCreate(ctx, userID, s.seedBalance); err != nil {
		return err
	}
	tx := models.Transaction{
		ID:        uuid.NewString(),
		Name:      label,
		Amount:    amount,
		Reference: reference,
		Type:      models.TransactionTypeCredit,
		Timestamp: time.Now(),
	}
	if err := s.wallets.ApplyCredit(ctx, userID, tx); err != nil {
		s.log.WithUserID(userID).WithError(err).Warn("wallet credit rejected")
		return err
	}
	s.log.WithUserID(userID).WithFields(map[string]interface{}{
		"amount":    amount,
		"reference": reference,
	}).Info("wallet credited")
	return nil
}
