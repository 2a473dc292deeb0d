package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type walletRepository struct {
	collection *mongo.Collection
}

// Wallets are deliberately not cached: balance reads always hit the store.
func NewWalletRepository(db *mongo.Database) interfaces.WalletRepository {
	return &walletRepository{
		collection: db.Collection("wallets"),
	}
}

func (r *walletRepository) GetOrCreate(ctx context.Context, userID string, seedBalance int64) (*models.Wallet, error) {
	wallet, err := r.getByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	fresh := &models.Wallet{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		Balance:      seedBalance,
		Transactions: map[string]models.Transaction{},
		References:   []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.collection.InsertOne(ctx, fresh); err != nil {
		// Lost a creation race: the unique userId index rejected the
		// duplicate, the winner's document is authoritative.
		if mongo.IsDuplicateKeyError(err) {
			return r.getByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return fresh, nil
}

// ApplyDebit commits the balance check, the idempotency check and the ledger
// append in one conditional write. Concurrent debits against the same wallet
// serialize at the store; the balance can never go negative from a debit
// applied here.
func (r *walletRepository) ApplyDebit(ctx context.Context, userID string, tx models.Transaction) error {
	if tx.Amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", tx.Amount)
	}
	tx.Type = models.TransactionTypeDebit

	filter := bson.M{
		"userId":     userID,
		"balance":    bson.M{"$gte": tx.Amount},
		"references": bson.M{"$ne": tx.Reference},
	}
	update := bson.M{
		"$inc":  bson.M{"balance": -tx.Amount},
		"$set":  bson.M{"transactions." + tx.ID: tx, "updatedAt": time.Now()},
		"$push": bson.M{"references": tx.Reference},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to apply debit: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return r.classifyMiss(ctx, userID, tx)
}

// ApplyCredit has no balance floor but shares the reference idempotency
// check with debits.
func (r *walletRepository) ApplyCredit(ctx context.Context, userID string, tx models.Transaction) error {
	if tx.Amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", tx.Amount)
	}
	tx.Type = models.TransactionTypeCredit

	filter := bson.M{
		"userId":     userID,
		"references": bson.M{"$ne": tx.Reference},
	}
	update := bson.M{
		"$inc":  bson.M{"balance": tx.Amount},
		"$set":  bson.M{"transactions." + tx.ID: tx, "updatedAt": time.Now()},
		"$push": bson.M{"references": tx.Reference},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to apply credit: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return r.classifyMiss(ctx, userID, tx)
}

// classifyMiss turns a missed conditional write into the right domain error.
func (r *walletRepository) classifyMiss(ctx context.Context, userID string, tx models.Transaction) error {
	wallet, err := r.getByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if wallet.HasReference(tx.Reference) {
		return fmt.Errorf("wallet %s, reference %s: %w", userID, tx.Reference, models.ErrAlreadyProcessed)
	}
	if tx.Type == models.TransactionTypeDebit && wallet.Balance < tx.Amount {
		return fmt.Errorf("wallet %s: balance %d < %d: %w", userID, wallet.Balance, tx.Amount, models.ErrInsufficientBalance)
	}
	return fmt.Errorf("wallet %s: conditional write missed: %w", userID, models.ErrTransient)
}

func (r *walletRepository) getByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&wallet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("wallet for user %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}
