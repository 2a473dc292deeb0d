package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swiftride/internal/models"
	"swiftride/internal/repositories/interfaces"
	"swiftride/pkg/logger"
	"swiftride/pkg/sepay"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LedgerClient is the slice of the SePay API the settlement loop needs.
type LedgerClient interface {
	ListTransactions(ctx context.Context, accountNumber string, limit int) (*sepay.TransactionListResponse, error)
}

type PollEventType string

const (
	PollSuccess PollEventType = "success"
	PollTimeout PollEventType = "timeout"
	PollError   PollEventType = "error"
)

// PollEvent is one report from the transfer polling loop. PollError is
// non-fatal unless Fatal is set (network unreachable); polling continues
// until a match or the deadline.
type PollEvent struct {
	Type    PollEventType `json:"type"`
	Message string        `json:"message,omitempty"`
	Fatal   bool          `json:"fatal,omitempty"`
}

type PaymentConfig struct {
	AccountNumber string
	BankCode      string
	PollInterval  time.Duration
	PollTimeout   time.Duration
	ListLimit     int
}

// PaymentService drives the bank-transfer QR protocol and reconciles
// completed trips against wallets and the external ledger.
type PaymentService struct {
	trips   interfaces.TripRequestRepository
	wallets *WalletService
	ledger  LedgerClient
	reach   sepay.Reachability
	config  PaymentConfig
	log     *logger.Logger
}

func NewPaymentService(trips interfaces.TripRequestRepository, wallets *WalletService, ledger LedgerClient, reach sepay.Reachability, config PaymentConfig, log *logger.Logger) *PaymentService {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 5 * time.Minute
	}
	if config.ListLimit <= 0 {
		config.ListLimit = 20
	}
	return &PaymentService{
		trips:   trips,
		wallets: wallets,
		ledger:  ledger,
		reach:   reach,
		config:  config,
		log:     log,
	}
}

// QRURL builds the transfer QR for an amount and memo. An empty memo gets a
// synthesized correlation token.
func (s *PaymentService) QRURL(amount int64, memo string) (url, usedMemo string) {
	if memo == "" {
		memo = sepay.FallbackMemo(time.Now())
	}
	return sepay.QRURL(s.config.AccountNumber, s.config.BankCode, amount, memo), memo
}

// PollTransfer watches the ledger for an incoming transfer whose content
// matches memo and whose amount matches exactly. One poll per interval until
// the first match or the deadline; individual poll failures are reported and
// skipped, an unreachable network aborts. Cancel via ctx; retry by calling
// again with the same memo.
func (s *PaymentService) PollTransfer(ctx context.Context, memo string, expectedAmount int64) <-chan PollEvent {
	events := make(chan PollEvent, watchBuffer)
	go func() {
		defer close(events)

		log := s.log.WithFields(map[string]interface{}{"memo": memo, "amount": expectedAmount})
		deadline := time.NewTimer(s.config.PollTimeout)
		defer deadline.Stop()
		ticker := time.NewTicker(s.config.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-deadline.C:
				log.Warn("transfer polling timed out")
				s.emit(ctx, events, PollEvent{Type: PollTimeout})
				return
			case <-ticker.C:
			}

			if s.reach != nil && !s.reach.Reachable(ctx) {
				log.Warn("ledger unreachable, aborting poll")
				s.emit(ctx, events, PollEvent{Type: PollError, Message: "no network", Fatal: true})
				return
			}

			resp, err := s.ledger.ListTransactions(ctx, s.config.AccountNumber, s.config.ListLimit)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.WithError(err).Warn("ledger poll failed")
				s.emit(ctx, events, PollEvent{Type: PollError, Message: err.Error()})
				continue
			}
			if !resp.OK() {
				log.WithField("ledger_error", resp.ErrorMessage()).Warn("ledger rejected poll")
				s.emit(ctx, events, PollEvent{Type: PollError, Message: resp.ErrorMessage()})
				continue
			}

			if s.matchTransfer(resp.Transactions, memo, expectedAmount) {
				log.Info("transfer matched")
				s.emit(ctx, events, PollEvent{Type: PollSuccess})
				return
			}
		}
	}()
	return events
}

func (s *PaymentService) matchTransfer(txs []sepay.Transaction, memo string, expectedAmount int64) bool {
	for _, tx := range txs {
		if tx.TransactionContent != memo {
			continue
		}
		amount, err := tx.AmountInMinor()
		if err != nil {
			s.log.WithError(err).WithField("ledger_tx", tx.ID).Warn("unparseable ledger amount")
			continue
		}
		if amount == expectedAmount {
			return true
		}
	}
	return false
}

// SettleRide finalizes the charge for a completed trip. Cash settles with no
// wallet mutation; wallet charges the customer then pays the driver; sepay
// pays the driver after the transfer was confirmed by polling. The trip
// write and the wallet writes are independent: a retry after a partial
// failure is safe because every wallet write is idempotent on the request
// id. Only the trip's customer or its assigned driver may settle.
func (s *PaymentService) SettleRide(ctx context.Context, requestID primitive.ObjectID, callerID string) error {
	trip, err := s.trips.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if !trip.IsParty(callerID) {
		return fmt.Errorf("user %s on trip request %s: %w", callerID, requestID.Hex(), models.ErrNotParticipant)
	}
	if trip.Status != models.TripStatusCompleted {
		return fmt.Errorf("trip request %s is %s, settlement requires completed", requestID.Hex(), trip.Status)
	}
	if trip.PaymentStatus == models.PaymentStatusSettled {
		return fmt.Errorf("trip request %s: %w", requestID.Hex(), models.ErrAlreadyProcessed)
	}

	ref := trip.ID.Hex()
	switch trip.PaymentMethod {
	case models.PaymentMethodCash:
		// Driver collects the fare in person; wallets stay untouched.

	case models.PaymentMethodWallet:
		err := s.wallets.Debit(ctx, trip.CustomerID, trip.Fee, "Ride fare", ref)
		if err != nil && !errors.Is(err, models.ErrAlreadyProcessed) {
			return err
		}
		err = s.wallets.Credit(ctx, *trip.DriverID, trip.Fee, "Ride payout", ref+":payout")
		if err != nil && !errors.Is(err, models.ErrAlreadyProcessed) {
			return err
		}

	case models.PaymentMethodSePay:
		err := s.wallets.Credit(ctx, *trip.DriverID, trip.Fee, "Ride payout", ref+":payout")
		if err != nil && !errors.Is(err, models.ErrAlreadyProcessed) {
			return err
		}

	default:
		return fmt.Errorf("unknown payment method %q", trip.PaymentMethod)
	}

	if err := s.trips.SetPaymentStatus(ctx, requestID, models.PaymentStatusSettled); err != nil {
		return err
	}
	s.log.WithTripID(ref).WithField("method", trip.PaymentMethod).Info("ride settled")
	return nil
}

// SettleSePay runs the polling protocol for a completed SePay trip and
// settles on success. The memo is the request id.
func (s *PaymentService) SettleSePay(ctx context.Context, requestID primitive.ObjectID, callerID string) error {
	trip, err := s.trips.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if !trip.IsParty(callerID) {
		return fmt.Errorf("user %s on trip request %s: %w", callerID, requestID.Hex(), models.ErrNotParticipant)
	}
	if trip.PaymentMethod != models.PaymentMethodSePay {
		return fmt.Errorf("trip request %s pays by %s, not sepay", requestID.Hex(), trip.PaymentMethod)
	}

	for ev := range s.PollTransfer(ctx, requestID.Hex(), trip.Fee) {
		switch ev.Type {
		case PollSuccess:
			return s.SettleRide(ctx, requestID, callerID)
		case PollTimeout:
			return fmt.Errorf("trip request %s: %w", requestID.Hex(), models.ErrPollingTimeout)
		case PollError:
			if ev.Fatal {
				return fmt.Errorf("trip request %s: %s: %w", requestID.Hex(), ev.Message, models.ErrTransient)
			}
			// Non-fatal; keep waiting for the loop to resolve.
		}
	}
	return ctx.Err()
}

// ConfirmTopUp polls for a wallet top-up transfer and credits the wallet on
// success. The memo doubles as the credit's idempotency reference.
func (s *PaymentService) ConfirmTopUp(ctx context.Context, userID string, amount int64, memo string) error {
	for ev := range s.PollTransfer(ctx, memo, amount) {
		switch ev.Type {
		case PollSuccess:
			return s.wallets.Credit(ctx, userID, amount, "Wallet top-up", memo)
		case PollTimeout:
			return fmt.Errorf("top-up %s: %w", memo, models.ErrPollingTimeout)
		case PollError:
			if ev.Fatal {
				return fmt.Errorf("top-up %s: %s: %w", memo, ev.Message, models.ErrTransient)
			}
		}
	}
	return ctx.Err()
}

func (s *PaymentService) emit(ctx context.Context, events chan<- PollEvent, ev PollEvent) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
