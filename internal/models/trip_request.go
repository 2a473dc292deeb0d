package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripStatus string
type PaymentMethod string
type PaymentStatus string

const (
	TripStatusPending   TripStatus = "pending"
	TripStatusAccepted  TripStatus = "accepted"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCanceled  TripStatus = "canceled"

	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodSePay  PaymentMethod = "sepay"

	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSettled PaymentStatus = "settled"
)

// tripTransitions is the full transition table for a trip request.
// Completed and canceled are terminal.
var tripTransitions = map[TripStatus]map[TripStatus]struct{}{
	TripStatusPending: {
		TripStatusAccepted: {},
		TripStatusCanceled: {},
	},
	TripStatusAccepted: {
		TripStatusCompleted: {},
		TripStatusCanceled:  {},
	},
	TripStatusCompleted: {},
	TripStatusCanceled:  {},
}

// CanTransition reports whether a trip may move from one status to another.
func CanTransition(from, to TripStatus) bool {
	allowed, ok := tripTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCanceled
}

func (s TripStatus) Valid() bool {
	_, ok := tripTransitions[s]
	return ok
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodWallet, PaymentMethodSePay:
		return true
	}
	return false
}

// TripRequest is one ride request in the "requests" collection. DriverID is
// nil until a driver claims the request; the pending -> accepted transition
// is only ever applied through an atomic conditional update.
type TripRequest struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CustomerID    string             `json:"customer_id" bson:"customerId"`
	DriverID      *string            `json:"driver_id" bson:"driverId"`
	Pickup        GeoPoint           `json:"pickup" bson:"pickup"`
	Destination   GeoPoint           `json:"destination" bson:"destination"`
	Status        TripStatus         `json:"status" bson:"status"`
	PaymentMethod PaymentMethod      `json:"payment_method" bson:"paymentMethod"`
	Fee           int64              `json:"fee" bson:"fee"` // currency minor units
	PaymentStatus PaymentStatus      `json:"payment_status" bson:"paymentStatus"`
	CanceledBy    string             `json:"canceled_by,omitempty" bson:"canceledBy,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updatedAt"`
}

// IsParty reports whether userID is the requesting customer or the assigned
// driver on this request.
func (t *TripRequest) IsParty(userID string) bool {
	if t.CustomerID == userID {
		return true
	}
	return t.DriverID != nil && *t.DriverID == userID
}

// Validate fails closed on documents missing required fields so that a
// corrupt or half-written document surfaces as a decode error instead of
// zero values flowing downstream.
func (t *TripRequest) Validate() error {
	if t.CustomerID == "" {
		return fmt.Errorf("trip %s: missing customerId: %w", t.ID.Hex(), ErrBadDocument)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("trip %s: bad status %q: %w", t.ID.Hex(), t.Status, ErrBadDocument)
	}
	if !t.PaymentMethod.Valid() {
		return fmt.Errorf("trip %s: bad payment method %q: %w", t.ID.Hex(), t.PaymentMethod, ErrBadDocument)
	}
	if t.Fee < 0 {
		return fmt.Errorf("trip %s: negative fee %d: %w", t.ID.Hex(), t.Fee, ErrBadDocument)
	}
	if !t.Pickup.Valid() || !t.Destination.Valid() {
		return fmt.Errorf("trip %s: coordinates out of range: %w", t.ID.Hex(), ErrBadDocument)
	}
	if t.Status == TripStatusAccepted || t.Status == TripStatusCompleted {
		if t.DriverID == nil || *t.DriverID == "" {
			return fmt.Errorf("trip %s: status %s without driver: %w", t.ID.Hex(), t.Status, ErrBadDocument)
		}
	}
	return nil
}

// FareSnapshot is the payment terms captured when a trip completes.
// Settlement acts on this snapshot, re-read from the store, never on
// whatever the driver client last saw.
type FareSnapshot struct {
	RequestID     string        `json:"request_id"`
	CustomerID    string        `json:"customer_id"`
	DriverID      string        `json:"driver_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Fee           int64         `json:"fee"`
}
