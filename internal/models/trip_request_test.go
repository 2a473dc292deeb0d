package models

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TripStatus
		want     bool
	}{
		{TripStatusPending, TripStatusAccepted, true},
		{TripStatusPending, TripStatusCanceled, true},
		{TripStatusPending, TripStatusCompleted, false},
		{TripStatusAccepted, TripStatusCompleted, true},
		{TripStatusAccepted, TripStatusCanceled, true},
		{TripStatusAccepted, TripStatusPending, false},
		{TripStatusCompleted, TripStatusCanceled, false},
		{TripStatusCompleted, TripStatusPending, false},
		{TripStatusCanceled, TripStatusAccepted, false},
		{TripStatus("unknown"), TripStatusAccepted, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if TripStatusPending.IsTerminal() || TripStatusAccepted.IsTerminal() {
		t.Fatal("pending/accepted reported terminal")
	}
	if !TripStatusCompleted.IsTerminal() || !TripStatusCanceled.IsTerminal() {
		t.Fatal("completed/canceled not reported terminal")
	}
}

func validTrip() TripRequest {
	driver := "drv-1"
	return TripRequest{
		ID:            primitive.NewObjectID(),
		CustomerID:    "cust-1",
		DriverID:      &driver,
		Pickup:        GeoPoint{Latitude: 10.76, Longitude: 106.66},
		Destination:   GeoPoint{Latitude: 10.77, Longitude: 106.70},
		Status:        TripStatusAccepted,
		PaymentMethod: PaymentMethodCash,
		Fee:           50000,
	}
}

func TestValidateFailsClosed(t *testing.T) {
	good := validTrip()
	if err := good.Validate(); err != nil {
		t.Fatalf("valid trip rejected: %v", err)
	}

	mutations := map[string]func(*TripRequest){
		"missing customer":   func(tr *TripRequest) { tr.CustomerID = "" },
		"bad status":         func(tr *TripRequest) { tr.Status = "driving" },
		"bad payment method": func(tr *TripRequest) { tr.PaymentMethod = "gold" },
		"negative fee":       func(tr *TripRequest) { tr.Fee = -1 },
		"latitude range":     func(tr *TripRequest) { tr.Pickup.Latitude = 91 },
		"longitude range":    func(tr *TripRequest) { tr.Destination.Longitude = -181 },
		"accepted no driver": func(tr *TripRequest) { tr.DriverID = nil },
		"completed no driver": func(tr *TripRequest) {
			tr.Status = TripStatusCompleted
			tr.DriverID = nil
		},
	}
	for name, mutate := range mutations {
		trip := validTrip()
		mutate(&trip)
		err := trip.Validate()
		if !errors.Is(err, ErrBadDocument) {
			t.Errorf("%s: Validate() = %v, want ErrBadDocument", name, err)
		}
	}
}

func TestIsParty(t *testing.T) {
	trip := validTrip()
	if !trip.IsParty("cust-1") || !trip.IsParty("drv-1") {
		t.Fatal("customer or assigned driver not recognized as party")
	}
	if trip.IsParty("cust-2") || trip.IsParty("drv-2") {
		t.Fatal("stranger recognized as party")
	}

	trip.DriverID = nil
	trip.Status = TripStatusPending
	if trip.IsParty("drv-1") {
		t.Fatal("unassigned driver recognized as party")
	}
	if !trip.IsParty("cust-1") {
		t.Fatal("customer not a party to their pending trip")
	}
}

func TestValidatePendingNeedsNoDriver(t *testing.T) {
	trip := validTrip()
	trip.Status = TripStatusPending
	trip.DriverID = nil
	if err := trip.Validate(); err != nil {
		t.Fatalf("pending trip without driver rejected: %v", err)
	}
}
