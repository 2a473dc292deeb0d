package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"swiftride/internal/models"
)

var (
	testPickup      = models.GeoPoint{Latitude: 10.762622, Longitude: 106.660172}
	testDestination = models.GeoPoint{Latitude: 10.776889, Longitude: 106.700806}
)

func newTripService(trips *fakeTripRepo, drivers *fakeDriverRepo, routes *fakeRouteProvider, cache *fakeCache) *TripService {
	return NewTripService(trips, drivers, routes, cache, testLogger())
}

func TestCreateRequestStartsPendingWithoutDriver(t *testing.T) {
	repo := newFakeTripRepo()
	svc := newTripService(repo, newFakeDriverRepo(), &fakeRouteProvider{}, newFakeCache())

	trip, err := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, models.PaymentMethodCash, 50000)
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	if trip.Status != models.TripStatusPending {
		t.Fatalf("new trip status = %s, want pending", trip.Status)
	}
	if trip.DriverID != nil {
		t.Fatalf("new trip has driver %q, want none", *trip.DriverID)
	}
	if trip.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("new trip payment status = %s, want pending", trip.PaymentStatus)
	}
}

func TestCreateRequestRejectsUnresolvableRoute(t *testing.T) {
	routes := &fakeRouteProvider{err: errors.New("no route between points")}
	svc := newTripService(newFakeTripRepo(), newFakeDriverRepo(), routes, newFakeCache())

	_, err := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, models.PaymentMethodCash, 50000)
	if !errors.Is(err, models.ErrInvalidRoute) {
		t.Fatalf("CreateRequest error = %v, want ErrInvalidRoute", err)
	}
}

func TestCreateRequestRejectsBadInput(t *testing.T) {
	svc := newTripService(newFakeTripRepo(), newFakeDriverRepo(), &fakeRouteProvider{}, newFakeCache())

	if _, err := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, "bitcoin", 100); err == nil {
		t.Fatal("expected error for unknown payment method")
	}
	if _, err := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, models.PaymentMethodCash, -1); err == nil {
		t.Fatal("expected error for negative fee")
	}
}

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	repo := newFakeTripRepo()
	svc := newTripService(repo, newFakeDriverRepo(), &fakeRouteProvider{}, newFakeCache())

	trip, err := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, models.PaymentMethodCash, 50000)
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	const drivers = 16
	var wg sync.WaitGroup
	wins := make(chan string, drivers)
	losses := make(chan error, drivers)

	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			driverID := string(rune('a' + n))
			if _, err := svc.AcceptRequest(context.Background(), trip.ID, driverID); err != nil {
				losses <- err
				return
			}
			wins <- driverID
		}(i)
	}
	wg.Wait()
	close(wins)
	close(losses)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("got %d accept winners, want exactly 1", len(winners))
	}
	for err := range losses {
		if !errors.Is(err, models.ErrAlreadyClaimed) {
			t.Fatalf("loser got %v, want ErrAlreadyClaimed", err)
		}
	}

	got, err := svc.GetRequest(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if got.DriverID == nil || *got.DriverID != winners[0] {
		t.Fatalf("stored driver = %v, want %s", got.DriverID, winners[0])
	}
	if got.Status != models.TripStatusAccepted {
		t.Fatalf("stored status = %s, want accepted", got.Status)
	}
}

func TestCompleteReturnsStoredFare(t *testing.T) {
	repo := newFakeTripRepo()
	svc := newTripService(repo, newFakeDriverRepo(), &fakeRouteProvider{}, newFakeCache())

	trip, _ := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, models.PaymentMethodWallet, 75000)
	if _, err := svc.AcceptRequest(context.Background(), trip.ID, "drv-1"); err != nil {
		t.Fatalf("AcceptRequest failed: %v", err)
	}

	fare, err := svc.CompleteRequest(context.Background(), trip.ID, "drv-1")
	if err != nil {
		t.Fatalf("CompleteRequest failed: %v", err)
	}
	if fare.Fee != 75000 || fare.DriverID != "drv-1" || fare.CustomerID != "cust-1" {
		t.Fatalf("fare snapshot = %+v, want stored terms", fare)
	}
	if fare.PaymentMethod != models.PaymentMethodWallet {
		t.Fatalf("fare method = %s, want wallet", fare.PaymentMethod)
	}

	// Completing twice must fail: completed is terminal.
	if _, err := svc.CompleteRequest(context.Background(), trip.ID, "drv-1"); err == nil {
		t.Fatal("second complete succeeded, want terminal rejection")
	}
}

func TestCompleteByUnassignedDriverRejected(t *testing.T) {
	repo := newFakeTripRepo()
	svc := newTripService(repo, newFakeDriverRepo(), &fakeRouteProvider{}, newFakeCache())

	trip, _ := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, models.PaymentMethodWallet, 75000)
	if _, err := svc.AcceptRequest(context.Background(), trip.ID, "drv-1"); err != nil {
		t.Fatalf("AcceptRequest failed: %v", err)
	}

	_, err := svc.CompleteRequest(context.Background(), trip.ID, "drv-2")
	if !errors.Is(err, models.ErrNotParticipant) {
		t.Fatalf("complete by another driver = %v, want ErrNotParticipant", err)
	}

	got, _ := svc.GetRequest(context.Background(), trip.ID)
	if got.Status != models.TripStatusAccepted {
		t.Fatalf("trip status = %s, want still accepted", got.Status)
	}
}

func TestCancelFromTerminalRejected(t *testing.T) {
	repo := newFakeTripRepo()
	svc := newTripService(repo, newFakeDriverRepo(), &fakeRouteProvider{}, newFakeCache())

	trip, _ := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, models.PaymentMethodCash, 50000)
	svc.AcceptRequest(context.Background(), trip.ID, "drv-1")
	if _, err := svc.CompleteRequest(context.Background(), trip.ID, "drv-1"); err != nil {
		t.Fatalf("CompleteRequest failed: %v", err)
	}

	_, err := svc.CancelRequest(context.Background(), trip.ID, models.CurrentUser{ID: "cust-1", Role: models.RoleCustomer})
	if !errors.Is(err, models.ErrTerminalStatus) {
		t.Fatalf("cancel of completed trip = %v, want ErrTerminalStatus", err)
	}
}

func TestCancelByNonPartyRejected(t *testing.T) {
	repo := newFakeTripRepo()
	svc := newTripService(repo, newFakeDriverRepo(), &fakeRouteProvider{}, newFakeCache())

	trip, _ := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, models.PaymentMethodCash, 50000)
	svc.AcceptRequest(context.Background(), trip.ID, "drv-1")

	_, err := svc.CancelRequest(context.Background(), trip.ID, models.CurrentUser{ID: "cust-2", Role: models.RoleCustomer})
	if !errors.Is(err, models.ErrNotParticipant) {
		t.Fatalf("cancel by stranger = %v, want ErrNotParticipant", err)
	}

	got, _ := svc.GetRequest(context.Background(), trip.ID)
	if got.Status != models.TripStatusAccepted {
		t.Fatalf("trip status = %s, want untouched accepted", got.Status)
	}
}

func TestCancelRecordsWho(t *testing.T) {
	repo := newFakeTripRepo()
	svc := newTripService(repo, newFakeDriverRepo(), &fakeRouteProvider{}, newFakeCache())

	trip, _ := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, models.PaymentMethodCash, 50000)
	svc.AcceptRequest(context.Background(), trip.ID, "drv-1")

	got, err := svc.CancelRequest(context.Background(), trip.ID, models.CurrentUser{ID: "drv-1", Role: models.RoleDriver})
	if err != nil {
		t.Fatalf("CancelRequest failed: %v", err)
	}
	if got.Status != models.TripStatusCanceled || got.CanceledBy != string(models.RoleDriver) {
		t.Fatalf("canceled trip = status %s by %q, want canceled by driver", got.Status, got.CanceledBy)
	}
}

func TestAcceptAfterCancelRejected(t *testing.T) {
	repo := newFakeTripRepo()
	svc := newTripService(repo, newFakeDriverRepo(), &fakeRouteProvider{}, newFakeCache())

	trip, _ := svc.CreateRequest(context.Background(), "cust-1", testPickup, testDestination, models.PaymentMethodCash, 50000)
	if _, err := svc.CancelRequest(context.Background(), trip.ID, models.CurrentUser{ID: "cust-1", Role: models.RoleCustomer}); err != nil {
		t.Fatalf("CancelRequest failed: %v", err)
	}

	_, err := svc.AcceptRequest(context.Background(), trip.ID, "drv-1")
	if !errors.Is(err, models.ErrAlreadyClaimed) {
		t.Fatalf("accept of canceled trip = %v, want ErrAlreadyClaimed", err)
	}
}

func TestSubscribePendingFiltersDeclined(t *testing.T) {
	repo := newFakeTripRepo()
	drivers := newFakeDriverRepo()
	cache := newFakeCache()
	svc := newTripService(repo, drivers, &fakeRouteProvider{}, cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := drivers.SetConnected(ctx, "drv-1", true); err != nil {
		t.Fatalf("SetConnected failed: %v", err)
	}

	declined := &models.TripRequest{CustomerID: "cust-1", Pickup: testPickup, Destination: testDestination, PaymentMethod: models.PaymentMethodCash, Fee: 100}
	visible := &models.TripRequest{CustomerID: "cust-2", Pickup: testPickup, Destination: testDestination, PaymentMethod: models.PaymentMethodCash, Fee: 200}
	repo.Create(ctx, declined)
	repo.Create(ctx, visible)

	if err := svc.DeclineRequest(ctx, "drv-1", declined.ID); err != nil {
		t.Fatalf("DeclineRequest failed: %v", err)
	}

	events := make(chan models.TripEvent, 4)
	events <- models.TripEvent{Trip: declined}
	events <- models.TripEvent{Trip: visible}
	close(events)
	repo.pendingEvents = events

	out, err := svc.SubscribePendingRequests(ctx, "drv-1")
	if err != nil {
		t.Fatalf("SubscribePendingRequests failed: %v", err)
	}

	var got []models.TripEvent
	for ev := range out {
		got = append(got, ev)
	}
	if len(got) != 1 {
		t.Fatalf("driver feed delivered %d events, want 1", len(got))
	}
	if got[0].Trip.ID != visible.ID {
		t.Fatalf("driver feed delivered trip %s, want the undeclined one", got[0].Trip.ID.Hex())
	}
}

func TestSubscribePendingRequiresConnectedDriver(t *testing.T) {
	repo := newFakeTripRepo()
	drivers := newFakeDriverRepo()
	svc := newTripService(repo, drivers, &fakeRouteProvider{}, newFakeCache())

	ctx := context.Background()
	if _, err := svc.SubscribePendingRequests(ctx, "drv-unknown"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown driver subscribe = %v, want ErrNotFound", err)
	}

	drivers.SetConnected(ctx, "drv-1", false)
	if _, err := svc.SubscribePendingRequests(ctx, "drv-1"); !errors.Is(err, models.ErrDriverOffline) {
		t.Fatalf("offline driver subscribe = %v, want ErrDriverOffline", err)
	}
}

func TestSubscribePendingShowsRequestWhenCacheDown(t *testing.T) {
	repo := newFakeTripRepo()
	drivers := newFakeDriverRepo()
	cache := newFakeCache()
	cache.failSets = true
	svc := newTripService(repo, drivers, &fakeRouteProvider{}, cache)

	ctx := context.Background()
	drivers.SetConnected(ctx, "drv-1", true)

	trip := &models.TripRequest{CustomerID: "cust-1", Pickup: testPickup, Destination: testDestination, PaymentMethod: models.PaymentMethodCash, Fee: 100}
	repo.Create(ctx, trip)

	events := make(chan models.TripEvent, 1)
	events <- models.TripEvent{Trip: trip}
	close(events)
	repo.pendingEvents = events

	out, err := svc.SubscribePendingRequests(ctx, "drv-1")
	if err != nil {
		t.Fatalf("SubscribePendingRequests failed: %v", err)
	}

	var count int
	for range out {
		count++
	}
	if count != 1 {
		t.Fatalf("cache outage hid the request: delivered %d events, want 1", count)
	}
}

func TestHistoryBySide(t *testing.T) {
	repo := newFakeTripRepo()
	svc := newTripService(repo, newFakeDriverRepo(), &fakeRouteProvider{}, newFakeCache())
	ctx := context.Background()

	trip, _ := svc.CreateRequest(ctx, "cust-1", testPickup, testDestination, models.PaymentMethodCash, 100)
	svc.AcceptRequest(ctx, trip.ID, "drv-1")
	svc.CreateRequest(ctx, "cust-2", testPickup, testDestination, models.PaymentMethodCash, 200)

	asCustomer, err := svc.History(ctx, "cust-1", models.RoleCustomer)
	if err != nil || len(asCustomer) != 1 {
		t.Fatalf("customer history = %d trips (err %v), want 1", len(asCustomer), err)
	}
	asDriver, err := svc.History(ctx, "drv-1", models.RoleDriver)
	if err != nil || len(asDriver) != 1 {
		t.Fatalf("driver history = %d trips (err %v), want 1", len(asDriver), err)
	}
}
