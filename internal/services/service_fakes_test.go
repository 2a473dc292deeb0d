package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"swiftride/internal/models"
	"swiftride/pkg/logger"
	"swiftride/pkg/maps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *logger.Logger {
	log, err := logger.NewLogger(&logger.Config{Level: "error", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return log
}

// fakeTripRepo mirrors the store's conditional-write semantics behind a
// mutex so concurrency tests exercise the same contract.
type fakeTripRepo struct {
	mu            sync.Mutex
	trips         map[primitive.ObjectID]*models.TripRequest
	pendingEvents chan models.TripEvent
}

func newFakeTripRepo() *fakeTripRepo {
	return &fakeTripRepo{trips: make(map[primitive.ObjectID]*models.TripRequest)}
}

func (r *fakeTripRepo) Create(ctx context.Context, trip *models.TripRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip.ID = primitive.NewObjectID()
	trip.Status = models.TripStatusPending
	trip.PaymentStatus = models.PaymentStatusPending
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt
	cp := *trip
	r.trips[trip.ID] = &cp
	return nil
}

func (r *fakeTripRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TripRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip request %s: %w", id.Hex(), models.ErrNotFound)
	}
	cp := *trip
	return &cp, nil
}

func (r *fakeTripRepo) AcceptAtomically(ctx context.Context, id primitive.ObjectID, driverID string) (*models.TripRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip request %s: %w", id.Hex(), models.ErrNotFound)
	}
	if trip.Status != models.TripStatusPending || trip.DriverID != nil {
		return nil, fmt.Errorf("trip request %s: %w", id.Hex(), models.ErrAlreadyClaimed)
	}
	trip.Status = models.TripStatusAccepted
	trip.DriverID = &driverID
	trip.UpdatedAt = time.Now()
	cp := *trip
	return &cp, nil
}

func (r *fakeTripRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.TripStatus, extra map[string]interface{}) (*models.TripRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[id]
	if !ok {
		return nil, fmt.Errorf("trip request %s: %w", id.Hex(), models.ErrNotFound)
	}
	if trip.Status != from {
		if trip.Status.IsTerminal() {
			return nil, fmt.Errorf("trip request %s is %s: %w", id.Hex(), trip.Status, models.ErrTerminalStatus)
		}
		return nil, fmt.Errorf("trip request %s is %s, expected %s: %w", id.Hex(), trip.Status, from, models.ErrNotFound)
	}
	trip.Status = to
	if by, ok := extra["canceledBy"].(string); ok {
		trip.CanceledBy = by
	}
	trip.UpdatedAt = time.Now()
	cp := *trip
	return &cp, nil
}

func (r *fakeTripRepo) SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	trip, ok := r.trips[id]
	if !ok {
		return fmt.Errorf("trip request %s: %w", id.Hex(), models.ErrNotFound)
	}
	trip.PaymentStatus = status
	return nil
}

func (r *fakeTripRepo) GetByCustomer(ctx context.Context, customerID string) ([]*models.TripRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TripRequest
	for _, trip := range r.trips {
		if trip.CustomerID == customerID {
			cp := *trip
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTripRepo) GetByDriver(ctx context.Context, driverID string) ([]*models.TripRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TripRequest
	for _, trip := range r.trips {
		if trip.DriverID != nil && *trip.DriverID == driverID {
			cp := *trip
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTripRepo) GetActiveByCustomer(ctx context.Context, customerID string) (*models.TripRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, trip := range r.trips {
		if trip.CustomerID == customerID && !trip.Status.IsTerminal() {
			cp := *trip
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("no active trip for %s: %w", customerID, models.ErrNotFound)
}

func (r *fakeTripRepo) WatchPending(ctx context.Context) (<-chan models.TripEvent, error) {
	if r.pendingEvents == nil {
		ch := make(chan models.TripEvent)
		close(ch)
		return ch, nil
	}
	return r.pendingEvents, nil
}

func (r *fakeTripRepo) WatchRequest(ctx context.Context, id primitive.ObjectID) (<-chan models.TripEvent, error) {
	ch := make(chan models.TripEvent)
	close(ch)
	return ch, nil
}

type fakeDriverRepo struct {
	mu        sync.Mutex
	presences map[string]*models.DriverPresence
}

func newFakeDriverRepo() *fakeDriverRepo {
	return &fakeDriverRepo{presences: make(map[string]*models.DriverPresence)}
}

func (r *fakeDriverRepo) GetByDriverID(ctx context.Context, driverID string) (*models.DriverPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.presences[driverID]
	if !ok {
		return nil, fmt.Errorf("driver %s: %w", driverID, models.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeDriverRepo) SetConnected(ctx context.Context, driverID string, connected bool) (*models.DriverPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.presences[driverID]
	if !ok {
		p = &models.DriverPresence{DriverID: driverID, CreatedAt: time.Now()}
		r.presences[driverID] = p
	}
	p.IsConnected = connected
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (r *fakeDriverRepo) UpdateLocation(ctx context.Context, driverID string, location models.GeoPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.presences[driverID]
	if !ok {
		return fmt.Errorf("driver %s: %w", driverID, models.ErrNotFound)
	}
	if !p.IsConnected {
		return fmt.Errorf("driver %s: %w", driverID, models.ErrDriverOffline)
	}
	p.Location = location
	p.UpdatedAt = time.Now()
	return nil
}

func (r *fakeDriverRepo) ListConnected(ctx context.Context) ([]*models.DriverPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DriverPresence
	for _, p := range r.presences {
		if p.IsConnected {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeDriverRepo) WatchDriver(ctx context.Context, driverID string) (<-chan models.PresenceEvent, error) {
	ch := make(chan models.PresenceEvent)
	close(ch)
	return ch, nil
}

// fakeWalletRepo applies the same serialized conditional-write rules as the
// real store: balance floor and reference idempotency checked under one lock.
type fakeWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]*models.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[string]*models.Wallet)}
}

func (r *fakeWalletRepo) GetOrCreate(ctx context.Context, userID string, seedBalance int64) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		w = &models.Wallet{
			UserID:       userID,
			Balance:      seedBalance,
			Transactions: make(map[string]models.Transaction),
			CreatedAt:    time.Now(),
		}
		r.wallets[userID] = w
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) ApplyDebit(ctx context.Context, userID string, tx models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		return fmt.Errorf("wallet %s: %w", userID, models.ErrNotFound)
	}
	if w.HasReference(tx.Reference) {
		return fmt.Errorf("reference %s: %w", tx.Reference, models.ErrAlreadyProcessed)
	}
	if w.Balance < tx.Amount {
		return fmt.Errorf("balance %d, need %d: %w", w.Balance, tx.Amount, models.ErrInsufficientBalance)
	}
	w.Balance -= tx.Amount
	w.Transactions[tx.ID] = tx
	w.References = append(w.References, tx.Reference)
	return nil
}

func (r *fakeWalletRepo) ApplyCredit(ctx context.Context, userID string, tx models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		return fmt.Errorf("wallet %s: %w", userID, models.ErrNotFound)
	}
	if w.HasReference(tx.Reference) {
		return fmt.Errorf("reference %s: %w", tx.Reference, models.ErrAlreadyProcessed)
	}
	w.Balance += tx.Amount
	w.Transactions[tx.ID] = tx
	w.References = append(w.References, tx.Reference)
	return nil
}

func (r *fakeWalletRepo) balance(userID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallets[userID]; ok {
		return w.Balance
	}
	return 0
}

func (r *fakeWalletRepo) txCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallets[userID]; ok {
		return len(w.Transactions)
	}
	return 0
}

// fakeCache is an in-memory stand-in for the redis layer.
type fakeCache struct {
	mu       sync.Mutex
	kv       map[string][]byte
	sets     map[string]map[string]bool
	geo      map[string]map[string][2]float64 // key -> member -> lng,lat
	failSets bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		kv:   make(map[string][]byte),
		sets: make(map[string]map[string]bool),
		geo:  make(map[string]map[string][2]float64),
	}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("miss")
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error { return nil }

func (c *fakeCache) SAdd(ctx context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSets {
		return errors.New("cache down")
	}
	if c.sets[key] == nil {
		c.sets[key] = make(map[string]bool)
	}
	for _, m := range members {
		c.sets[key][m] = true
	}
	return nil
}

func (c *fakeCache) SIsMember(ctx context.Context, key, member string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSets {
		return false, errors.New("cache down")
	}
	return c.sets[key][member], nil
}

func (c *fakeCache) SRem(ctx context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range members {
		delete(c.sets[key], m)
	}
	return nil
}

func (c *fakeCache) GeoAdd(ctx context.Context, key, member string, longitude, latitude float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.geo[key] == nil {
		c.geo[key] = make(map[string][2]float64)
	}
	c.geo[key][member] = [2]float64{longitude, latitude}
	return nil
}

func (c *fakeCache) GeoRemove(ctx context.Context, key, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.geo[key], member)
	return nil
}

func (c *fakeCache) GeoSearch(ctx context.Context, key string, longitude, latitude, radiusMeters float64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	center := models.GeoPoint{Latitude: latitude, Longitude: longitude}
	var out []string
	for member, pos := range c.geo[key] {
		p := models.GeoPoint{Latitude: pos[1], Longitude: pos[0]}
		if center.DistanceMeters(p) <= radiusMeters {
			out = append(out, member)
		}
	}
	return out, nil
}

func (c *fakeCache) Publish(ctx context.Context, channel string, payload interface{}) error {
	return nil
}

func (c *fakeCache) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

// fakeRouteProvider scripts route lookups.
type fakeRouteProvider struct {
	err error
}

func (p *fakeRouteProvider) GetRoute(ctx context.Context, from, to maps.Point) (*maps.Route, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &maps.Route{
		Polyline:       []maps.Point{from, to},
		DistanceMeters: 1000,
	}, nil
}
