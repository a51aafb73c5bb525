package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"fleet/internal/domain"
	"fleet/internal/redis"
	"fleet/internal/repository"
	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// MOCK VEHICLE REPOSITORY
// ──────────────────────────────────────────────

// MockVehicleRepository is a mock implementation of VehicleRepository.
type MockVehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*domain.Vehicle

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError         error
	CountAvailableError error
}

// NewMockVehicleRepository creates a new mock vehicle repository.
func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{
		vehicles: make(map[string]*domain.Vehicle),
	}
}

// AddVehicle adds a vehicle to the mock repository.
func (m *MockVehicleRepository) AddVehicle(vehicle *domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[vehicle.ID] = vehicle
}

func (m *MockVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[vehicle.ID] = vehicle
	return nil
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vehicle, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *vehicle
	return &copy, nil
}

func (m *MockVehicleRepository) GetAll(ctx context.Context) ([]*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		copy := *v
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockVehicleRepository) CountAvailable(ctx context.Context, category domain.VehicleCategory, location string) (int, error) {
	if m.CountAvailableError != nil {
		return 0, m.CountAvailableError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, v := range m.vehicles {
		if v.Active && v.Status == domain.VehicleStatusAvailable && v.Category == category && v.Location == location {
			count++
		}
	}
	return count, nil
}

func (m *MockVehicleRepository) UpdateStatus(ctx context.Context, id string, status domain.VehicleStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vehicle, ok := m.vehicles[id]
	if !ok {
		return repository.ErrNotFound
	}
	vehicle.Status = status
	return nil
}

// ──────────────────────────────────────────────
// MOCK RESERVATION REPOSITORY
// ──────────────────────────────────────────────

// MockReservationRepository is a mock implementation of ReservationRepository.
type MockReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*domain.Reservation
	stops        map[string][]domain.RouteStop
	selections   map[string][]domain.AddOnSelection

	// Vehicles backs CountActiveInWindow's category/location filter.
	// Optional; when nil every active reservation counts.
	Vehicles *MockVehicleRepository

	// Counters for verification
	CreateCallCount      int32
	UpdateCallCount      int32
	LockVehicleCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockReservationRepository creates a new mock reservation repository.
func NewMockReservationRepository() *MockReservationRepository {
	return &MockReservationRepository{
		reservations: make(map[string]*domain.Reservation),
		stops:        make(map[string][]domain.RouteStop),
		selections:   make(map[string][]domain.AddOnSelection),
	}
}

// AddReservation adds a reservation to the mock repository.
func (m *MockReservationRepository) AddReservation(res *domain.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[res.ID] = res
}

func (m *MockReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[res.ID] = res
	return nil
}

func (m *MockReservationRepository) LockVehicle(ctx context.Context, vehicleID string) error {
	// The mock store already serializes WithinTx, so the lock is a
	// counter only.
	atomic.AddInt32(&m.LockVehicleCallCount, 1)
	return nil
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *res
	return &copy, nil
}

func (m *MockReservationRepository) GetAll(ctx context.Context) ([]*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[res.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *res
	m.reservations[res.ID] = &copy
	return nil
}

func (m *MockReservationRepository) DeleteDraft(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	if res.Status != domain.ReservationStatusDraft {
		return repository.ErrDraftOnly
	}
	delete(m.reservations, id)
	return nil
}

func (m *MockReservationRepository) FindOverlapping(ctx context.Context, vehicleID string, start, end time.Time) ([]*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Reservation
	for _, r := range m.reservations {
		if r.VehicleID == vehicleID && r.Status.Blocks() && r.Overlaps(start, end) {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockReservationRepository) FindOverlappingHeld(ctx context.Context, vehicleID string, start, end time.Time) ([]*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Reservation
	for _, r := range m.reservations {
		if r.VehicleID == vehicleID && heldStatus(r.Status) && r.Overlaps(start, end) {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func heldStatus(s domain.ReservationStatus) bool {
	return s == domain.ReservationStatusDraft || activeStatus(s)
}

func (m *MockReservationRepository) CountActiveInWindow(ctx context.Context, category domain.VehicleCategory, location string, start, end time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.reservations {
		if !activeStatus(r.Status) || !r.Overlaps(start, end) {
			continue
		}
		if m.Vehicles != nil {
			vehicle, err := m.Vehicles.GetByID(ctx, r.VehicleID)
			if err != nil || vehicle.Category != category || vehicle.Location != location {
				continue
			}
		}
		count++
	}
	return count, nil
}

func activeStatus(s domain.ReservationStatus) bool {
	return s == domain.ReservationStatusPendingPayment ||
		s == domain.ReservationStatusConfirmed ||
		s == domain.ReservationStatusInProgress
}

func (m *MockReservationRepository) AddRouteStops(ctx context.Context, stops []domain.RouteStop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range stops {
		m.stops[s.ReservationID] = append(m.stops[s.ReservationID], s)
	}
	return nil
}

func (m *MockReservationRepository) RouteStops(ctx context.Context, reservationID string) ([]domain.RouteStop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stops[reservationID], nil
}

func (m *MockReservationRepository) AddAddOnSelections(ctx context.Context, selections []domain.AddOnSelection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range selections {
		m.selections[s.ReservationID] = append(m.selections[s.ReservationID], s)
	}
	return nil
}

func (m *MockReservationRepository) AddOnSelections(ctx context.Context, reservationID string) ([]domain.AddOnSelection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selections[reservationID], nil
}

// GetReservation returns the reservation by ID (for test assertions).
func (m *MockReservationRepository) GetReservation(id string) *domain.Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reservations[id]
}

// CountReservations returns the number of stored reservations.
func (m *MockReservationRepository) CountReservations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reservations)
}

// CountByStatus counts reservations in the given status.
func (m *MockReservationRepository) CountByStatus(status domain.ReservationStatus) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.reservations {
		if r.Status == status {
			count++
		}
	}
	return count
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	attempts map[string]*domain.PaymentAttempt

	// Counters
	CreateCallCount       int32
	UpdateStatusCallCount int32

	// Error injection
	CreateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		attempts: make(map[string]*domain.PaymentAttempt),
	}
}

// AddAttempt adds a payment attempt to the mock repository.
func (m *MockPaymentRepository) AddAttempt(attempt *domain.PaymentAttempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[attempt.ID] = attempt
}

func (m *MockPaymentRepository) Create(ctx context.Context, attempt *domain.PaymentAttempt) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[attempt.ID] = attempt
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	attempt, ok := m.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *attempt
	return &copy, nil
}

func (m *MockPaymentRepository) GetByGatewayRef(ctx context.Context, ref string) (*domain.PaymentAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attempts {
		if a.GatewayRef == ref {
			copy := *a
			return &copy, nil
		}
	}
	return nil, nil // Unknown reference is not an error.
}

func (m *MockPaymentRepository) GetByGatewayRefForUpdate(ctx context.Context, ref string) (*domain.PaymentAttempt, error) {
	// The mock store serializes WithinTx, which supplies the FOR UPDATE
	// guarantee here.
	return m.GetByGatewayRef(ctx, ref)
}

func (m *MockPaymentRepository) GetActiveByReservationID(ctx context.Context, reservationID string) (*domain.PaymentAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attempts {
		if a.ReservationID == reservationID && a.Status.Active() {
			copy := *a
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentAttemptStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[id]
	if !ok {
		return repository.ErrNotFound
	}
	attempt.Status = status
	attempt.UpdatedAt = time.Now()
	return nil
}

// GetAttempt returns an attempt by ID (for test assertions).
func (m *MockPaymentRepository) GetAttempt(id string) *domain.PaymentAttempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts[id]
}

// CountAttempts returns the number of payment attempts.
func (m *MockPaymentRepository) CountAttempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.attempts)
}

// ──────────────────────────────────────────────
// MOCK NOTIFICATION REPOSITORY
// ──────────────────────────────────────────────

// MockNotificationRepository is a mock implementation of NotificationRepository.
type MockNotificationRepository struct {
	mu      sync.RWMutex
	records []*domain.NotificationRecord

	// Error injection
	AppendError error
}

// NewMockNotificationRepository creates a new mock notification repository.
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) Append(ctx context.Context, record *domain.NotificationRecord) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *MockNotificationRepository) ListByReservation(ctx context.Context, reservationID string) ([]*domain.NotificationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.NotificationRecord
	for _, r := range m.records {
		if r.ReservationID == reservationID {
			result = append(result, r)
		}
	}
	return result, nil
}

// CountByKind counts records of the given kind (for test assertions).
func (m *MockNotificationRepository) CountByKind(kind domain.NotificationKind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.records {
		if r.Kind == kind {
			count++
		}
	}
	return count
}

// CountRecords returns the total number of records.
func (m *MockNotificationRepository) CountRecords() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// ──────────────────────────────────────────────
// MOCK STORE
// ──────────────────────────────────────────────

// MockStore is an in-memory implementation of repository.Store. WithinTx
// runs callbacks one at a time under a mutex, supplying the
// serialization that PostgreSQL transactions and locks provide in
// production. Rollback is not simulated; tests inject errors before
// mutations when they need failure paths.
type MockStore struct {
	mu    sync.Mutex
	repos repository.Repos

	// Counters
	WithinTxCallCount int32

	// Error injection
	BeginError error
}

// NewMockStore creates a mock store over the given mock repositories.
func NewMockStore(
	vehicles *MockVehicleRepository,
	reservations *MockReservationRepository,
	payments *MockPaymentRepository,
	notifications *MockNotificationRepository,
) *MockStore {
	return &MockStore{
		repos: repository.Repos{
			Vehicles:      vehicles,
			Reservations:  reservations,
			Payments:      payments,
			Notifications: notifications,
		},
	}
}

func (m *MockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	atomic.AddInt32(&m.WithinTxCallCount, 1)
	if m.BeginError != nil {
		return m.BeginError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, m.repos)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu        sync.RWMutex
	vehicles  map[string]*domain.Vehicle
	snapshots map[string]*redis.DemandSnapshot

	// Error injection
	GetError error
	SetError error
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		vehicles:  make(map[string]*domain.Vehicle),
		snapshots: make(map[string]*redis.DemandSnapshot),
	}
}

func (m *MockCacheStore) GetVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vehicles[vehicleID], nil
}

func (m *MockCacheStore) SetVehicle(ctx context.Context, vehicle *domain.Vehicle) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[vehicle.ID] = vehicle
	return nil
}

func (m *MockCacheStore) InvalidateVehicle(ctx context.Context, vehicleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vehicles, vehicleID)
	return nil
}

func snapshotKey(category domain.VehicleCategory, location string, windowStart time.Time) string {
	return string(category) + ":" + location + ":" + windowStart.UTC().Format(time.RFC3339)
}

func (m *MockCacheStore) GetDemandSnapshot(ctx context.Context, category domain.VehicleCategory, location string, windowStart time.Time) (*redis.DemandSnapshot, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshots[snapshotKey(category, location, windowStart)], nil
}

func (m *MockCacheStore) SetDemandSnapshot(ctx context.Context, category domain.VehicleCategory, location string, windowStart time.Time, snapshot *redis.DemandSnapshot) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshotKey(category, location, windowStart)] = snapshot
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquirePaymentLock(ctx context.Context, gatewayRef string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if expiry, exists := m.locks[gatewayRef]; exists && time.Now().Before(expiry) {
		return false, nil
	}
	m.locks[gatewayRef] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleasePaymentLock(ctx context.Context, gatewayRef string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, gatewayRef)
	return nil
}

// ──────────────────────────────────────────────
// MOCK GATEWAY AND PUBLISHER
// ──────────────────────────────────────────────

// MockPaymentGateway is a controllable payment gateway.
type MockPaymentGateway struct {
	mu sync.Mutex

	// Control behavior
	CreateIntentError error
	NextIntentID      string

	// Counters
	CreateIntentCallCount int32
}

// NewMockPaymentGateway creates a new mock payment gateway.
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*service.PaymentIntent, error) {
	atomic.AddInt32(&m.CreateIntentCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateIntentError != nil {
		return nil, m.CreateIntentError
	}
	id := m.NextIntentID
	if id == "" {
		id = "pi_test"
	}
	return &service.PaymentIntent{ID: id, ClientSecret: id + "_secret"}, nil
}

// MockNotificationPublisher records published notification records.
type MockNotificationPublisher struct {
	mu        sync.Mutex
	published []*domain.NotificationRecord

	// Error injection
	PublishError error
}

// NewMockNotificationPublisher creates a new mock publisher.
func NewMockNotificationPublisher() *MockNotificationPublisher {
	return &MockNotificationPublisher{}
}

func (m *MockNotificationPublisher) PublishNotification(ctx context.Context, record *domain.NotificationRecord) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, record)
	return nil
}

// PublishedCount returns the number of published records.
func (m *MockNotificationPublisher) PublishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
