package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staybridge/booking-confirmation/internal/database"
	"github.com/staybridge/booking-confirmation/internal/models"
	"github.com/staybridge/booking-confirmation/pkg/supplier"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// ============================================================================
// Supplier
// ============================================================================

type statusStep struct {
	result *supplier.StatusResult
	err    error
}

func processing() statusStep {
	return statusStep{result: &supplier.StatusResult{Status: supplier.StatusProcessing}}
}

func statusOf(s supplier.Status) statusStep {
	return statusStep{result: &supplier.StatusResult{Status: s}}
}

// fakeGateway replays scripted status checks; the last step repeats
type fakeGateway struct {
	mu sync.Mutex

	finishResult *supplier.FinishBookingResult
	finishErr    error
	finishDelay  time.Duration
	statuses     []statusStep
	orderInfo    *supplier.OrderInfo
	orderInfoErr error
	orderPanic   bool

	finishCalls    int
	statusCalls    int
	orderInfoCalls int
}

func newFakeGateway(orderID int64, steps ...statusStep) *fakeGateway {
	return &fakeGateway{
		finishResult: &supplier.FinishBookingResult{Success: true, OrderID: orderID, ItemID: "IT-1"},
		statuses:     steps,
	}
}

func (g *fakeGateway) FinishBooking(ctx context.Context, req supplier.FinishBookingRequest) (*supplier.FinishBookingResult, error) {
	g.mu.Lock()
	g.finishCalls++
	result, err, delay := g.finishResult, g.finishErr, g.finishDelay
	g.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	copied := *result
	return &copied, nil
}

func (g *fakeGateway) CheckStatus(ctx context.Context, partnerOrderID string) (*supplier.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := g.statusCalls
	g.statusCalls++
	if len(g.statuses) == 0 {
		return &supplier.StatusResult{Status: supplier.StatusProcessing}, nil
	}
	if idx >= len(g.statuses) {
		idx = len(g.statuses) - 1
	}
	step := g.statuses[idx]
	return step.result, step.err
}

func (g *fakeGateway) GetOrderInfo(ctx context.Context, orderID int64) (*supplier.OrderInfo, error) {
	g.mu.Lock()
	g.orderInfoCalls++
	info, err, panics := g.orderInfo, g.orderInfoErr, g.orderPanic
	g.mu.Unlock()

	if panics {
		panic("order info decoder blew up")
	}
	return info, err
}

func (g *fakeGateway) GetName() string {
	return "fake"
}

func (g *fakeGateway) calls() (finish, status, orderInfo int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finishCalls, g.statusCalls, g.orderInfoCalls
}

// ============================================================================
// Clock
// ============================================================================

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// ============================================================================
// Reservation store
// ============================================================================

// memoryReservationStore behaves like the reservations table: one row per
// partner order id, final rows are never overwritten.
type memoryReservationStore struct {
	mu        sync.Mutex
	records   map[string]models.ReservationRecord
	upsertErr error
	upserts   int
}

func newMemoryReservationStore() *memoryReservationStore {
	return &memoryReservationStore{records: make(map[string]models.ReservationRecord)}
}

func (s *memoryReservationStore) Upsert(ctx context.Context, record *models.ReservationRecord) (*models.ReservationRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upserts++
	if s.upsertErr != nil {
		return nil, false, s.upsertErr
	}

	record.SupplierIdentifier = models.SupplierIdentifierFor(record.PartnerOrderID, record.SupplierOrderID)
	if existing, ok := s.records[record.PartnerOrderID]; ok {
		if existing.PartnerID != record.PartnerID {
			return nil, false, database.ErrPartnerOrderIDTaken
		}
		if existing.Status.IsFinal() {
			return &existing, false, nil
		}
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	stored := *record
	s.records[record.PartnerOrderID] = stored
	return &stored, true, nil
}

func (s *memoryReservationStore) GetByPartnerOrderID(ctx context.Context, partnerOrderID string) (*models.ReservationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[partnerOrderID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *memoryReservationStore) ResolvePending(ctx context.Context, partnerOrderID string, status models.ReservationStatus, confirmationNumber, failureReason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[partnerOrderID]
	if !ok || record.Status != models.ReservationStatusPendingConfirmation {
		return false, nil
	}
	record.Status = status
	if confirmationNumber != "" {
		record.ConfirmationNumber = models.NewNullString(confirmationNumber)
	}
	record.FailureReason = models.NewNullString(failureReason)
	s.records[partnerOrderID] = record
	return true, nil
}

func (s *memoryReservationStore) ListPendingConfirmation(ctx context.Context, olderThan time.Time, limit int) ([]models.ReservationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []models.ReservationRecord
	for _, record := range s.records {
		if record.Status == models.ReservationStatusPendingConfirmation && record.UpdatedAt.Before(olderThan) {
			pending = append(pending, record)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].PartnerOrderID < pending[j].PartnerOrderID })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *memoryReservationStore) put(record models.ReservationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.SupplierIdentifier = models.SupplierIdentifierFor(record.PartnerOrderID, record.SupplierOrderID)
	s.records[record.PartnerOrderID] = record
}

func (s *memoryReservationStore) get(partnerOrderID string) (models.ReservationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[partnerOrderID]
	return record, ok
}

func (s *memoryReservationStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ============================================================================
// Customers, notifications, audit
// ============================================================================

type memoryCustomerStore struct {
	mu          sync.Mutex
	customers   map[string]*models.Customer
	getErr      error
	raceWinner  *models.Customer // inserted right before CreateCustomer reports a conflict
	getCalls    int
	createCalls int
}

func newMemoryCustomerStore() *memoryCustomerStore {
	return &memoryCustomerStore{customers: make(map[string]*models.Customer)}
}

func (s *memoryCustomerStore) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.customers[email], nil
}

func (s *memoryCustomerStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++

	if s.raceWinner != nil {
		s.customers[s.raceWinner.Email] = s.raceWinner
		return database.ErrCustomerExists
	}
	if _, ok := s.customers[customer.Email]; ok {
		return database.ErrCustomerExists
	}
	customer.ID = uuid.New()
	s.customers[customer.Email] = customer
	return nil
}

type recordingNotifier struct {
	mu         sync.Mutex
	dispatched []models.ReservationRecord
}

func (n *recordingNotifier) Dispatch(ctx context.Context, record *models.ReservationRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dispatched = append(n.dispatched, *record)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.dispatched)
}

type memoryAuditStore struct {
	mu      sync.Mutex
	entries []models.BookingAudit
	err     error
}

func (s *memoryAuditStore) Log(ctx context.Context, audit *models.BookingAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, *audit)
	return nil
}

func (s *memoryAuditStore) events() []models.BookingEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]models.BookingEventType, 0, len(s.entries))
	for _, e := range s.entries {
		types = append(types, e.EventType)
	}
	return types
}

var errStoreDown = errors.New("connection refused")
