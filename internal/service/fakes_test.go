package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oppshop/fulfillment/internal/domain"
	"github.com/oppshop/fulfillment/internal/repository"
	"github.com/oppshop/fulfillment/pkg/errors"
)

type lineKey struct {
	orderID   uuid.UUID
	productID uuid.UUID
}

// memStore is the shared state behind the in-memory repositories. Timestamps
// come from a ticking fake clock so the event log stays strictly
// chronological without sleeping.
type memStore struct {
	clock       time.Time
	seq         int64
	products    map[uuid.UUID]*domain.Product
	points      map[uuid.UUID]*domain.PickupPoint
	orders      map[uuid.UUID]*domain.Order
	lines       map[lineKey]*domain.OrderedLine
	lineKeys    []lineKey
	events      []domain.ProductStatusEvent
	orderEvents []domain.OrderStatusEvent
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		products: make(map[uuid.UUID]*domain.Product),
		points:   make(map[uuid.UUID]*domain.PickupPoint),
		orders:   make(map[uuid.UUID]*domain.Order),
		lines:    make(map[lineKey]*domain.OrderedLine),
	}
}

func newMemRepos() (*repository.Repositories, *memStore) {
	store := newMemStore()
	repos := &repository.Repositories{
		Product:      &fakeProducts{store},
		PickupPoint:  &fakePoints{store},
		Order:        &fakeOrders{store},
		OrderedLine:  &fakeLines{store},
		ProductEvent: &fakeProductEvents{store},
		OrderEvent:   &fakeOrderEvents{store},
	}
	repos.Transactor = &memTransactor{store: store, repos: repos}
	return repos, store
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) snapshot() *memStore {
	snap := newMemStore()
	snap.clock = s.clock
	snap.seq = s.seq
	for id, p := range s.products {
		cp := *p
		snap.products[id] = &cp
	}
	for id, p := range s.points {
		cp := *p
		snap.points[id] = &cp
	}
	for id, o := range s.orders {
		cp := *o
		snap.orders[id] = &cp
	}
	for key, l := range s.lines {
		cp := *l
		snap.lines[key] = &cp
	}
	snap.lineKeys = append([]lineKey(nil), s.lineKeys...)
	snap.events = append([]domain.ProductStatusEvent(nil), s.events...)
	snap.orderEvents = append([]domain.OrderStatusEvent(nil), s.orderEvents...)
	return snap
}

func (s *memStore) restore(snap *memStore) {
	s.clock = snap.clock
	s.seq = snap.seq
	s.products = snap.products
	s.points = snap.points
	s.orders = snap.orders
	s.lines = snap.lines
	s.lineKeys = snap.lineKeys
	s.events = snap.events
	s.orderEvents = snap.orderEvents
}

// memTransactor restores a pre-call snapshot when fn fails, matching the
// rollback semantics the services rely on.
type memTransactor struct {
	store *memStore
	repos *repository.Repositories
}

func (t *memTransactor) Transact(ctx context.Context, fn func(*repository.Repositories) error) error {
	snap := t.store.snapshot()
	if err := fn(t.repos); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type fakeProducts struct{ store *memStore }

func (f *fakeProducts) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := f.store.products[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeProducts) Create(ctx context.Context, product *domain.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	cp := *product
	f.store.products[product.ID] = &cp
	return nil
}

func (f *fakeProducts) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	p, ok := f.store.products[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	if p.AvailableStock+delta < 0 {
		return &errors.ErrInsufficientStock{
			ProductID: id.String(),
			Requested: -delta,
			Available: p.AvailableStock,
		}
	}
	p.AvailableStock += delta
	return nil
}

type fakePoints struct{ store *memStore }

func (f *fakePoints) GetByID(ctx context.Context, id uuid.UUID) (*domain.PickupPoint, error) {
	p, ok := f.store.points[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "pickup point", ID: id.String()}
	}
	cp := *p
	return &cp, nil
}

func (f *fakePoints) GetByAPIKey(ctx context.Context, apiKey string) (*domain.PickupPoint, error) {
	// Fake stores the key in clear instead of a bcrypt hash.
	for _, p := range f.store.points {
		if p.IsActive && p.APIKeyHash == apiKey {
			cp := *p
			return &cp, nil
		}
	}
	return nil, &errors.ErrUnauthorized{Message: "invalid API key"}
}

func (f *fakePoints) Create(ctx context.Context, point *domain.PickupPoint) error {
	if point.ID == uuid.Nil {
		point.ID = uuid.New()
	}
	cp := *point
	f.store.points[point.ID] = &cp
	return nil
}

type fakeOrders struct{ store *memStore }

func (f *fakeOrders) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := f.store.orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) Create(ctx context.Context, order *domain.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = f.store.tick()
	}
	cp := *order
	f.store.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrders) MarkReceived(ctx context.Context, id uuid.UUID, at time.Time) error {
	o, ok := f.store.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if o.ReceivedAt == nil {
		o.ReceivedAt = &at
	}
	return nil
}

type fakeLines struct{ store *memStore }

func (f *fakeLines) Get(ctx context.Context, orderID, productID uuid.UUID) (*domain.OrderedLine, error) {
	l, ok := f.store.lines[lineKey{orderID, productID}]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "ordered line", ID: orderID.String() + "/" + productID.String()}
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLines) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderedLine, error) {
	var out []*domain.OrderedLine
	for _, key := range f.store.lineKeys {
		if key.orderID != orderID {
			continue
		}
		cp := *f.store.lines[key]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeLines) CreateBatch(ctx context.Context, lines []*domain.OrderedLine) error {
	for _, line := range lines {
		key := lineKey{line.OrderID, line.ProductID}
		cp := *line
		f.store.lines[key] = &cp
		f.store.lineKeys = append(f.store.lineKeys, key)
	}
	return nil
}

func (f *fakeLines) IncrementReceived(ctx context.Context, orderID, productID uuid.UUID, quantity int) error {
	l, ok := f.store.lines[lineKey{orderID, productID}]
	if !ok {
		return &errors.ErrNotFound{Resource: "ordered line", ID: orderID.String() + "/" + productID.String()}
	}
	l.ReceivedCount += quantity
	return nil
}

type fakeProductEvents struct{ store *memStore }

func (f *fakeProductEvents) Append(ctx context.Context, event *domain.ProductStatusEvent) error {
	f.store.seq++
	event.ID = f.store.seq
	if event.OccurredAt.IsZero() {
		event.OccurredAt = f.store.tick()
	}
	f.store.events = append(f.store.events, *event)
	return nil
}

func (f *fakeProductEvents) List(ctx context.Context, orderID, productID uuid.UUID) ([]domain.ProductStatusEvent, error) {
	var out []domain.ProductStatusEvent
	for _, e := range f.store.events {
		if e.OrderID == orderID && e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeProductEvents) ListForUpdate(ctx context.Context, orderID, productID uuid.UUID) ([]domain.ProductStatusEvent, error) {
	return f.List(ctx, orderID, productID)
}

func (f *fakeProductEvents) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.ProductStatusEvent, error) {
	var out []domain.ProductStatusEvent
	for _, e := range f.store.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeOrderEvents struct{ store *memStore }

func (f *fakeOrderEvents) Create(ctx context.Context, event *domain.OrderStatusEvent) error {
	f.store.seq++
	event.ID = f.store.seq
	if event.OccurredAt.IsZero() {
		event.OccurredAt = f.store.tick()
	}
	f.store.orderEvents = append(f.store.orderEvents, *event)
	return nil
}

func (f *fakeOrderEvents) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.OrderStatusEvent, error) {
	var out []domain.OrderStatusEvent
	for _, e := range f.store.orderEvents {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeLogistics records every collaborator call and fails on demand.
type fakeLogistics struct {
	notifyErr   error
	assignErr   error
	completeErr error
	planErr     error

	arrivalPlan *ArrivalPlan
	completions map[uuid.UUID][]LegDelivery

	notices        []ArrivalNotice
	assignments    []LegAssignment
	plannedReturns [][]ReturnDelivery
}

func newFakeLogistics() *fakeLogistics {
	return &fakeLogistics{completions: make(map[uuid.UUID][]LegDelivery)}
}

func (f *fakeLogistics) NotifyArrival(ctx context.Context, notice ArrivalNotice) (*ArrivalPlan, error) {
	if f.notifyErr != nil {
		return nil, f.notifyErr
	}
	f.notices = append(f.notices, notice)
	return f.arrivalPlan, nil
}

func (f *fakeLogistics) AssignToLeg(ctx context.Context, assignment LegAssignment) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	f.assignments = append(f.assignments, assignment)
	return nil
}

func (f *fakeLogistics) CompleteLeg(ctx context.Context, legID uuid.UUID) ([]LegDelivery, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return f.completions[legID], nil
}

func (f *fakeLogistics) PlanReturnDelivery(ctx context.Context, returns []ReturnDelivery) error {
	if f.planErr != nil {
		return f.planErr
	}
	f.plannedReturns = append(f.plannedReturns, returns)
	return nil
}
