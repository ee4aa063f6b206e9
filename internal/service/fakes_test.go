package service

import (
	"context"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
)

type fakeCustomerRepo struct {
	mu        sync.Mutex
	byEmail   map[string]*models.Customer
	nextID    int64
	findErr   error
	createErr error
	updateErr error
	creates   int
	updates   int

	// simulate a concurrent writer
	createRaceOnce  bool
	updateConflicts int
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{byEmail: make(map[string]*models.Customer)}
}

func copyCustomer(c *models.Customer) *models.Customer {
	cp := *c
	cp.Addresses = append(models.Addresses{}, c.Addresses...)
	return &cp
}

func (r *fakeCustomerRepo) seed(c *models.Customer) *models.Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	c.Version = 1
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.byEmail[c.Email] = copyCustomer(c)
	return c
}

func (r *fakeCustomerRepo) get(email string) *models.Customer {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byEmail[email]
	if !ok {
		return nil
	}
	return copyCustomer(c)
}

func (r *fakeCustomerRepo) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.get(email), nil
}

func (r *fakeCustomerRepo) CreateCustomer(ctx context.Context, c *models.Customer) error {
	if r.createErr != nil {
		return r.createErr
	}
	if r.createRaceOnce {
		r.createRaceOnce = false
		r.seed(&models.Customer{Email: c.Email, Name: "Other Tab", Addresses: models.Addresses{}})
		return store.ErrCustomerExists
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[c.Email]; ok {
		return store.ErrCustomerExists
	}
	r.nextID++
	r.creates++
	c.ID = r.nextID
	c.Version = 1
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.byEmail[c.Email] = copyCustomer(c)
	return nil
}

func (r *fakeCustomerRepo) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	if r.updateErr != nil {
		return r.updateErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byEmail[c.Email]
	if !ok {
		return store.ErrConcurrentUpdate
	}
	if r.updateConflicts > 0 {
		r.updateConflicts--
		stored.Version++
		return store.ErrConcurrentUpdate
	}
	if stored.Version != c.Version {
		return store.ErrConcurrentUpdate
	}
	r.updates++
	c.Version++
	c.UpdatedAt = time.Now()
	r.byEmail[c.Email] = copyCustomer(c)
	return nil
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	stats     map[string]int
	nextID    int64
	createErr error
	getErr    error
	statsErr  error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[string]*models.Order),
		stats:  make(map[string]int),
	}
}

func (r *fakeOrderRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	if r.createErr != nil {
		return r.createErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	order.ID = r.nextID
	order.CreatedAt = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	order.UpdatedAt = order.CreatedAt
	for i := range order.Items {
		order.Items[i].ID = int64(i + 1)
		order.Items[i].OrderID = order.ID
	}

	cp := *order
	cp.Items = append([]models.OrderItem{}, order.Items...)
	r.orders[order.OrderNumber] = &cp
	return nil
}

func (r *fakeOrderRepo) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNumber]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Items = append([]models.OrderItem{}, o.Items...)
	return &cp, nil
}

func (r *fakeOrderRepo) IncrementProductOrderCount(ctx context.Context, productID string, quantity int) error {
	if r.statsErr != nil {
		return r.statsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats[productID]++
	return nil
}

func (r *fakeOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type fakePublisher struct {
	mu        sync.Mutex
	placed    []*models.OrderPlacedEvent
	customers []*models.CustomerUpsertedEvent
	intents   []*models.NotificationIntentEvent
	err       error
}

func (p *fakePublisher) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, e)
	return p.err
}

func (p *fakePublisher) PublishCustomerUpserted(ctx context.Context, e *models.CustomerUpsertedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customers = append(p.customers, e)
	return p.err
}

func (p *fakePublisher) PublishNotificationIntent(ctx context.Context, e *models.NotificationIntentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents = append(p.intents, e)
	return p.err
}

type fakeIdempotencyStore struct {
	mu     sync.Mutex
	keys   map[string]string
	setErr error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]string)}
}

func (s *fakeIdempotencyStore) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *fakeIdempotencyStore) SetIdempotencyKey(ctx context.Context, key, orderNumber string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return false, s.setErr
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = orderNumber
	return true, nil
}

func (s *fakeIdempotencyStore) DeleteIdempotencyKey(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *fakeIdempotencyStore) bound(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.keys[key]
	return v, ok
}

type fakeIntentRepo struct {
	processed map[string]bool
	intents   []*models.NotificationIntent
	createErr error
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{processed: make(map[string]bool)}
}

func (r *fakeIntentRepo) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	return r.processed[eventID], nil
}

func (r *fakeIntentRepo) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	r.processed[eventID] = true
	return nil
}

func (r *fakeIntentRepo) CreateNotificationIntent(ctx context.Context, intent *models.NotificationIntent) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.intents = append(r.intents, intent)
	return nil
}
