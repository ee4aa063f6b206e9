package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUpsertAttempts = 3

// CustomerService finds or creates customers by email and merges new details
type CustomerService struct {
	repo      CustomerRepository
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(repo CustomerRepository, publisher EventPublisher) *CustomerService {
	return &CustomerService{
		repo:      repo,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// AddressInput is a delivery address as entered at checkout
type AddressInput struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Province   string `json:"province"`
}

// Format joins the parts as "street, city, postalCode, province"
func (a AddressInput) Format() string {
	parts := []string{
		strings.TrimSpace(a.Street),
		strings.TrimSpace(a.City),
		strings.TrimSpace(a.PostalCode),
		strings.TrimSpace(a.Province),
	}
	return strings.Join(parts, ", ")
}

// IsZero reports whether no part was given
func (a AddressInput) IsZero() bool {
	return strings.TrimSpace(a.Street+a.City+a.PostalCode+a.Province) == ""
}

// CustomerInput is the upsert request
type CustomerInput struct {
	Name              string        `json:"name"`
	Email             string        `json:"email" binding:"required"`
	Phone             string        `json:"phone"`
	SecondaryPhone    string        `json:"secondaryPhone,omitempty"`
	Address           *AddressInput `json:"address,omitempty"`
	PreferredLanguage string        `json:"preferredLanguage,omitempty"`
	MarketingOptIn    *bool         `json:"marketingOptIn,omitempty"`
}

// UpsertResult is the stored customer and what happened to it
type UpsertResult struct {
	Customer *models.Customer
	Created  bool
	Changed  bool
}

// Upsert finds the customer by email and merges in, or creates it. Writes are
// conditional on the row version; a lost race re-reads and merges again.
func (s *CustomerService) Upsert(ctx context.Context, in CustomerInput) (*UpsertResult, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.Upsert")
	defer span.End()

	in, err := normalizeCustomerInput(in)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxUpsertAttempts; attempt++ {
		existing, err := s.repo.FindCustomerByEmail(ctx, in.Email)
		if err != nil {
			util.RecordError(span, err)
			return nil, &CustomerPersistenceError{Err: err}
		}

		if existing == nil {
			customer := newCustomer(in)
			err := s.repo.CreateCustomer(ctx, customer)
			if errors.Is(err, store.ErrCustomerExists) {
				util.CustomerUpsertConflictsTotal.Inc()
				s.logger.Info("Customer created concurrently, merging instead",
					zap.String("email", in.Email),
					zap.Int("attempt", attempt))
				continue
			}
			if err != nil {
				util.RecordError(span, err)
				return nil, &CustomerPersistenceError{Err: err}
			}

			util.CustomersUpsertedTotal.WithLabelValues("created").Inc()
			s.logger.Info("Customer created", zap.Int64("customer_id", customer.ID))
			s.publishUpserted(ctx, customer, true)
			return &UpsertResult{Customer: customer, Created: true, Changed: true}, nil
		}

		if !mergeCustomer(existing, in) {
			util.CustomersUpsertedTotal.WithLabelValues("unchanged").Inc()
			return &UpsertResult{Customer: existing}, nil
		}

		err = s.repo.UpdateCustomer(ctx, existing)
		if errors.Is(err, store.ErrConcurrentUpdate) {
			util.CustomerUpsertConflictsTotal.Inc()
			s.logger.Info("Customer changed concurrently, retrying merge",
				zap.Int64("customer_id", existing.ID),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			util.RecordError(span, err)
			return nil, &CustomerPersistenceError{Err: err}
		}

		util.CustomersUpsertedTotal.WithLabelValues("updated").Inc()
		s.logger.Info("Customer updated", zap.Int64("customer_id", existing.ID))
		s.publishUpserted(ctx, existing, false)
		return &UpsertResult{Customer: existing, Changed: true}, nil
	}

	err = fmt.Errorf("gave up after %d attempts: %w", maxUpsertAttempts, store.ErrConcurrentUpdate)
	util.RecordError(span, err)
	return nil, &CustomerPersistenceError{Err: err}
}

func normalizeCustomerInput(in CustomerInput) (CustomerInput, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.PreferredLanguage = strings.TrimSpace(in.PreferredLanguage)

	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return in, invalid("email", "a valid email is required")
	}

	phone, err := normalizePhone("phone", in.Phone)
	if err != nil {
		return in, err
	}
	in.Phone = phone

	secondary, err := normalizePhone("secondaryPhone", in.SecondaryPhone)
	if err != nil {
		return in, err
	}
	in.SecondaryPhone = secondary

	if in.Address != nil && in.Address.IsZero() {
		in.Address = nil
	}

	return in, nil
}

func normalizePhone(field, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	if !notify.ValidateSriLankanPhone(phone) {
		return "", invalid(field, "not a valid Sri Lankan phone number")
	}
	return notify.FormatSriLankanPhone(phone), nil
}

func newCustomer(in CustomerInput) *models.Customer {
	language := in.PreferredLanguage
	if language == "" {
		language = models.DefaultLanguage
	}

	addresses := models.Addresses{}
	if in.Address != nil {
		addresses = append(addresses, models.Address{
			Type:      models.AddressTypeHome,
			Address:   in.Address.Format(),
			IsDefault: true,
		})
	}

	return &models.Customer{
		Email:               in.Email,
		Name:                in.Name,
		PrimaryPhone:        in.Phone,
		SecondaryPhone:      in.SecondaryPhone,
		Addresses:           addresses,
		CommunicationMethod: models.CommunicationWhatsApp,
		Language:            language,
		MarketingOptIn:      in.MarketingOptIn != nil && *in.MarketingOptIn,
		WhatsAppVerified:    false,
		Status:              models.CustomerStatusActive,
		CustomerType:        models.CustomerTypeRegular,
	}
}

// mergeCustomer applies non-empty differing fields and a new address. It
// reports whether anything changed.
func mergeCustomer(c *models.Customer, in CustomerInput) bool {
	changed := false

	if in.Name != "" && in.Name != c.Name {
		c.Name = in.Name
		changed = true
	}
	if in.Phone != "" && in.Phone != c.PrimaryPhone {
		c.PrimaryPhone = in.Phone
		changed = true
	}
	if in.SecondaryPhone != "" && in.SecondaryPhone != c.SecondaryPhone {
		c.SecondaryPhone = in.SecondaryPhone
		changed = true
	}

	if in.Address != nil {
		formatted := in.Address.Format()
		if !c.Addresses.Contains(formatted) {
			c.Addresses = append(c.Addresses, models.Address{
				Type:      models.AddressTypeHome,
				Address:   formatted,
				IsDefault: len(c.Addresses) == 0,
			})
			changed = true
		}
	}

	return changed
}

func (s *CustomerService) publishUpserted(ctx context.Context, c *models.Customer, created bool) {
	if s.publisher == nil {
		return
	}

	event := &models.CustomerUpsertedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeCustomerUpserted,
			Timestamp: time.Now(),
		},
		CustomerID: c.ID,
		Email:      c.Email,
		Created:    created,
	}

	if err := s.publisher.PublishCustomerUpserted(ctx, event); err != nil {
		s.logger.Error("Failed to publish CustomerUpserted event", zap.Error(err))
	}
}
