package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/models"
)

// FindCustomerByEmail returns nil when no customer has the email
func (s *Store) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return &customer, nil
}

// CreateCustomer inserts a new customer. ErrCustomerExists means another
// request created the same email first.
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (email, name, primary_phone, secondary_phone, addresses,
			communication_method, language, marketing_opt_in, whatsapp_verified, status, customer_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, version, created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		c.Email, c.Name, c.PrimaryPhone, c.SecondaryPhone, c.Addresses,
		c.CommunicationMethod, c.Language, c.MarketingOptIn, c.WhatsAppVerified, c.Status, c.CustomerType)

	err := row.Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCustomerExists
	}
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// UpdateCustomer writes the mutable fields if the row still has c.Version.
// On success c.Version and c.UpdatedAt are refreshed.
func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		UPDATE customers
		SET name = $1, primary_phone = $2, secondary_phone = $3, addresses = $4,
			version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6
		RETURNING version, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		c.Name, c.PrimaryPhone, c.SecondaryPhone, c.Addresses, c.ID, c.Version)

	err := row.Scan(&c.Version, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConcurrentUpdate
	}
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}
