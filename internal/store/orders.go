package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/models"
)

// CreateOrder inserts the order and its items in one transaction
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (order_number, customer_id, customer_name, customer_email, customer_phone,
			customer_secondary_phone, delivery_address, special_instructions, order_subtotal,
			shipping_cost, discount, order_total, currency, exchange_rate, order_status,
			payment_status, payment_method, order_source, whatsapp_message_sent, whatsapp_message_template)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.OrderNumber, order.CustomerID, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.CustomerSecondaryPhone, order.DeliveryAddress, order.SpecialInstructions, order.Subtotal,
		order.ShippingCost, order.Discount, order.Total, order.Currency, order.ExchangeRate, order.OrderStatus,
		order.PaymentStatus, order.PaymentMethod, order.OrderSource, order.MessageSent, order.MessageTemplate,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, product_name, product_sku, unit_price,
			quantity, selected_size, selected_color, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		err = tx.GetContext(ctx, &item.ID, itemQuery,
			item.OrderID, item.ProductID, item.ProductName, item.ProductSKU, item.UnitPrice,
			item.Quantity, item.SelectedSize, item.SelectedColor, item.Subtotal)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// GetOrderByNumber retrieves an order with its items. Returns nil when not found.
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE order_number = $1", orderNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := s.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	return items, nil
}

// IncrementProductOrderCount bumps the per-product order counter
func (s *Store) IncrementProductOrderCount(ctx context.Context, productID string, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_stats (product_id, order_count, units_ordered)
		VALUES ($1, 1, $2)
		ON CONFLICT (product_id) DO UPDATE
		SET order_count = product_stats.order_count + 1,
			units_ordered = product_stats.units_ordered + EXCLUDED.units_ordered,
			updated_at = NOW()`,
		productID, quantity)
	return err
}

// CreateNotificationIntent records a hand-off intent. A second intent for the
// same order and template is ignored.
func (s *Store) CreateNotificationIntent(ctx context.Context, intent *models.NotificationIntent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_intents (event_id, order_number, channel, template, deep_link)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_number, template) DO NOTHING`,
		intent.EventID, intent.OrderNumber, intent.Channel, intent.Template, intent.DeepLink)
	return err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
