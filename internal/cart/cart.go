package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ActionType names a cart transition
type ActionType string

const (
	ActionAdd         ActionType = "add"
	ActionSetQuantity ActionType = "set_quantity"
	ActionRemove      ActionType = "remove"
	ActionClear       ActionType = "clear"
)

var ErrUnknownAction = errors.New("unknown cart action")

// Action is one cart transition. Item is used by add; Key by set_quantity and
// remove; Quantity by set_quantity.
type Action struct {
	Type     ActionType `json:"type"`
	Item     LineItem   `json:"item"`
	Key      string     `json:"key,omitempty"`
	Quantity int        `json:"quantity,omitempty"`
}

// Cart is an immutable cart state. Apply returns the next state.
type Cart struct {
	Items []LineItem `json:"items"`
}

// New returns an empty cart
func New() Cart {
	return Cart{Items: []LineItem{}}
}

// Apply returns the cart that results from a. The receiver is not modified.
func (c Cart) Apply(a Action) (Cart, error) {
	switch a.Type {
	case ActionAdd:
		if err := a.Item.Validate(); err != nil {
			return c, err
		}
		items := c.clone()
		key := a.Item.Key()
		for i := range items {
			if items[i].Key() == key {
				if items[i].Quantity+a.Item.Quantity > MaxQuantity {
					return c, ErrInvalidQuantity
				}
				items[i].Quantity += a.Item.Quantity
				return Cart{Items: items}, nil
			}
		}
		return Cart{Items: append(items, a.Item)}, nil

	case ActionSetQuantity:
		if a.Quantity < 0 || a.Quantity > MaxQuantity {
			return c, ErrInvalidQuantity
		}
		if a.Quantity == 0 {
			return c.without(a.Key), nil
		}
		items := c.clone()
		for i := range items {
			if items[i].Key() == a.Key {
				items[i].Quantity = a.Quantity
			}
		}
		return Cart{Items: items}, nil

	case ActionRemove:
		return c.without(a.Key), nil

	case ActionClear:
		return New(), nil
	}

	return c, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
}

// Subtotal is the base-currency sum of all line totals
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Count is the total number of units
func (c Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) clone() []LineItem {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return items
}

func (c Cart) without(key string) Cart {
	items := make([]LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.Key() != key {
			items = append(items, item)
		}
	}
	return Cart{Items: items}
}
