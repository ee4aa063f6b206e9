// Package cart holds the client cart model: resolved line items, a reducer
// over them and the versioned snapshot the storefront keeps in local storage.
package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags a line item
type Kind string

const (
	KindVariant Kind = "variant"
	KindSimple  Kind = "simple"
)

// Bounds accepted for a line. Prices are stored with PriceScale decimals.
const (
	PriceScale  = 4
	MaxQuantity = 10000
)

var (
	ErrUnknownKind     = errors.New("unknown line item kind")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 10000")
	ErrInvalidPrice    = errors.New("price must not be negative or have more than 4 decimals")
)

// Product identifies what a line item refers to. Any field may be empty for
// carts written by older clients.
type Product struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	SKU   string `json:"sku,omitempty"`
}

// LineItem is a resolved cart entry. Variant items carry the variant's id and
// name, simple items do not. Price is the unit price in the base currency.
type LineItem struct {
	Kind        Kind            `json:"kind"`
	Product     Product         `json:"product"`
	VariantID   string          `json:"variantId,omitempty"`
	VariantName string          `json:"variantName,omitempty"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// UnitPrice returns the base-currency unit price
func (li LineItem) UnitPrice() decimal.Decimal {
	return li.Price
}

// LineTotal is unit price times quantity
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Key identifies lines that should merge when added twice
func (li LineItem) Key() string {
	return strings.Join([]string{li.Product.ID, li.VariantID, li.Size, li.Color}, "|")
}

// Validate checks quantity and price
func (li LineItem) Validate() error {
	if li.Kind != KindVariant && li.Kind != KindSimple {
		return fmt.Errorf("%w: %q", ErrUnknownKind, li.Kind)
	}
	if li.Quantity < 1 || li.Quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	if li.Price.IsNegative() || !li.Price.Equal(li.Price.Truncate(PriceScale)) {
		return ErrInvalidPrice
	}
	return nil
}

// looseString accepts a JSON string or number. Older carts stored numeric ids.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = looseString(n.String())
	return nil
}

type wireProduct struct {
	ID    looseString `json:"id"`
	Title string      `json:"title"`
	Name  string      `json:"name"`
	SKU   string      `json:"sku"`
}

type wireVariant struct {
	ID    looseString      `json:"id"`
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Size  string           `json:"size"`
	Color string           `json:"color"`
}

// wireLineItem is the union of the tagged shape and the older duck-typed one
type wireLineItem struct {
	Kind        Kind             `json:"kind"`
	Product     *wireProduct     `json:"product"`
	Variant     *wireVariant     `json:"variant"`
	VariantID   looseString      `json:"variantId"`
	VariantName string           `json:"variantName"`
	Size        string           `json:"size"`
	Color       string           `json:"color"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    json.Number      `json:"quantity"`
}

// UnmarshalJSON accepts both the tagged shape and the older
// {product, variant, price, size, color, quantity} shape.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	var w wireLineItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	qty, err := parseQuantity(w.Quantity)
	if err != nil {
		return err
	}

	out := LineItem{Quantity: qty}
	if w.Product != nil {
		out.Product = Product{
			ID:    string(w.Product.ID),
			Title: firstNonEmpty(w.Product.Title, w.Product.Name),
			SKU:   w.Product.SKU,
		}
	}

	switch w.Kind {
	case KindVariant, KindSimple:
		out.Kind = w.Kind
		out.VariantID = string(w.VariantID)
		out.VariantName = w.VariantName
		out.Size = w.Size
		out.Color = w.Color
		out.Price = priceOrZero(w.Price)
	case "":
		if w.Variant != nil {
			out.Kind = KindVariant
			out.VariantID = string(w.Variant.ID)
			out.VariantName = w.Variant.Name
			out.Size = firstNonEmpty(w.Variant.Size, w.Size)
			out.Color = firstNonEmpty(w.Variant.Color, w.Color)
			out.Price = priceOrZero(w.Variant.Price)
			if out.Price.IsZero() {
				out.Price = priceOrZero(w.Price)
			}
		} else {
			out.Kind = KindSimple
			out.Size = w.Size
			out.Color = w.Color
			out.Price = priceOrZero(w.Price)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, w.Kind)
	}

	*li = out
	return nil
}

// parseQuantity accepts whole numbers only. 2.0 is whole, 1.5 is not.
// Range is left to Validate except for values that could not be stored at all.
func parseQuantity(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || !d.IsInteger() || d.Abs().GreaterThan(decimal.NewFromInt(MaxQuantity)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, n)
	}
	return int(d.IntPart()), nil
}

func priceOrZero(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
