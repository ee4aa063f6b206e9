package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is the snapshot layout written by Encode
const SchemaVersion = 1

var ErrUnsupportedSchema = errors.New("unsupported cart schema version")

// Snapshot is the persisted form of a cart
type Snapshot struct {
	Version int        `json:"version"`
	Items   []LineItem `json:"items"`
	SavedAt time.Time  `json:"savedAt"`
}

// Encode serializes the cart as a current-version snapshot
func (c Cart) Encode(at time.Time) ([]byte, error) {
	items := c.Items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(Snapshot{Version: SchemaVersion, Items: items, SavedAt: at.UTC()})
}

// Decode reads a snapshot. A bare JSON array is the unversioned layout older
// clients stored and is upgraded on read. Lines that fail validation are dropped.
func Decode(data []byte) (Cart, error) {
	data = bytes.TrimSpace(data)

	var items []LineItem
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return Cart{}, fmt.Errorf("failed to decode cart: %w", err)
		}
	} else {
		var header struct {
			Version int `json:"version"`
		}
		if err := json.Unmarshal(data, &header); err != nil {
			return Cart{}, fmt.Errorf("failed to decode cart: %w", err)
		}
		if header.Version != SchemaVersion {
			return Cart{}, fmt.Errorf("%w: %d", ErrUnsupportedSchema, header.Version)
		}

		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return Cart{}, fmt.Errorf("failed to decode cart: %w", err)
		}
		items = snap.Items
	}

	c := New()
	for _, item := range items {
		if item.Validate() != nil {
			continue
		}
		c.Items = append(c.Items, item)
	}
	return c, nil
}
