package domain

import (
	"encoding/json"
	"fmt"
)

type CartEntry struct {
	ProductID int64 `json:"product_id" bson:"product_id"`
	Quantity  int   `json:"quantity" bson:"quantity"`
}

// Cart is an insertion-ordered mapping of product id to quantity.
// Entries always hold a quantity of at least one.
type Cart struct {
	entries []CartEntry
}

func NewCart(entries ...CartEntry) *Cart {
	c := &Cart{}
	for _, e := range entries {
		c.Set(e.ProductID, e.Quantity)
	}
	return c
}

func (c *Cart) index(productID int64) int {
	for i, e := range c.entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity for productID, zero when absent.
func (c *Cart) Quantity(productID int64) int {
	if i := c.index(productID); i >= 0 {
		return c.entries[i].Quantity
	}
	return 0
}

func (c *Cart) Has(productID int64) bool {
	return c.index(productID) >= 0
}

// Set stores quantity for productID, keeping the original position of an
// existing entry. A quantity of zero or less removes the entry.
func (c *Cart) Set(productID int64, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	if i := c.index(productID); i >= 0 {
		c.entries[i].Quantity = quantity
		return
	}
	c.entries = append(c.entries, CartEntry{ProductID: productID, Quantity: quantity})
}

// Remove deletes productID and reports whether it was present.
func (c *Cart) Remove(productID int64) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.entries = nil
}

func (c *Cart) Len() int {
	return len(c.entries)
}

func (c *Cart) IsEmpty() bool {
	return len(c.entries) == 0
}

// Entries returns a copy of the entries in insertion order.
func (c *Cart) Entries() []CartEntry {
	out := make([]CartEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Cart) ProductIDs() []int64 {
	ids := make([]int64, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.ProductID
	}
	return ids
}

// TotalQuantity is the number of units across all entries.
func (c *Cart) TotalQuantity() int {
	n := 0
	for _, e := range c.entries {
		n += e.Quantity
	}
	return n
}

type cartJSON struct {
	Items []CartEntry `json:"items"`
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	items := c.entries
	if items == nil {
		items = []CartEntry{}
	}
	return json.Marshal(cartJSON{Items: items})
}

// UnmarshalJSON rejects entries with a non-positive product id or quantity.
// Duplicate product ids collapse onto the first position, last quantity wins.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.entries = nil
	for _, e := range raw.Items {
		if e.ProductID <= 0 {
			return fmt.Errorf("cart entry has invalid product id %d", e.ProductID)
		}
		if e.Quantity < 1 {
			return fmt.Errorf("cart entry for product %d has invalid quantity %d", e.ProductID, e.Quantity)
		}
		c.Set(e.ProductID, e.Quantity)
	}
	return nil
}
