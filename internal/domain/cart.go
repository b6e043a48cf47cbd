package domain

import "sync"

// CartLineItem is one product/quantity pairing inside a cart.
type CartLineItem struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	UnitPrice int    `json:"unitPrice"`
	Image     string `json:"image"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
}

// LineTotal returns UnitPrice × Quantity.
func (i CartLineItem) LineTotal() int {
	return i.UnitPrice * i.Quantity
}

// Cart holds the line items of one client. Lines keep insertion order.
// All methods are safe for concurrent use and every mutation is visible to
// the next reader.
type Cart struct {
	mu    sync.RWMutex
	items []CartLineItem
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// Add merges item into the cart. A quantity below 1 counts as 1. If a line
// with the same ID exists its quantity grows; otherwise the item is appended.
func (c *Cart) Add(item CartLineItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == item.ID {
			c.items[i].Quantity += item.Quantity
			return
		}
	}
	c.items = append(c.items, item)
}

// Remove deletes the line with the given ID, if present.
func (c *Cart) Remove(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

func (c *Cart) removeLocked(id int) {
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// SetQuantity updates a line in place. qty <= 0 removes the line and an
// unknown ID is ignored.
func (c *Cart) SetQuantity(id, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty <= 0 {
		c.removeLocked(id)
		return
	}
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = qty
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []CartLineItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]CartLineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns the sum of all quantities.
func (c *Cart) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Subtotal returns the sum of UnitPrice × Quantity over all lines.
func (c *Cart) Subtotal() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, it := range c.items {
		total += it.LineTotal()
	}
	return total
}
