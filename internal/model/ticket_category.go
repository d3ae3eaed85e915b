package model

import (
	"encoding/json"
	"sync"

	"github.com/shopspring/decimal"
)

// TicketCategory is a named, priced pool of tickets for one event and acts
// as the in-memory inventory ledger for that pool.  Reserve and Restore are
// safe for concurrent use; the availability check and the decrement happen
// under one lock so concurrent callers cannot both spend the same tickets.
//
// Fields:
//  Name      – unique within the owning event.
//  Price     – non-negative, fixed at creation.
//  available – remaining tickets; never negative.  Restore does not cap
//              it at the original allotment.
type TicketCategory struct {
	Name  string          // ticket_categories.category_name
	Price decimal.Decimal // ticket_categories.price

	mu        sync.Mutex
	available int // ticket_categories.available
}

// NewTicketCategory builds a category.  Negative availability is clamped to
// zero so the ledger never starts below its floor.
func NewTicketCategory(name string, price decimal.Decimal, available int) *TicketCategory {
	if available < 0 {
		available = 0
	}
	return &TicketCategory{Name: name, Price: price, available: available}
}

// Available returns the current number of undebited tickets.
func (c *TicketCategory) Available() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// Reserve debits quantity tickets.  It succeeds only when quantity is
// positive and no larger than what is available; on failure nothing changes.
func (c *TicketCategory) Reserve(quantity int) bool {
	if quantity <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if quantity > c.available {
		return false
	}
	c.available -= quantity
	return true
}

// Restore credits quantity tickets back.  Non-positive quantities are
// ignored rather than rejected.
func (c *TicketCategory) Restore(quantity int) {
	if quantity <= 0 {
		return
	}
	c.mu.Lock()
	c.available += quantity
	c.mu.Unlock()
}

// set overwrites availability; used by stores rolling back a transaction.
func (c *TicketCategory) set(available int) {
	c.mu.Lock()
	c.available = available
	c.mu.Unlock()
}

// Clone returns an independent copy with the same name, price and availability.
func (c *TicketCategory) Clone() *TicketCategory {
	return NewTicketCategory(c.Name, c.Price, c.Available())
}

type ticketCategoryJSON struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available int             `json:"available"`
}

func (c *TicketCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(ticketCategoryJSON{Name: c.Name, Price: c.Price, Available: c.Available()})
}

func (c *TicketCategory) UnmarshalJSON(b []byte) error {
	var v ticketCategoryJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	c.Name = v.Name
	c.Price = v.Price
	c.set(v.Available)
	return nil
}

// RestoreSnapshot resets availability to a value captured earlier with
// Available.  Stores use it to undo ledger mutations of an aborted transaction.
func (c *TicketCategory) RestoreSnapshot(available int) {
	c.set(available)
}
