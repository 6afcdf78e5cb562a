// Package state holds the in-memory view shared by the recording pipeline,
// the TUI and the MCP server: the API key, the viewed day and its entries.
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwulff/calo/internal/db"
)

// DayReader loads the entries of one day.
type DayReader interface {
	EntriesForDate(ctx context.Context, date string) ([]db.FoodEntry, error)
}

// Snapshot is a copy of the container contents.
type Snapshot struct {
	APIKey  string
	Date    string
	Entries []db.FoodEntry
}

// Container is safe for concurrent use. Readers always get copies.
type Container struct {
	mu      sync.RWMutex
	apiKey  string
	date    string
	entries []db.FoodEntry
}

// New returns a container viewing date.
func New(apiKey, date string) *Container {
	return &Container{apiKey: apiKey, date: date, entries: []db.FoodEntry{}}
}

// APIKey returns the current credential.
func (c *Container) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// SetAPIKey replaces the credential.
func (c *Container) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

// Date returns the viewed day.
func (c *Container) Date() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.date
}

// Entries returns a copy of the viewed day's entries.
func (c *Container) Entries() []db.FoodEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]db.FoodEntry{}, c.entries...)
}

// Snapshot returns a copy of everything.
func (c *Container) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		APIKey:  c.apiKey,
		Date:    c.date,
		Entries: append([]db.FoodEntry{}, c.entries...),
	}
}

// ReplaceDay switches the viewed day and its entries.
func (c *Container) ReplaceDay(date string, entries []db.FoodEntry) {
	c.mu.Lock()
	c.date = date
	c.entries = append([]db.FoodEntry{}, entries...)
	c.mu.Unlock()
}

// Add appends a persisted entry. Entries for another day are ignored and
// Add reports false.
func (c *Container) Add(e db.FoodEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.Date != c.date {
		return false
	}
	c.entries = append(c.entries, e)
	return true
}

// Update replaces the entry with the same id. It reports whether the entry
// was present.
func (c *Container) Update(e db.FoodEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == e.ID {
			c.entries[i] = e
			return true
		}
	}
	return false
}

// Remove drops the entry with id, if present.
func (c *Container) Remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Hydrate loads date from r and makes it the viewed day.
func (c *Container) Hydrate(ctx context.Context, r DayReader, date string) error {
	entries, err := r.EntriesForDate(ctx, date)
	if err != nil {
		return fmt.Errorf("load %s: %w", date, err)
	}
	c.ReplaceDay(date, entries)
	return nil
}
