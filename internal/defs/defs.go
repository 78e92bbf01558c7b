// Package defs caches the per-account custom-field definitions and loss
// reasons fetched from Kommo. Entries live for ten minutes and are keyed by
// subdomain; refreshes are deduplicated so concurrent requests trigger a
// single fetch.
package defs

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/kommo-bridge/pkg/kommo"
)

// DefaultTTL is how long a cached listing stays fresh.
const DefaultTTL = 10 * time.Minute

// Definitions is the indexed, immutable view over one account's custom-field
// definitions.
type Definitions struct {
	types  map[string]string            // field id → type
	labels map[string]string            // field id → label
	enums  map[string]map[string]string // field id → enum id → label
}

// NewDefinitions indexes a field-definition listing.
func NewDefinitions(fields []kommo.FieldDef) *Definitions {
	d := &Definitions{
		types:  make(map[string]string, len(fields)),
		labels: make(map[string]string, len(fields)),
		enums:  make(map[string]map[string]string),
	}
	for _, f := range fields {
		id := strconv.FormatInt(f.ID, 10)
		d.types[id] = f.Type
		d.labels[id] = f.Name
		if len(f.Enums) > 0 {
			m := make(map[string]string, len(f.Enums))
			for _, e := range f.Enums {
				m[strconv.FormatInt(e.ID, 10)] = e.Value
			}
			d.enums[id] = m
		}
	}
	return d
}

// TypeOf returns the field type for id, or "".
func (d *Definitions) TypeOf(id string) string {
	if d == nil {
		return ""
	}
	return d.types[id]
}

// LabelOf returns the field label for id.
func (d *Definitions) LabelOf(id string) (string, bool) {
	if d == nil {
		return "", false
	}
	label, ok := d.labels[id]
	return label, ok
}

// EnumLabel resolves an enum id within a field's enum map.
func (d *Definitions) EnumLabel(fieldID, enumID string) (string, bool) {
	if d == nil {
		return "", false
	}
	label, ok := d.enums[fieldID][enumID]
	return label, ok
}

// Len returns the number of indexed fields.
func (d *Definitions) Len() int {
	if d == nil {
		return 0
	}
	return len(d.labels)
}

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Cache is the field-definitions cache.
type Cache struct {
	client kommo.Client
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]entry[*Definitions]
	group   singleflight.Group
}

// NewCache creates a definitions cache over the given client.
func NewCache(client kommo.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client:  client,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[*Definitions]),
	}
}

// Ensure returns fresh definitions for the subdomain, fetching only when the
// cached entry is stale or empty.
func (c *Cache) Ensure(ctx context.Context, subdomain string) (*Definitions, error) {
	c.mu.Lock()
	if e, ok := c.entries[subdomain]; ok && c.now().Sub(e.fetchedAt) < c.ttl && e.value.Len() > 0 {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(subdomain, func() (any, error) {
		fields, err := c.client.ListCustomFields(ctx, subdomain)
		if err != nil {
			return nil, eris.Wrap(err, "defs: refresh field definitions")
		}
		d := NewDefinitions(fields)
		c.mu.Lock()
		c.entries[subdomain] = entry[*Definitions]{value: d, fetchedAt: c.now()}
		c.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Definitions), nil
}

// LossReasonCache caches the account's loss-reason listing with the same
// TTL discipline as the definitions cache.
type LossReasonCache struct {
	client kommo.Client
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]entry[map[string]string]
	group   singleflight.Group
}

// NewLossReasonCache creates a loss-reason cache over the given client.
func NewLossReasonCache(client kommo.Client, ttl time.Duration) *LossReasonCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LossReasonCache{
		client:  client,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[map[string]string]),
	}
}

// Ensure returns the loss-reason id → name map for the subdomain.
func (c *LossReasonCache) Ensure(ctx context.Context, subdomain string) (map[string]string, error) {
	c.mu.Lock()
	if e, ok := c.entries[subdomain]; ok && c.now().Sub(e.fetchedAt) < c.ttl && len(e.value) > 0 {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(subdomain, func() (any, error) {
		reasons, err := c.client.ListLossReasons(ctx, subdomain)
		if err != nil {
			return nil, eris.Wrap(err, "defs: refresh loss reasons")
		}
		m := make(map[string]string, len(reasons))
		for _, r := range reasons {
			m[strconv.FormatInt(r.ID, 10)] = r.Name
		}
		c.mu.Lock()
		c.entries[subdomain] = entry[map[string]string]{value: m, fetchedAt: c.now()}
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}
