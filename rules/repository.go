/*
repository.go - Rule repositories

PURPOSE:
  Serves admission.Rule values from persisted JSON documents. Rules are
  keyed by property with an optional room-type override: a lookup for
  (property, roomType) falls back to the property-wide document when no
  room-type-specific one exists, and to a zero-tolerance rule when neither
  exists (the safe default - an unconfigured property oversells nothing).

CACHING:
  Rule documents change rarely and are read on every admission decision, so
  the cached repository keeps parsed rules in patrickmn/go-cache with a
  short TTL. Only RULES are cached. Reservation and inventory counts are
  never cached anywhere in this system: stale counts widen the
  check-then-act race the guard package exists to close.
*/
package rules

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/stayware/admission-engine/admission"
)

// ErrNoDocument is returned by Store implementations when no rule document
// exists for a key. Repositories convert it into the zero-tolerance default.
var ErrNoDocument = errors.New("no rule document")

// Store persists raw rule documents. Implemented by store/sqlite.
type Store interface {
	// RuleDocument returns the JSON document for the exact key, or
	// ErrNoDocument. roomTypeID may be empty for the property-wide document.
	RuleDocument(ctx context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID) (string, error)

	// SaveRuleDocument replaces the document for the key.
	SaveRuleDocument(ctx context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID, doc string) error
}

// =============================================================================
// STORE-BACKED REPOSITORY
// =============================================================================

// Repository resolves rules from a Store with room-type -> property-wide
// fallback. Implements admission.RuleRepository.
type Repository struct {
	Store   Store
	Factory *Factory
}

func NewRepository(store Store) *Repository {
	return &Repository{Store: store, Factory: NewFactory()}
}

func (r *Repository) RuleFor(ctx context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID) (admission.Rule, error) {
	doc, err := r.lookup(ctx, propertyID, roomTypeID)
	if errors.Is(err, ErrNoDocument) {
		// Unconfigured property: tolerate no oversell.
		return admission.Rule{}, nil
	}
	if err != nil {
		return admission.Rule{}, fmt.Errorf("rule lookup for %s/%s: %w", propertyID, roomTypeID, err)
	}

	rule, warnings, err := r.Factory.Parse(doc)
	if err != nil {
		return admission.Rule{}, fmt.Errorf("%w: %v", admission.ErrRuleNotFound, err)
	}
	for _, w := range warnings {
		log.Printf("[Rules] %s", admission.ConfigWarning{PropertyID: propertyID, Detail: w})
	}
	return rule, nil
}

func (r *Repository) lookup(ctx context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID) (string, error) {
	if roomTypeID != "" {
		doc, err := r.Store.RuleDocument(ctx, propertyID, roomTypeID)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, ErrNoDocument) {
			return "", err
		}
	}
	return r.Store.RuleDocument(ctx, propertyID, "")
}

// =============================================================================
// CACHED REPOSITORY
// =============================================================================

// DefaultCacheTTL bounds how stale a rule document may be served. Operators
// editing rules see the change within this window.
const DefaultCacheTTL = 1 * time.Minute

// Cached wraps any admission.RuleRepository with a TTL cache.
type Cached struct {
	Inner admission.RuleRepository
	cache *gocache.Cache
}

func NewCached(inner admission.RuleRepository, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		Inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *Cached) RuleFor(ctx context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID) (admission.Rule, error) {
	key := string(propertyID) + "|" + string(roomTypeID)
	if v, ok := c.cache.Get(key); ok {
		return v.(admission.Rule), nil
	}

	rule, err := c.Inner.RuleFor(ctx, propertyID, roomTypeID)
	if err != nil {
		// Failures are not cached: the next decision retries the lookup.
		return admission.Rule{}, err
	}
	c.cache.SetDefault(key, rule)
	return rule, nil
}

// Invalidate drops the cached entries for a property, both property-wide and
// room-type scoped. Called after a rule document update.
func (c *Cached) Invalidate(propertyID admission.PropertyID) {
	prefix := string(propertyID) + "|"
	for key := range c.cache.Items() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.cache.Delete(key)
		}
	}
}

// =============================================================================
// MEMORY REPOSITORY - for tests and dev
// =============================================================================

// Memory serves rules set directly in code. Implements admission.RuleRepository
// and Store.
type Memory struct {
	mu    sync.RWMutex
	rules map[string]admission.Rule
	docs  map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		rules: make(map[string]admission.Rule),
		docs:  make(map[string]string),
	}
}

// SetRule registers a parsed rule for a key. roomTypeID may be empty.
func (m *Memory) SetRule(propertyID admission.PropertyID, roomTypeID admission.RoomTypeID, rule admission.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[memKey(propertyID, roomTypeID)] = rule
}

func (m *Memory) RuleFor(_ context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID) (admission.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if roomTypeID != "" {
		if rule, ok := m.rules[memKey(propertyID, roomTypeID)]; ok {
			return rule, nil
		}
	}
	if rule, ok := m.rules[memKey(propertyID, "")]; ok {
		return rule, nil
	}
	return admission.Rule{}, nil
}

func (m *Memory) RuleDocument(_ context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[memKey(propertyID, roomTypeID)]
	if !ok {
		return "", ErrNoDocument
	}
	return doc, nil
}

func (m *Memory) SaveRuleDocument(_ context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID, doc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[memKey(propertyID, roomTypeID)] = doc
	return nil
}

func memKey(propertyID admission.PropertyID, roomTypeID admission.RoomTypeID) string {
	return string(propertyID) + "|" + string(roomTypeID)
}

var (
	_ admission.RuleRepository = (*Repository)(nil)
	_ admission.RuleRepository = (*Cached)(nil)
	_ admission.RuleRepository = (*Memory)(nil)
	_ Store                    = (*Memory)(nil)
)
