// Package pricing computes the authoritative product price server-side and
// rejects client-submitted prices that disagree with it (tamper detection).
package pricing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/fairyhunter13/content-unlock-system/internal/catalog"
	"github.com/fairyhunter13/content-unlock-system/internal/model"
)

// Tolerance is the maximum accepted difference between a client price and
// the server price. Effectively exact-match modulo floating-point rounding:
// a one-cent deviation is rejected.
const Tolerance = 0.001

type cacheEntry struct {
	price    float64
	storedAt time.Time
}

// Calculator computes and caches canonical prices keyed by
// productId:variantId. If the upstream catalog call fails the calculation
// fails; checkout must be blocked rather than falling back to the client
// price.
type Calculator struct {
	catalog catalog.Client
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// NewCalculator creates a Calculator over the given catalog client. Cached
// prices are reused for ttl before the catalog is consulted again.
func NewCalculator(c catalog.Client, ttl time.Duration) *Calculator {
	return &Calculator{
		catalog: c,
		ttl:     ttl,
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// ProductPrice returns the canonical unit price for a product variant,
// serving from cache when the entry is still fresh.
func (c *Calculator) ProductPrice(ctx context.Context, productID, variantID string) (float64, error) {
	key := productID + ":" + variantID

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.storedAt) < c.ttl {
		return entry.price, nil
	}

	price, err := c.catalog.VariantPrice(ctx, productID, variantID)
	if err != nil {
		return 0, fmt.Errorf("catalog price for %s: %w", key, err)
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{price: price, storedAt: c.now()}
	c.mu.Unlock()

	return price, nil
}

// ValidatePrice compares a client-submitted price against the canonical
// server price. A catalog failure propagates as an error (fail closed).
func (c *Calculator) ValidatePrice(ctx context.Context, clientPrice float64, productID, variantID string) (*model.PriceValidation, error) {
	serverPrice, err := c.ProductPrice(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}

	diff := math.Abs(clientPrice - serverPrice)
	return &model.PriceValidation{
		Valid:       diff <= Tolerance,
		ServerPrice: round2(serverPrice),
		ClientPrice: round2(clientPrice),
		Difference:  round2(diff),
	}, nil
}

// CacheStats reports the current cache contents for operational testing.
// Expired entries are included; they age out on next lookup.
func (c *Calculator) CacheStats() model.PriceCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	entries := make([]model.PriceCacheEntry, 0, len(c.cache))
	for key, entry := range c.cache {
		entries = append(entries, model.PriceCacheEntry{
			Key:        key,
			Price:      entry.price,
			AgeSeconds: now.Sub(entry.storedAt).Seconds(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return model.PriceCacheStats{Size: len(entries), Entries: entries}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
