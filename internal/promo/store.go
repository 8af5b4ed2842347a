package promo

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/content-unlock-system/internal/model"
)

var (
	// ErrCodeExists is returned when creating a code that already exists.
	ErrCodeExists = errors.New("promo code already exists")

	// ErrCodeNotFound is returned when a code cannot be found.
	ErrCodeNotFound = errors.New("promo code not found")
)

// Store is the single source of truth for promo-code definitions and usage
// counters. It is deliberately ephemeral: codes are seeded at construction
// and admin mutations live only until the process restarts.
type Store struct {
	mu    sync.RWMutex
	codes map[string]*model.PromoCode
	now   func() time.Time
}

// NewStore creates a Store seeded with the default codes.
func NewStore() *Store {
	s := &Store{
		codes: make(map[string]*model.PromoCode),
		now:   time.Now,
	}
	s.seedDefaults()
	return s
}

// Normalize canonicalizes a promo code for lookup: trimmed, upper-cased.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Store) seedDefaults() {
	now := s.now()
	for _, pc := range []*model.PromoCode{
		{Code: "WELCOME10", Type: model.ContentTypeAll, Discount: 10},
		{Code: "BLOCKC2024", Type: model.ContentTypeBook, Target: "block-c", Discount: 100},
		{Code: "COAUTHOR2024", Type: model.ContentTypeMeditation, Discount: 100},
	} {
		pc.CreatedAt = now
		s.codes[pc.Code] = pc
	}
}

// Validate checks whether a code unlocks the given content. It is read-only:
// callers that want to consume a use must call Redeem instead.
func (s *Store) Validate(code, contentType, contentID string) model.PromoValidation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(Normalize(code), contentType, contentID)
}

// Redeem validates the code and, when valid, increments its usage count.
// Validation and increment happen under one lock so that two concurrent
// redemptions cannot both pass a maxUses check with a single use remaining.
func (s *Store) Redeem(code, contentType, contentID string) model.PromoValidation {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := Normalize(code)
	res := s.check(normalized, contentType, contentID)
	if res.Valid {
		s.codes[normalized].UsageCount++
	}
	return res
}

// check assumes the caller holds at least a read lock and that code is
// already normalized.
func (s *Store) check(code, contentType, contentID string) model.PromoValidation {
	pc, ok := s.codes[code]
	if !ok {
		return invalid("Invalid promo code")
	}
	if pc.ExpiresAt != nil && !s.now().Before(*pc.ExpiresAt) {
		return invalid("This promo code has expired")
	}
	if pc.MaxUses > 0 && pc.UsageCount >= pc.MaxUses {
		return invalid("This promo code has reached its usage limit")
	}
	if pc.Type != model.ContentTypeAll && pc.Type != contentType {
		return invalid("This promo code is not valid for this content")
	}
	if pc.Target != "" && pc.Target != contentID {
		return invalid("This promo code is not valid for this content")
	}

	msg := fmt.Sprintf("%d%% discount applied!", pc.Discount)
	if pc.Discount == 100 {
		msg = "Free access!"
	}
	return model.PromoValidation{Valid: true, Discount: pc.Discount, Message: msg}
}

func invalid(msg string) model.PromoValidation {
	return model.PromoValidation{Valid: false, Message: msg}
}

// Create adds a new promo code. The code is normalized before insertion.
// Returns ErrCodeExists if a code with the same normalized form exists.
func (s *Store) Create(pc *model.PromoCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := Normalize(pc.Code)
	if _, ok := s.codes[code]; ok {
		return ErrCodeExists
	}

	stored := *pc
	stored.Code = code
	stored.UsageCount = 0
	stored.CreatedAt = s.now()
	s.codes[code] = &stored
	return nil
}

// Update replaces the mutable fields of an existing code. The original
// code, createdAt, and usageCount are preserved regardless of what the
// caller supplies. Returns the updated code or ErrCodeNotFound.
func (s *Store) Update(code string, upd *model.PromoCode) (*model.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := Normalize(code)
	existing, ok := s.codes[normalized]
	if !ok {
		return nil, ErrCodeNotFound
	}

	existing.Type = upd.Type
	existing.Target = upd.Target
	existing.Discount = upd.Discount
	existing.MaxUses = upd.MaxUses
	existing.ExpiresAt = upd.ExpiresAt

	out := *existing
	return &out, nil
}

// Delete removes a code. Returns ErrCodeNotFound if it does not exist.
func (s *Store) Delete(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := Normalize(code)
	if _, ok := s.codes[normalized]; !ok {
		return ErrCodeNotFound
	}
	delete(s.codes, normalized)
	return nil
}

// Get returns a copy of a code, or ErrCodeNotFound.
func (s *Store) Get(code string) (*model.PromoCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pc, ok := s.codes[Normalize(code)]
	if !ok {
		return nil, ErrCodeNotFound
	}
	out := *pc
	return &out, nil
}

// List returns copies of all codes sorted by code.
func (s *Store) List() []model.PromoCode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PromoCode, 0, len(s.codes))
	for _, pc := range s.codes {
		out = append(out, *pc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// DiscountedPrice applies a percentage discount to a price, rounded to two
// decimal places and floored at zero.
func DiscountedPrice(originalPrice float64, discount int) float64 {
	price := originalPrice * (1 - float64(discount)/100)
	price = math.Round(price*100) / 100
	if price < 0 {
		price = 0
	}
	return price
}
