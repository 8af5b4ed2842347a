package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/content-unlock-system/internal/model"
	"github.com/fairyhunter13/content-unlock-system/internal/payment"
	"github.com/fairyhunter13/content-unlock-system/internal/promo"
	"github.com/fairyhunter13/content-unlock-system/internal/token"
	"github.com/fairyhunter13/content-unlock-system/internal/unlock"
)

// PromoRedeemer defines the promo-store operations the unlock flow needs.
// Validate is read-only; Redeem consumes a use.
type PromoRedeemer interface {
	Validate(code, contentType, contentID string) model.PromoValidation
	Redeem(code, contentType, contentID string) model.PromoValidation
}

// TokenManager defines the interface for issuing and verifying signed
// unlock tokens.
type TokenManager interface {
	Issue(contentType, contentID, email, promoCode string) (string, error)
	Verify(tokenStr string) (*token.Claims, error)
}

// AuditWriter writes one-off per-event records. Failures are logged, not
// propagated: audit records are never read back.
type AuditWriter interface {
	WriteRecord(contentType, name string, payload any) error
}

// UnlockService orchestrates promo redemptions and checkout verifications
// into durable unlock records plus signed unlock tokens.
type UnlockService struct {
	promos   PromoRedeemer
	store    unlock.Store
	sessions payment.SessionVerifier
	tokens   TokenManager
	audit    AuditWriter
	now      func() time.Time
}

// NewUnlockService creates an UnlockService with the given collaborators.
func NewUnlockService(promos PromoRedeemer, store unlock.Store, sessions payment.SessionVerifier, tokens TokenManager, audit AuditWriter) *UnlockService {
	return &UnlockService{
		promos:   promos,
		store:    store,
		sessions: sessions,
		tokens:   tokens,
		audit:    audit,
		now:      time.Now,
	}
}

type promoAuditRecord struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Email       string    `json:"email"`
	ContentType string    `json:"contentType"`
	ContentID   string    `json:"contentId"`
	Timestamp   time.Time `json:"timestamp"`
}

type sessionAuditRecord struct {
	ID             uuid.UUID `json:"id"`
	SessionID      string    `json:"sessionId"`
	Email          string    `json:"email"`
	MeditationSlug string    `json:"meditationSlug"`
	PurchaseType   string    `json:"purchaseType"`
	Timestamp      time.Time `json:"timestamp"`
}

// PromoUnlock redeems a promo code and, for full-discount codes, persists
// the unlock and issues a signed token. Invalid codes and partial discounts
// come back as an unsuccessful result, not an error; errors mean the unlock
// could not be persisted. Rejected requests never consume a use: the code is
// checked read-only first and redeemed only on the full-unlock path.
func (s *UnlockService) PromoUnlock(ctx context.Context, req *model.PromoUnlockRequest) (*model.PromoUnlockResult, error) {
	res := s.promos.Validate(req.Code, req.ContentType, req.ContentID)
	if !res.Valid {
		return &model.PromoUnlockResult{Success: false, Message: res.Message}, nil
	}
	if res.Discount < 100 {
		return &model.PromoUnlockResult{
			Success: false,
			Message: fmt.Sprintf("This code grants a %d%% discount; apply it at checkout instead", res.Discount),
		}, nil
	}

	// A concurrent redemption may exhaust the code between the read-only
	// check and here; Redeem re-validates under its own lock.
	res = s.promos.Redeem(req.Code, req.ContentType, req.ContentID)
	if !res.Valid {
		return &model.PromoUnlockResult{Success: false, Message: res.Message}, nil
	}

	if err := s.store.RecordUnlock(ctx, req.Email, req.ContentType, req.ContentID); err != nil {
		return nil, fmt.Errorf("record unlock: %w", err)
	}

	code := promo.Normalize(req.Code)
	now := s.now()
	name := fmt.Sprintf("promo-%s-%s-%d", code, req.Email, now.UnixMilli())
	if err := s.audit.WriteRecord(req.ContentType, name, promoAuditRecord{
		ID:          uuid.New(),
		Code:        code,
		Email:       req.Email,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		Timestamp:   now,
	}); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("failed to write promo audit record")
	}

	tok, err := s.tokens.Issue(req.ContentType, req.ContentID, req.Email, code)
	if err != nil {
		return nil, fmt.Errorf("issue unlock token: %w", err)
	}

	return &model.PromoUnlockResult{
		Success:     true,
		Unlocked:    true,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		UnlockToken: tok,
		Message:     res.Message,
	}, nil
}

// CheckoutUnlock verifies a payment-provider checkout session and persists
// an unlock for the session's customer email. Bundle purchases record the
// All sentinel.
// Returns:
//   - ErrSessionNotFound if the provider has no such session
//   - ErrPaymentIncomplete if the session is not paid
//   - ErrSessionMissingEmail / ErrSessionMissingContent for malformed sessions
func (s *UnlockService) CheckoutUnlock(ctx context.Context, sessionID string) (*model.CheckoutUnlockResult, error) {
	sess, err := s.sessions.Session(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("verify checkout session: %w", err)
	}

	if !sess.Paid {
		return nil, ErrPaymentIncomplete
	}
	if sess.Email == "" {
		return nil, ErrSessionMissingEmail
	}

	slug := sess.Metadata["meditationSlug"]
	purchaseType := sess.Metadata["type"]
	if purchaseType == "" {
		purchaseType = "single"
	}

	contentID := slug
	if purchaseType == "bundle" {
		contentID = unlock.All
	}
	if contentID == "" {
		return nil, ErrSessionMissingContent
	}

	if err := s.store.RecordUnlock(ctx, sess.Email, model.ContentTypeMeditation, contentID); err != nil {
		return nil, fmt.Errorf("record unlock: %w", err)
	}

	if err := s.audit.WriteRecord(model.ContentTypeMeditation, sess.ID, sessionAuditRecord{
		ID:             uuid.New(),
		SessionID:      sess.ID,
		Email:          sess.Email,
		MeditationSlug: slug,
		PurchaseType:   purchaseType,
		Timestamp:      s.now(),
	}); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to write session audit record")
	}

	tok, err := s.tokens.Issue(model.ContentTypeMeditation, contentID, sess.Email, "")
	if err != nil {
		return nil, fmt.Errorf("issue unlock token: %w", err)
	}

	return &model.CheckoutUnlockResult{
		Unlocked:       true,
		MeditationSlug: slug,
		PurchaseType:   purchaseType,
		UnlockToken:    tok,
	}, nil
}

// IsUnlockedByToken reports whether a client-held unlock token grants access
// to contentID. A token is proof of a past unlock; a bad or mismatched token
// is not an error, callers fall back to the email index.
func (s *UnlockService) IsUnlockedByToken(tokenStr, contentType, contentID string) bool {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return false
	}
	if claims.ContentType != contentType {
		return false
	}
	return contentID == "" || claims.ContentID == contentID || claims.ContentID == unlock.All
}

// IsUnlocked reports whether email may access contentID. An empty contentID
// asks whether the email has any unlock of the content type at all.
func (s *UnlockService) IsUnlocked(ctx context.Context, email, contentType, contentID string) (bool, error) {
	if contentID == "" {
		ids, err := s.store.Unlocks(ctx, email, contentType)
		if err != nil {
			return false, fmt.Errorf("list unlocks: %w", err)
		}
		return len(ids) > 0, nil
	}

	unlocked, err := s.store.IsUnlocked(ctx, email, contentType, contentID)
	if err != nil {
		return false, fmt.Errorf("check unlock: %w", err)
	}
	return unlocked, nil
}
