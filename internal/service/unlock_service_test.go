package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/content-unlock-system/internal/model"
	"github.com/fairyhunter13/content-unlock-system/internal/payment"
	"github.com/fairyhunter13/content-unlock-system/internal/promo"
	"github.com/fairyhunter13/content-unlock-system/internal/token"
	"github.com/fairyhunter13/content-unlock-system/internal/unlock"
)

// mockPromoRedeemer is a mock implementation of PromoRedeemer.
type mockPromoRedeemer struct {
	validateFn func(code, contentType, contentID string) model.PromoValidation
	redeemFn   func(code, contentType, contentID string) model.PromoValidation
	redeems    int
}

func (m *mockPromoRedeemer) Validate(code, contentType, contentID string) model.PromoValidation {
	if m.validateFn != nil {
		return m.validateFn(code, contentType, contentID)
	}
	return model.PromoValidation{}
}

func (m *mockPromoRedeemer) Redeem(code, contentType, contentID string) model.PromoValidation {
	m.redeems++
	if m.redeemFn != nil {
		return m.redeemFn(code, contentType, contentID)
	}
	return model.PromoValidation{}
}

// mockUnlockStore is a mock implementation of unlock.Store.
type mockUnlockStore struct {
	recordUnlockFn func(ctx context.Context, email, contentType, contentID string) error
	isUnlockedFn   func(ctx context.Context, email, contentType, contentID string) (bool, error)
	unlocksFn      func(ctx context.Context, email, contentType string) ([]string, error)
}

func (m *mockUnlockStore) RecordUnlock(ctx context.Context, email, contentType, contentID string) error {
	if m.recordUnlockFn != nil {
		return m.recordUnlockFn(ctx, email, contentType, contentID)
	}
	return nil
}

func (m *mockUnlockStore) IsUnlocked(ctx context.Context, email, contentType, contentID string) (bool, error) {
	if m.isUnlockedFn != nil {
		return m.isUnlockedFn(ctx, email, contentType, contentID)
	}
	return false, nil
}

func (m *mockUnlockStore) Unlocks(ctx context.Context, email, contentType string) ([]string, error) {
	if m.unlocksFn != nil {
		return m.unlocksFn(ctx, email, contentType)
	}
	return []string{}, nil
}

// mockSessionVerifier is a mock implementation of payment.SessionVerifier.
type mockSessionVerifier struct {
	sessionFn func(ctx context.Context, sessionID string) (*payment.CheckoutSession, error)
}

func (m *mockSessionVerifier) Session(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
	if m.sessionFn != nil {
		return m.sessionFn(ctx, sessionID)
	}
	return nil, nil
}

// mockTokenManager is a mock implementation of TokenManager.
type mockTokenManager struct {
	issueFn  func(contentType, contentID, email, promoCode string) (string, error)
	verifyFn func(tokenStr string) (*token.Claims, error)
}

func (m *mockTokenManager) Issue(contentType, contentID, email, promoCode string) (string, error) {
	if m.issueFn != nil {
		return m.issueFn(contentType, contentID, email, promoCode)
	}
	return "signed-token", nil
}

func (m *mockTokenManager) Verify(tokenStr string) (*token.Claims, error) {
	if m.verifyFn != nil {
		return m.verifyFn(tokenStr)
	}
	return nil, token.ErrInvalidToken
}

// mockAuditWriter is a mock implementation of AuditWriter.
type mockAuditWriter struct {
	writeRecordFn func(contentType, name string, payload any) error
	names         []string
}

func (m *mockAuditWriter) WriteRecord(contentType, name string, payload any) error {
	m.names = append(m.names, name)
	if m.writeRecordFn != nil {
		return m.writeRecordFn(contentType, name, payload)
	}
	return nil
}

func validRedeemer(discount int) *mockPromoRedeemer {
	res := func(code, contentType, contentID string) model.PromoValidation {
		msg := "Free access!"
		if discount < 100 {
			msg = "discount applied"
		}
		return model.PromoValidation{Valid: true, Discount: discount, Message: msg}
	}
	return &mockPromoRedeemer{validateFn: res, redeemFn: res}
}

func TestPromoUnlock_FullDiscountUnlocks(t *testing.T) {
	var recordedEmail, recordedType, recordedID string
	store := &mockUnlockStore{
		recordUnlockFn: func(ctx context.Context, email, contentType, contentID string) error {
			recordedEmail, recordedType, recordedID = email, contentType, contentID
			return nil
		},
	}
	audit := &mockAuditWriter{}
	svc := NewUnlockService(validRedeemer(100), store, &mockSessionVerifier{}, &mockTokenManager{}, audit)

	result, err := svc.PromoUnlock(context.Background(), &model.PromoUnlockRequest{
		Code:        "coauthor2024",
		ContentType: model.ContentTypeMeditation,
		ContentID:   "deep-sleep",
		Email:       "user@example.com",
	})

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.True(t, result.Unlocked)
	assert.Equal(t, "deep-sleep", result.ContentID)
	assert.Equal(t, "signed-token", result.UnlockToken)
	assert.Equal(t, "Free access!", result.Message)

	assert.Equal(t, "user@example.com", recordedEmail)
	assert.Equal(t, model.ContentTypeMeditation, recordedType)
	assert.Equal(t, "deep-sleep", recordedID)

	require.Len(t, audit.names, 1)
	assert.True(t, strings.HasPrefix(audit.names[0], "promo-COAUTHOR2024-user@example.com-"),
		"audit record name should carry the normalized code and email")
}

func TestPromoUnlock_InvalidCode(t *testing.T) {
	promos := &mockPromoRedeemer{
		validateFn: func(code, contentType, contentID string) model.PromoValidation {
			return model.PromoValidation{Valid: false, Message: "Invalid promo code"}
		},
	}
	recorded := false
	store := &mockUnlockStore{
		recordUnlockFn: func(ctx context.Context, email, contentType, contentID string) error {
			recorded = true
			return nil
		},
	}
	svc := NewUnlockService(promos, store, &mockSessionVerifier{}, &mockTokenManager{}, &mockAuditWriter{})

	result, err := svc.PromoUnlock(context.Background(), &model.PromoUnlockRequest{
		Code: "NOPE", ContentType: model.ContentTypeMeditation, ContentID: "deep-sleep", Email: "user@example.com",
	})

	require.NoError(t, err, "invalid codes are data, not errors")
	assert.False(t, result.Success)
	assert.Equal(t, "Invalid promo code", result.Message)
	assert.False(t, recorded, "invalid code must not persist an unlock")
	assert.Zero(t, promos.redeems, "rejected requests must not consume a use")
}

func TestPromoUnlock_PartialDiscountRejected(t *testing.T) {
	recorded := false
	store := &mockUnlockStore{
		recordUnlockFn: func(ctx context.Context, email, contentType, contentID string) error {
			recorded = true
			return nil
		},
	}
	svc := NewUnlockService(validRedeemer(10), store, &mockSessionVerifier{}, &mockTokenManager{}, &mockAuditWriter{})

	result, err := svc.PromoUnlock(context.Background(), &model.PromoUnlockRequest{
		Code: "WELCOME10", ContentType: model.ContentTypeBook, ContentID: "block-a", Email: "user@example.com",
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "10%")
	assert.False(t, recorded, "a partial discount does not unlock content")
}

func TestPromoUnlock_RejectedPartialDiscountKeepsUses(t *testing.T) {
	promos := promo.NewStore()
	require.NoError(t, promos.Create(&model.PromoCode{
		Code:     "TEN",
		Type:     model.ContentTypeAll,
		Discount: 10,
		MaxUses:  1,
	}))
	svc := NewUnlockService(promos, &mockUnlockStore{}, &mockSessionVerifier{}, &mockTokenManager{}, &mockAuditWriter{})

	for i := 0; i < 3; i++ {
		result, err := svc.PromoUnlock(context.Background(), &model.PromoUnlockRequest{
			Code: "TEN", ContentType: model.ContentTypeBook, ContentID: "block-a", Email: "user@example.com",
		})
		require.NoError(t, err)
		assert.False(t, result.Success)
	}

	pc, err := promos.Get("TEN")
	require.NoError(t, err)
	assert.Zero(t, pc.UsageCount, "rejected unlock attempts must not burn uses")
	assert.True(t, promos.Validate("TEN", model.ContentTypeBook, "block-a").Valid,
		"the code must stay redeemable at checkout")
}

func TestPromoUnlock_FullDiscountConsumesOneUse(t *testing.T) {
	promos := promo.NewStore()
	svc := NewUnlockService(promos, &mockUnlockStore{}, &mockSessionVerifier{}, &mockTokenManager{}, &mockAuditWriter{})

	result, err := svc.PromoUnlock(context.Background(), &model.PromoUnlockRequest{
		Code: "COAUTHOR2024", ContentType: model.ContentTypeMeditation, ContentID: "deep-sleep", Email: "user@example.com",
	})

	require.NoError(t, err)
	require.True(t, result.Success)

	pc, err := promos.Get("COAUTHOR2024")
	require.NoError(t, err)
	assert.Equal(t, 1, pc.UsageCount)
}

func TestPromoUnlock_ExhaustedBetweenCheckAndRedeem(t *testing.T) {
	promos := &mockPromoRedeemer{
		validateFn: func(code, contentType, contentID string) model.PromoValidation {
			return model.PromoValidation{Valid: true, Discount: 100, Message: "Free access!"}
		},
		redeemFn: func(code, contentType, contentID string) model.PromoValidation {
			return model.PromoValidation{Valid: false, Message: "This promo code has reached its usage limit"}
		},
	}
	recorded := false
	store := &mockUnlockStore{
		recordUnlockFn: func(ctx context.Context, email, contentType, contentID string) error {
			recorded = true
			return nil
		},
	}
	svc := NewUnlockService(promos, store, &mockSessionVerifier{}, &mockTokenManager{}, &mockAuditWriter{})

	result, err := svc.PromoUnlock(context.Background(), &model.PromoUnlockRequest{
		Code: "FLASH", ContentType: model.ContentTypeMeditation, ContentID: "deep-sleep", Email: "user@example.com",
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "This promo code has reached its usage limit", result.Message)
	assert.False(t, recorded, "a lost race on the last use must not unlock content")
}

func TestPromoUnlock_StoreFailurePropagates(t *testing.T) {
	storeErr := errors.New("disk full")
	store := &mockUnlockStore{
		recordUnlockFn: func(ctx context.Context, email, contentType, contentID string) error {
			return storeErr
		},
	}
	svc := NewUnlockService(validRedeemer(100), store, &mockSessionVerifier{}, &mockTokenManager{}, &mockAuditWriter{})

	_, err := svc.PromoUnlock(context.Background(), &model.PromoUnlockRequest{
		Code: "COAUTHOR2024", ContentType: model.ContentTypeMeditation, ContentID: "deep-sleep", Email: "user@example.com",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, storeErr))
}

func TestPromoUnlock_AuditFailureDoesNotFailUnlock(t *testing.T) {
	audit := &mockAuditWriter{
		writeRecordFn: func(contentType, name string, payload any) error {
			return errors.New("audit disk full")
		},
	}
	svc := NewUnlockService(validRedeemer(100), &mockUnlockStore{}, &mockSessionVerifier{}, &mockTokenManager{}, audit)

	result, err := svc.PromoUnlock(context.Background(), &model.PromoUnlockRequest{
		Code: "COAUTHOR2024", ContentType: model.ContentTypeMeditation, ContentID: "deep-sleep", Email: "user@example.com",
	})

	require.NoError(t, err, "audit records are never read back; failures must not block the unlock")
	assert.True(t, result.Success)
}

func TestCheckoutUnlock_SinglePurchase(t *testing.T) {
	sessions := &mockSessionVerifier{
		sessionFn: func(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
			return &payment.CheckoutSession{
				ID:       sessionID,
				Email:    "buyer@example.com",
				Paid:     true,
				Metadata: map[string]string{"meditationSlug": "deep-sleep", "type": "single"},
			}, nil
		},
	}
	var recordedID string
	store := &mockUnlockStore{
		recordUnlockFn: func(ctx context.Context, email, contentType, contentID string) error {
			recordedID = contentID
			return nil
		},
	}
	audit := &mockAuditWriter{}
	svc := NewUnlockService(&mockPromoRedeemer{}, store, sessions, &mockTokenManager{}, audit)

	result, err := svc.CheckoutUnlock(context.Background(), "cs_test_123")

	require.NoError(t, err)
	assert.True(t, result.Unlocked)
	assert.Equal(t, "deep-sleep", result.MeditationSlug)
	assert.Equal(t, "single", result.PurchaseType)
	assert.Equal(t, "signed-token", result.UnlockToken)
	assert.Equal(t, "deep-sleep", recordedID)

	require.Len(t, audit.names, 1)
	assert.Equal(t, "cs_test_123", audit.names[0], "session audit record is named after the session id")
}

func TestCheckoutUnlock_BundleRecordsAllSentinel(t *testing.T) {
	sessions := &mockSessionVerifier{
		sessionFn: func(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
			return &payment.CheckoutSession{
				ID:       sessionID,
				Email:    "buyer@example.com",
				Paid:     true,
				Metadata: map[string]string{"meditationSlug": "deep-sleep", "type": "bundle"},
			}, nil
		},
	}
	var recordedID string
	store := &mockUnlockStore{
		recordUnlockFn: func(ctx context.Context, email, contentType, contentID string) error {
			recordedID = contentID
			return nil
		},
	}
	svc := NewUnlockService(&mockPromoRedeemer{}, store, sessions, &mockTokenManager{}, &mockAuditWriter{})

	result, err := svc.CheckoutUnlock(context.Background(), "cs_test_456")

	require.NoError(t, err)
	assert.Equal(t, "bundle", result.PurchaseType)
	assert.Equal(t, unlock.All, recordedID, "bundle purchases unlock everything")
}

func TestCheckoutUnlock_UnpaidSession(t *testing.T) {
	sessions := &mockSessionVerifier{
		sessionFn: func(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
			return &payment.CheckoutSession{
				ID: sessionID, Email: "buyer@example.com", Paid: false,
				Metadata: map[string]string{"meditationSlug": "deep-sleep"},
			}, nil
		},
	}
	recorded := false
	store := &mockUnlockStore{
		recordUnlockFn: func(ctx context.Context, email, contentType, contentID string) error {
			recorded = true
			return nil
		},
	}
	svc := NewUnlockService(&mockPromoRedeemer{}, store, sessions, &mockTokenManager{}, &mockAuditWriter{})

	_, err := svc.CheckoutUnlock(context.Background(), "cs_test_789")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentIncomplete)
	assert.False(t, recorded, "unpaid sessions must not unlock content")
}

func TestCheckoutUnlock_SessionNotFound(t *testing.T) {
	sessions := &mockSessionVerifier{
		sessionFn: func(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
			return nil, payment.ErrSessionNotFound
		},
	}
	svc := NewUnlockService(&mockPromoRedeemer{}, &mockUnlockStore{}, sessions, &mockTokenManager{}, &mockAuditWriter{})

	_, err := svc.CheckoutUnlock(context.Background(), "cs_missing")

	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCheckoutUnlock_MissingEmail(t *testing.T) {
	sessions := &mockSessionVerifier{
		sessionFn: func(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
			return &payment.CheckoutSession{
				ID: sessionID, Paid: true,
				Metadata: map[string]string{"meditationSlug": "deep-sleep"},
			}, nil
		},
	}
	svc := NewUnlockService(&mockPromoRedeemer{}, &mockUnlockStore{}, sessions, &mockTokenManager{}, &mockAuditWriter{})

	_, err := svc.CheckoutUnlock(context.Background(), "cs_no_email")

	assert.ErrorIs(t, err, ErrSessionMissingEmail)
}

func TestCheckoutUnlock_MissingContentMetadata(t *testing.T) {
	sessions := &mockSessionVerifier{
		sessionFn: func(ctx context.Context, sessionID string) (*payment.CheckoutSession, error) {
			return &payment.CheckoutSession{ID: sessionID, Email: "buyer@example.com", Paid: true}, nil
		},
	}
	svc := NewUnlockService(&mockPromoRedeemer{}, &mockUnlockStore{}, sessions, &mockTokenManager{}, &mockAuditWriter{})

	_, err := svc.CheckoutUnlock(context.Background(), "cs_no_meta")

	assert.ErrorIs(t, err, ErrSessionMissingContent)
}

func TestIsUnlocked_SpecificID(t *testing.T) {
	store := &mockUnlockStore{
		isUnlockedFn: func(ctx context.Context, email, contentType, contentID string) (bool, error) {
			return contentID == "deep-sleep", nil
		},
	}
	svc := NewUnlockService(&mockPromoRedeemer{}, store, &mockSessionVerifier{}, &mockTokenManager{}, &mockAuditWriter{})

	unlocked, err := svc.IsUnlocked(context.Background(), "user@example.com", model.ContentTypeMeditation, "deep-sleep")
	require.NoError(t, err)
	assert.True(t, unlocked)

	unlocked, err = svc.IsUnlocked(context.Background(), "user@example.com", model.ContentTypeMeditation, "other")
	require.NoError(t, err)
	assert.False(t, unlocked)
}

func TestIsUnlocked_EmptyIDChecksAnyUnlock(t *testing.T) {
	store := &mockUnlockStore{
		unlocksFn: func(ctx context.Context, email, contentType string) ([]string, error) {
			if email == "buyer@example.com" {
				return []string{"deep-sleep"}, nil
			}
			return []string{}, nil
		},
	}
	svc := NewUnlockService(&mockPromoRedeemer{}, store, &mockSessionVerifier{}, &mockTokenManager{}, &mockAuditWriter{})

	unlocked, err := svc.IsUnlocked(context.Background(), "buyer@example.com", model.ContentTypeMeditation, "")
	require.NoError(t, err)
	assert.True(t, unlocked)

	unlocked, err = svc.IsUnlocked(context.Background(), "nobody@example.com", model.ContentTypeMeditation, "")
	require.NoError(t, err)
	assert.False(t, unlocked)
}

func TestIsUnlockedByToken(t *testing.T) {
	issuer := token.NewIssuer("test-secret", time.Hour)
	svc := NewUnlockService(&mockPromoRedeemer{}, &mockUnlockStore{}, &mockSessionVerifier{}, issuer, &mockAuditWriter{})

	signed, err := issuer.Issue(model.ContentTypeMeditation, "deep-sleep", "user@example.com", "COAUTHOR2024")
	require.NoError(t, err)

	assert.True(t, svc.IsUnlockedByToken(signed, model.ContentTypeMeditation, "deep-sleep"))
	assert.True(t, svc.IsUnlockedByToken(signed, model.ContentTypeMeditation, ""),
		"an empty content id asks whether the token unlocks anything of the type")
	assert.False(t, svc.IsUnlockedByToken(signed, model.ContentTypeMeditation, "other-slug"))
	assert.False(t, svc.IsUnlockedByToken(signed, model.ContentTypeBook, "deep-sleep"),
		"a meditation token must not unlock book content")
}

func TestIsUnlockedByToken_AllSentinel(t *testing.T) {
	issuer := token.NewIssuer("test-secret", time.Hour)
	svc := NewUnlockService(&mockPromoRedeemer{}, &mockUnlockStore{}, &mockSessionVerifier{}, issuer, &mockAuditWriter{})

	signed, err := issuer.Issue(model.ContentTypeMeditation, unlock.All, "buyer@example.com", "")
	require.NoError(t, err)

	assert.True(t, svc.IsUnlockedByToken(signed, model.ContentTypeMeditation, "any-slug-at-all"))
}

func TestIsUnlockedByToken_BadTokenRejected(t *testing.T) {
	issuer := token.NewIssuer("test-secret", time.Hour)
	forger := token.NewIssuer("attacker-secret", time.Hour)
	svc := NewUnlockService(&mockPromoRedeemer{}, &mockUnlockStore{}, &mockSessionVerifier{}, issuer, &mockAuditWriter{})

	forged, err := forger.Issue(model.ContentTypeMeditation, "deep-sleep", "user@example.com", "")
	require.NoError(t, err)

	assert.False(t, svc.IsUnlockedByToken(forged, model.ContentTypeMeditation, "deep-sleep"))
	assert.False(t, svc.IsUnlockedByToken("not-a-token", model.ContentTypeMeditation, "deep-sleep"))
}

func TestPromoUnlock_TokenFailurePropagates(t *testing.T) {
	issueErr := errors.New("bad secret")
	tokens := &mockTokenManager{
		issueFn: func(contentType, contentID, email, promoCode string) (string, error) {
			return "", issueErr
		},
	}
	svc := NewUnlockService(validRedeemer(100), &mockUnlockStore{}, &mockSessionVerifier{}, tokens, &mockAuditWriter{})

	_, err := svc.PromoUnlock(context.Background(), &model.PromoUnlockRequest{
		Code: "COAUTHOR2024", ContentType: model.ContentTypeMeditation, ContentID: "deep-sleep", Email: "user@example.com",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, issueErr))
}
