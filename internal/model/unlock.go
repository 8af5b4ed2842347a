package model

// CheckoutUnlockRequest is the DTO for POST /api/meditation/unlock.
type CheckoutUnlockRequest struct {
	SessionID string `json:"sessionId" validate:"required,notblank,max=255"`
}

// CheckoutUnlockResult is returned after a paid checkout session has been
// converted into an unlock record.
type CheckoutUnlockResult struct {
	Unlocked       bool   `json:"unlocked"`
	MeditationSlug string `json:"meditationSlug"`
	PurchaseType   string `json:"purchaseType"` // single | bundle
	UnlockToken    string `json:"unlockToken"`
}

// UnlockStatus is returned by the unlock lookup endpoints.
type UnlockStatus struct {
	Unlocked bool `json:"unlocked"`
}
