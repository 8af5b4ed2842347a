package model

import "time"

// Content type constants. "all" on a promo code means the code applies to
// every content type; it is not a valid request content type.
const (
	ContentTypeMeditation = "meditation"
	ContentTypeBook       = "book"
	ContentTypeAll        = "all"
)

// PromoCode is a shared secret that grants discounted or free access to
// gated content. Codes live in process memory only: restarting the service
// resets usage counts and any codes created through the admin API.
type PromoCode struct {
	Code       string     `json:"code"`
	Type       string     `json:"type"` // meditation | book | all
	Target     string     `json:"target,omitempty"`
	Discount   int        `json:"discount"` // percent, 100 = free access
	MaxUses    int        `json:"maxUses,omitempty"` // 0 = unlimited
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	UsageCount int        `json:"usageCount"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// PromoValidation is the outcome of checking a code against a piece of
// content. Invalid codes are data, not errors.
type PromoValidation struct {
	Valid    bool   `json:"valid"`
	Discount int    `json:"discount"`
	Message  string `json:"message"`
}

// PromoUnlockRequest is the DTO for POST /api/promo/unlock.
type PromoUnlockRequest struct {
	Code        string `json:"code" validate:"required,notblank,max=64"`
	ContentType string `json:"contentType" validate:"required,oneof=meditation book"`
	ContentID   string `json:"contentId" validate:"required,notblank,max=255"`
	Email       string `json:"email" validate:"required,email,max=255"`
}

// PromoValidateRequest is the DTO for POST /api/promo/validate.
type PromoValidateRequest struct {
	Code        string `json:"code" validate:"required,notblank,max=64"`
	ContentType string `json:"contentType" validate:"required,oneof=meditation book"`
	ContentID   string `json:"contentId" validate:"required,notblank,max=255"`
}

// PromoUnlockResult is the outcome of a promo unlock attempt. Success is
// false for invalid codes and for codes that only grant a partial discount.
type PromoUnlockResult struct {
	Success     bool   `json:"success"`
	Unlocked    bool   `json:"unlocked,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	ContentID   string `json:"contentId,omitempty"`
	UnlockToken string `json:"unlockToken,omitempty"`
	Message     string `json:"message"`
}

// CreatePromoCodeRequest is the DTO for creating a promo code via the admin API.
type CreatePromoCodeRequest struct {
	Code      string     `json:"code" validate:"required,notblank,max=64"`
	Type      string     `json:"type" validate:"required,oneof=meditation book all"`
	Target    string     `json:"target" validate:"max=255"`
	Discount  *int       `json:"discount" validate:"required,gte=0,lte=100"`
	MaxUses   int        `json:"maxUses" validate:"gte=0"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// UpdatePromoCodeRequest is the DTO for updating a promo code. The code
// itself, its creation time, and its usage count cannot be changed.
type UpdatePromoCodeRequest struct {
	Type      string     `json:"type" validate:"required,oneof=meditation book all"`
	Target    string     `json:"target" validate:"max=255"`
	Discount  *int       `json:"discount" validate:"required,gte=0,lte=100"`
	MaxUses   int        `json:"maxUses" validate:"gte=0"`
	ExpiresAt *time.Time `json:"expiresAt"`
}
