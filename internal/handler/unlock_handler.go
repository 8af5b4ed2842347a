package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/content-unlock-system/internal/model"
	"github.com/fairyhunter13/content-unlock-system/internal/service"
)

// UnlockServiceInterface defines the checkout-unlock and lookup operations.
type UnlockServiceInterface interface {
	CheckoutUnlock(ctx context.Context, sessionID string) (*model.CheckoutUnlockResult, error)
	IsUnlocked(ctx context.Context, email, contentType, contentID string) (bool, error)
	IsUnlockedByToken(tokenStr, contentType, contentID string) bool
}

// UnlockHandler handles HTTP requests for checkout unlocks and unlock lookups.
type UnlockHandler struct {
	service   UnlockServiceInterface
	validator *validator.Validate
}

// NewUnlockHandler creates a new UnlockHandler.
func NewUnlockHandler(svc UnlockServiceInterface, v *validator.Validate) *UnlockHandler {
	return &UnlockHandler{service: svc, validator: v}
}

// UnlockFromCheckout handles POST /api/meditation/unlock: verifies a paid
// checkout session and persists the unlock for its customer email.
func (h *UnlockHandler) UnlockFromCheckout(c *fiber.Ctx) error {
	var req model.CheckoutUnlockRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: sessionId is required"})
	}

	result, err := h.service.CheckoutUnlock(c.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "checkout session not found"})
		case errors.Is(err, service.ErrPaymentIncomplete):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payment not completed"})
		case errors.Is(err, service.ErrSessionMissingEmail):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "checkout session has no customer email"})
		case errors.Is(err, service.ErrSessionMissingContent):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "checkout session has no content metadata"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("session_id", req.SessionID).
			Msg("failed to unlock from checkout session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("session_id", req.SessionID).
		Str("purchase_type", result.PurchaseType).
		Msg("content unlocked via checkout session")

	return c.JSON(result)
}

// CheckMeditation handles GET /api/meditation/unlock?email=&slug=.
// An empty slug asks whether the email has any meditation unlock at all.
// A signed unlock token may be supplied via ?token= instead of an email.
func (h *UnlockHandler) CheckMeditation(c *fiber.Ctx) error {
	return h.check(c, model.ContentTypeMeditation, c.Query("slug"))
}

// CheckBook handles GET /api/book/unlock?email=&id=.
func (h *UnlockHandler) CheckBook(c *fiber.Ctx) error {
	return h.check(c, model.ContentTypeBook, c.Query("id"))
}

func (h *UnlockHandler) check(c *fiber.Ctx, contentType, contentID string) error {
	// A valid signed token settles the question without touching the store.
	// Invalid tokens fall back to the email index rather than erroring.
	if tok := c.Query("token"); tok != "" && h.service.IsUnlockedByToken(tok, contentType, contentID) {
		return c.JSON(model.UnlockStatus{Unlocked: true})
	}

	email := c.Query("email")
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: email is required"})
	}

	unlocked, err := h.service.IsUnlocked(c.Context(), email, contentType, contentID)
	if err != nil {
		log.Error().
			Err(err).
			Str("content_type", contentType).
			Str("content_id", contentID).
			Msg("failed to check unlock status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(model.UnlockStatus{Unlocked: unlocked})
}
