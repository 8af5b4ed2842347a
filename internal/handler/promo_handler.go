package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/content-unlock-system/internal/model"
)

// PromoUnlockServiceInterface defines the unlock flow for promo codes.
type PromoUnlockServiceInterface interface {
	PromoUnlock(ctx context.Context, req *model.PromoUnlockRequest) (*model.PromoUnlockResult, error)
}

// PromoValidatorInterface defines the read-only promo-code check used by
// price-preview flows.
type PromoValidatorInterface interface {
	Validate(code, contentType, contentID string) model.PromoValidation
}

// PromoHandler handles HTTP requests for promo-code unlocks and checks.
type PromoHandler struct {
	service   PromoUnlockServiceInterface
	promos    PromoValidatorInterface
	validator *validator.Validate
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(svc PromoUnlockServiceInterface, promos PromoValidatorInterface, v *validator.Validate) *PromoHandler {
	return &PromoHandler{service: svc, promos: promos, validator: v}
}

// formatPromoValidationError converts validator errors to stable messages.
func formatPromoValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "Code":
				if tag == "required" {
					return "invalid request: code is required"
				}
				if tag == "notblank" {
					return "invalid request: code cannot be whitespace only"
				}
				return "invalid request: code is invalid"
			case "ContentType":
				if tag == "required" {
					return "invalid request: contentType is required"
				}
				return "invalid request: contentType must be meditation or book"
			case "ContentID":
				if tag == "required" {
					return "invalid request: contentId is required"
				}
				return "invalid request: contentId is invalid"
			case "Email":
				if tag == "required" {
					return "invalid request: email is required"
				}
				return "invalid request: email is invalid"
			default:
				if tag == "required" {
					return "invalid request: " + field + " is required"
				}
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// Unlock handles POST /api/promo/unlock requests.
func (h *PromoHandler) Unlock(c *fiber.Ctx) error {
	var req model.PromoUnlockRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": "invalid request body",
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false, "message": formatPromoValidationError(err),
		})
	}

	result, err := h.service.PromoUnlock(c.Context(), &req)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("content_type", req.ContentType).
			Str("content_id", req.ContentID).
			Msg("failed to process promo unlock")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false, "message": "internal server error",
		})
	}

	if !result.Success {
		return c.Status(fiber.StatusBadRequest).JSON(result)
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("content_type", result.ContentType).
		Str("content_id", result.ContentID).
		Msg("content unlocked via promo code")

	return c.JSON(result)
}

// ValidateCode handles POST /api/promo/validate requests. The outcome is
// always 200 with a valid flag; invalid codes are data, not errors.
func (h *PromoHandler) ValidateCode(c *fiber.Ctx) error {
	var req model.PromoValidateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatPromoValidationError(err)})
	}

	return c.JSON(h.promos.Validate(req.Code, req.ContentType, req.ContentID))
}
