package handler

import (
	"crypto/subtle"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/content-unlock-system/internal/model"
	"github.com/fairyhunter13/content-unlock-system/internal/promo"
)

// PromoAdminInterface defines the promo-code CRUD operations.
type PromoAdminInterface interface {
	Create(pc *model.PromoCode) error
	Update(code string, upd *model.PromoCode) (*model.PromoCode, error)
	Delete(code string) error
	Get(code string) (*model.PromoCode, error)
	List() []model.PromoCode
}

// AdminHandler handles promo-code CRUD requests. The store is process
// memory only; codes created here vanish on restart.
type AdminHandler struct {
	promos    PromoAdminInterface
	validator *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(promos PromoAdminInterface, v *validator.Validate) *AdminHandler {
	return &AdminHandler{promos: promos, validator: v}
}

// AdminKeyMiddleware rejects requests whose X-Admin-Key header does not
// match the configured key. An empty configured key disables the admin API.
func AdminKeyMiddleware(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		supplied := c.Get("X-Admin-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(key)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}

// CreateCode handles POST /api/admin/promo-codes.
func (h *AdminHandler) CreateCode(c *fiber.Ctx) error {
	var req model.CreatePromoCodeRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatAdminValidationError(err)})
	}

	pc := &model.PromoCode{
		Code:      req.Code,
		Type:      req.Type,
		Target:    req.Target,
		Discount:  *req.Discount,
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
	}
	if err := h.promos.Create(pc); err != nil {
		if errors.Is(err, promo.ErrCodeExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "promo code already exists"})
		}
		log.Error().Err(err).Str("code", req.Code).Msg("failed to create promo code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	created, err := h.promos.Get(pc.Code)
	if err != nil {
		log.Error().Err(err).Str("code", pc.Code).Msg("failed to read back created promo code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListCodes handles GET /api/admin/promo-codes.
func (h *AdminHandler) ListCodes(c *fiber.Ctx) error {
	return c.JSON(h.promos.List())
}

// GetCode handles GET /api/admin/promo-codes/:code.
func (h *AdminHandler) GetCode(c *fiber.Ctx) error {
	pc, err := h.promos.Get(c.Params("code"))
	if err != nil {
		if errors.Is(err, promo.ErrCodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promo code not found"})
		}
		log.Error().Err(err).Str("code", c.Params("code")).Msg("failed to get promo code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(pc)
}

// UpdateCode handles PUT /api/admin/promo-codes/:code. The code itself and
// its createdAt are preserved even if the caller supplies different values.
func (h *AdminHandler) UpdateCode(c *fiber.Ctx) error {
	var req model.UpdatePromoCodeRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatAdminValidationError(err)})
	}

	updated, err := h.promos.Update(c.Params("code"), &model.PromoCode{
		Type:      req.Type,
		Target:    req.Target,
		Discount:  *req.Discount,
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, promo.ErrCodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promo code not found"})
		}
		log.Error().Err(err).Str("code", c.Params("code")).Msg("failed to update promo code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(updated)
}

// DeleteCode handles DELETE /api/admin/promo-codes/:code.
func (h *AdminHandler) DeleteCode(c *fiber.Ctx) error {
	if err := h.promos.Delete(c.Params("code")); err != nil {
		if errors.Is(err, promo.ErrCodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "promo code not found"})
		}
		log.Error().Err(err).Str("code", c.Params("code")).Msg("failed to delete promo code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(fiber.StatusNoContent).Send(nil)
}

// formatAdminValidationError converts validator errors to stable messages
// for the admin CRUD endpoints.
func formatAdminValidationError(err error) string {
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
			case "Type":
				if tag == "required" {
					return "invalid request: type is required"
				}
				return "invalid request: type must be meditation, book or all"
			case "Discount":
				if tag == "required" {
					return "invalid request: discount is required"
				}
				return "invalid request: discount must be between 0 and 100"
			case "MaxUses":
				return "invalid request: maxUses must be at least 0"
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
