package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/content-unlock-system/internal/model"
)

// PriceValidatorServiceInterface defines the price tamper-detection operations.
type PriceValidatorServiceInterface interface {
	ValidatePrice(ctx context.Context, clientPrice float64, productID, variantID string) (*model.PriceValidation, error)
	CacheStats() model.PriceCacheStats
}

// PriceHandler handles HTTP requests for price validation.
type PriceHandler struct {
	service   PriceValidatorServiceInterface
	validator *validator.Validate
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(svc PriceValidatorServiceInterface, v *validator.Validate) *PriceHandler {
	return &PriceHandler{service: svc, validator: v}
}

// ValidatePrice handles POST /api/checkout/validate-price. A catalog
// failure returns 502 so checkout blocks instead of trusting the client
// price.
func (h *PriceHandler) ValidatePrice(c *fiber.Ctx) error {
	var req model.ValidatePriceRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: price, productId and variantId are required"})
	}

	result, err := h.service.ValidatePrice(c.Context(), *req.Price, req.ProductID, req.VariantID)
	if err != nil {
		log.Error().
			Err(err).
			Str("product_id", req.ProductID).
			Str("variant_id", req.VariantID).
			Msg("failed to compute canonical price")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "price lookup failed"})
	}

	if !result.Valid {
		log.Warn().
			Float64("client_price", result.ClientPrice).
			Float64("server_price", result.ServerPrice).
			Str("product_id", req.ProductID).
			Str("variant_id", req.VariantID).
			Msg("client price mismatch")
	}

	return c.JSON(result)
}

// CacheStats handles GET /api/checkout/price-cache.
func (h *PriceHandler) CacheStats(c *fiber.Ctx) error {
	return c.JSON(h.service.CacheStats())
}
