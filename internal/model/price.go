package model

// ValidatePriceRequest is the DTO for POST /api/checkout/validate-price.
// Price is a pointer so that a missing field fails validation instead of
// silently validating against zero.
type ValidatePriceRequest struct {
	Price     *float64 `json:"price" validate:"required,gte=0"`
	ProductID string   `json:"productId" validate:"required,notblank,max=255"`
	VariantID string   `json:"variantId" validate:"required,notblank,max=255"`
}

// PriceValidation is the outcome of comparing a client-submitted price
// against the server-computed canonical price.
type PriceValidation struct {
	Valid       bool    `json:"valid"`
	ServerPrice float64 `json:"serverPrice"`
	ClientPrice float64 `json:"clientPrice"`
	Difference  float64 `json:"difference"`
}

// PriceCacheEntry describes one cached canonical price.
type PriceCacheEntry struct {
	Key        string  `json:"key"`
	Price      float64 `json:"price"`
	AgeSeconds float64 `json:"age"`
}

// PriceCacheStats is the introspection payload for the price cache.
type PriceCacheStats struct {
	Size    int               `json:"size"`
	Entries []PriceCacheEntry `json:"entries"`
}
