package products

import (
	"context"
	"time"
)

// ProductType distinguishes stocked goods from services/procedures, which
// share the same transaction paths but never touch inventory.
type ProductType string

const (
	ProductTypeGoods   ProductType = "GOODS"
	ProductTypeService ProductType = "SERVICE"
)

// Product is the master-data view the transaction core relies on.
type Product struct {
	ID            int64
	SKU           string
	Name          string
	Category      string
	Type          ProductType
	HasExpiry     bool
	PurchasePrice float64
	SalePrice     float64
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Variant is an optional product variation (size, flavour).
type Variant struct {
	ID        int64
	ProductID int64
	Name      string
	SKU       string
	IsActive  bool
}

// Trackable reports whether stock operations apply to this product.
func (p Product) Trackable() bool {
	return p.Type == ProductTypeGoods
}

// VariantPort resolves variants by id.
type VariantPort interface {
	GetVariant(ctx context.Context, id int64) (Variant, error)
}

// DisplayName names a product for user-facing messages, appending the
// variant name when a variant is set. A failed variant lookup falls back to
// the bare product name rather than failing the caller.
func DisplayName(ctx context.Context, variants VariantPort, p Product, variantID int64) string {
	if variantID == 0 || variants == nil {
		return p.Name
	}
	v, err := variants.GetVariant(ctx, variantID)
	if err != nil || v.Name == "" {
		return p.Name
	}
	return p.Name + " (" + v.Name + ")"
}
