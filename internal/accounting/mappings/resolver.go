package mappings

import (
	"context"
	"errors"
	"strings"

	accshared "github.com/pawsuite/pawsuite/internal/accounting/shared"
	"github.com/pawsuite/pawsuite/internal/finance"
)

// Fixed account codes used by the posting builders.
const (
	CodeCash            = "1-101"
	CodeBank            = "1-102"
	CodeAR              = "1-201"
	CodeVATInput        = "1-401"
	CodeAP              = "2-101"
	CodeTaxPayable      = "2-201"
	CodeClinicRevenue   = "4-201"
	CodeRoomRevenue     = "4-301"
	CodeHotelSvcRevenue = "4-302"
	CodeDiscountExpense = "6-101"
)

// Default category bindings, matched by substring against the category name.
// The triple is (revenue, cogs, inventory). Explicit overrides in the
// account_mappings table win over these tables.
var categoryDefaults = []struct {
	match     string
	revenue   string
	cogs      string
	inventory string
}{
	{"PET FOOD", "4-101", "5-101", "1-301"},
	{"FOOD", "4-101", "5-101", "1-301"},
	{"MEDIC", "4-102", "5-102", "1-302"},
	{"VACCINE", "4-102", "5-102", "1-302"},
	{"ACCESSOR", "4-103", "5-103", "1-303"},
}

// Fallback codes for categories with no binding.
const (
	defaultRevenue   = "4-109"
	defaultCOGS      = "5-109"
	defaultInventory = "1-309"
)

// Resolver maps business categories and payment methods to account codes.
// The lookup tables are explicit and testable; ad hoc branching belongs here
// and nowhere else.
type Resolver struct {
	overrides Repository
}

// NewResolver constructs Resolver. The overrides repository is optional.
func NewResolver(overrides Repository) *Resolver {
	return &Resolver{overrides: overrides}
}

// RevenueCode returns the revenue account for a product category.
func (r *Resolver) RevenueCode(ctx context.Context, category string) string {
	return r.resolve(ctx, ModuleRevenue, category, func(d int) string { return categoryDefaults[d].revenue }, defaultRevenue)
}

// COGSCode returns the cost-of-goods-sold account for a product category.
func (r *Resolver) COGSCode(ctx context.Context, category string) string {
	return r.resolve(ctx, ModuleCOGS, category, func(d int) string { return categoryDefaults[d].cogs }, defaultCOGS)
}

// InventoryCode returns the inventory asset account for a product category.
func (r *Resolver) InventoryCode(ctx context.Context, category string) string {
	return r.resolve(ctx, ModuleInventory, category, func(d int) string { return categoryDefaults[d].inventory }, defaultInventory)
}

// PaymentCode returns the cash or bank account for a payment method.
func (r *Resolver) PaymentCode(ctx context.Context, method string) string {
	if r.overrides != nil {
		if mapping, err := r.overrides.Get(ctx, ModulePayment, strings.ToUpper(method)); err == nil {
			return mapping.AccountCode
		} else if !errors.Is(err, accshared.ErrMappingNotFound) {
			return CodeBank
		}
	}
	if strings.EqualFold(method, finance.MethodCash) {
		return CodeCash
	}
	return CodeBank
}

func (r *Resolver) resolve(ctx context.Context, module, category string, pick func(int) string, fallback string) string {
	if r.overrides != nil {
		if mapping, err := r.overrides.Get(ctx, module, strings.ToUpper(category)); err == nil {
			return mapping.AccountCode
		}
	}
	upper := strings.ToUpper(category)
	for i, def := range categoryDefaults {
		if strings.Contains(upper, def.match) {
			return pick(i)
		}
	}
	return fallback
}
