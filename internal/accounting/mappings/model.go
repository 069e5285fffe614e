package mappings

import "time"

// AccountMapping overrides a default account-code binding.
type AccountMapping struct {
	Module      string
	Key         string
	AccountCode string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Mapping modules.
const (
	ModuleRevenue   = "REVENUE"
	ModuleCOGS      = "COGS"
	ModuleInventory = "INVENTORY"
	ModulePayment   = "PAYMENT"
)
