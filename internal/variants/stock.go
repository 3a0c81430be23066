package variants

import "github.com/calderhq/storefront-backend/pkg/enums"

// DefaultLowStockThreshold applies when a variant has no threshold of
// its own.
const DefaultLowStockThreshold = 5

// ComputeStockStatus derives the stock status from quantity and the
// low-stock threshold. It is the single source of truth for the field;
// callers must never set StockStatus directly.
func ComputeStockStatus(quantity int, threshold *int) enums.StockStatus {
	limit := DefaultLowStockThreshold
	if threshold != nil {
		limit = *threshold
	}
	switch {
	case quantity <= 0:
		return enums.StockStatusOutOfStock
	case quantity <= limit:
		return enums.StockStatusLowStock
	default:
		return enums.StockStatusInStock
	}
}
