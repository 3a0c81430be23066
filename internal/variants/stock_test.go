package variants

import (
	"testing"

	"github.com/calderhq/storefront-backend/pkg/enums"
)

func TestComputeStockStatus(t *testing.T) {
	three := 3
	zero := 0

	cases := []struct {
		name      string
		quantity  int
		threshold *int
		want      enums.StockStatus
	}{
		{"negative quantity", -2, nil, enums.StockStatusOutOfStock},
		{"zero quantity", 0, nil, enums.StockStatusOutOfStock},
		{"at default threshold", 5, nil, enums.StockStatusLowStock},
		{"above default threshold", 6, nil, enums.StockStatusInStock},
		{"at custom threshold", 3, &three, enums.StockStatusLowStock},
		{"above custom threshold", 4, &three, enums.StockStatusInStock},
		{"zero threshold means never low", 1, &zero, enums.StockStatusInStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeStockStatus(tc.quantity, tc.threshold); got != tc.want {
				t.Fatalf("compute(%d, %v) = %s, want %s", tc.quantity, tc.threshold, got, tc.want)
			}
		})
	}
}
