package domain

// Product is the catalog view the engine needs: current price and stock.
// Catalog management itself lives outside this service.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int32   `json:"stock"`
}
