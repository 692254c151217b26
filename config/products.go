package config

// Product is a purchasable bundle of quiz generations.
type Product struct {
	SKU    string `json:"sku"`
	Name   string `json:"name"`
	Tokens int    `json:"tokens"`
}

const DefaultProductSKU = "quiz_5"

var products = []Product{
	{SKU: "quiz_5", Name: "5 Quizzes", Tokens: 5},
	{SKU: "quiz_20", Name: "20 Quizzes", Tokens: 20},
	{SKU: "quiz_50", Name: "50 Quizzes", Tokens: 50},
}

// Products returns the catalog, smallest tier first.
func Products() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

func LookupProduct(sku string) (Product, bool) {
	for _, p := range products {
		if p.SKU == sku {
			return p, true
		}
	}
	return Product{}, false
}

// ProductOrDefault falls back to the smallest tier for unknown skus.
func ProductOrDefault(sku string) Product {
	if p, ok := LookupProduct(sku); ok {
		return p
	}
	p, _ := LookupProduct(DefaultProductSKU)
	return p
}
