package dto

// Product is one catalog entry as served by GET /products.
type Product struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Stock  int     `json:"stock"`
	Active bool    `json:"active"`
}

type ProductPage struct {
	Content       []Product `json:"content"`
	Page          int       `json:"page"`
	Size          int       `json:"size"`
	TotalElements int64     `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
	First         bool      `json:"first"`
	Last          bool      `json:"last"`
}

type ProductSales struct {
	Product
	TotalSold int `json:"totalSold"`
}

// ProductQuery is the parsed query string of GET /products.
type ProductQuery struct {
	Search string
	Page   int
	Size   int
}
