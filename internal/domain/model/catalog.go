package model

import "github.com/shopspring/decimal"

// Product is the catalog row the stock ledger reads and decrements.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}

// CartLine is a desired purchase of one product.
type CartLine struct {
	ProductID int64
	Quantity  int
}
