package models

import "github.com/shopspring/decimal"

// Course est la vue minimale du catalogue nécessaire au paiement
type Course struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Verified bool            `json:"verified"`
}
