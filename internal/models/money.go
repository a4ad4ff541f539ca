package models

import "github.com/shopspring/decimal"

// ToMinorUnits convertit un montant en centimes, arrondi au plus proche
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits reconstruit un montant à partir de centimes
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
