package service

import (
	"fmt"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// GrossIncomeTolerance is the largest accepted gap between a gross field and
// the income sum, in currency units
var GrossIncomeTolerance = decimal.NewFromInt(1)

// Warnings maps a field name to an advisory message
type Warnings map[domain.Field]string

// ValidateGrossFields compares each gross field against the sum of the
// statement's incomes and returns a warning for every field off by more than
// GrossIncomeTolerance. Fields that do not hold a number are skipped.
// The statement is inspected as is; no normalization takes place.
func ValidateGrossFields(s *domain.Statement) Warnings {
	warnings := Warnings{}
	total := s.TotalIncome()

	for _, f := range domain.GrossFields {
		value := s.Get(f)
		if !value.Valid {
			continue
		}
		diff := total.Sub(value.Value).Abs()
		if diff.GreaterThan(GrossIncomeTolerance) {
			warnings[f] = grossMismatchMessage(f, diff)
		}
	}
	return warnings
}

func grossMismatchMessage(f domain.Field, diff decimal.Decimal) string {
	return fmt.Sprintf("%s weicht um %s € von der Summe der Bezüge ab", f.Label(), diff.StringFixed(2))
}
