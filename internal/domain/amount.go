package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Limits on values accepted from upstream producers. Text longer than
// maxAmountLength, exponents beyond maxAmountExponent and magnitudes of at
// least MaxAmountMagnitude decode to an invalid Amount.
const (
	maxAmountLength   = 64
	maxAmountExponent = 20
)

// MaxAmountMagnitude is the exclusive upper bound of a decodable amount
var MaxAmountMagnitude = decimal.New(1, 15)

var (
	minInt32 = decimal.NewFromInt(math.MinInt32)
	maxInt32 = decimal.NewFromInt(math.MaxInt32)
)

// Amount is a numeric statement value as it arrived from an upstream producer.
// Valid is false when the source value was missing or not a well-formed number;
// in that case Value is zero.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount wraps a decimal as a valid Amount
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// AmountFromInt wraps an integer as a valid Amount
func AmountFromInt(i int64) Amount {
	return NewAmount(decimal.NewFromInt(i))
}

// ParseAmount converts free-form text into an Amount. Both "1234.56" and the
// German "1.234,56" notation are understood; currency markers are ignored.
// Anything that still does not parse yields an invalid Amount.
func ParseAmount(s string) Amount {
	s = strings.NewReplacer("EUR", "", "€", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return Amount{}
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot > lastComma:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	return parseDecimal(s)
}

func parseDecimal(s string) Amount {
	if len(s) > maxAmountLength {
		return Amount{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return Amount{}
	}
	if d.Abs().GreaterThanOrEqual(MaxAmountMagnitude) {
		return Amount{}
	}
	return NewAmount(d)
}

// Coerced returns the magnitude of the amount, mapping invalid values to zero.
// The result is always valid.
func (a Amount) Coerced() Amount {
	if !a.Valid {
		return NewAmount(decimal.Zero)
	}
	return NewAmount(a.Value.Abs())
}

// IsNegative reports whether the amount holds a negative number
func (a Amount) IsNegative() bool {
	return a.Valid && a.Value.IsNegative()
}

// Int returns the integer part of the amount, saturated to the int32 range
func (a Amount) Int() int {
	switch {
	case a.Value.GreaterThan(maxInt32):
		return math.MaxInt32
	case a.Value.LessThan(minInt32):
		return math.MinInt32
	}
	return int(a.Value.IntPart())
}

// Equal compares validity and numeric value
func (a Amount) Equal(b Amount) bool {
	return a.Valid == b.Valid && a.Value.Equal(b.Value)
}

// String renders the amount with two decimals
func (a Amount) String() string {
	return a.Value.StringFixed(2)
}

// MarshalJSON renders valid amounts as JSON numbers and invalid ones as null
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings. Any other JSON value
// decodes to an invalid Amount instead of failing the surrounding document.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = Amount{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*a = ParseAmount(s)
		return nil
	}

	*a = parseDecimal(string(data))
	return nil
}
