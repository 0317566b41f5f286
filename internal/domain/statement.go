package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field names a numeric statement field using its external (import/export) name
type Field string

const (
	FieldMonth Field = "month"
	FieldYear  Field = "year"

	FieldBruttoTax Field = "brutto_tax"
	FieldBruttoAV  Field = "brutto_av"
	FieldBruttoPV  Field = "brutto_pv"
	FieldBruttoRV  Field = "brutto_rv"
	FieldBruttoKV  Field = "brutto_kv"

	FieldDeductionTaxIncome     Field = "deduction_tax_income"
	FieldDeductionTaxChurch     Field = "deduction_tax_church"
	FieldDeductionTaxSolidarity Field = "deduction_tax_solidarity"
	FieldDeductionTaxOther      Field = "deduction_tax_other"

	FieldSocialAV Field = "social_av"
	FieldSocialPV Field = "social_pv"
	FieldSocialRV Field = "social_rv"
	FieldSocialKV Field = "social_kv"

	FieldPayoutNetto    Field = "payout_netto"
	FieldPayoutTransfer Field = "payout_transfer"
	FieldPayoutVWL      Field = "payout_vwl"
	FieldPayoutOther    Field = "payout_other"
)

// FieldIncomes is the external name of the income list
const FieldIncomes = "incomes"

// GrossFields are the gross bases that must reconcile with the income sum
var GrossFields = []Field{FieldBruttoTax, FieldBruttoAV, FieldBruttoPV, FieldBruttoRV, FieldBruttoKV}

// DeductionFields are the tax deductions
var DeductionFields = []Field{FieldDeductionTaxIncome, FieldDeductionTaxChurch, FieldDeductionTaxSolidarity, FieldDeductionTaxOther}

// SocialFields are the employee shares of the social contributions
var SocialFields = []Field{FieldSocialAV, FieldSocialPV, FieldSocialRV, FieldSocialKV}

// PayoutFields are the payout components
var PayoutFields = []Field{FieldPayoutNetto, FieldPayoutTransfer, FieldPayoutVWL, FieldPayoutOther}

// MoneyFields lists every currency field in external order
var MoneyFields = concatFields(GrossFields, DeductionFields, SocialFields, PayoutFields)

// MaxMoneyValue is the exclusive bound of a storable money value (NUMERIC(12,2))
var MaxMoneyValue = decimal.New(1, 10)

// NumericFields lists every numeric field, period first
var NumericFields = concatFields([]Field{FieldMonth, FieldYear}, MoneyFields)

// FieldLabels holds the display labels used in user-facing messages
var FieldLabels = map[Field]string{
	FieldMonth:                  "Monat",
	FieldYear:                   "Jahr",
	FieldBruttoTax:              "Steuer-Brutto",
	FieldBruttoAV:               "AV-Brutto",
	FieldBruttoPV:               "PV-Brutto",
	FieldBruttoRV:               "RV-Brutto",
	FieldBruttoKV:               "KV-Brutto",
	FieldDeductionTaxIncome:     "Lohnsteuer",
	FieldDeductionTaxChurch:     "Kirchensteuer",
	FieldDeductionTaxSolidarity: "Solidaritätszuschlag",
	FieldDeductionTaxOther:      "Sonstige Abzüge",
	FieldSocialAV:               "Arbeitslosenversicherung",
	FieldSocialPV:               "Pflegeversicherung",
	FieldSocialRV:               "Rentenversicherung",
	FieldSocialKV:               "Krankenversicherung",
	FieldPayoutNetto:            "Nettoauszahlung",
	FieldPayoutTransfer:         "Überweisung",
	FieldPayoutVWL:              "VWL",
	FieldPayoutOther:            "Sonstige Auszahlung",
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, len(NumericFields))
	for _, f := range NumericFields {
		m[string(f)] = f
	}
	return m
}()

func concatFields(groups ...[]Field) []Field {
	var out []Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// ParseField resolves an external field name
func ParseField(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

// Label returns the display label, falling back to the raw field name
func (f Field) Label() string {
	if label, ok := FieldLabels[f]; ok {
		return label
	}
	return string(f)
}

// Income is one itemized earnings component of a statement
type Income struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Value      Amount `json:"value"`
}

// Statement is one monthly salary statement
type Statement struct {
	ID     uuid.UUID `json:"-"`
	UserID uuid.UUID `json:"-"`

	Month Amount `json:"month"`
	Year  Amount `json:"year"`

	BruttoTax Amount `json:"brutto_tax"`
	BruttoAV  Amount `json:"brutto_av"`
	BruttoPV  Amount `json:"brutto_pv"`
	BruttoRV  Amount `json:"brutto_rv"`
	BruttoKV  Amount `json:"brutto_kv"`

	DeductionTaxIncome     Amount `json:"deduction_tax_income"`
	DeductionTaxChurch     Amount `json:"deduction_tax_church"`
	DeductionTaxSolidarity Amount `json:"deduction_tax_solidarity"`
	DeductionTaxOther      Amount `json:"deduction_tax_other"`

	SocialAV Amount `json:"social_av"`
	SocialPV Amount `json:"social_pv"`
	SocialRV Amount `json:"social_rv"`
	SocialKV Amount `json:"social_kv"`

	PayoutNetto    Amount `json:"payout_netto"`
	PayoutTransfer Amount `json:"payout_transfer"`
	PayoutVWL      Amount `json:"payout_vwl"`
	PayoutOther    Amount `json:"payout_other"`

	Incomes []Income `json:"incomes"`

	DocumentPath string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// NewStatement returns a fresh statement for the given period with every
// money field set to zero and no incomes
func NewStatement(year, month int) *Statement {
	s := &Statement{Incomes: []Income{}}
	s.Year = AmountFromInt(int64(year))
	s.Month = AmountFromInt(int64(month))
	for _, f := range MoneyFields {
		s.Set(f, NewAmount(decimal.Zero))
	}
	return s
}

// Get returns the value of a numeric field
func (s *Statement) Get(f Field) Amount {
	if p := s.field(f); p != nil {
		return *p
	}
	return Amount{}
}

// Set assigns a numeric field. Unknown fields are ignored and reported as false.
func (s *Statement) Set(f Field, a Amount) bool {
	p := s.field(f)
	if p == nil {
		return false
	}
	*p = a
	return true
}

func (s *Statement) field(f Field) *Amount {
	switch f {
	case FieldMonth:
		return &s.Month
	case FieldYear:
		return &s.Year
	case FieldBruttoTax:
		return &s.BruttoTax
	case FieldBruttoAV:
		return &s.BruttoAV
	case FieldBruttoPV:
		return &s.BruttoPV
	case FieldBruttoRV:
		return &s.BruttoRV
	case FieldBruttoKV:
		return &s.BruttoKV
	case FieldDeductionTaxIncome:
		return &s.DeductionTaxIncome
	case FieldDeductionTaxChurch:
		return &s.DeductionTaxChurch
	case FieldDeductionTaxSolidarity:
		return &s.DeductionTaxSolidarity
	case FieldDeductionTaxOther:
		return &s.DeductionTaxOther
	case FieldSocialAV:
		return &s.SocialAV
	case FieldSocialPV:
		return &s.SocialPV
	case FieldSocialRV:
		return &s.SocialRV
	case FieldSocialKV:
		return &s.SocialKV
	case FieldPayoutNetto:
		return &s.PayoutNetto
	case FieldPayoutTransfer:
		return &s.PayoutTransfer
	case FieldPayoutVWL:
		return &s.PayoutVWL
	case FieldPayoutOther:
		return &s.PayoutOther
	}
	return nil
}

// Clone returns a deep copy of the statement
func (s *Statement) Clone() *Statement {
	c := *s
	if s.Incomes != nil {
		c.Incomes = make([]Income, len(s.Incomes))
		copy(c.Incomes, s.Incomes)
	}
	return &c
}

// Period returns the statement's year and month as integers
func (s *Statement) Period() (year, month int) {
	return s.Year.Int(), s.Month.Int()
}

// TotalIncome sums the income values as they are currently stored
func (s *Statement) TotalIncome() decimal.Decimal {
	total := decimal.Zero
	for _, inc := range s.Incomes {
		total = total.Add(inc.Value.Value)
	}
	return total
}

// Sum adds up the given fields
func (s *Statement) Sum(fields []Field) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fields {
		total = total.Add(s.Get(f).Value)
	}
	return total
}

// StatementFilter narrows statement listings
type StatementFilter struct {
	Year *int
}

// ImportBatchResult reports what a batch import changed. Statements are the
// stored rows in input order; RemovedDocuments lists the source documents of
// statements deleted by a replacing import.
type ImportBatchResult struct {
	Statements       []*Statement
	Created          int
	Updated          int
	Deleted          int64
	RemovedDocuments []string
}

// StatementRepository defines the interface for statement persistence operations
type StatementRepository interface {
	Create(ctx context.Context, statement *Statement) (*Statement, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Statement, error)
	List(ctx context.Context, userID uuid.UUID, filter StatementFilter) ([]*Statement, error)
	Update(ctx context.Context, statement *Statement) (*Statement, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	// ImportBatch stores all statements or none. With replace set the user's
	// statements are deleted first; otherwise a statement for a stored period
	// overwrites that row and keeps its document.
	ImportBatch(ctx context.Context, userID uuid.UUID, statements []*Statement, replace bool) (*ImportBatchResult, error)
	GetYears(ctx context.Context, userID uuid.UUID) ([]int, error)
}
