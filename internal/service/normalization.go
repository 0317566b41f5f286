package service

import (
	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
)

// NormalizeStatement returns a copy of the statement in which every numeric
// field and every income value is a non-negative magnitude. Missing or
// malformed numbers become zero. The input is left untouched.
func NormalizeStatement(s *domain.Statement) *domain.Statement {
	out := s.Clone()
	for _, f := range domain.NumericFields {
		out.Set(f, out.Get(f).Coerced())
	}
	out.Incomes = normalizeIncomes(s.Incomes)
	if out.Incomes == nil {
		out.Incomes = []domain.Income{}
	}
	return out
}

// NormalizePatch is the partial counterpart of NormalizeStatement: only the
// fields present in the patch are coerced, absent fields stay absent and
// unrecognized properties pass through unchanged.
func NormalizePatch(p *domain.StatementPatch) *domain.StatementPatch {
	out := p.Clone()
	for f, a := range out.Values {
		out.Values[f] = a.Coerced()
	}
	if p.HasIncomes() {
		out.Incomes = normalizeIncomes(p.Incomes)
	}
	return out
}

func normalizeIncomes(incomes []domain.Income) []domain.Income {
	if incomes == nil {
		return nil
	}
	out := make([]domain.Income, len(incomes))
	for i, inc := range incomes {
		out[i] = domain.Income{
			Name:       inc.Name,
			Identifier: inc.Identifier,
			Value:      inc.Value.Coerced(),
		}
	}
	return out
}
