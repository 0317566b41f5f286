package domain

import (
	"encoding/json"
	"fmt"
)

// StatementPatch is a partial statement update. Values only holds the known
// numeric fields that were present; Incomes is nil when the income list was
// absent. Unrecognized properties are kept verbatim in Extra.
type StatementPatch struct {
	Values  map[Field]Amount
	Incomes []Income
	Extra   map[string]json.RawMessage
}

// Has reports whether the patch carries a value for the field
func (p *StatementPatch) Has(f Field) bool {
	_, ok := p.Values[f]
	return ok
}

// HasIncomes reports whether the patch replaces the income list
func (p *StatementPatch) HasIncomes() bool {
	return p.Incomes != nil
}

// IsEmpty reports whether the patch changes nothing on a statement
func (p *StatementPatch) IsEmpty() bool {
	return len(p.Values) == 0 && !p.HasIncomes()
}

// Clone returns a deep copy of the patch
func (p *StatementPatch) Clone() *StatementPatch {
	c := &StatementPatch{}
	if p.Values != nil {
		c.Values = make(map[Field]Amount, len(p.Values))
		for f, a := range p.Values {
			c.Values[f] = a
		}
	}
	if p.Incomes != nil {
		c.Incomes = make([]Income, len(p.Incomes))
		copy(c.Incomes, p.Incomes)
	}
	if p.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// ApplyTo writes the patch onto a statement. The income list is replaced wholesale.
func (p *StatementPatch) ApplyTo(s *Statement) {
	for f, a := range p.Values {
		s.Set(f, a)
	}
	if p.HasIncomes() {
		s.Incomes = make([]Income, len(p.Incomes))
		copy(s.Incomes, p.Incomes)
	}
}

// UnmarshalJSON splits a JSON object into known fields, incomes and extras
func (p *StatementPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("statement patch must be an object: %w", err)
	}

	*p = StatementPatch{Values: make(map[Field]Amount)}
	for key, value := range raw {
		if f, ok := ParseField(key); ok {
			// malformed values decode to an invalid Amount, never an error
			var a Amount
			_ = a.UnmarshalJSON(value)
			p.Values[f] = a
			continue
		}
		if key == FieldIncomes {
			incomes := []Income{}
			if err := json.Unmarshal(value, &incomes); err != nil {
				return fmt.Errorf("incomes must be a list: %w", err)
			}
			p.Incomes = incomes
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[key] = value
	}
	return nil
}

// MarshalJSON renders the patch back into a flat JSON object
func (p StatementPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Values)+len(p.Extra)+1)
	for k, v := range p.Extra {
		out[k] = v
	}
	for f, a := range p.Values {
		out[string(f)] = a
	}
	if p.HasIncomes() {
		out[FieldIncomes] = p.Incomes
	}
	return json.Marshal(out)
}
