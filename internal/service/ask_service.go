package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/util"
	"github.com/google/uuid"
)

// contextFields are the columns of the table handed to the model
var contextFields = []domain.Field{
	domain.FieldBruttoTax,
	domain.FieldDeductionTaxIncome,
	domain.FieldDeductionTaxChurch,
	domain.FieldDeductionTaxSolidarity,
	domain.FieldSocialAV,
	domain.FieldSocialPV,
	domain.FieldSocialRV,
	domain.FieldSocialKV,
	domain.FieldPayoutNetto,
	domain.FieldPayoutTransfer,
	domain.FieldPayoutVWL,
}

// AskService answers free text questions about the user's statements
type AskService struct {
	ai   AIClient
	repo domain.StatementRepository
}

// NewAskService creates a new AskService. A nil AI client disables it.
func NewAskService(ai AIClient, repo domain.StatementRepository) *AskService {
	return &AskService{ai: ai, repo: repo}
}

// IsEnabled reports whether a model is configured
func (s *AskService) IsEnabled() bool {
	return s != nil && s.ai != nil
}

// Ask loads the user's statements into the prompt and returns the model's answer
func (s *AskService) Ask(ctx context.Context, userID uuid.UUID, question string) (string, error) {
	if !s.IsEnabled() {
		return "", domain.ErrAINotConfigured
	}
	question = strings.TrimSpace(question)
	if question == "" || utf8.RuneCountInString(question) > domain.MaxQuestionLength {
		return "", domain.ErrInvalidInput
	}

	statements, err := s.repo.List(ctx, userID, domain.StatementFilter{})
	if err != nil {
		return "", err
	}

	return s.ai.Answer(ctx, BuildQuestionPrompt(statements, question))
}

// BuildQuestionPrompt renders the statements as a pipe separated table followed by the question
func BuildQuestionPrompt(statements []*domain.Statement, question string) string {
	var b strings.Builder

	if len(statements) == 0 {
		b.WriteString("Es liegen keine Gehaltsabrechnungen vor.\n")
	} else {
		b.WriteString("Gehaltsabrechnungen (Beträge in €):\n")
		header := []string{"Periode"}
		for _, f := range contextFields {
			header = append(header, f.Label())
		}
		header = append(header, "Bezüge")
		b.WriteString(strings.Join(header, " | "))
		b.WriteString("\n")

		for _, st := range statements {
			year, month := st.Period()
			row := []string{util.PeriodLabel(year, month)}
			for _, f := range contextFields {
				row = append(row, st.Get(f).String())
			}
			row = append(row, describeIncomes(st.Incomes))
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nFrage: ")
	b.WriteString(question)
	return b.String()
}

func describeIncomes(incomes []domain.Income) string {
	if len(incomes) == 0 {
		return "-"
	}
	parts := make([]string, len(incomes))
	for i, inc := range incomes {
		parts[i] = fmt.Sprintf("%s %s", inc.Name, inc.Value.String())
	}
	return strings.Join(parts, ", ")
}
