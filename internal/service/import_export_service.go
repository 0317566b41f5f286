package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/util"
	"github.com/dafibh/gehalt/gehalt-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CSV income encoding: entries separated by ';', parts by '|'. A backslash
// escapes a separator or another backslash inside a part.
const (
	incomeSeparator     = ';'
	incomePartSeparator = '|'
	incomeEscape        = '\\'
)

var incomePartEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, `;`, `\;`)

// ImportRequest is the JSON import document
type ImportRequest struct {
	Statements []*domain.Statement `json:"statements"`
	Replace    bool                `json:"replace"`
}

// ExportDocument is the JSON export document. It can be fed back into the import.
type ExportDocument struct {
	ExportedAt time.Time           `json:"exportedAt"`
	Statements []*domain.Statement `json:"statements"`
}

// ImportResult summarizes an import run
type ImportResult struct {
	Created  int                 `json:"created"`
	Updated  int                 `json:"updated"`
	Deleted  int64               `json:"deleted"`
	Warnings map[string]Warnings `json:"warnings"`
}

// ImportExportService handles bulk statement import and export
type ImportExportService struct {
	repo           domain.StatementRepository
	statements     *StatementService
	eventPublisher websocket.EventPublisher
	cache          CacheInvalidator
}

// NewImportExportService creates a new ImportExportService
func NewImportExportService(repo domain.StatementRepository, statements *StatementService) *ImportExportService {
	return &ImportExportService{repo: repo, statements: statements}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ImportExportService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetCache sets the cache that is invalidated after an import
func (s *ImportExportService) SetCache(cache CacheInvalidator) {
	s.cache = cache
}

// Import stores a batch of statements. Every statement is normalized and
// checked before anything is written, and the batch is stored atomically.
// With replace set, all existing statements of the user are deleted first;
// otherwise a statement for an already stored period replaces that statement.
func (s *ImportExportService) Import(ctx context.Context, userID uuid.UUID, statements []*domain.Statement, replace bool) (*ImportResult, error) {
	if len(statements) == 0 {
		return nil, domain.ErrEmptyImport
	}

	byPeriod := make(map[string]*domain.Statement, len(statements))
	order := make([]string, 0, len(statements))
	for i, input := range statements {
		if input == nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, domain.ErrInvalidInput)
		}
		normalized := NormalizeStatement(input)
		if err := validateStatement(normalized); err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, err)
		}
		key := periodKey(normalized)
		if _, seen := byPeriod[key]; !seen {
			order = append(order, key)
		}
		// later entries for the same period win
		byPeriod[key] = normalized
	}

	batch := make([]*domain.Statement, len(order))
	for i, key := range order {
		statement := byPeriod[key]
		statement.UserID = userID
		statement.ID = uuid.Nil
		statement.DocumentPath = ""
		batch[i] = statement
	}

	stored, err := s.repo.ImportBatch(ctx, userID, batch, replace)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	result := &ImportResult{
		Created:  stored.Created,
		Updated:  stored.Updated,
		Deleted:  stored.Deleted,
		Warnings: map[string]Warnings{},
	}
	for _, saved := range stored.Statements {
		if warnings := ValidateGrossFields(saved); len(warnings) > 0 {
			result.Warnings[periodKey(saved)] = warnings
		}
	}
	for _, path := range stored.RemovedDocuments {
		s.statements.deleteDocument(ctx, path)
	}

	if s.cache != nil {
		if err := s.cache.Bump(ctx, userID); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to invalidate dashboard cache")
		}
	}
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(userID, websocket.StatementsImported(map[string]interface{}{
			"created": result.Created,
			"updated": result.Updated,
			"deleted": result.Deleted,
		}))
	}

	log.Info().
		Str("user_id", userID.String()).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int64("deleted", result.Deleted).
		Bool("replace", replace).
		Msg("Imported statements")

	return result, nil
}

// Export returns every statement of the user, newest period first
func (s *ImportExportService) Export(ctx context.Context, userID uuid.UUID) (*ExportDocument, error) {
	statements, err := s.repo.List(ctx, userID, domain.StatementFilter{})
	if err != nil {
		return nil, err
	}
	return &ExportDocument{ExportedAt: time.Now().UTC(), Statements: statements}, nil
}

// CSVHeader is the column layout of CSV imports and exports
func CSVHeader() []string {
	header := make([]string, 0, len(domain.NumericFields)+1)
	for _, f := range domain.NumericFields {
		header = append(header, string(f))
	}
	return append(header, domain.FieldIncomes)
}

// WriteCSV renders statements as CSV with a header row of the external field names
func WriteCSV(w io.Writer, statements []*domain.Statement) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(CSVHeader()); err != nil {
		return err
	}
	for _, st := range statements {
		record := make([]string, 0, len(domain.NumericFields)+1)
		year, month := st.Period()
		record = append(record, fmt.Sprint(month), fmt.Sprint(year))
		for _, f := range domain.MoneyFields {
			record = append(record, st.Get(f).String())
		}
		record = append(record, encodeIncomes(st.Incomes))
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a CSV import. Columns are matched by header name, unknown
// columns are ignored and missing ones stay invalid until normalization.
func ReadCSV(r io.Reader) ([]*domain.Statement, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrEmptyImport
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[int]string, len(header))
	for i, name := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	}

	var statements []*domain.Statement
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		st := &domain.Statement{Incomes: []domain.Income{}}
		for i, value := range record {
			name, ok := columns[i]
			if !ok {
				continue
			}
			if name == domain.FieldIncomes {
				incomes, err := decodeIncomes(value)
				if err != nil {
					return nil, fmt.Errorf("csv line %d: %w", line, err)
				}
				st.Incomes = incomes
				continue
			}
			if f, ok := domain.ParseField(name); ok {
				st.Set(f, domain.ParseAmount(value))
			}
		}
		statements = append(statements, st)
	}

	if len(statements) == 0 {
		return nil, domain.ErrEmptyImport
	}
	return statements, nil
}

func encodeIncomes(incomes []domain.Income) string {
	entries := make([]string, len(incomes))
	for i, inc := range incomes {
		parts := []string{
			incomePartEscaper.Replace(inc.Name),
			incomePartEscaper.Replace(inc.Identifier),
			inc.Value.String(),
		}
		entries[i] = strings.Join(parts, string(incomePartSeparator))
	}
	return strings.Join(entries, string(incomeSeparator))
}

func decodeIncomes(raw string) ([]domain.Income, error) {
	incomes := []domain.Income{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return incomes, nil
	}
	for _, entry := range splitEscaped(raw, incomeSeparator) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := splitEscaped(entry, incomePartSeparator)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid income entry %q: %w", entry, domain.ErrInvalidInput)
		}
		incomes = append(incomes, domain.Income{
			Name:       unescapeIncomePart(strings.TrimSpace(parts[0])),
			Identifier: unescapeIncomePart(strings.TrimSpace(parts[1])),
			Value:      domain.ParseAmount(unescapeIncomePart(parts[2])),
		})
	}
	return incomes, nil
}

// splitEscaped splits s on every sep not preceded by the escape character.
// Escapes are kept so the parts can be split again.
func splitEscaped(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case incomeEscape:
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unescapeIncomePart(s string) string {
	if strings.IndexByte(s, incomeEscape) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == incomeEscape && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func periodKey(s *domain.Statement) string {
	year, month := s.Period()
	return util.PeriodKey(year, month)
}
