package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for unique constraint violations
const uniqueViolation = "23505"

// Money columns share their names with the external field names
var moneyColumns = func() []string {
	cols := make([]string, len(domain.MoneyFields))
	for i, f := range domain.MoneyFields {
		cols[i] = string(f)
	}
	return cols
}()

var statementColumns = "id, user_id, month, year, " + strings.Join(moneyColumns, ", ") + ", document_path, created_at, updated_at"

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StatementRepository implements domain.StatementRepository using PostgreSQL
type StatementRepository struct {
	pool *pgxpool.Pool
}

// NewStatementRepository creates a new StatementRepository
func NewStatementRepository(pool *pgxpool.Pool) *StatementRepository {
	return &StatementRepository{pool: pool}
}

// Create inserts a statement together with its incomes
func (r *StatementRepository) Create(ctx context.Context, statement *domain.Statement) (*domain.Statement, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := createStatement(ctx, tx, statement)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a statement owned by the user
func (r *StatementRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Statement, error) {
	query := "SELECT " + statementColumns + " FROM statements WHERE user_id = $1 AND id = $2"
	statement, err := scanStatement(r.pool.QueryRow(ctx, query, pgUUID(userID), pgUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStatementNotFound
		}
		return nil, err
	}

	if err := loadIncomes(ctx, r.pool, []*domain.Statement{statement}); err != nil {
		return nil, err
	}
	return statement, nil
}

// List retrieves the user's statements, newest period first
func (r *StatementRepository) List(ctx context.Context, userID uuid.UUID, filter domain.StatementFilter) ([]*domain.Statement, error) {
	query := "SELECT " + statementColumns + " FROM statements WHERE user_id = $1"
	args := []any{pgUUID(userID)}
	if filter.Year != nil {
		query += " AND year = $2"
		args = append(args, *filter.Year)
	}
	query += " ORDER BY year DESC, month DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statements := []*domain.Statement{}
	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		statements = append(statements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadIncomes(ctx, r.pool, statements); err != nil {
		return nil, err
	}
	return statements, nil
}

// Update overwrites every column of a statement and replaces its incomes
func (r *StatementRepository) Update(ctx context.Context, statement *domain.Statement) (*domain.Statement, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	updated, err := updateStatement(ctx, tx, statement)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a statement; incomes cascade
func (r *StatementRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM statements WHERE user_id = $1 AND id = $2", pgUUID(userID), pgUUID(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStatementNotFound
	}
	return nil
}

// DeleteAll removes every statement of the user and returns how many were deleted
func (r *StatementRepository) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM statements WHERE user_id = $1", pgUUID(userID))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ImportBatch writes a whole import in one transaction
func (r *StatementRepository) ImportBatch(ctx context.Context, userID uuid.UUID, statements []*domain.Statement, replace bool) (*domain.ImportBatchResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result := &domain.ImportBatchResult{Statements: make([]*domain.Statement, 0, len(statements))}
	existing := map[[2]int]storedPeriod{}

	if replace {
		rows, err := tx.Query(ctx, "DELETE FROM statements WHERE user_id = $1 RETURNING document_path", pgUUID(userID))
		if err != nil {
			return nil, err
		}
		paths, err := pgx.CollectRows(rows, pgx.RowTo[pgtype.Text])
		if err != nil {
			return nil, err
		}
		result.Deleted = int64(len(paths))
		for _, p := range paths {
			if p.Valid && p.String != "" {
				result.RemovedDocuments = append(result.RemovedDocuments, p.String)
			}
		}
	} else {
		existing, err = lockPeriods(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
	}

	for _, st := range statements {
		key := [2]int{st.Year.Int(), st.Month.Int()}
		if prev, ok := existing[key]; ok {
			st.ID = prev.id
			st.DocumentPath = prev.documentPath
			updated, err := updateStatement(ctx, tx, st)
			if err != nil {
				return nil, fmt.Errorf("update %04d-%02d: %w", key[0], key[1], err)
			}
			result.Statements = append(result.Statements, updated)
			result.Updated++
			continue
		}

		created, err := createStatement(ctx, tx, st)
		if err != nil {
			return nil, fmt.Errorf("create %04d-%02d: %w", key[0], key[1], err)
		}
		existing[key] = storedPeriod{id: created.ID, documentPath: created.DocumentPath}
		result.Statements = append(result.Statements, created)
		result.Created++
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// GetYears returns the distinct statement years of the user, newest first
func (r *StatementRepository) GetYears(ctx context.Context, userID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx, "SELECT DISTINCT year FROM statements WHERE user_id = $1 ORDER BY year DESC", pgUUID(userID))
	if err != nil {
		return nil, err
	}
	years, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (int, error) {
		var year int16
		err := row.Scan(&year)
		return int(year), err
	})
	if err != nil {
		return nil, err
	}
	return years, nil
}

// Helper functions

type storedPeriod struct {
	id           uuid.UUID
	documentPath string
}

// lockPeriods returns the user's stored periods and locks their rows until the transaction ends
func lockPeriods(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (map[[2]int]storedPeriod, error) {
	rows, err := tx.Query(ctx, "SELECT id, year, month, document_path FROM statements WHERE user_id = $1 FOR UPDATE", pgUUID(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := map[[2]int]storedPeriod{}
	for rows.Next() {
		var (
			id           pgtype.UUID
			year, month  int16
			documentPath pgtype.Text
		)
		if err := rows.Scan(&id, &year, &month, &documentPath); err != nil {
			return nil, err
		}
		periods[[2]int{int(year), int(month)}] = storedPeriod{id: uuid.UUID(id.Bytes), documentPath: documentPath.String}
	}
	return periods, rows.Err()
}

func createStatement(ctx context.Context, tx pgx.Tx, statement *domain.Statement) (*domain.Statement, error) {
	args, err := statementArgs(statement)
	if err != nil {
		return nil, err
	}
	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO statements (user_id, month, year, %s, document_path) VALUES (%s) RETURNING %s",
		strings.Join(moneyColumns, ", "), strings.Join(placeholders, ", "), statementColumns,
	)

	created, err := scanStatement(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrStatementExists
		}
		return nil, err
	}

	if err := insertIncomes(ctx, tx, created.ID, statement.Incomes); err != nil {
		return nil, err
	}
	created.Incomes = cloneIncomes(statement.Incomes)
	return created, nil
}

func updateStatement(ctx context.Context, tx pgx.Tx, statement *domain.Statement) (*domain.Statement, error) {
	args, err := statementArgs(statement)
	if err != nil {
		return nil, err
	}
	// $1 user_id, $2 month, $3 year, money..., document_path, then id
	sets := []string{"month = $2", "year = $3"}
	for i, col := range moneyColumns {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+4))
	}
	sets = append(sets, fmt.Sprintf("document_path = $%d", len(args)), "updated_at = now()")
	args = append(args, pgUUID(statement.ID))

	query := fmt.Sprintf(
		"UPDATE statements SET %s WHERE user_id = $1 AND id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), statementColumns,
	)

	updated, err := scanStatement(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStatementNotFound
		}
		if isUniqueViolation(err) {
			return nil, domain.ErrStatementExists
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM statement_incomes WHERE statement_id = $1", pgUUID(updated.ID)); err != nil {
		return nil, err
	}
	if err := insertIncomes(ctx, tx, updated.ID, statement.Incomes); err != nil {
		return nil, err
	}
	updated.Incomes = cloneIncomes(statement.Incomes)
	return updated, nil
}

func statementArgs(s *domain.Statement) ([]any, error) {
	args := []any{pgUUID(s.UserID), s.Month.Int(), s.Year.Int()}
	for _, f := range domain.MoneyFields {
		num, err := decimalToPgNumeric(s.Get(f).Value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f, err)
		}
		args = append(args, num)
	}
	args = append(args, stringToPgText(s.DocumentPath))
	return args, nil
}

func scanStatement(row pgx.Row) (*domain.Statement, error) {
	var (
		id, userID           pgtype.UUID
		month, year          int16
		documentPath         pgtype.Text
		createdAt, updatedAt pgtype.Timestamptz
	)
	money := make([]pgtype.Numeric, len(domain.MoneyFields))

	dest := []any{&id, &userID, &month, &year}
	for i := range money {
		dest = append(dest, &money[i])
	}
	dest = append(dest, &documentPath, &createdAt, &updatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	s := &domain.Statement{
		ID:        uuid.UUID(id.Bytes),
		UserID:    uuid.UUID(userID.Bytes),
		Month:     domain.AmountFromInt(int64(month)),
		Year:      domain.AmountFromInt(int64(year)),
		Incomes:   []domain.Income{},
		CreatedAt: createdAt.Time,
		UpdatedAt: updatedAt.Time,
	}
	for i, f := range domain.MoneyFields {
		s.Set(f, domain.NewAmount(pgNumericToDecimal(money[i])))
	}
	if documentPath.Valid {
		s.DocumentPath = documentPath.String
	}
	return s, nil
}

func insertIncomes(ctx context.Context, tx pgx.Tx, statementID uuid.UUID, incomes []domain.Income) error {
	if len(incomes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, inc := range incomes {
		value, err := decimalToPgNumeric(inc.Value.Value)
		if err != nil {
			return fmt.Errorf("invalid income value: %w", err)
		}
		batch.Queue(
			"INSERT INTO statement_incomes (statement_id, position, name, identifier, value) VALUES ($1, $2, $3, $4, $5)",
			pgUUID(statementID), i, inc.Name, inc.Identifier, value,
		)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func loadIncomes(ctx context.Context, q querier, statements []*domain.Statement) error {
	if len(statements) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Statement, len(statements))
	ids := make([]pgtype.UUID, len(statements))
	for i, s := range statements {
		byID[s.ID] = s
		ids[i] = pgUUID(s.ID)
	}

	rows, err := q.Query(ctx,
		"SELECT statement_id, name, identifier, value FROM statement_incomes WHERE statement_id = ANY($1) ORDER BY statement_id, position",
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			statementID pgtype.UUID
			inc         domain.Income
			value       pgtype.Numeric
		)
		if err := rows.Scan(&statementID, &inc.Name, &inc.Identifier, &value); err != nil {
			return err
		}
		inc.Value = domain.NewAmount(pgNumericToDecimal(value))
		if s, ok := byID[uuid.UUID(statementID.Bytes)]; ok {
			s.Incomes = append(s.Incomes, inc)
		}
	}
	return rows.Err()
}

func cloneIncomes(incomes []domain.Income) []domain.Income {
	out := make([]domain.Income, len(incomes))
	copy(out, incomes)
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
