package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/repository/storage"
	"github.com/dafibh/gehalt/gehalt-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DocumentURLExpiry is how long a presigned document link stays valid
const DocumentURLExpiry = 15 * time.Minute

// CacheInvalidator drops cached aggregates of a user after statement writes
type CacheInvalidator interface {
	Bump(ctx context.Context, userID uuid.UUID) error
}

// StatementResult is a persisted statement together with its validation warnings
type StatementResult struct {
	Statement *domain.Statement
	Warnings  Warnings
}

// StatementService handles salary statement business logic
type StatementService struct {
	repo           domain.StatementRepository
	eventPublisher websocket.EventPublisher
	cache          CacheInvalidator
	documents      storage.DocumentRepository
}

// NewStatementService creates a new StatementService
func NewStatementService(repo domain.StatementRepository) *StatementService {
	return &StatementService{repo: repo}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *StatementService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetCache sets the cache that is invalidated on every write
func (s *StatementService) SetCache(cache CacheInvalidator) {
	s.cache = cache
}

// SetDocumentStorage enables presigned links to source documents
func (s *StatementService) SetDocumentStorage(documents storage.DocumentRepository) {
	s.documents = documents
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *StatementService) publishEvent(userID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(userID, event)
	}
}

// invalidate bumps the user's cache version. Failures only cost freshness until the TTL runs out.
func (s *StatementService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to invalidate dashboard cache")
	}
}

// Create normalizes and stores a new statement
func (s *StatementService) Create(ctx context.Context, userID uuid.UUID, input *domain.Statement) (*StatementResult, error) {
	statement := NormalizeStatement(input)
	if err := validateStatement(statement); err != nil {
		return nil, err
	}
	statement.UserID = userID

	created, err := s.repo.Create(ctx, statement)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.publishEvent(userID, websocket.StatementCreated(eventPayload(created)))

	return &StatementResult{Statement: created, Warnings: ValidateGrossFields(created)}, nil
}

// List retrieves the user's statements, newest period first
func (s *StatementService) List(ctx context.Context, userID uuid.UUID, filter domain.StatementFilter) ([]*domain.Statement, error) {
	return s.repo.List(ctx, userID, filter)
}

// Get retrieves a single statement of the user
func (s *StatementService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Statement, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// Update applies a partial change. Only the fields present in the patch are
// touched; a present income list replaces the stored one.
func (s *StatementService) Update(ctx context.Context, userID, id uuid.UUID, patch *domain.StatementPatch) (*StatementResult, error) {
	existing, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	normalized := NormalizePatch(patch)
	if normalized.IsEmpty() {
		return &StatementResult{Statement: existing, Warnings: ValidateGrossFields(existing)}, nil
	}

	statement := existing.Clone()
	normalized.ApplyTo(statement)
	if err := validateStatement(statement); err != nil {
		return nil, err
	}

	return s.save(ctx, userID, statement)
}

// Replace overwrites every field of a stored statement. The source document link is kept.
func (s *StatementService) Replace(ctx context.Context, userID, id uuid.UUID, input *domain.Statement) (*StatementResult, error) {
	existing, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	statement := NormalizeStatement(input)
	if err := validateStatement(statement); err != nil {
		return nil, err
	}
	statement.ID = existing.ID
	statement.UserID = userID
	statement.DocumentPath = existing.DocumentPath
	statement.CreatedAt = existing.CreatedAt

	return s.save(ctx, userID, statement)
}

func (s *StatementService) save(ctx context.Context, userID uuid.UUID, statement *domain.Statement) (*StatementResult, error) {
	updated, err := s.repo.Update(ctx, statement)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.publishEvent(userID, websocket.StatementUpdated(eventPayload(updated)))

	return &StatementResult{Statement: updated, Warnings: ValidateGrossFields(updated)}, nil
}

// Delete removes a statement together with its incomes and source document
func (s *StatementService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.deleteDocument(ctx, existing.DocumentPath)
	s.invalidate(ctx, userID)
	s.publishEvent(userID, websocket.StatementDeleted(map[string]interface{}{"id": id}))
	return nil
}

// DeleteAll removes every statement of the user and returns how many were removed
func (s *StatementService) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	var documents []string
	if s.documents != nil {
		statements, err := s.repo.List(ctx, userID, domain.StatementFilter{})
		if err != nil {
			return 0, err
		}
		for _, st := range statements {
			if st.DocumentPath != "" {
				documents = append(documents, st.DocumentPath)
			}
		}
	}

	deleted, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	for _, path := range documents {
		s.deleteDocument(ctx, path)
	}
	s.invalidate(ctx, userID)
	s.publishEvent(userID, websocket.StatementDeleted(map[string]interface{}{"all": true, "count": deleted}))

	log.Info().Str("user_id", userID.String()).Int64("count", deleted).Msg("Deleted all statements")
	return deleted, nil
}

// Validate checks a statement for gross/income mismatches without storing it
func (s *StatementService) Validate(statement *domain.Statement) Warnings {
	return ValidateGrossFields(statement)
}

// GetDocumentURL returns a short lived link to the statement's source PDF
func (s *StatementService) GetDocumentURL(ctx context.Context, userID, id uuid.UUID) (string, error) {
	if s.documents == nil {
		return "", domain.ErrStorageDisabled
	}
	statement, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if statement.DocumentPath == "" {
		return "", domain.ErrDocumentNotFound
	}
	return s.documents.GeneratePresignedURL(ctx, statement.DocumentPath, DocumentURLExpiry)
}

func (s *StatementService) deleteDocument(ctx context.Context, path string) {
	if s.documents == nil || path == "" {
		return
	}
	if err := s.documents.Delete(ctx, path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to delete statement document")
	}
}

func eventPayload(s *domain.Statement) map[string]interface{} {
	year, month := s.Period()
	return map[string]interface{}{"id": s.ID, "year": year, "month": month}
}

// validateStatement checks the period and the storable range of every amount.
// It expects a normalized statement.
func validateStatement(s *domain.Statement) error {
	if err := validatePeriod(s); err != nil {
		return err
	}
	return validateAmounts(s)
}

func validatePeriod(s *domain.Statement) error {
	year, month := s.Period()
	if month < 1 || month > 12 {
		return domain.ErrInvalidPeriod
	}
	if year < domain.MinStatementYear || year > domain.MaxStatementYear {
		return domain.ErrInvalidPeriod
	}
	return nil
}

// validateAmounts rejects values the money columns cannot hold. Values are
// compared after rounding to cents, as the database stores them.
func validateAmounts(s *domain.Statement) error {
	for _, f := range domain.MoneyFields {
		if !storable(s.Get(f)) {
			return fmt.Errorf("%w: %s must be below %s", domain.ErrInvalidInput, f, domain.MaxMoneyValue)
		}
	}
	for i, inc := range s.Incomes {
		if !storable(inc.Value) {
			return fmt.Errorf("%w: incomes[%d].value must be below %s", domain.ErrInvalidInput, i, domain.MaxMoneyValue)
		}
	}
	return nil
}

func storable(a domain.Amount) bool {
	return a.Value.Round(2).Abs().LessThan(domain.MaxMoneyValue)
}
