package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/repository/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var pdfMagic = []byte("%PDF-")

// AIClient is the language model used for extraction and question answering
type AIClient interface {
	ExtractStatement(ctx context.Context, pdf []byte) (string, error)
	Answer(ctx context.Context, prompt string) (string, error)
}

// ExtractionResult is the statement read from a PDF. Saved reports whether it was persisted.
type ExtractionResult struct {
	Statement *domain.Statement
	Warnings  Warnings
	Saved     bool
}

// ExtractionService reads salary statements out of uploaded PDFs
type ExtractionService struct {
	ai         AIClient
	documents  storage.DocumentRepository
	statements *StatementService
}

// NewExtractionService creates a new ExtractionService. A nil AI client disables extraction;
// a nil document repository stores statements without their source PDF.
func NewExtractionService(ai AIClient, documents storage.DocumentRepository, statements *StatementService) *ExtractionService {
	return &ExtractionService{ai: ai, documents: documents, statements: statements}
}

// IsEnabled reports whether a model is configured
func (s *ExtractionService) IsEnabled() bool {
	return s != nil && s.ai != nil
}

// ValidateDocument checks size and PDF signature
func ValidateDocument(pdf []byte) error {
	if len(pdf) == 0 || !bytes.HasPrefix(pdf, pdfMagic) {
		return domain.ErrInvalidDocument
	}
	if len(pdf) > domain.MaxDocumentSize {
		return domain.ErrDocumentTooLarge
	}
	return nil
}

// Extract sends the PDF to the model and returns the normalized statement as a draft.
// With save set the PDF is uploaded alongside the model call and the statement is
// stored with a link to it.
func (s *ExtractionService) Extract(ctx context.Context, userID uuid.UUID, pdf []byte, save bool) (*ExtractionResult, error) {
	if !s.IsEnabled() {
		return nil, domain.ErrAINotConfigured
	}
	if err := ValidateDocument(pdf); err != nil {
		return nil, err
	}

	upload := save && s.documents != nil
	var (
		raw          string
		documentPath string
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := s.ai.ExtractStatement(gctx, pdf)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
		}
		raw = out
		return nil
	})

	if upload {
		g.Go(func() error {
			path, err := s.documents.Upload(gctx, storage.GenerateObjectPath(userID), bytes.NewReader(pdf), storage.PDFContentType, int64(len(pdf)))
			if err != nil {
				return fmt.Errorf("failed to store document: %w", err)
			}
			documentPath = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.discardDocument(ctx, documentPath)
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Statement extraction failed")
		return nil, err
	}

	parsed, err := decodeExtraction(raw)
	if err != nil {
		s.discardDocument(ctx, documentPath)
		return nil, err
	}

	if !save {
		statement := NormalizeStatement(parsed)
		return &ExtractionResult{Statement: statement, Warnings: ValidateGrossFields(statement)}, nil
	}

	parsed.DocumentPath = documentPath
	result, err := s.statements.Create(ctx, userID, parsed)
	if err != nil {
		s.discardDocument(ctx, documentPath)
		return nil, err
	}
	return &ExtractionResult{Statement: result.Statement, Warnings: result.Warnings, Saved: true}, nil
}

func (s *ExtractionService) discardDocument(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.documents.Delete(ctx, path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to remove orphaned document")
	}
}

func decodeExtraction(raw string) (*domain.Statement, error) {
	if raw == "" {
		return nil, domain.ErrExtractionFailed
	}
	var statement domain.Statement
	if err := json.Unmarshal([]byte(raw), &statement); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: model returned malformed json", domain.ErrExtractionFailed)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}
	return &statement, nil
}
