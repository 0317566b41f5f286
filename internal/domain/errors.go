package domain

import "errors"

// Domain errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrUserNotFound      = errors.New("user not found")
	ErrStatementNotFound = errors.New("statement not found")
	ErrStatementExists   = errors.New("statement for this period already exists")
	ErrInvalidPeriod     = errors.New("invalid statement period")
	ErrDocumentNotFound  = errors.New("statement has no source document")
	ErrExtractionFailed  = errors.New("could not extract statement from document")
	ErrAINotConfigured   = errors.New("ai assistant is not configured")
	ErrStorageDisabled   = errors.New("document storage is not configured")
	ErrAPITokenNotFound  = errors.New("api token not found")
	ErrTooManyAPITokens  = errors.New("maximum number of api tokens reached")
	ErrEmptyImport       = errors.New("import contains no statements")
	ErrInvalidDocument   = errors.New("document must be a pdf file")
	ErrDocumentTooLarge  = errors.New("document exceeds the maximum size")
)

// Validation constants
const (
	MinStatementYear       = 1900
	MaxStatementYear       = 2100
	MaxAPITokenDescription = 255
	MaxQuestionLength      = 1000
	MaxDocumentSize        = 10 << 20
)
