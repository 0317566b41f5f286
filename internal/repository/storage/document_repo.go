package storage

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// PDFContentType is the MIME type of stored salary statement documents
const PDFContentType = "application/pdf"

// DocumentRepository defines the interface for statement document storage
type DocumentRepository interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}

// GenerateObjectPath creates a unique object path for a user's document.
// Format: {userID}/statements/{uuid}.pdf
func GenerateObjectPath(userID uuid.UUID) string {
	return path.Join(userID.String(), "statements", uuid.New().String()+".pdf")
}
