package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ImageRequestStore defines persistence operations for image requests.
type ImageRequestStore interface {
	Create(ctx context.Context, ownerID string, extractedText string) (ImageRequest, error)
	GetByID(ctx context.Context, id uuid.UUID, ownerID string) (ImageRequest, error)
	ListByOwner(ctx context.Context, ownerID string) ([]ImageRequest, error)
	Search(ctx context.Context, ownerID string, query string) ([]ImageRequest, error)
}

// ImageRequest represents a stored text-extraction result.
// Records are immutable after creation.
type ImageRequest struct {
	ID            uuid.UUID
	OwnerID       string
	ExtractedText string
	CreatedAt     time.Time
}

// Identity is the authenticated caller derived from a verified credential.
// It exists only for the duration of a request and is never persisted.
type Identity struct {
	UserID string
}
