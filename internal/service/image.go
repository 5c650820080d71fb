package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/textsnap/textsnap-server/internal/logger"
	"github.com/textsnap/textsnap-server/internal/model"
)

// Image orchestrates the extraction pipeline: validate and extract upload
// bytes, persist the result, optionally retain the raw image.
type Image struct {
	store     model.ImageRequestStore
	extractor model.TextExtractor
	retention model.Storage
	logger    *logger.Logger
}

// NewImage creates the image request service. retention may be nil, in
// which case raw uploads are discarded after extraction.
func NewImage(
	store model.ImageRequestStore,
	extractor model.TextExtractor,
	retention model.Storage,
	logger *logger.Logger,
) *Image {
	return &Image{
		store:     store,
		extractor: extractor,
		retention: retention,
		logger:    logger,
	}
}

// CreateFromImage extracts text from the upload and persists the result.
// Nothing is written when extraction fails.
func (s *Image) CreateFromImage(ctx context.Context, ownerID string, contentType string, data []byte) (model.ImageRequest, error) {
	text, err := s.extractor.Extract(ctx, data, contentType)
	if err != nil {
		return model.ImageRequest{}, fmt.Errorf("failed to extract text: %w", err)
	}

	record, err := s.store.Create(ctx, ownerID, text)
	if err != nil {
		return model.ImageRequest{}, fmt.Errorf("failed to save image request: %w", err)
	}

	if s.retention != nil {
		key := retentionKey(record.OwnerID, record.ID)
		if err := s.retention.Upload(ctx, key, bytes.NewReader(data)); err != nil {
			// the searchable record already exists; retention is best effort
			s.logger.Error("failed to retain raw image", "key", key, "error", err)
		}
	}

	return record, nil
}

// GetRequest returns a single record scoped to the caller.
func (s *Image) GetRequest(ctx context.Context, ownerID string, id uuid.UUID) (model.ImageRequest, error) {
	record, err := s.store.GetByID(ctx, id, ownerID)
	if err != nil {
		return model.ImageRequest{}, fmt.Errorf("failed to get image request: %w", err)
	}

	return record, nil
}

// GetRawImage streams the retained original upload for a record the
// caller owns. Records created while retention was disabled have no raw
// image and report not found.
func (s *Image) GetRawImage(ctx context.Context, ownerID string, id uuid.UUID) (io.ReadCloser, error) {
	record, err := s.store.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get image request: %w", err)
	}

	if s.retention == nil {
		return nil, model.ErrNotFound
	}

	key := retentionKey(record.OwnerID, record.ID)
	exists, err := s.retention.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check retained image: %w", err)
	}
	if !exists {
		return nil, model.ErrNotFound
	}

	reader, err := s.retention.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download retained image: %w", err)
	}

	return reader, nil
}

// ListRequests returns all of the caller's records, oldest first.
func (s *Image) ListRequests(ctx context.Context, ownerID string) ([]model.ImageRequest, error) {
	records, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list image requests: %w", err)
	}

	return records, nil
}

// SearchRequests returns the caller's records matching query. A blank
// query is rejected rather than treated as an empty result.
func (s *Image) SearchRequests(ctx context.Context, ownerID string, query string) ([]model.ImageRequest, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.NewInvalidInputError("search query must not be empty")
	}

	records, err := s.store.Search(ctx, ownerID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search image requests: %w", err)
	}

	return records, nil
}

func retentionKey(ownerID string, id uuid.UUID) string {
	return fmt.Sprintf("%s/%s", ownerID, id)
}
