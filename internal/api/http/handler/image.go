package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/textsnap/textsnap-server/internal/logger"
	"github.com/textsnap/textsnap-server/internal/model"
)

// ImageService defines business operations for image requests.
type ImageService interface {
	CreateFromImage(ctx context.Context, ownerID string, contentType string, data []byte) (model.ImageRequest, error)
	GetRequest(ctx context.Context, ownerID string, id uuid.UUID) (model.ImageRequest, error)
	GetRawImage(ctx context.Context, ownerID string, id uuid.UUID) (io.ReadCloser, error)
	ListRequests(ctx context.Context, ownerID string) ([]model.ImageRequest, error)
	SearchRequests(ctx context.Context, ownerID string, query string) ([]model.ImageRequest, error)
}

// Image handles HTTP endpoints for image requests.
type Image struct {
	imageService   ImageService
	contextManager model.ContextManager
	maxUpload      int64
	logger         *logger.Logger
}

// NewImage creates a new Image handler. maxUpload bounds the request body
// read; the extraction adapter applies the exact image size limit.
func NewImage(imageService ImageService, contextManager model.ContextManager, maxUpload int64, logger *logger.Logger) *Image {
	return &Image{
		imageService:   imageService,
		contextManager: contextManager,
		maxUpload:      maxUpload,
		logger:         logger,
	}
}

type imageRequestResponse struct {
	ID            string    `json:"id"`
	ExtractedText string    `json:"extracted_text"`
	CreatedAt     time.Time `json:"created_at"`
	UserID        string    `json:"user_id"`
}

func toResponse(record model.ImageRequest) imageRequestResponse {
	return imageRequestResponse{
		ID:            record.ID.String(),
		ExtractedText: record.ExtractedText,
		CreatedAt:     record.CreatedAt,
		UserID:        record.OwnerID,
	}
}

// Create accepts a multipart image upload, extracts its text and returns
// the stored record.
func (h *Image) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrUnauthenticated)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, uploadError(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, uploadError(err))
		return
	}

	record, err := h.imageService.CreateFromImage(r.Context(), userID, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.logger.Error("failed to create image request", "user_id", userID, "error", err)
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(record))
}

// Get returns a single record owned by the caller.
func (h *Image) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrUnauthenticated)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		// unparseable ids cannot name an existing record
		WriteError(w, model.ErrNotFound)
		return
	}

	record, err := h.imageService.GetRequest(r.Context(), userID, id)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(record))
}

// GetRaw streams the retained original upload for a record owned by the
// caller. Answers 404 when retention is disabled or the image is gone.
func (h *Image) GetRaw(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrUnauthenticated)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, model.ErrNotFound)
		return
	}

	reader, err := h.imageService.GetRawImage(r.Context(), userID, id)
	if err != nil {
		WriteError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Error("failed to stream retained image", "user_id", userID, "id", id, "error", err)
	}
}

// List returns all of the caller's records, oldest first.
func (h *Image) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrUnauthenticated)
		return
	}

	records, err := h.imageService.ListRequests(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list image requests", "user_id", userID, "error", err)
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(records))
}

// Search returns the caller's records matching the query parameter.
func (h *Image) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, model.ErrUnauthenticated)
		return
	}

	records, err := h.imageService.SearchRequests(r.Context(), userID, r.URL.Query().Get("query"))
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(records))
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return model.NewInvalidInputError("upload exceeds maximum size of %d bytes", tooLarge.Limit)
	}
	return model.NewInvalidInputError("multipart field %q with an image upload is required", "file")
}

func toResponseList(records []model.ImageRequest) []imageRequestResponse {
	resp := make([]imageRequestResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, toResponse(record))
	}
	return resp
}
