package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/textsnap/textsnap-server/internal/model"
)

var _ model.ImageRequestStore = (*ImageRequestRepository)(nil)

type ImageRequestRepository struct {
	db *Connection
}

func NewImageRequestRepository(db *Connection) *ImageRequestRepository {
	return &ImageRequestRepository{
		db: db,
	}
}

// Create inserts a new image request, assigning its id and creation time.
// The full-text index column is generated from extracted_text by the same
// row write, so the record and its index entry appear atomically.
func (r *ImageRequestRepository) Create(ctx context.Context, ownerID string, extractedText string) (model.ImageRequest, error) {
	query := `
		INSERT INTO image_requests (id, owner_id, extracted_text)
		VALUES ($1, $2, $3)
		RETURNING id, owner_id, extracted_text, created_at`

	var record model.ImageRequest
	err := r.db.QueryRow(ctx, query, uuid.New(), ownerID, extractedText).Scan(
		&record.ID, &record.OwnerID, &record.ExtractedText, &record.CreatedAt,
	)
	if err != nil {
		return model.ImageRequest{}, translateError(err)
	}

	return record, nil
}

// GetByID returns the record only when it exists and belongs to ownerID.
// A record owned by someone else is reported as not found.
func (r *ImageRequestRepository) GetByID(ctx context.Context, id uuid.UUID, ownerID string) (model.ImageRequest, error) {
	query := `
		SELECT id, owner_id, extracted_text, created_at
		FROM image_requests
		WHERE id = $1 AND owner_id = $2`

	var record model.ImageRequest
	err := r.db.QueryRow(ctx, query, id, ownerID).Scan(
		&record.ID, &record.OwnerID, &record.ExtractedText, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ImageRequest{}, model.ErrNotFound
		}
		return model.ImageRequest{}, translateError(err)
	}

	return record, nil
}

func (r *ImageRequestRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.ImageRequest, error) {
	query := `
		SELECT id, owner_id, extracted_text, created_at
		FROM image_requests
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Search returns the owner's records matching query under Postgres
// full-text matching, most relevant first, ties broken by newest.
func (r *ImageRequestRepository) Search(ctx context.Context, ownerID string, query string) ([]model.ImageRequest, error) {
	sql := `
		SELECT id, owner_id, extracted_text, created_at
		FROM image_requests
		WHERE owner_id = $1 AND text_vector @@ plainto_tsquery('simple', $2)
		ORDER BY ts_rank(text_vector, plainto_tsquery('simple', $2)) DESC, created_at DESC`

	rows, err := r.db.Query(ctx, sql, ownerID, query)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]model.ImageRequest, error) {
	var records []model.ImageRequest
	for rows.Next() {
		var record model.ImageRequest
		err := rows.Scan(&record.ID, &record.OwnerID, &record.ExtractedText, &record.CreatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}

	return records, nil
}

// translateError marks connectivity failures as retryable storage
// unavailability; everything else passes through unchanged.
func translateError(err error) error {
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return err
}
