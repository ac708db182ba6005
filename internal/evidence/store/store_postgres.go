package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"grc/internal/evidence/models"
	"grc/pkg/platform/sentinel"
)

// Postgres persists uploads in PostgreSQL. Status transitions are single-row
// compare-and-set updates, so concurrent workers cannot produce lost updates.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const uploadColumns = `id, batch_id, file_name, original_file_name, storage_key,
	file_size, content_type, evidence_type, policies, questionnaire_id,
	question_id, category_id, description, tags, processing_notes, content_hash,
	status, uploaded_by, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, u *models.Upload) error {
	policies := make([]string, len(u.Policies))
	for i, p := range u.Policies {
		policies[i] = string(p)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO evidence_uploads (`+uploadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, u.ID, u.BatchID, u.FileName, u.OriginalFileName, u.StorageKey,
		u.FileSize, u.ContentType, string(u.EvidenceType), policies,
		u.QuestionnaireID, u.QuestionID, u.CategoryID, u.Description, u.Tags,
		u.ProcessingNotes, u.ContentHash, string(u.Status), u.UploadedBy,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+uploadColumns+` FROM evidence_uploads WHERE id = $1`, id)
	return scanUpload(row)
}

func (s *Postgres) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ProcessingStatus, notes, contentHash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE evidence_uploads
		SET status = $3,
		    processing_notes = CASE WHEN $4 <> '' THEN $4 ELSE processing_notes END,
		    content_hash = CASE WHEN $5 <> '' THEN $5 ELSE content_hash END,
		    updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to), notes, contentHash)
	if err != nil {
		return fmt.Errorf("update upload status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a row in the wrong state.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM evidence_uploads WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check upload exists: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Upload, error) {
	return s.list(ctx, `SELECT `+uploadColumns+` FROM evidence_uploads WHERE batch_id = $1 ORDER BY created_at`, batchID)
}

func (s *Postgres) ListByUploader(ctx context.Context, actorID string) ([]*models.Upload, error) {
	return s.list(ctx, `SELECT `+uploadColumns+` FROM evidence_uploads WHERE uploaded_by = $1 ORDER BY created_at DESC`, actorID)
}

func (s *Postgres) ListByStatus(ctx context.Context, status models.ProcessingStatus) ([]*models.Upload, error) {
	return s.list(ctx, `SELECT `+uploadColumns+` FROM evidence_uploads WHERE status = $1 ORDER BY created_at`, string(status))
}

func (s *Postgres) ListStale(ctx context.Context, cutoff time.Time) ([]*models.Upload, error) {
	return s.list(ctx, `
		SELECT `+uploadColumns+` FROM evidence_uploads
		WHERE status IN ('PENDING', 'PROCESSING') AND updated_at < $1
		ORDER BY updated_at
	`, cutoff)
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.Upload, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var out []*models.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUpload(row pgx.Row) (*models.Upload, error) {
	var u models.Upload
	var evidenceType, status string
	var policies []string
	err := row.Scan(&u.ID, &u.BatchID, &u.FileName, &u.OriginalFileName,
		&u.StorageKey, &u.FileSize, &u.ContentType, &evidenceType, &policies,
		&u.QuestionnaireID, &u.QuestionID, &u.CategoryID, &u.Description,
		&u.Tags, &u.ProcessingNotes, &u.ContentHash, &status, &u.UploadedBy,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan upload: %w", err)
	}
	u.EvidenceType = models.EvidenceType(evidenceType)
	u.Status = models.ProcessingStatus(status)
	u.Policies = make([]models.PolicyType, len(policies))
	for i, p := range policies {
		u.Policies[i] = models.PolicyType(p)
	}
	if len(u.Policies) == 0 {
		u.Policies = nil
	}
	return &u, nil
}
