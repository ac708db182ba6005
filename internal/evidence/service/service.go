package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"grc/internal/contentstore"
	"grc/internal/evidence/models"
	"grc/internal/platform/bus"
	"grc/internal/platform/metrics"
	dErrors "grc/pkg/domain-errors"
	"grc/pkg/platform/sentinel"
)

// Store is the persistence contract the service needs. Implemented by the
// memory and postgres stores.
type Store interface {
	Create(ctx context.Context, upload *models.Upload) error
	Get(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ProcessingStatus, notes, contentHash string) error
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Upload, error)
	ListByUploader(ctx context.Context, actorID string) ([]*models.Upload, error)
	ListByStatus(ctx context.Context, status models.ProcessingStatus) ([]*models.Upload, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]*models.Upload, error)
}

// ProcessingMessage is the work item published for each persisted upload.
type ProcessingMessage struct {
	UploadID uuid.UUID `json:"uploadId"`
}

// Service is the unit processor and batch coordinator for evidence
// submissions. A submission is durably queued, not processed: persistence and
// publish happen on the request path, processing happens on the worker path.
type Service struct {
	store      Store
	content    contentstore.Store
	publisher  bus.Publisher
	topic      string
	metrics    *metrics.Metrics
	logger     *slog.Logger
	staleAfter time.Duration
}

func New(store Store, content contentstore.Store, publisher bus.Publisher, topic string,
	m *metrics.Metrics, logger *slog.Logger, staleAfter time.Duration) *Service {
	return &Service{
		store:      store,
		content:    content,
		publisher:  publisher,
		topic:      topic,
		metrics:    m,
		logger:     logger,
		staleAfter: staleAfter,
	}
}

// Submit accepts a single evidence file. It gets its own batch id, like a
// batch of one.
func (s *Service) Submit(ctx context.Context, item models.SubmissionItem, meta models.SubmissionMetadata, actor string) (*models.UploadResponse, error) {
	meta.Normalize()
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	batchID := uuid.New()
	if _, err := s.submitOne(ctx, batchID, item, meta, actor); err != nil {
		return nil, err
	}
	s.metrics.UploadsAccepted.Inc()

	return &models.UploadResponse{
		BatchID: batchID,
		Status:  "PROCESSING",
		Message: "Evidence upload started successfully",
	}, nil
}

// SubmitBatch fans a multi-file submission out item by item. A failure on one
// item is recorded and iteration continues; only a structurally invalid
// request is an error. Items are processed in submission order.
func (s *Service) SubmitBatch(ctx context.Context, items []models.SubmissionItem, meta models.SubmissionMetadata, actor string) (*models.BatchSummary, error) {
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one file is required")
	}
	meta.Normalize()
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	batchID := uuid.New()
	successful := []string{}
	failed := []string{}

	for _, item := range items {
		if _, err := s.submitOne(ctx, batchID, item, meta, actor); err != nil {
			failed = append(failed, item.OriginalFileName)
			s.metrics.BatchItems.WithLabelValues("failed").Inc()
			s.logger.ErrorContext(ctx, "failed to upload evidence",
				"batch_id", batchID,
				"file", item.OriginalFileName,
				"error", err,
			)
			continue
		}
		successful = append(successful, item.OriginalFileName)
		s.metrics.BatchItems.WithLabelValues("successful").Inc()
	}

	return &models.BatchSummary{
		BatchID:             batchID,
		Status:              "PROCESSING",
		Message:             fmt.Sprintf("Batch upload completed: %d successful, %d failed", len(successful), len(failed)),
		TotalFiles:          len(items),
		SuccessfulUploads:   len(successful),
		FailedUploads:       len(failed),
		FailedFileNames:     failed,
		SuccessfulFileNames: successful,
	}, nil
}

// submitOne writes content first, persists the PENDING row second, publishes
// last. A content-write failure leaves no row behind; a publish failure
// leaves the PENDING row with no event, which the stale query surfaces until
// an external reconciliation sweep picks it up.
func (s *Service) submitOne(ctx context.Context, batchID uuid.UUID, item models.SubmissionItem, meta models.SubmissionMetadata, actor string) (uuid.UUID, error) {
	key := contentstore.EvidenceKey(batchID, item.OriginalFileName)
	if err := s.content.Put(ctx, key, bytes.NewReader(item.Content), int64(len(item.Content)), item.ContentType); err != nil {
		return uuid.Nil, fmt.Errorf("store content: %w", err)
	}

	now := time.Now()
	upload := &models.Upload{
		ID:               uuid.New(),
		BatchID:          batchID,
		FileName:         generateUniqueFileName(item.OriginalFileName, now),
		OriginalFileName: item.OriginalFileName,
		StorageKey:       key,
		FileSize:         item.Size,
		ContentType:      item.ContentType,
		EvidenceType:     meta.EvidenceType,
		Policies:         meta.Policies,
		QuestionnaireID:  meta.QuestionnaireID,
		QuestionID:       meta.QuestionID,
		CategoryID:       meta.CategoryID,
		Description:      meta.Description,
		Tags:             meta.Tags,
		Status:           models.StatusPending,
		UploadedBy:       actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, upload); err != nil {
		return uuid.Nil, fmt.Errorf("persist upload: %w", err)
	}

	payload, err := json.Marshal(ProcessingMessage{UploadID: upload.ID})
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode processing message: %w", err)
	}
	if err := s.publisher.Publish(ctx, s.topic, []byte(batchID.String()), payload); err != nil {
		return uuid.Nil, fmt.Errorf("publish processing message: %w", err)
	}

	s.logger.InfoContext(ctx, "evidence upload queued",
		"upload_id", upload.ID,
		"batch_id", batchID,
		"actor", actor,
	)
	return upload.ID, nil
}

// GetBatch returns all uploads sharing a batch id. An unknown batch id is
// not_found, never an empty list.
func (s *Service) GetBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Upload, error) {
	uploads, err := s.store.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, err.Error())
	}
	if len(uploads) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "batch not found: "+batchID.String())
	}
	return uploads, nil
}

// ListByUploader returns the actor's own uploads, newest first.
func (s *Service) ListByUploader(ctx context.Context, actor string) ([]*models.Upload, error) {
	uploads, err := s.store.ListByUploader(ctx, actor)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, err.Error())
	}
	return uploads, nil
}

// ListByStatus returns uploads in one lifecycle state, oldest first.
func (s *Service) ListByStatus(ctx context.Context, status models.ProcessingStatus) ([]*models.Upload, error) {
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown status: "+string(status))
	}
	uploads, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, err.Error())
	}
	return uploads, nil
}

// ListStale returns non-terminal uploads untouched past the staleness
// threshold. Surfacing, not cancelling.
func (s *Service) ListStale(ctx context.Context) ([]*models.Upload, error) {
	uploads, err := s.store.ListStale(ctx, time.Now().Add(-s.staleAfter))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInternal, err.Error())
	}
	return uploads, nil
}

// Approve moves a COMPLETED upload to APPROVED.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor string) error {
	notes := "Approved by: " + actor
	err := s.store.UpdateStatus(ctx, id, models.StatusCompleted, models.StatusApproved, notes, "")
	if err != nil {
		return translateTransitionErr(err, models.StatusApproved)
	}
	s.logger.InfoContext(ctx, "evidence approved", "upload_id", id, "actor", actor)
	return nil
}

// Reject moves a COMPLETED upload to REJECTED. The reason is mandatory.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason, actor string) error {
	req := models.RejectRequest{Reason: reason}
	if err := req.Validate(); err != nil {
		return err
	}
	notes := "Rejected by: " + actor + ". Reason: " + strings.TrimSpace(reason)
	err := s.store.UpdateStatus(ctx, id, models.StatusCompleted, models.StatusRejected, notes, "")
	if err != nil {
		return translateTransitionErr(err, models.StatusRejected)
	}
	s.logger.InfoContext(ctx, "evidence rejected", "upload_id", id, "actor", actor, "reason", reason)
	return nil
}

func translateTransitionErr(err error, target models.ProcessingStatus) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "evidence not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("only COMPLETED evidence can transition to %s", target))
	default:
		return dErrors.New(dErrors.CodeInternal, err.Error())
	}
}

var fileNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9.]`)

// generateUniqueFileName mirrors the stored-name scheme: millisecond
// timestamp prefix plus the sanitized original base name.
func generateUniqueFileName(originalFileName string, now time.Time) string {
	base := fileNameSanitizer.ReplaceAllString(originalFileName, "_")
	return fmt.Sprintf("%d_%s", now.UnixMilli(), base)
}
