package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"grc/internal/contentstore"
	"grc/internal/evidence/models"
	"grc/internal/evidence/service"
	"grc/internal/platform/bus"
	"grc/internal/platform/metrics"
	"grc/pkg/platform/sentinel"
)

// Worker drives uploads through the processing pipeline: PENDING to
// PROCESSING, then COMPLETED or FAILED. It is the only writer of those
// transitions; approval and rejection stay with humans.
type Worker struct {
	store   service.Store
	content contentstore.Store
	topic   string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store service.Store, content contentstore.Store, topic string, m *metrics.Metrics, logger *slog.Logger) *Worker {
	return &Worker{store: store, content: content, topic: topic, metrics: m, logger: logger}
}

// Run consumes processing messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, b bus.Bus) error {
	return b.Consume(ctx, w.topic, w.Handle)
}

// Handle processes one message. Redeliveries are harmless: an upload already
// past PENDING is skipped, never reprocessed.
func (w *Worker) Handle(ctx context.Context, msg bus.Message) error {
	var pm service.ProcessingMessage
	if err := json.Unmarshal(msg.Value, &pm); err != nil {
		w.logger.ErrorContext(ctx, "dropping malformed processing message", "error", err)
		return nil
	}

	upload, err := w.store.Get(ctx, pm.UploadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			w.logger.WarnContext(ctx, "processing message for unknown upload", "upload_id", pm.UploadID)
			return nil
		}
		return fmt.Errorf("load upload %s: %w", pm.UploadID, err)
	}
	if upload.Status != models.StatusPending {
		w.logger.InfoContext(ctx, "skipping upload not in PENDING", "upload_id", upload.ID, "status", upload.Status)
		return nil
	}

	if err := w.store.UpdateStatus(ctx, upload.ID, models.StatusPending, models.StatusProcessing, "", ""); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// Another worker won the claim.
			return nil
		}
		return fmt.Errorf("claim upload %s: %w", upload.ID, err)
	}

	hash, err := w.hashContent(ctx, upload.StorageKey)
	if err != nil {
		notes := "Processing failed: " + err.Error()
		if ferr := w.store.UpdateStatus(ctx, upload.ID, models.StatusProcessing, models.StatusFailed, notes, ""); ferr != nil {
			return fmt.Errorf("mark upload %s failed: %w", upload.ID, ferr)
		}
		w.metrics.UnitsProcessed.WithLabelValues("failed").Inc()
		w.logger.ErrorContext(ctx, "evidence processing failed", "upload_id", upload.ID, "error", err)
		return nil
	}

	notes := "File processed successfully"
	if err := w.store.UpdateStatus(ctx, upload.ID, models.StatusProcessing, models.StatusCompleted, notes, hash); err != nil {
		return fmt.Errorf("complete upload %s: %w", upload.ID, err)
	}
	w.metrics.UnitsProcessed.WithLabelValues("completed").Inc()
	w.logger.InfoContext(ctx, "evidence processed", "upload_id", upload.ID, "content_hash", hash)
	return nil
}

// hashContent streams the stored object through SHA-256. Reading the content
// back also verifies the object actually landed in storage.
func (w *Worker) hashContent(ctx context.Context, key string) (string, error) {
	rc, err := w.content.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("fetch content %q: %w", key, err)
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", fmt.Errorf("read content %q: %w", key, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
