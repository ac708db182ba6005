package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"grc/internal/evidence/models"
	"grc/pkg/platform/sentinel"
)

// InMemory keeps uploads in a mutex-guarded map. Used by tests and
// brokerless development; the postgres store is the production twin.
type InMemory struct {
	mu      sync.RWMutex
	uploads map[uuid.UUID]models.Upload
}

func NewInMemory() *InMemory {
	return &InMemory{uploads: make(map[uuid.UUID]models.Upload)}
}

func (s *InMemory) Create(_ context.Context, upload *models.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.uploads[upload.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.uploads {
		if existing.StorageKey == upload.StorageKey {
			return sentinel.ErrConflict
		}
	}
	s.uploads[upload.ID] = *upload
	return nil
}

func (s *InMemory) Get(_ context.Context, id uuid.UUID) (*models.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	upload, ok := s.uploads[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &upload, nil
}

// UpdateStatus is a compare-and-set transition: it succeeds only when the row
// is currently in from. Notes and contentHash overwrite existing values when
// non-empty.
func (s *InMemory) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.ProcessingStatus, notes, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	upload, ok := s.uploads[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if upload.Status != from {
		return sentinel.ErrInvalidState
	}
	upload.Status = to
	if notes != "" {
		upload.ProcessingNotes = notes
	}
	if contentHash != "" {
		upload.ContentHash = contentHash
	}
	upload.UpdatedAt = time.Now()
	s.uploads[id] = upload
	return nil
}

func (s *InMemory) ListByBatch(_ context.Context, batchID uuid.UUID) ([]*models.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Upload
	for _, upload := range s.uploads {
		if upload.BatchID == batchID {
			u := upload
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListByUploader(_ context.Context, actorID string) ([]*models.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Upload
	for _, upload := range s.uploads {
		if upload.UploadedBy == actorID {
			u := upload
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListByStatus(_ context.Context, status models.ProcessingStatus) ([]*models.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Upload
	for _, upload := range s.uploads {
		if upload.Status == status {
			u := upload
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListStale returns PENDING or PROCESSING uploads not touched since cutoff.
func (s *InMemory) ListStale(_ context.Context, cutoff time.Time) ([]*models.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Upload
	for _, upload := range s.uploads {
		if (upload.Status == models.StatusPending || upload.Status == models.StatusProcessing) &&
			upload.UpdatedAt.Before(cutoff) {
			u := upload
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}
