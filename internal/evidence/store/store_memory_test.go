package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"grc/internal/evidence/models"
	"grc/pkg/platform/sentinel"
)

type UploadStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *UploadStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestUploadStoreSuite(t *testing.T) {
	suite.Run(t, new(UploadStoreSuite))
}

func (s *UploadStoreSuite) newUpload(batchID uuid.UUID, actor string) *models.Upload {
	now := time.Now()
	return &models.Upload{
		ID:               uuid.New(),
		BatchID:          batchID,
		FileName:         "generated.pdf",
		OriginalFileName: "report.pdf",
		StorageKey:       "evidence/" + batchID.String() + "/" + uuid.NewString() + ".pdf",
		EvidenceType:     models.TypeAuditReport,
		Status:           models.StatusPending,
		UploadedBy:       actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *UploadStoreSuite) TestCreateAndGet() {
	upload := s.newUpload(uuid.New(), "user-1")
	s.Require().NoError(s.store.Create(s.ctx, upload))

	found, err := s.store.Get(s.ctx, upload.ID)
	s.Require().NoError(err)
	s.Equal(upload.StorageKey, found.StorageKey)
	s.Equal(models.StatusPending, found.Status)
}

func (s *UploadStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, uuid.New())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *UploadStoreSuite) TestStorageKeyUniqueness() {
	first := s.newUpload(uuid.New(), "user-1")
	s.Require().NoError(s.store.Create(s.ctx, first))

	dup := s.newUpload(uuid.New(), "user-1")
	dup.StorageKey = first.StorageKey
	s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
}

func (s *UploadStoreSuite) TestUpdateStatusCompareAndSet() {
	upload := s.newUpload(uuid.New(), "user-1")
	s.Require().NoError(s.store.Create(s.ctx, upload))

	s.Run("succeeds when current state matches", func() {
		err := s.store.UpdateStatus(s.ctx, upload.ID, models.StatusPending, models.StatusProcessing, "", "")
		s.Require().NoError(err)

		found, err := s.store.Get(s.ctx, upload.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusProcessing, found.Status)
	})

	s.Run("fails when current state differs", func() {
		err := s.store.UpdateStatus(s.ctx, upload.ID, models.StatusPending, models.StatusProcessing, "", "")
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("records notes and content hash", func() {
		err := s.store.UpdateStatus(s.ctx, upload.ID, models.StatusProcessing, models.StatusCompleted, "checksum verified", "abc123")
		s.Require().NoError(err)

		found, err := s.store.Get(s.ctx, upload.ID)
		s.Require().NoError(err)
		s.Equal("checksum verified", found.ProcessingNotes)
		s.Equal("abc123", found.ContentHash)
	})

	s.Run("returns not found for unknown id", func() {
		err := s.store.UpdateStatus(s.ctx, uuid.New(), models.StatusPending, models.StatusProcessing, "", "")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *UploadStoreSuite) TestListByBatch() {
	batchID := uuid.New()
	for range 3 {
		s.Require().NoError(s.store.Create(s.ctx, s.newUpload(batchID, "user-1")))
	}
	s.Require().NoError(s.store.Create(s.ctx, s.newUpload(uuid.New(), "user-1")))

	uploads, err := s.store.ListByBatch(s.ctx, batchID)
	s.Require().NoError(err)
	s.Len(uploads, 3)
}

func (s *UploadStoreSuite) TestListByUploaderNewestFirst() {
	older := s.newUpload(uuid.New(), "user-2")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := s.newUpload(uuid.New(), "user-2")

	s.Require().NoError(s.store.Create(s.ctx, older))
	s.Require().NoError(s.store.Create(s.ctx, newer))
	s.Require().NoError(s.store.Create(s.ctx, s.newUpload(uuid.New(), "someone-else")))

	uploads, err := s.store.ListByUploader(s.ctx, "user-2")
	s.Require().NoError(err)
	s.Require().Len(uploads, 2)
	s.Equal(newer.ID, uploads[0].ID)
	s.Equal(older.ID, uploads[1].ID)
}

func (s *UploadStoreSuite) TestListStale() {
	stale := s.newUpload(uuid.New(), "user-1")
	stale.UpdatedAt = time.Now().Add(-2 * time.Hour)
	fresh := s.newUpload(uuid.New(), "user-1")
	done := s.newUpload(uuid.New(), "user-1")
	done.Status = models.StatusCompleted
	done.UpdatedAt = time.Now().Add(-2 * time.Hour)

	s.Require().NoError(s.store.Create(s.ctx, stale))
	s.Require().NoError(s.store.Create(s.ctx, fresh))
	s.Require().NoError(s.store.Create(s.ctx, done))

	uploads, err := s.store.ListStale(s.ctx, time.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().Len(uploads, 1)
	s.Equal(stale.ID, uploads[0].ID)
}
