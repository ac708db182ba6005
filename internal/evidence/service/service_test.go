package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"grc/internal/contentstore"
	"grc/internal/evidence/models"
	"grc/internal/evidence/store"
	"grc/internal/platform/metrics"
	dErrors "grc/pkg/domain-errors"
)

// flakyContent wraps the in-memory content store and fails selected puts.
type flakyContent struct {
	inner    *contentstore.Memory
	puts     int
	failPuts map[int]bool
}

func (f *flakyContent) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.puts++
	if f.failPuts[f.puts] {
		return errors.New("object store unavailable")
	}
	return f.inner.Put(ctx, key, r, size, contentType)
}

func (f *flakyContent) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return f.inner.Get(ctx, key)
}

// capturingPublisher records published messages and optionally fails.
type capturingPublisher struct {
	topics []string
	keys   []string
	fail   bool
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, key, _ []byte) error {
	if p.fail {
		return errors.New("broker unreachable")
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, string(key))
	return nil
}

type ServiceSuite struct {
	suite.Suite
	store     *store.InMemory
	content   *flakyContent
	publisher *capturingPublisher
	svc       *Service
	ctx       context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.content = &flakyContent{inner: contentstore.NewMemory(), failPuts: map[int]bool{}}
	s.publisher = &capturingPublisher{}
	s.svc = New(s.store, s.content, s.publisher, "evidence-processing",
		metrics.New(prometheus.NewRegistry()), slog.New(slog.DiscardHandler), 30*time.Minute)
	s.ctx = context.Background()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func validMeta() models.SubmissionMetadata {
	return models.SubmissionMetadata{
		EvidenceType: models.TypeAuditReport,
		Policies:     []models.PolicyType{models.PolicyPassword},
	}
}

func item(name string) models.SubmissionItem {
	return models.SubmissionItem{
		OriginalFileName: name,
		ContentType:      "application/pdf",
		Size:             4,
		Content:          []byte("data"),
	}
}

func (s *ServiceSuite) TestSubmitQueuesUpload() {
	// Given: a valid single-file submission.
	resp, err := s.svc.Submit(s.ctx, item("soc2.pdf"), validMeta(), "user-1")

	// Then: a PENDING row exists and one message was published.
	s.Require().NoError(err)
	s.Equal("PROCESSING", resp.Status)
	s.Require().Len(s.publisher.topics, 1)
	s.Equal("evidence-processing", s.publisher.topics[0])
	s.Equal(resp.BatchID.String(), s.publisher.keys[0])

	uploads, err := s.store.ListByBatch(s.ctx, resp.BatchID)
	s.Require().NoError(err)
	s.Require().Len(uploads, 1)
	s.Equal(models.StatusPending, uploads[0].Status)
	s.Equal("soc2.pdf", uploads[0].OriginalFileName)
	s.NotEmpty(uploads[0].StorageKey)
}

func (s *ServiceSuite) TestSubmitRejectsUnknownEvidenceType() {
	meta := validMeta()
	meta.EvidenceType = "SELFIE"
	_, err := s.svc.Submit(s.ctx, item("x.pdf"), meta, "user-1")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSubmitNormalizesEvidenceType() {
	meta := validMeta()
	meta.EvidenceType = "audit_report"
	resp, err := s.svc.Submit(s.ctx, item("x.pdf"), meta, "user-1")
	s.Require().NoError(err)

	uploads, err := s.store.ListByBatch(s.ctx, resp.BatchID)
	s.Require().NoError(err)
	s.Equal(models.TypeAuditReport, uploads[0].EvidenceType)
}

func (s *ServiceSuite) TestSubmitBatchIsolatesItemFailures() {
	// Given: three files where the second fails content storage.
	s.content.failPuts[2] = true
	items := []models.SubmissionItem{item("a.pdf"), item("b.pdf"), item("c.pdf")}

	summary, err := s.svc.SubmitBatch(s.ctx, items, validMeta(), "user-1")

	// Then: the summary counts the failure and the other two persist.
	s.Require().NoError(err)
	s.Equal(3, summary.TotalFiles)
	s.Equal(2, summary.SuccessfulUploads)
	s.Equal(1, summary.FailedUploads)
	s.Equal([]string{"b.pdf"}, summary.FailedFileNames)
	s.Equal([]string{"a.pdf", "c.pdf"}, summary.SuccessfulFileNames)

	uploads, err := s.store.ListByBatch(s.ctx, summary.BatchID)
	s.Require().NoError(err)
	s.Len(uploads, 2)
}

func (s *ServiceSuite) TestSubmitBatchSharesOneBatchID() {
	summary, err := s.svc.SubmitBatch(s.ctx,
		[]models.SubmissionItem{item("a.pdf"), item("b.pdf")}, validMeta(), "user-1")
	s.Require().NoError(err)

	uploads, err := s.store.ListByBatch(s.ctx, summary.BatchID)
	s.Require().NoError(err)
	s.Require().Len(uploads, 2)
	for _, key := range s.publisher.keys {
		s.Equal(summary.BatchID.String(), key)
	}
}

func (s *ServiceSuite) TestSubmitBatchRejectsEmptyList() {
	_, err := s.svc.SubmitBatch(s.ctx, nil, validMeta(), "user-1")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestPublishFailureLeavesPendingRow() {
	// Given: a broker that refuses the publish.
	s.publisher.fail = true

	_, err := s.svc.Submit(s.ctx, item("a.pdf"), validMeta(), "user-1")

	// Then: the submit fails but the durable row remains for reconciliation.
	s.Require().Error(err)
	pending, listErr := s.store.ListByStatus(s.ctx, models.StatusPending)
	s.Require().NoError(listErr)
	s.Len(pending, 1)
}

func (s *ServiceSuite) TestGetBatchUnknownIsNotFound() {
	_, err := s.svc.GetBatch(s.ctx, uuid.New())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestApproveRequiresCompleted() {
	resp, err := s.svc.Submit(s.ctx, item("a.pdf"), validMeta(), "user-1")
	s.Require().NoError(err)
	uploads, err := s.store.ListByBatch(s.ctx, resp.BatchID)
	s.Require().NoError(err)
	id := uploads[0].ID

	s.Run("approving a PENDING upload is an invalid state", func() {
		err := s.svc.Approve(s.ctx, id, "reviewer-1")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})

	s.Run("approving a COMPLETED upload succeeds", func() {
		s.Require().NoError(s.store.UpdateStatus(s.ctx, id, models.StatusPending, models.StatusProcessing, "", ""))
		s.Require().NoError(s.store.UpdateStatus(s.ctx, id, models.StatusProcessing, models.StatusCompleted, "", ""))

		s.Require().NoError(s.svc.Approve(s.ctx, id, "reviewer-1"))

		found, err := s.store.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, found.Status)
		s.Contains(found.ProcessingNotes, "reviewer-1")
	})

	s.Run("a decision is final", func() {
		err := s.svc.Reject(s.ctx, id, "changed my mind", "reviewer-2")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestRejectRequiresReason() {
	err := s.svc.Reject(s.ctx, uuid.New(), "   ", "reviewer-1")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestApproveUnknownIsNotFound() {
	err := s.svc.Approve(s.ctx, uuid.New(), "reviewer-1")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}
