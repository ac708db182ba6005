package handler

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"grc/internal/evidence/models"
	"grc/internal/platform/middleware"
	dErrors "grc/pkg/domain-errors"
	"grc/pkg/platform/httputil"
)

// maxUploadBytes bounds the in-memory portion of a multipart parse.
const maxUploadBytes = 32 << 20

// Service defines the evidence operations the handler needs.
type Service interface {
	Submit(ctx context.Context, item models.SubmissionItem, meta models.SubmissionMetadata, actor string) (*models.UploadResponse, error)
	SubmitBatch(ctx context.Context, items []models.SubmissionItem, meta models.SubmissionMetadata, actor string) (*models.BatchSummary, error)
	GetBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Upload, error)
	ListByUploader(ctx context.Context, actor string) ([]*models.Upload, error)
	ListByStatus(ctx context.Context, status models.ProcessingStatus) ([]*models.Upload, error)
	ListStale(ctx context.Context) ([]*models.Upload, error)
	Approve(ctx context.Context, id uuid.UUID, actor string) error
	Reject(ctx context.Context, id uuid.UUID, reason, actor string) error
}

// Handler wires evidence endpoints to the evidence service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts evidence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/evidence", func(r chi.Router) {
		r.Post("/upload", h.HandleUpload)
		r.Post("/upload/multiple", h.HandleUploadMultiple)
		r.Get("/batch-status/{batchId}", h.HandleBatchStatus)
		r.Get("/types", h.HandleEvidenceTypes)
		r.Get("/policy-types", h.HandlePolicyTypes)
		r.Get("/my-uploads", h.HandleMyUploads)
		r.Get("/status/{status}", h.HandleByStatus)
		r.Get("/stale", h.HandleStale)
		r.Put("/{id}/approve", h.HandleApprove)
		r.Put("/{id}/reject", h.HandleReject)
	})
}

// HandleUpload handles POST /evidence/upload: one file plus shared metadata.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActorID(ctx)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		dErrors.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		dErrors.WriteError(w, dErrors.New(dErrors.CodeValidation, "file is required"))
		return
	}
	defer file.Close()

	item, err := readItem(file, header)
	if err != nil {
		dErrors.WriteError(w, err)
		return
	}
	meta, err := metadataFromForm(r)
	if err != nil {
		dErrors.WriteError(w, err)
		return
	}

	resp, err := h.service.Submit(ctx, item, meta, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence upload failed",
			"request_id", middleware.GetRequestID(ctx),
			"actor", actor,
			"error", err,
		)
		dErrors.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, resp)
}

// HandleUploadMultiple handles POST /evidence/upload/multiple. Items are
// processed in submission order; per-item failures land in the summary.
func (h *Handler) HandleUploadMultiple(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActorID(ctx)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		dErrors.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}
	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	if len(headers) == 0 {
		dErrors.WriteError(w, dErrors.New(dErrors.CodeValidation, "at least one file is required"))
		return
	}

	items := make([]models.SubmissionItem, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			dErrors.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable file part: "+header.Filename))
			return
		}
		item, err := readItem(file, header)
		file.Close()
		if err != nil {
			dErrors.WriteError(w, err)
			return
		}
		items = append(items, item)
	}

	meta, err := metadataFromForm(r)
	if err != nil {
		dErrors.WriteError(w, err)
		return
	}

	summary, err := h.service.SubmitBatch(ctx, items, meta, actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "batch upload failed",
			"request_id", middleware.GetRequestID(ctx),
			"actor", actor,
			"error", err,
		)
		dErrors.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, summary)
}

// HandleBatchStatus handles GET /evidence/batch-status/{batchId}.
func (h *Handler) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID, err := uuid.Parse(chi.URLParam(r, "batchId"))
	if err != nil {
		dErrors.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid batch id"))
		return
	}

	uploads, err := h.service.GetBatch(ctx, batchID)
	if err != nil {
		dErrors.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewBatchStatus(batchID, uploads))
}

// HandleEvidenceTypes handles GET /evidence/types.
func (h *Handler) HandleEvidenceTypes(w http.ResponseWriter, _ *http.Request) {
	out := make([]models.EnumValue, 0, len(models.EvidenceTypes))
	for _, t := range models.EvidenceTypes {
		out = append(out, models.EnumValue{Value: string(t), DisplayName: t.DisplayName()})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandlePolicyTypes handles GET /evidence/policy-types.
func (h *Handler) HandlePolicyTypes(w http.ResponseWriter, _ *http.Request) {
	out := make([]models.EnumValue, 0, len(models.PolicyTypes))
	for _, p := range models.PolicyTypes {
		out = append(out, models.EnumValue{Value: string(p), DisplayName: p.DisplayName()})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleMyUploads handles GET /evidence/my-uploads: the caller's own uploads,
// newest first.
func (h *Handler) HandleMyUploads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uploads, err := h.service.ListByUploader(ctx, middleware.GetActorID(ctx))
	if err != nil {
		dErrors.WriteError(w, err)
		return
	}
	if uploads == nil {
		uploads = []*models.Upload{}
	}
	httputil.WriteJSON(w, http.StatusOK, uploads)
}

// HandleByStatus handles GET /evidence/status/{status}.
func (h *Handler) HandleByStatus(w http.ResponseWriter, r *http.Request) {
	status := models.ProcessingStatus(strings.ToUpper(chi.URLParam(r, "status")))
	uploads, err := h.service.ListByStatus(r.Context(), status)
	if err != nil {
		dErrors.WriteError(w, err)
		return
	}
	if uploads == nil {
		uploads = []*models.Upload{}
	}
	httputil.WriteJSON(w, http.StatusOK, uploads)
}

// HandleStale handles GET /evidence/stale.
func (h *Handler) HandleStale(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.service.ListStale(r.Context())
	if err != nil {
		dErrors.WriteError(w, err)
		return
	}
	if uploads == nil {
		uploads = []*models.Upload{}
	}
	httputil.WriteJSON(w, http.StatusOK, uploads)
}

// HandleApprove handles PUT /evidence/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dErrors.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid evidence id"))
		return
	}
	if err := h.service.Approve(ctx, id, middleware.GetActorID(ctx)); err != nil {
		dErrors.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "APPROVED"})
}

// HandleReject handles PUT /evidence/{id}/reject. The body must carry a
// non-blank reason.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		dErrors.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid evidence id"))
		return
	}
	var req models.RejectRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		dErrors.WriteError(w, err)
		return
	}
	if err := h.service.Reject(ctx, id, req.Reason, middleware.GetActorID(ctx)); err != nil {
		dErrors.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "REJECTED"})
}

// readItem drains one multipart file part into a submission item.
func readItem(file multipart.File, header *multipart.FileHeader) (models.SubmissionItem, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return models.SubmissionItem{}, dErrors.New(dErrors.CodeBadRequest, "unreadable file part: "+header.Filename)
	}
	if len(content) == 0 {
		return models.SubmissionItem{}, dErrors.New(dErrors.CodeValidation, "empty file: "+header.Filename)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return models.SubmissionItem{
		OriginalFileName: header.Filename,
		ContentType:      contentType,
		Size:             int64(len(content)),
		Content:          content,
	}, nil
}

// metadataFromForm pulls the shared submission metadata out of the form.
// Policies may be repeated fields, comma-separated, or both.
func metadataFromForm(r *http.Request) (models.SubmissionMetadata, error) {
	meta := models.SubmissionMetadata{
		EvidenceType: models.EvidenceType(r.FormValue("evidenceType")),
		Description:  r.FormValue("description"),
		Tags:         r.FormValue("tags"),
	}
	for _, raw := range r.Form["policies"] {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				meta.Policies = append(meta.Policies, models.PolicyType(p))
			}
		}
	}
	var err error
	if meta.QuestionnaireID, err = optionalInt64(r.FormValue("questionnaireId")); err != nil {
		return meta, dErrors.New(dErrors.CodeValidation, "questionnaireId must be a number")
	}
	if meta.QuestionID, err = optionalInt64(r.FormValue("questionId")); err != nil {
		return meta, dErrors.New(dErrors.CodeValidation, "questionId must be a number")
	}
	if meta.CategoryID, err = optionalInt64(r.FormValue("categoryId")); err != nil {
		return meta, dErrors.New(dErrors.CodeValidation, "categoryId must be a number")
	}
	return meta, nil
}

func optionalInt64(raw string) (*int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
