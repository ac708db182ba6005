package models

import "github.com/google/uuid"

// UploadResponse acknowledges a single accepted submission. The unit is
// durably queued, not yet processed.
type UploadResponse struct {
	BatchID uuid.UUID `json:"batchId"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// BatchSummary aggregates per-item outcomes of a multi-file submission.
// Partial failure is data, never an error.
type BatchSummary struct {
	BatchID             uuid.UUID `json:"batchId"`
	Status              string    `json:"status"`
	Message             string    `json:"message"`
	TotalFiles          int       `json:"totalFiles"`
	SuccessfulUploads   int       `json:"successfulUploads"`
	FailedUploads       int       `json:"failedUploads"`
	FailedFileNames     []string  `json:"failedFileNames"`
	SuccessfulFileNames []string  `json:"successfulFileNames"`
}

// EnumValue pairs a wire value with its human-readable display name.
type EnumValue struct {
	Value       string `json:"value"`
	DisplayName string `json:"displayName"`
}

// BatchStatus is the read-side view of one batch: a derived overall status,
// per-status counts, and the member uploads.
type BatchStatus struct {
	BatchID       uuid.UUID                `json:"batchId"`
	OverallStatus ProcessingStatus         `json:"overallStatus"`
	TotalFiles    int                      `json:"totalFiles"`
	StatusCounts  map[ProcessingStatus]int `json:"statusCounts"`
	Uploads       []*Upload                `json:"uploads"`
}

// NewBatchStatus derives the aggregate view from a batch's uploads. The batch
// is PROCESSING while any member is still in flight, FAILED only when every
// member failed, COMPLETED otherwise.
func NewBatchStatus(batchID uuid.UUID, uploads []*Upload) *BatchStatus {
	counts := make(map[ProcessingStatus]int)
	inFlight := false
	allFailed := len(uploads) > 0
	for _, u := range uploads {
		counts[u.Status]++
		if u.Status == StatusPending || u.Status == StatusProcessing {
			inFlight = true
		}
		if u.Status != StatusFailed {
			allFailed = false
		}
	}

	overall := StatusCompleted
	switch {
	case inFlight:
		overall = StatusProcessing
	case allFailed:
		overall = StatusFailed
	}

	return &BatchStatus{
		BatchID:       batchID,
		OverallStatus: overall,
		TotalFiles:    len(uploads),
		StatusCounts:  counts,
		Uploads:       uploads,
	}
}
