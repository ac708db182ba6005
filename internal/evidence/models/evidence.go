package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus is the lifecycle state of one evidence upload.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
	StatusApproved   ProcessingStatus = "APPROVED"
	StatusRejected   ProcessingStatus = "REJECTED"
)

// validTransitions is the forward-only transition matrix. PENDING through
// COMPLETED/FAILED belong to the async worker; COMPLETED to APPROVED/REJECTED
// is a human decision. APPROVED, REJECTED and FAILED are terminal.
var validTransitions = map[ProcessingStatus]map[ProcessingStatus]bool{
	StatusPending:    {StatusProcessing: true},
	StatusProcessing: {StatusCompleted: true, StatusFailed: true},
	StatusCompleted:  {StatusApproved: true, StatusRejected: true},
	StatusFailed:     {},
	StatusApproved:   {},
	StatusRejected:   {},
}

// CanTransitionTo reports whether moving to next is a legal forward step.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	return validTransitions[s][next]
}

// IsValid reports whether s is a known status value.
func (s ProcessingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Upload is one submitted evidence file plus its metadata and lifecycle
// status. BatchID is immutable once set; StorageKey is unique per upload.
type Upload struct {
	ID               uuid.UUID        `json:"id"`
	BatchID          uuid.UUID        `json:"batchId"`
	FileName         string           `json:"fileName"`
	OriginalFileName string           `json:"originalFileName"`
	StorageKey       string           `json:"-"`
	FileSize         int64            `json:"fileSize"`
	ContentType      string           `json:"contentType"`
	EvidenceType     EvidenceType     `json:"evidenceType"`
	Policies         []PolicyType     `json:"applicablePolicies,omitempty"`
	QuestionnaireID  *int64           `json:"questionnaireId,omitempty"`
	QuestionID       *int64           `json:"questionId,omitempty"`
	CategoryID       *int64           `json:"categoryId,omitempty"`
	Description      string           `json:"description,omitempty"`
	Tags             string           `json:"tags,omitempty"`
	ProcessingNotes  string           `json:"processingNotes,omitempty"`
	ContentHash      string           `json:"contentHash,omitempty"`
	Status           ProcessingStatus `json:"status"`
	UploadedBy       string           `json:"uploadedBy"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// IsStale reports whether the upload has sat in a non-terminal worker state
// longer than threshold. Staleness is a read-side signal; nothing cancels
// stale uploads automatically.
func (u *Upload) IsStale(now time.Time, threshold time.Duration) bool {
	if u.Status != StatusPending && u.Status != StatusProcessing {
		return false
	}
	return now.Sub(u.UpdatedAt) > threshold
}
