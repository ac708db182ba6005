package models

import (
	"strings"

	dErrors "grc/pkg/domain-errors"
)

// SubmissionItem is one file of a submission: its content plus per-file
// metadata the transport layer extracted from the multipart form.
type SubmissionItem struct {
	OriginalFileName string
	ContentType      string
	Size             int64
	Content          []byte
}

// SubmissionMetadata is the metadata shared by every item in a submission.
type SubmissionMetadata struct {
	EvidenceType    EvidenceType
	Policies        []PolicyType
	Description     string
	Tags            string
	QuestionnaireID *int64
	QuestionID      *int64
	CategoryID      *int64
}

func (m *SubmissionMetadata) Normalize() {
	if m == nil {
		return
	}
	m.EvidenceType = EvidenceType(strings.TrimSpace(strings.ToUpper(string(m.EvidenceType))))
	m.Description = strings.TrimSpace(m.Description)
	m.Tags = strings.TrimSpace(m.Tags)
}

// Follows validation order: Required -> Syntax -> Semantic.
func (m *SubmissionMetadata) Validate() error {
	if m == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if m.EvidenceType == "" {
		return dErrors.New(dErrors.CodeValidation, "evidenceType is required")
	}
	if !m.EvidenceType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown evidenceType: "+string(m.EvidenceType))
	}
	for _, p := range m.Policies {
		if !p.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "unknown policy type: "+string(p))
		}
	}
	return nil
}

// RejectRequest carries the mandatory reason for rejecting evidence.
type RejectRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.Reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}
