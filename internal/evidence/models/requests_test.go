package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "grc/pkg/domain-errors"
)

func TestSubmissionMetadataValidate(t *testing.T) {
	t.Run("accepts valid metadata", func(t *testing.T) {
		m := &SubmissionMetadata{
			EvidenceType: TypeAuditReport,
			Policies:     []PolicyType{PolicyAccessControl, PolicyPrivacy},
		}
		require.NoError(t, m.Validate())
	})

	t.Run("requires evidence type", func(t *testing.T) {
		m := &SubmissionMetadata{}
		err := m.Validate()
		require.True(t, dErrors.Is(err, dErrors.CodeValidation))
	})

	t.Run("rejects unknown evidence type", func(t *testing.T) {
		m := &SubmissionMetadata{EvidenceType: "SELFIE"}
		err := m.Validate()
		require.True(t, dErrors.Is(err, dErrors.CodeValidation))
	})

	t.Run("rejects unknown policy tag", func(t *testing.T) {
		m := &SubmissionMetadata{
			EvidenceType: TypeAuditReport,
			Policies:     []PolicyType{"NAP_POLICY"},
		}
		err := m.Validate()
		require.True(t, dErrors.Is(err, dErrors.CodeValidation))
	})
}

func TestSubmissionMetadataNormalize(t *testing.T) {
	m := &SubmissionMetadata{
		EvidenceType: " audit_report ",
		Description:  "  quarterly audit  ",
	}
	m.Normalize()
	require.Equal(t, TypeAuditReport, m.EvidenceType)
	require.Equal(t, "quarterly audit", m.Description)
}

func TestRejectRequestValidate(t *testing.T) {
	require.Error(t, (&RejectRequest{}).Validate())
	require.Error(t, (&RejectRequest{Reason: "   "}).Validate())
	require.NoError(t, (&RejectRequest{Reason: "illegible scan"}).Validate())
}
