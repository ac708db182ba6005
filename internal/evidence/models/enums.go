package models

// EvidenceType classifies what a submitted document is.
type EvidenceType string

const (
	TypePolicyDocument    EvidenceType = "POLICY_DOCUMENT"
	TypeNetworkDiagram    EvidenceType = "NETWORK_DIAGRAM"
	TypeCertificate       EvidenceType = "CERTIFICATE"
	TypeAuditReport       EvidenceType = "AUDIT_REPORT"
	TypeProcedureDocument EvidenceType = "PROCEDURE_DOCUMENT"
	TypeTrainingRecord    EvidenceType = "TRAINING_RECORD"
	TypeIncidentReport    EvidenceType = "INCIDENT_REPORT"
	TypeRiskAssessment    EvidenceType = "RISK_ASSESSMENT"
	TypeComplianceReport  EvidenceType = "COMPLIANCE_REPORT"
	TypeOther             EvidenceType = "OTHER"
)

// PolicyType tags which policies a piece of evidence supports.
type PolicyType string

const (
	PolicyPassword           PolicyType = "PASSWORD_POLICY"
	PolicyEncryption         PolicyType = "ENCRYPTION_POLICY"
	PolicyAccessControl      PolicyType = "ACCESS_CONTROL_POLICY"
	PolicyDataRetention      PolicyType = "DATA_RETENTION_POLICY"
	PolicyBackup             PolicyType = "BACKUP_POLICY"
	PolicyIncidentResponse   PolicyType = "INCIDENT_RESPONSE_POLICY"
	PolicyCloudSecurity      PolicyType = "CLOUD_SECURITY_POLICY"
	PolicyNetworkSecurity    PolicyType = "NETWORK_SECURITY_POLICY"
	PolicyPrivacy            PolicyType = "PRIVACY_POLICY"
	PolicyVendorManagement   PolicyType = "VENDOR_MANAGEMENT_POLICY"
	PolicyBusinessContinuity PolicyType = "BUSINESS_CONTINUITY_POLICY"
	PolicyChangeManagement   PolicyType = "CHANGE_MANAGEMENT_POLICY"
)

// Display-name maps are built once at package load; clients use them to
// populate forms.
var evidenceTypeNames = map[EvidenceType]string{
	TypePolicyDocument:    "Policy Document",
	TypeNetworkDiagram:    "Network Architecture Diagram",
	TypeCertificate:       "Security Certificate",
	TypeAuditReport:       "Audit Report",
	TypeProcedureDocument: "Standard Operating Procedure",
	TypeTrainingRecord:    "Training Record",
	TypeIncidentReport:    "Security Incident Report",
	TypeRiskAssessment:    "Risk Assessment Document",
	TypeComplianceReport:  "Compliance Report",
	TypeOther:             "Other Document",
}

var policyTypeNames = map[PolicyType]string{
	PolicyPassword:           "Password Policy",
	PolicyEncryption:         "Encryption Policy",
	PolicyAccessControl:      "Access Control Policy",
	PolicyDataRetention:      "Data Retention Policy",
	PolicyBackup:             "Backup and Recovery Policy",
	PolicyIncidentResponse:   "Incident Response Policy",
	PolicyCloudSecurity:      "Cloud Security Policy",
	PolicyNetworkSecurity:    "Network Security Policy",
	PolicyPrivacy:            "Privacy Policy",
	PolicyVendorManagement:   "Vendor Management Policy",
	PolicyBusinessContinuity: "Business Continuity Policy",
	PolicyChangeManagement:   "Change Management Policy",
}

// EvidenceTypes lists all classification values in declaration order.
var EvidenceTypes = []EvidenceType{
	TypePolicyDocument, TypeNetworkDiagram, TypeCertificate, TypeAuditReport,
	TypeProcedureDocument, TypeTrainingRecord, TypeIncidentReport,
	TypeRiskAssessment, TypeComplianceReport, TypeOther,
}

// PolicyTypes lists all policy tag values in declaration order.
var PolicyTypes = []PolicyType{
	PolicyPassword, PolicyEncryption, PolicyAccessControl, PolicyDataRetention,
	PolicyBackup, PolicyIncidentResponse, PolicyCloudSecurity,
	PolicyNetworkSecurity, PolicyPrivacy, PolicyVendorManagement,
	PolicyBusinessContinuity, PolicyChangeManagement,
}

func (t EvidenceType) IsValid() bool {
	_, ok := evidenceTypeNames[t]
	return ok
}

func (t EvidenceType) DisplayName() string {
	return evidenceTypeNames[t]
}

func (p PolicyType) IsValid() bool {
	_, ok := policyTypeNames[p]
	return ok
}

func (p PolicyType) DisplayName() string {
	return policyTypeNames[p]
}
