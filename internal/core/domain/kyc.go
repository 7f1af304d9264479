package domain

import (
	"slices"
	"time"
)

// KycDocumentType identifies the kind of KYC document.
type KycDocumentType string

const (
	KycDocGovernmentID         KycDocumentType = "government_id"
	KycDocProofOfAddress       KycDocumentType = "proof_of_address"
	KycDocBusinessRegistration KycDocumentType = "business_registration"
	KycDocTaxCertificate       KycDocumentType = "tax_certificate"
	KycDocBankStatement        KycDocumentType = "bank_statement"
	KycDocOther                KycDocumentType = "other"
)

// KycDocumentStatus is the per-document review state.
type KycDocumentStatus string

const (
	KycDocumentPending  KycDocumentStatus = "pending"
	KycDocumentApproved KycDocumentStatus = "approved"
	KycDocumentRejected KycDocumentStatus = "rejected"
)

// RequiredKycDocuments must all be present in a submission.
var RequiredKycDocuments = []KycDocumentType{KycDocGovernmentID, KycDocProofOfAddress}

// KycDocument is a single uploaded verification document.
type KycDocument struct {
	Type            KycDocumentType   `json:"type"`
	FileName        string            `json:"file_name"`
	FileURL         string            `json:"file_url"`
	UploadedAt      time.Time         `json:"uploaded_at"`
	Status          KycDocumentStatus `json:"status"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
}

// MissingKycDocuments returns the required types absent from docs, in
// RequiredKycDocuments order.
func MissingKycDocuments(docs []KycDocument) []string {
	var missing []string
	for _, req := range RequiredKycDocuments {
		if !slices.ContainsFunc(docs, func(d KycDocument) bool { return d.Type == req }) {
			missing = append(missing, string(req))
		}
	}
	return missing
}

// KycDecision is the admin verdict on a submission.
type KycDecision string

const (
	KycDecisionApproved KycDecision = "approved"
	KycDecisionRejected KycDecision = "rejected"
)

// DefaultKycRejectionReason is stored when the admin gives no reason.
const DefaultKycRejectionReason = "Documents did not meet verification requirements"
