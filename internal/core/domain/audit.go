package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister          AuditAction = "REGISTER"
	AuditActionLogin             AuditAction = "LOGIN"
	AuditActionVerifyEmail       AuditAction = "VERIFY_EMAIL"
	AuditActionResendVerify      AuditAction = "RESEND_VERIFICATION"
	AuditActionUpdateProfile     AuditAction = "UPDATE_PROFILE"
	AuditActionSubmitKyc         AuditAction = "SUBMIT_KYC"
	AuditActionReviewKyc         AuditAction = "REVIEW_KYC"
	AuditActionKycDecision       AuditAction = "KYC_DECISION"
	AuditActionUpdateBank        AuditAction = "UPDATE_BANK_ACCOUNT"
	AuditActionVerifyBank        AuditAction = "VERIFY_BANK_ACCOUNT"
	AuditActionUpdatePreferences AuditAction = "UPDATE_PREFERENCES"
	AuditActionStatusChange      AuditAction = "STATUS_CHANGE"
	AuditActionQuotaUpdate       AuditAction = "QUOTA_UPDATE"
	AuditActionAdminLogin        AuditAction = "ADMIN_LOGIN"
	AuditActionAdminRefresh      AuditAction = "ADMIN_REFRESH"
	AuditActionAdminLogout       AuditAction = "ADMIN_LOGOUT"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	MerchantID   *uuid.UUID  `json:"merchant_id,omitempty"`
	Actor        string      `json:"actor"` // "merchant:<id>", "admin:<id>" or "anonymous"
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
