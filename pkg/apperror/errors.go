package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a context value for the client and returns the same error.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is an *AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Error codes.
const (
	CodeNotFound             = "MER_001"
	CodeAlreadyExists        = "MER_002"
	CodeInvalidStatus        = "MER_003"
	CodeSuspended            = "MER_004"
	CodeClosed               = "MER_005"
	CodeInactive             = "MER_006"
	CodeEmailNotVerified     = "MER_007"
	CodeEmailAlreadyVerified = "MER_008"
	CodeTokenInvalid         = "MER_009"
	CodeTokenExpired         = "MER_010"

	CodeKycNotStarted       = "KYC_001"
	CodeKycAlreadySubmitted = "KYC_002"
	CodeKycAlreadyApproved  = "KYC_003"
	CodeKycDocumentRequired = "KYC_004"
	CodeKycInvalidStatus    = "KYC_005"

	CodeBankAccountNotFound        = "BANK_001"
	CodeBankVerificationFailed     = "BANK_002"
	CodeBankAccountAlreadyVerified = "BANK_003"
	CodeBankAccountInvalid         = "BANK_004"

	CodeQuotaExceeded = "QUOTA_001"

	CodeUnauthorized  = "AUTH_001"
	CodeInvalidToken  = "AUTH_003"
	CodeAccountLocked = "AUTH_005"
	CodeForbidden     = "AUTH_006"

	CodeValidation = "VAL_001"

	CodeRateLimitExceeded = "RATE_001"

	CodeInternal = "SYS_001"
)

// ---- Merchant lifecycle (MER) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAlreadyExists(entity string) *AppError {
	return New(CodeAlreadyExists, fmt.Sprintf("%s already exists", entity), http.StatusConflict)
}

func ErrInvalidStatus(current, requested string) *AppError {
	return New(CodeInvalidStatus,
		fmt.Sprintf("Cannot transition merchant from %s to %s", current, requested),
		http.StatusConflict).
		WithDetail("current_status", current).
		WithDetail("requested_status", requested)
}

func ErrSuspended(reason string) *AppError {
	msg := "Merchant account is suspended"
	if reason != "" {
		msg += ": " + reason
	}
	return New(CodeSuspended, msg, http.StatusForbidden)
}

func ErrClosed() *AppError {
	return New(CodeClosed, "Merchant account is closed", http.StatusForbidden)
}

func ErrInactive() *AppError {
	return New(CodeInactive, "Merchant account is inactive", http.StatusForbidden)
}

func ErrEmailNotVerified() *AppError {
	return New(CodeEmailNotVerified, "Email address has not been verified", http.StatusForbidden)
}

func ErrEmailAlreadyVerified() *AppError {
	return New(CodeEmailAlreadyVerified, "Email address is already verified", http.StatusConflict)
}

func ErrTokenInvalid() *AppError {
	return New(CodeTokenInvalid, "Invalid verification token", http.StatusBadRequest)
}

func ErrTokenExpired() *AppError {
	return New(CodeTokenExpired, "Verification token has expired", http.StatusGone)
}

// ---- KYC ----

func ErrKycNotStarted() *AppError {
	return New(CodeKycNotStarted, "KYC verification has not been started", http.StatusBadRequest)
}

func ErrKycAlreadySubmitted() *AppError {
	return New(CodeKycAlreadySubmitted, "KYC documents are already under review", http.StatusConflict)
}

func ErrKycAlreadyApproved() *AppError {
	return New(CodeKycAlreadyApproved, "KYC verification is already approved", http.StatusConflict)
}

func ErrKycDocumentRequired(missing []string) *AppError {
	return New(CodeKycDocumentRequired,
		fmt.Sprintf("Required KYC documents missing: %s", strings.Join(missing, ", ")),
		http.StatusBadRequest).
		WithDetail("missing_documents", missing)
}

func ErrKycInvalidStatus(current string) *AppError {
	return New(CodeKycInvalidStatus,
		fmt.Sprintf("KYC cannot be processed in status %s", current),
		http.StatusConflict).
		WithDetail("kyc_status", current)
}

// ---- Bank account (BANK) ----

func ErrBankAccountNotFound() *AppError {
	return New(CodeBankAccountNotFound, "Bank account details not found", http.StatusNotFound)
}

func ErrBankVerificationFailed(reason string) *AppError {
	return New(CodeBankVerificationFailed,
		fmt.Sprintf("Bank account verification failed: %s", reason),
		http.StatusUnprocessableEntity)
}

func ErrBankAccountAlreadyVerified() *AppError {
	return New(CodeBankAccountAlreadyVerified, "Bank account is already verified", http.StatusConflict)
}

func ErrBankAccountInvalid(message string) *AppError {
	return New(CodeBankAccountInvalid, message, http.StatusBadRequest)
}

// ---- Quota ----

func ErrQuotaExceeded(limit int64, resetAt time.Time) *AppError {
	return New(CodeQuotaExceeded, "API quota exceeded", http.StatusTooManyRequests).
		WithDetail("limit", limit).
		WithDetail("reset_at", resetAt.UTC().Format(time.RFC3339))
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New(CodeUnauthorized, "Invalid credentials", http.StatusUnauthorized)
}

func ErrUnauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountLocked() *AppError {
	return New(CodeAccountLocked, "Account locked due to too many failed login attempts", http.StatusForbidden)
}

func ErrForbidden() *AppError {
	return New(CodeForbidden, "Insufficient permissions", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}
