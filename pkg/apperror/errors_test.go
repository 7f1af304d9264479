package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("MER_001", "Merchant not found", http.StatusNotFound),
			expected: "[MER_001] Merchant not found",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := InternalError(inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, ErrClosed().Unwrap())
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrClosed())
	assert.True(t, HasCode(wrapped, CodeClosed))
	assert.False(t, HasCode(wrapped, CodeSuspended))
	assert.False(t, HasCode(fmt.Errorf("plain"), CodeClosed))
}

func TestMerchantErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"NotFound", ErrNotFound("Merchant"), "MER_001", 404},
		{"AlreadyExists", ErrAlreadyExists("Merchant"), "MER_002", 409},
		{"InvalidStatus", ErrInvalidStatus("CLOSED", "ACTIVE"), "MER_003", 409},
		{"Suspended", ErrSuspended("fraud"), "MER_004", 403},
		{"Closed", ErrClosed(), "MER_005", 403},
		{"Inactive", ErrInactive(), "MER_006", 403},
		{"EmailNotVerified", ErrEmailNotVerified(), "MER_007", 403},
		{"EmailAlreadyVerified", ErrEmailAlreadyVerified(), "MER_008", 409},
		{"TokenInvalid", ErrTokenInvalid(), "MER_009", 400},
		{"TokenExpired", ErrTokenExpired(), "MER_010", 410},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestKycAndBankErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"KycNotStarted", ErrKycNotStarted(), "KYC_001", 400},
		{"KycAlreadySubmitted", ErrKycAlreadySubmitted(), "KYC_002", 409},
		{"KycAlreadyApproved", ErrKycAlreadyApproved(), "KYC_003", 409},
		{"KycDocumentRequired", ErrKycDocumentRequired([]string{"government_id"}), "KYC_004", 400},
		{"KycInvalidStatus", ErrKycInvalidStatus("APPROVED"), "KYC_005", 409},
		{"BankAccountNotFound", ErrBankAccountNotFound(), "BANK_001", 404},
		{"BankVerificationFailed", ErrBankVerificationFailed("declined"), "BANK_002", 422},
		{"BankAccountAlreadyVerified", ErrBankAccountAlreadyVerified(), "BANK_003", 409},
		{"BankAccountInvalid", ErrBankAccountInvalid("bad"), "BANK_004", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_001", 401},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"AccountLocked", ErrAccountLocked(), "AUTH_005", 403},
		{"Forbidden", ErrForbidden(), "AUTH_006", 403},
		{"RateLimit", ErrRateLimitExceeded(), "RATE_001", 429},
		{"Validation", Validation("bad input"), "VAL_001", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestErrorDetails(t *testing.T) {
	err := ErrInvalidStatus("PENDING", "INACTIVE")
	assert.Equal(t, "PENDING", err.Details["current_status"])
	assert.Equal(t, "INACTIVE", err.Details["requested_status"])
	assert.Contains(t, err.Message, "PENDING")

	missing := ErrKycDocumentRequired([]string{"government_id", "proof_of_address"})
	assert.Contains(t, missing.Message, "government_id, proof_of_address")
	assert.Equal(t, []string{"government_id", "proof_of_address"}, missing.Details["missing_documents"])

	resetAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	quota := ErrQuotaExceeded(1000, resetAt)
	assert.Equal(t, int64(1000), quota.Details["limit"])
	assert.Equal(t, "2026-01-02T03:04:05Z", quota.Details["reset_at"])
}

func TestSuspendedMessage(t *testing.T) {
	assert.Equal(t, "Merchant account is suspended: chargebacks", ErrSuspended("chargebacks").Message)
	assert.Equal(t, "Merchant account is suspended", ErrSuspended("").Message)
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := InternalError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))
}
