// Package bank verifies payout bank accounts with an external provider.
package bank

import (
	"context"
	"strings"

	"merchant-service/internal/core/ports"
)

// MockVerifier is a deterministic provider for development and tests.
// Routing numbers must pass the ABA checksum; accounts ending in 0000 are
// declined.
type MockVerifier struct{}

func NewMockVerifier() *MockVerifier {
	return &MockVerifier{}
}

func (v *MockVerifier) Verify(ctx context.Context, req ports.BankVerificationRequest) (*ports.BankVerificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.RoutingNumber != "" && !validABA(req.RoutingNumber) {
		return &ports.BankVerificationResult{Error: "Routing number failed checksum"}, nil
	}
	if strings.HasSuffix(req.AccountNumber, "0000") {
		return &ports.BankVerificationResult{Error: "Account could not be verified"}, nil
	}
	return &ports.BankVerificationResult{
		Success:   true,
		Reference: "mock_ba_" + last4(req.AccountNumber),
	}, nil
}

// validABA checks the 3-7-1 weighted checksum of a US routing number.
func validABA(routing string) bool {
	if len(routing) != 9 {
		return false
	}
	weights := [3]int{3, 7, 1}
	sum := 0
	for i, c := range routing {
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * weights[i%3]
	}
	return sum%10 == 0
}

func last4(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
