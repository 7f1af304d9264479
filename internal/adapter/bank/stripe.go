package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"merchant-service/internal/core/ports"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/token"
)

// StripeVerifier validates bank details by creating a Stripe bank account
// token. Stripe rejects malformed or unknown account/routing pairs at
// tokenization time.
type StripeVerifier struct {
	client token.Client
}

// NewStripeVerifier creates a verifier using the default Stripe API backend.
func NewStripeVerifier(key string) *StripeVerifier {
	return NewStripeVerifierWithBackend(key, stripe.GetBackend(stripe.APIBackend))
}

// NewStripeVerifierWithBackend creates a verifier on a custom backend.
func NewStripeVerifierWithBackend(key string, backend stripe.Backend) *StripeVerifier {
	return &StripeVerifier{client: token.Client{B: backend, Key: key}}
}

func (v *StripeVerifier) Verify(ctx context.Context, req ports.BankVerificationRequest) (*ports.BankVerificationResult, error) {
	params := &stripe.TokenParams{
		BankAccount: &stripe.BankAccountParams{
			AccountNumber:     stripe.String(req.AccountNumber),
			AccountHolderName: stripe.String(req.HolderName),
			AccountHolderType: stripe.String(string(stripe.BankAccountAccountHolderTypeCompany)),
			Country:           stripe.String(strings.ToUpper(req.Country)),
			Currency:          stripe.String(strings.ToLower(req.Currency)),
		},
	}
	if req.RoutingNumber != "" {
		params.BankAccount.RoutingNumber = stripe.String(req.RoutingNumber)
	}
	params.Context = ctx

	tok, err := v.client.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode < 500 {
			return &ports.BankVerificationResult{Error: stripeErr.Msg}, nil
		}
		return nil, fmt.Errorf("stripe bank token: %w", err)
	}

	if tok.BankAccount != nil {
		switch tok.BankAccount.Status {
		case stripe.BankAccountStatusVerificationFailed, stripe.BankAccountStatusErrored:
			return &ports.BankVerificationResult{
				Error:     "Bank account status " + string(tok.BankAccount.Status),
				Reference: tok.ID,
			}, nil
		}
	}
	return &ports.BankVerificationResult{Success: true, Reference: tok.ID}, nil
}
