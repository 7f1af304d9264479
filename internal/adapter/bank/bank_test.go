package bank

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"merchant-service/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
)

func TestValidABA(t *testing.T) {
	assert.True(t, validABA("021000021"))
	assert.True(t, validABA("110000000"))
	assert.False(t, validABA("021000022"))
	assert.False(t, validABA("12345678"))
	assert.False(t, validABA("02100002a"))
}

func TestMockVerifier(t *testing.T) {
	v := NewMockVerifier()
	ctx := context.Background()

	res, err := v.Verify(ctx, ports.BankVerificationRequest{AccountNumber: "000123456789", RoutingNumber: "110000000"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "mock_ba_6789", res.Reference)

	res, err = v.Verify(ctx, ports.BankVerificationRequest{AccountNumber: "12340000", RoutingNumber: "021000021"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Account could not be verified", res.Error)

	res, err = v.Verify(ctx, ports.BankVerificationRequest{AccountNumber: "123456789", RoutingNumber: "021000022"})
	require.NoError(t, err)
	assert.False(t, res.Success)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = v.Verify(cancelled, ports.BankVerificationRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func newStripeTestVerifier(t *testing.T, status int, body string, seen *http.Request) *StripeVerifier {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			require.NoError(t, r.ParseForm())
			*seen = *r
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeVerifierWithBackend("sk_test_123", backend)
}

func TestStripeVerifier_Success(t *testing.T) {
	var seen http.Request
	v := newStripeTestVerifier(t, http.StatusOK,
		`{"id":"btok_123","object":"token","type":"bank_account","bank_account":{"id":"ba_1","object":"bank_account","status":"new","last4":"6789"}}`,
		&seen)

	res, err := v.Verify(context.Background(), ports.BankVerificationRequest{
		AccountNumber: "000123456789", RoutingNumber: "110000000", HolderName: "Corner Shop LLC", Country: "us", Currency: "USD",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "btok_123", res.Reference)

	assert.Equal(t, "/v1/tokens", seen.URL.Path)
	assert.Equal(t, "000123456789", seen.PostForm.Get("bank_account[account_number]"))
	assert.Equal(t, "US", seen.PostForm.Get("bank_account[country]"))
	assert.Equal(t, "usd", seen.PostForm.Get("bank_account[currency]"))
}

func TestStripeVerifier_Declined(t *testing.T) {
	v := newStripeTestVerifier(t, http.StatusBadRequest,
		`{"error":{"type":"invalid_request_error","code":"routing_number_invalid","message":"Routing number must have 9 digits"}}`,
		nil)

	res, err := v.Verify(context.Background(), ports.BankVerificationRequest{AccountNumber: "000123456789", RoutingNumber: "123"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Routing number must have 9 digits", res.Error)
}

func TestStripeVerifier_FailedStatus(t *testing.T) {
	v := newStripeTestVerifier(t, http.StatusOK,
		`{"id":"btok_9","object":"token","bank_account":{"id":"ba_9","status":"verification_failed"}}`,
		nil)

	res, err := v.Verify(context.Background(), ports.BankVerificationRequest{AccountNumber: "000123456789"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "btok_9", res.Reference)
}

func TestStripeVerifier_ProviderOutage(t *testing.T) {
	v := newStripeTestVerifier(t, http.StatusServiceUnavailable,
		`{"error":{"type":"api_error","message":"try later"}}`, nil)

	_, err := v.Verify(context.Background(), ports.BankVerificationRequest{AccountNumber: "000123456789"})
	assert.ErrorContains(t, err, "stripe bank token")
}
