package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-service/internal/core/domain"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Name:     " My Shop ",
		Email:    "  shop@example.com ",
		Password: "pass1234",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "My Shop", req.Name)
	assert.Equal(t, "shop@example.com", req.Email)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	desc := "we sell <script>alert('x')</script> widgets"
	req := UpdateBusinessRequest{BusinessDescription: &desc}
	SanitizeStruct(&req)

	assert.Contains(t, *req.BusinessDescription, "&lt;script&gt;")
	assert.NotContains(t, *req.BusinessDescription, "<script>")
}

func TestSanitizeStruct_SkipsPassword(t *testing.T) {
	req := LoginRequest{Email: "a@example.com", Password: " p&ss<word> "}
	SanitizeStruct(&req)

	assert.Equal(t, " p&ss<word> ", req.Password)
}

func TestSanitizeStruct_TrimOnlyKeepsURLQuery(t *testing.T) {
	site := "  https://example.com/shop?a=1&b=2  "
	req := UpdateProfileRequest{Website: &site}
	SanitizeStruct(&req)

	assert.Equal(t, "https://example.com/shop?a=1&b=2", *req.Website)
}

func TestSanitizeStruct_WalksSliceOfStructs(t *testing.T) {
	req := SubmitKycRequest{Documents: []KycDocumentRequest{
		{Type: " government_id ", FileName: "<id>.pdf", FileURL: " https://files.example.com/id.pdf?sig=a&x=y"},
	}}
	SanitizeStruct(&req)

	doc := req.Documents[0]
	assert.Equal(t, "government_id", doc.Type)
	assert.Equal(t, "&lt;id&gt;.pdf", doc.FileName)
	assert.Equal(t, "https://files.example.com/id.pdf?sig=a&x=y", doc.FileURL)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := RegisterRequest{Name: "Carol Shop", Website: nil}
	SanitizeStruct(&req)
	assert.Nil(t, req.Website)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID(t *testing.T) {
	for _, tc := range []string{"ref-001", "REF_002", "a.b.c", "ABC-def_GHI.123"} {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
	for _, tc := range []string{"ref 001", "ref<001>", "ref;DROP", "", "ref\n001"} {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %q", tc)
	}
}

func TestCurrencyCodeValidator(t *testing.T) {
	ok := CurrencyRequest{SupportedCurrencies: []string{"usd", "EUR"}, DefaultCurrency: "usd"}
	require.NoError(t, binding.Validator.ValidateStruct(&ok))

	bad := CurrencyRequest{SupportedCurrencies: []string{"USD", "EURO"}, DefaultCurrency: "USD"}
	assert.Error(t, binding.Validator.ValidateStruct(&bad))

	digits := CurrencyRequest{SupportedCurrencies: []string{"USD"}, DefaultCurrency: "U5D"}
	assert.Error(t, binding.Validator.ValidateStruct(&digits))
}

func TestDigitsValidator(t *testing.T) {
	for _, phone := range []string{"+1 (555) 010-9999", "0123456789"} {
		p := phone
		req := UpdateProfileRequest{Phone: &p}
		assert.NoError(t, binding.Validator.ValidateStruct(&req), phone)
	}
	for _, phone := range []string{"call me", "+", "555-CALL"} {
		p := phone
		req := UpdateProfileRequest{Phone: &p}
		assert.Error(t, binding.Validator.ValidateStruct(&req), phone)
	}
}

func TestSafeURLValidator(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://shop.example.com", true},
		{"http://shop.example.com/path", true},
		{"javascript:alert(1)", false},
		{"ftp://files.example.com", false},
		{"not a url", false},
		{"https://", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			u := tt.url
			req := UpdateProfileRequest{Website: &u}
			err := binding.Validator.ValidateStruct(&req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStatusUpdateRequest_RejectsUnknownStatus(t *testing.T) {
	req := StatusUpdateRequest{Status: "DELETED"}
	assert.Error(t, binding.Validator.ValidateStruct(&req))

	req.Status = "SUSPENDED"
	assert.NoError(t, binding.Validator.ValidateStruct(&req))
}

func TestNewMerchantResponse_MasksBankNumbers(t *testing.T) {
	acct := "000123456789"
	iban := "DE89370400440532013000"
	routing := "011000015"
	m := &domain.Merchant{
		Name:              "Shop",
		BankAccount:       domain.BankAccount{AccountNumber: &acct, IBAN: &iban, RoutingNumber: &routing},
		BankAccountStatus: domain.BankAccountStatusVerified,
		ApiQuotaUsed:      3,
		ApiQuotaLimit:     10,
	}

	resp := NewMerchantResponse(m)
	assert.Equal(t, "6789", resp.BankAccount.AccountNumberLast4)
	assert.Equal(t, "3000", resp.BankAccount.IBANLast4)
	assert.Equal(t, &routing, resp.BankAccount.RoutingNumber)
	assert.Equal(t, domain.BankAccountStatusVerified, resp.BankAccount.Status)
	assert.Equal(t, int64(7), resp.Quota.Remaining)
}

func TestNewMerchantList(t *testing.T) {
	list := NewMerchantList([]domain.Merchant{{Name: "a"}, {Name: "b"}})
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[1].Name)
	assert.Empty(t, list[0].BankAccount.AccountNumberLast4)
}
