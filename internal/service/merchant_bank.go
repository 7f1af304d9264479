package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
	"merchant-service/pkg/apperror"

	"github.com/google/uuid"
)

var (
	accountNumberPattern = regexp.MustCompile(`^\d{4,17}$`)
	routingNumberPattern = regexp.MustCompile(`^\d{9}$`)
	swiftPattern         = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
	ibanPattern          = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{4,30}$`)
)

// UpdateBankAccount validates and stores payout details. Any change resets
// the verification state to PENDING.
func (s *MerchantServiceImpl) UpdateBankAccount(ctx context.Context, id uuid.UUID, req ports.BankAccountRequest) (*domain.Merchant, error) {
	account, err := normalizeBankAccount(req)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, id, ports.MerchantPatch{BankAccount: &account, RequireWritable: true})
}

// VerifyBankAccount asks the provider to confirm the stored account.
func (s *MerchantServiceImpl) VerifyBankAccount(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	merchant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !merchant.HasBankAccount() {
		return nil, apperror.ErrBankAccountNotFound()
	}
	if merchant.BankAccountStatus == domain.BankAccountStatusVerified {
		return nil, apperror.ErrBankAccountAlreadyVerified()
	}

	req := ports.BankVerificationRequest{
		AccountNumber: *merchant.BankAccount.AccountNumber,
		RoutingNumber: *merchant.BankAccount.RoutingNumber,
		Country:       s.cfg.BankCountry,
		Currency:      strings.ToLower(merchant.DefaultCurrency),
	}
	if merchant.BankAccount.HolderName != nil {
		req.HolderName = *merchant.BankAccount.HolderName
	}
	if merchant.Country != nil {
		req.Country = *merchant.Country
	}

	result, err := s.bank.Verify(ctx, req)
	failure := ""
	switch {
	case err != nil:
		failure = err.Error()
	case result == nil || !result.Success:
		failure = "bank verification was declined"
		if result != nil && result.Error != "" {
			failure = result.Error
		}
	}

	if failure != "" {
		if _, uerr := s.repo.UpdateBankAccountStatus(ctx, id, merchant.BankAccountVersion, domain.BankAccountStatusFailed, nil); uerr != nil {
			return nil, apperror.InternalError(fmt.Errorf("mark bank failed: %w", uerr))
		}
		s.log.Warn().Str("merchant_id", id.String()).Str("reason", failure).Msg("bank verification failed")
		return nil, apperror.ErrBankVerificationFailed(failure)
	}

	now := s.now()
	verified, err := s.repo.UpdateBankAccountStatus(ctx, id, merchant.BankAccountVersion, domain.BankAccountStatusVerified, &now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark bank verified: %w", err))
	}
	if verified == nil {
		// The account checked by the provider is no longer the stored one.
		s.log.Warn().Str("merchant_id", id.String()).Msg("bank account changed during verification")
		return nil, apperror.ErrBankVerificationFailed("bank account changed during verification")
	}

	s.log.Info().Str("merchant_id", id.String()).Str("reference", result.Reference).Msg("bank account verified")
	s.notify(verified, "bank_verified", s.notifier.SendBankVerifiedEmail(ctx, verified))
	return verified, nil
}

func normalizeBankAccount(req ports.BankAccountRequest) (domain.BankAccount, error) {
	var out domain.BankAccount

	number := strings.TrimSpace(req.AccountNumber)
	if !accountNumberPattern.MatchString(number) {
		return out, apperror.ErrBankAccountInvalid("Account number must be 4-17 digits")
	}
	out.AccountNumber = &number

	if routing := trimmed(req.RoutingNumber); routing != nil {
		if !routingNumberPattern.MatchString(*routing) {
			return out, apperror.ErrBankAccountInvalid("Routing number must be exactly 9 digits")
		}
		out.RoutingNumber = routing
	}

	if swift := upper(req.SwiftCode); swift != nil {
		if !swiftPattern.MatchString(*swift) {
			return out, apperror.ErrBankAccountInvalid("Invalid SWIFT code format")
		}
		out.SwiftCode = swift
	}

	if req.IBAN != nil {
		iban := strings.ToUpper(strings.ReplaceAll(*req.IBAN, " ", ""))
		if iban != "" {
			if !ibanPattern.MatchString(iban) {
				return out, apperror.ErrBankAccountInvalid("Invalid IBAN format")
			}
			out.IBAN = &iban
		}
	}

	out.HolderName = trimmed(&req.HolderName)
	out.BankName = trimmed(req.BankName)
	return out, nil
}
