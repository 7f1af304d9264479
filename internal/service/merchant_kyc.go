package service

import (
	"context"
	"fmt"
	"strings"

	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
	"merchant-service/pkg/apperror"

	"github.com/google/uuid"
)

var knownKycDocumentTypes = map[domain.KycDocumentType]bool{
	domain.KycDocGovernmentID:         true,
	domain.KycDocProofOfAddress:       true,
	domain.KycDocBusinessRegistration: true,
	domain.KycDocTaxCertificate:       true,
	domain.KycDocBankStatement:        true,
	domain.KycDocOther:                true,
}

// SubmitKyc stores a document set and moves KYC to PENDING. Resubmission
// while PENDING replaces the documents.
func (s *MerchantServiceImpl) SubmitKyc(ctx context.Context, id uuid.UUID, inputs []ports.KycDocumentInput) (*domain.Merchant, error) {
	merchant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !merchant.EmailVerified {
		return nil, apperror.ErrEmailNotVerified()
	}
	if err := kycSubmitConflict(merchant.KycStatus); err != nil {
		return nil, err
	}
	if err := ensureMutable(merchant); err != nil {
		return nil, err
	}

	now := s.now()
	docs := make([]domain.KycDocument, 0, len(inputs))
	for i, in := range inputs {
		if !knownKycDocumentTypes[in.Type] {
			return nil, apperror.Validation(fmt.Sprintf("documents[%d]: unknown document type %q", i, in.Type))
		}
		name, url := strings.TrimSpace(in.FileName), strings.TrimSpace(in.FileURL)
		if name == "" || url == "" {
			return nil, apperror.Validation(fmt.Sprintf("documents[%d]: file name and url are required", i))
		}
		docs = append(docs, domain.KycDocument{
			Type:       in.Type,
			FileName:   name,
			FileURL:    url,
			UploadedAt: now,
			Status:     domain.KycDocumentPending,
		})
	}
	if missing := domain.MissingKycDocuments(docs); len(missing) > 0 {
		return nil, apperror.ErrKycDocumentRequired(missing)
	}

	updated, err := s.repo.UpdateKycStatus(ctx, id, domain.KycSourcesFor(domain.KycStatusPending), ports.KycChange{
		To:          domain.KycStatusPending,
		Documents:   docs,
		SubmittedAt: &now,
		At:          now,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("submit kyc: %w", err))
	}
	if updated == nil {
		return nil, s.kycRaceError(ctx, id, merchant.KycStatus, kycSubmitConflict)
	}

	s.notify(updated, "kyc_submitted", s.notifier.SendKycSubmittedEmail(ctx, updated))
	return updated, nil
}

// StartKycReview moves a PENDING submission to IN_REVIEW.
func (s *MerchantServiceImpl) StartKycReview(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	merchant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if merchant.KycStatus == domain.KycStatusNotStarted {
		return nil, apperror.ErrKycNotStarted()
	}
	if merchant.KycStatus != domain.KycStatusPending {
		return nil, apperror.ErrKycInvalidStatus(string(merchant.KycStatus))
	}

	updated, err := s.repo.UpdateKycStatus(ctx, id, []domain.KycStatus{domain.KycStatusPending}, ports.KycChange{
		To: domain.KycStatusInReview,
		At: s.now(),
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("start kyc review: %w", err))
	}
	if updated == nil {
		return nil, s.kycRaceError(ctx, id, merchant.KycStatus, kycInvalid)
	}
	return updated, nil
}

// VerifyKyc records the admin decision. Approval of a PENDING merchant with a
// verified email also activates the account in the same write.
func (s *MerchantServiceImpl) VerifyKyc(ctx context.Context, id uuid.UUID, decision domain.KycDecision, reason string) (*domain.Merchant, error) {
	if decision != domain.KycDecisionApproved && decision != domain.KycDecisionRejected {
		return nil, apperror.Validation("decision must be approved or rejected")
	}

	merchant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if merchant.KycStatus != domain.KycStatusPending && merchant.KycStatus != domain.KycStatusInReview {
		return nil, apperror.ErrKycInvalidStatus(string(merchant.KycStatus))
	}

	now := s.now()
	change := ports.KycChange{At: now}
	docs := make([]domain.KycDocument, len(merchant.KycDocuments))
	copy(docs, merchant.KycDocuments)

	if decision == domain.KycDecisionApproved {
		for i := range docs {
			docs[i].Status = domain.KycDocumentApproved
			docs[i].RejectionReason = nil
		}
		change.To = domain.KycStatusApproved
		change.VerifiedAt = &now
		change.ActivateMerchant = true
	} else {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			reason = domain.DefaultKycRejectionReason
		}
		for i := range docs {
			docs[i].Status = domain.KycDocumentRejected
			docs[i].RejectionReason = &reason
		}
		change.To = domain.KycStatusRejected
		change.RejectionReason = &reason
	}
	change.Documents = docs

	updated, err := s.repo.UpdateKycStatus(ctx, id,
		[]domain.KycStatus{domain.KycStatusPending, domain.KycStatusInReview}, change)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify kyc: %w", err))
	}
	if updated == nil {
		return nil, s.kycRaceError(ctx, id, merchant.KycStatus, kycInvalid)
	}
	s.metrics.KycDecision(string(decision))

	if merchant.Status != updated.Status {
		s.metrics.StatusTransition(string(merchant.Status), string(updated.Status))
		s.log.Info().
			Str("merchant_id", id.String()).
			Str("from", string(merchant.Status)).
			Str("to", string(updated.Status)).
			Msg("merchant activated by kyc approval")
	}

	if decision == domain.KycDecisionApproved {
		s.notify(updated, "kyc_approved", s.notifier.SendKycApprovedEmail(ctx, updated))
	} else {
		s.notify(updated, "kyc_rejected", s.notifier.SendKycRejectedEmail(ctx, updated, reason))
	}
	return updated, nil
}

// kycRaceError re-reads the KYC status after a guarded update missed and maps
// it through classify.
func (s *MerchantServiceImpl) kycRaceError(ctx context.Context, id uuid.UUID, last domain.KycStatus, classify func(domain.KycStatus) error) error {
	current := last
	if fresh, err := s.repo.GetByID(ctx, id); err == nil && fresh != nil {
		current = fresh.KycStatus
	}
	if err := classify(current); err != nil {
		return err
	}
	return apperror.ErrKycInvalidStatus(string(current))
}

func kycSubmitConflict(status domain.KycStatus) error {
	switch status {
	case domain.KycStatusApproved:
		return apperror.ErrKycAlreadyApproved()
	case domain.KycStatusInReview:
		return apperror.ErrKycAlreadySubmitted()
	}
	return nil
}

func kycInvalid(status domain.KycStatus) error {
	return apperror.ErrKycInvalidStatus(string(status))
}
