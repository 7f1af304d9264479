package notify

import (
	"context"

	"merchant-service/internal/core/domain"
)

// deliverFunc hands a rendered message to the transport.
type deliverFunc func(ctx context.Context, msg Message) error

// dispatcher implements ports.NotificationSender on top of a deliverFunc.
type dispatcher struct {
	renderer
	deliver deliverFunc
}

func (d *dispatcher) send(ctx context.Context, kind Kind, m *domain.Merchant, token, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := d.render(kind, m, token, reason)
	if err != nil {
		return err
	}
	return d.deliver(ctx, msg)
}

func (d *dispatcher) SendVerificationEmail(ctx context.Context, m *domain.Merchant, token string) error {
	return d.send(ctx, KindVerification, m, token, "")
}

func (d *dispatcher) SendWelcomeEmail(ctx context.Context, m *domain.Merchant) error {
	return d.send(ctx, KindWelcome, m, "", "")
}

func (d *dispatcher) SendKycSubmittedEmail(ctx context.Context, m *domain.Merchant) error {
	return d.send(ctx, KindKycSubmitted, m, "", "")
}

func (d *dispatcher) SendKycApprovedEmail(ctx context.Context, m *domain.Merchant) error {
	return d.send(ctx, KindKycApproved, m, "", "")
}

func (d *dispatcher) SendKycRejectedEmail(ctx context.Context, m *domain.Merchant, reason string) error {
	return d.send(ctx, KindKycRejected, m, "", reason)
}

func (d *dispatcher) SendBankVerifiedEmail(ctx context.Context, m *domain.Merchant) error {
	return d.send(ctx, KindBankVerified, m, "", "")
}

func (d *dispatcher) SendSuspensionEmail(ctx context.Context, m *domain.Merchant, reason string) error {
	return d.send(ctx, KindSuspension, m, "", reason)
}

func (d *dispatcher) SendReactivationEmail(ctx context.Context, m *domain.Merchant) error {
	return d.send(ctx, KindReactivation, m, "", "")
}
