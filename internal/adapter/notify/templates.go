// Package notify delivers merchant emails through a log sink or SMTP.
package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"merchant-service/internal/core/domain"
)

// Kind names an email type. The values double as metric labels.
type Kind string

const (
	KindVerification Kind = "verification"
	KindWelcome      Kind = "welcome"
	KindKycSubmitted Kind = "kyc_submitted"
	KindKycApproved  Kind = "kyc_approved"
	KindKycRejected  Kind = "kyc_rejected"
	KindBankVerified Kind = "bank_verified"
	KindSuspension   Kind = "suspension"
	KindReactivation Kind = "reactivation"
)

// Message is a rendered email.
type Message struct {
	Kind    Kind
	To      string
	Subject string
	Body    string
	// Token is set on verification emails only.
	Token string
}

type templateData struct {
	Name    string
	Link    string
	Reason  string
	Support string
}

var subjects = map[Kind]string{
	KindVerification: "Verify your email address",
	KindWelcome:      "Welcome aboard",
	KindKycSubmitted: "We received your verification documents",
	KindKycApproved:  "Your business has been verified",
	KindKycRejected:  "Action needed on your verification",
	KindBankVerified: "Your bank account is verified",
	KindSuspension:   "Your merchant account has been suspended",
	KindReactivation: "Your merchant account is active again",
}

var bodies = template.Must(template.New("emails").Parse(`
{{define "verification"}}Hi {{.Name}},

Confirm your email address to finish setting up your merchant account:

{{.Link}}

The link expires in 24 hours.{{end}}
{{define "welcome"}}Hi {{.Name}},

Your email is verified. Submit your KYC documents to start accepting payments.{{end}}
{{define "kyc_submitted"}}Hi {{.Name}},

Thanks, your documents are in the review queue. We will email you once a decision is made.{{end}}
{{define "kyc_approved"}}Hi {{.Name}},

Your business verification was approved.{{end}}
{{define "kyc_rejected"}}Hi {{.Name}},

We could not verify your business.
Reason: {{.Reason}}

Please upload corrected documents and submit again.{{end}}
{{define "bank_verified"}}Hi {{.Name}},

Your payout bank account has been verified.{{end}}
{{define "suspension"}}Hi {{.Name}},

Your merchant account has been suspended.{{if .Reason}}
Reason: {{.Reason}}{{end}}

Contact {{.Support}} if you believe this is a mistake.{{end}}
{{define "reactivation"}}Hi {{.Name}},

Your merchant account has been reactivated.{{end}}
`))

// renderer turns a kind plus merchant into a Message.
type renderer struct {
	baseURL string
	support string
}

func (r renderer) render(kind Kind, m *domain.Merchant, token, reason string) (Message, error) {
	data := templateData{
		Name:    m.Name,
		Reason:  reason,
		Support: r.support,
	}
	if kind == KindVerification {
		data.Link = strings.TrimRight(r.baseURL, "/") + "/verify-email?token=" + token
	}

	var buf bytes.Buffer
	if err := bodies.ExecuteTemplate(&buf, string(kind), data); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", kind, err)
	}
	return Message{
		Kind:    kind,
		To:      m.Email,
		Subject: subjects[kind],
		Body:    buf.String(),
		Token:   token,
	}, nil
}
