package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"merchant-service/config"

	"github.com/oklog/ulid/v2"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers emails through an SMTP relay.
type SMTPSender struct {
	*dispatcher
	addr     string
	from     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

// NewSMTPSender creates a sender from the email configuration. PLAIN auth is
// used when a user is configured.
func NewSMTPSender(cfg config.EmailConfig, support string) *SMTPSender {
	s := &SMTPSender{
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
	if cfg.SMTPUser != "" {
		s.auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	s.dispatcher = &dispatcher{
		renderer: renderer{baseURL: cfg.BaseURL, support: support},
		deliver:  s.transmit,
	}
	return s
}

func (s *SMTPSender) transmit(ctx context.Context, msg Message) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.sendMail(s.addr, s.auth, s.from, []string{msg.To}, s.compose(msg))
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("smtp send %s: %w", msg.Kind, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SMTPSender) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", ulid.Make().String(), domainOf(s.from))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(strings.TrimSpace(msg.Body), "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return strings.TrimRight(addr[i+1:], ">")
	}
	return "localhost"
}
