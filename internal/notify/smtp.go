package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
)

// Dialer hands messages to an SMTP server. *mail.Client satisfies it.
type Dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender delivers notifications through an SMTP relay.
type SMTPSender struct {
	dialer Dialer
	from   string
	logger *zap.Logger
}

// NewSMTPSender builds a go-mail client from cfg. See tlsPolicy for how
// MAIL_USE_TLS maps onto STARTTLS.
func NewSMTPSender(cfg config.MailConfig, logger *zap.Logger) (*SMTPSender, error) {
	if cfg.Server == "" {
		return nil, errors.New("mail server not configured")
	}
	if cfg.Sender == "" {
		return nil, errors.New("mail sender address not configured")
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if timeout := cfg.Timeout(); timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}
	opts = append(opts, mail.WithTLSPolicy(tlsPolicy(cfg)))
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return NewSMTPSenderWithDialer(client, cfg.Sender, logger), nil
}

// tlsPolicy requires STARTTLS when MAIL_USE_TLS is set. Without it the
// connection is plain text, unless credentials are configured: PLAIN auth is
// refused on unencrypted links, so STARTTLS is still attempted.
func tlsPolicy(cfg config.MailConfig) mail.TLSPolicy {
	switch {
	case cfg.UseTLS:
		return mail.TLSMandatory
	case cfg.Username != "":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}

// NewSMTPSenderWithDialer builds a sender around an existing dialer.
func NewSMTPSenderWithDialer(dialer Dialer, from string, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{dialer: dialer, from: from, logger: logger}
}

func (s *SMTPSender) SendReceived(ctx context.Context, email, name, ticket string) error {
	return s.send(ctx, ReceivedMessage(email, name, ticket))
}

func (s *SMTPSender) SendResolved(ctx context.Context, email, name, ticket string) error {
	return s.send(ctx, ResolvedMessage(email, name, ticket))
}

func (s *SMTPSender) send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send %q to %s: %w", msg.Subject, msg.To, err)
	}
	s.logger.Debug("notification sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *SMTPSender) build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}
