// Package notify delivers the complaint received/resolved emails.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Sender dispatches the fixed complaint notifications. Implementations may
// block until the message is handed to the transport.
type Sender interface {
	SendReceived(ctx context.Context, email, name, ticket string) error
	SendResolved(ctx context.Context, email, name, ticket string) error
}

// Message is a rendered plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// ReceivedMessage renders the confirmation sent after a submission.
func ReceivedMessage(email, name, ticket string) Message {
	return Message{
		To:      email,
		Subject: "Complaint Received",
		Body: fmt.Sprintf("Dear %s,\n\nYour complaint has been received.\nYour Ticket Number: %s.\n"+
			"We will update you once it is resolved.\n\nThank you.", name, ticket),
	}
}

// ResolvedMessage renders the notice sent after a resolution.
func ResolvedMessage(email, name, ticket string) Message {
	return Message{
		To:      email,
		Subject: "Complaint Resolved",
		Body: fmt.Sprintf("Dear %s,\n\nYour complaint with Ticket Number %s has been resolved.\n\n"+
			"Thank you for your patience!", name, ticket),
	}
}

// LogSender writes notifications to the log instead of delivering them. It is
// used when no mail server is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendReceived(_ context.Context, email, name, ticket string) error {
	s.log(ReceivedMessage(email, name, ticket), ticket)
	return nil
}

func (s *LogSender) SendResolved(_ context.Context, email, name, ticket string) error {
	s.log(ResolvedMessage(email, name, ticket), ticket)
	return nil
}

func (s *LogSender) log(msg Message, ticket string) {
	s.logger.Info("notification not delivered; mail server not configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("ticket_number", ticket))
}
