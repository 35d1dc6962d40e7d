package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/ticket"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ComplaintService coordinates complaint intake, lookup and resolution.
type ComplaintService struct {
	complaints  repository.ComplaintRepository
	tickets     ticket.Generator
	notifier    notify.Sender
	logger      *zap.Logger
	maxAttempts int
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	Tickets       ticket.Generator
	Notifier      notify.Sender
	Logger        *zap.Logger
	// MaxTicketAttempts bounds ticket regeneration after a uniqueness
	// conflict. Values below 1 mean a single attempt.
	MaxTicketAttempts int
}

// SubmitInput describes a complaint submission.
type SubmitInput struct {
	Name      string
	Email     string
	Complaint string
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := deps.MaxTicketAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &ComplaintService{
		complaints:  deps.ComplaintRepo,
		tickets:     deps.Tickets,
		notifier:    deps.Notifier,
		logger:      logger,
		maxAttempts: attempts,
	}
}

// Submit validates and persists a complaint, then emails the receipt.
func (s *ComplaintService) Submit(ctx context.Context, input SubmitInput) (*domain.Complaint, error) {
	complaint := &domain.Complaint{
		Name:   strings.TrimSpace(input.Name),
		Email:  strings.TrimSpace(input.Email),
		Body:   strings.TrimSpace(input.Complaint),
		Status: domain.ComplaintStatusPending,
	}
	if err := validateSubmission(complaint); err != nil {
		return nil, err
	}

	if err := s.create(ctx, complaint); err != nil {
		return nil, err
	}

	if err := s.notifier.SendReceived(ctx, complaint.Email, complaint.Name, complaint.TicketNumber); err != nil {
		s.logger.Warn("received notification failed",
			zap.String("ticket_number", complaint.TicketNumber), zap.Error(err))
	}
	s.logger.Info("complaint submitted", zap.String("ticket_number", complaint.TicketNumber))
	return complaint, nil
}

// CheckStatus returns the complaint for a ticket.
func (s *ComplaintService) CheckStatus(ctx context.Context, ticketNumber string) (*domain.Complaint, error) {
	complaint, err := s.complaints.FindByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return complaint, nil
}

// Resolve marks the complaint resolved and emails the submitter. Repeated
// calls succeed and send the email again.
func (s *ComplaintService) Resolve(ctx context.Context, ticketNumber string) (*domain.Complaint, error) {
	complaint, err := s.complaints.MarkResolved(ctx, ticketNumber)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if err := s.notifier.SendResolved(ctx, complaint.Email, complaint.Name, complaint.TicketNumber); err != nil {
		s.logger.Warn("resolved notification failed",
			zap.String("ticket_number", complaint.TicketNumber), zap.Error(err))
	}
	s.logger.Info("complaint resolved", zap.String("ticket_number", complaint.TicketNumber))
	return complaint, nil
}

// Ping reports whether the complaint store is reachable.
func (s *ComplaintService) Ping(ctx context.Context) error {
	return s.complaints.Ping(ctx)
}

func (s *ComplaintService) create(ctx context.Context, complaint *domain.Complaint) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		token, err := s.tickets.Generate()
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		complaint.TicketNumber = token

		err = s.complaints.Create(ctx, complaint)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrTicketConflict) {
			return apperrors.NewInternalError(fmt.Errorf("create complaint: %w", err))
		}
		s.logger.Warn("ticket number collision",
			zap.String("ticket_number", token), zap.Int("attempt", attempt))
		lastErr = err
	}
	return apperrors.NewTicketConflict(lastErr)
}

// MaxContactLength bounds name and email in characters, matching the
// complaints table columns.
const MaxContactLength = 100

func validateSubmission(c *domain.Complaint) error {
	var missing []string
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if c.Email == "" {
		missing = append(missing, "email")
	}
	if c.Body == "" {
		missing = append(missing, "complaint")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError(
			strings.Join(missing, ", ")+" required",
			map[string]any{"missing_fields": missing},
		)
	}

	var tooLong []string
	if utf8.RuneCountInString(c.Name) > MaxContactLength {
		tooLong = append(tooLong, "name")
	}
	if utf8.RuneCountInString(c.Email) > MaxContactLength {
		tooLong = append(tooLong, "email")
	}
	if len(tooLong) > 0 {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s must be at most %d characters", strings.Join(tooLong, ", "), MaxContactLength),
			map[string]any{"too_long_fields": tooLong, "max_length": MaxContactLength},
		)
	}
	return nil
}

func mapStoreError(err error) error {
	if errors.Is(err, domain.ErrComplaintNotFound) {
		return apperrors.NewNotFound("Ticket", nil)
	}
	return apperrors.NewInternalError(err)
}
