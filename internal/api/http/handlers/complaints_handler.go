package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

const (
	bannerMessage    = "Complaint Management System is running!"
	submittedMessage = "Complaint submitted successfully!"
	resolvedMessage  = "Complaint resolved and email sent!"
)

// ComplaintsHandler exposes complaint intake, lookup and resolution.
type ComplaintsHandler struct {
	service *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService}
}

// Home GET /.
func (h *ComplaintsHandler) Home(c *fiber.Ctx) error {
	return c.JSON(dto.MessageResponse{Message: bannerMessage})
}

// Submit POST /submit_complaint.
func (h *ComplaintsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.service.Submit(c.UserContext(), service.SubmitInput{
		Name:      req.Name,
		Email:     req.Email,
		Complaint: req.Complaint,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.SubmitComplaintResponse{
		Message:      submittedMessage,
		TicketNumber: complaint.TicketNumber,
	})
}

// CheckStatus GET /check_status/:ticket.
func (h *ComplaintsHandler) CheckStatus(c *fiber.Ctx) error {
	complaint, err := h.service.CheckStatus(c.UserContext(), c.Params("ticket"))
	if err != nil {
		return err
	}
	return c.JSON(complaintStatus(complaint))
}

// Resolve PUT /resolve_complaint/:ticket.
func (h *ComplaintsHandler) Resolve(c *fiber.Ctx) error {
	if _, err := h.service.Resolve(c.UserContext(), c.Params("ticket")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: resolvedMessage})
}

func complaintStatus(complaint *domain.Complaint) dto.ComplaintStatusResponse {
	return dto.ComplaintStatusResponse{
		TicketNumber: complaint.TicketNumber,
		Status:       complaint.Status,
		Name:         complaint.Name,
		Email:        complaint.Email,
		Complaint:    complaint.Body,
	}
}
