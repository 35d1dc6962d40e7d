package dto

import "github.com/spec-kit/complaint-service/internal/domain"

// SubmitComplaintRequest payload.
type SubmitComplaintRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Complaint string `json:"complaint"`
}

// SubmitComplaintResponse is returned after a successful submission.
type SubmitComplaintResponse struct {
	Message      string `json:"message"`
	TicketNumber string `json:"ticket_number"`
}

// ComplaintStatusResponse is the full record returned by status checks.
type ComplaintStatusResponse struct {
	TicketNumber string                 `json:"ticket_number"`
	Status       domain.ComplaintStatus `json:"status"`
	Name         string                 `json:"name"`
	Email        string                 `json:"email"`
	Complaint    string                 `json:"complaint"`
}

// MessageResponse carries a human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}
