package repository

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// complaintRecord is the JSON document stored per ticket in Bolt and Redis.
type complaintRecord struct {
	ID           int64                  `json:"id"`
	Name         string                 `json:"name"`
	Email        string                 `json:"email"`
	Body         string                 `json:"complaint"`
	TicketNumber string                 `json:"ticket_number"`
	Status       domain.ComplaintStatus `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

func (rec complaintRecord) toDomain() domain.Complaint {
	return domain.Complaint{
		ID:           rec.ID,
		Name:         rec.Name,
		Email:        rec.Email,
		Body:         rec.Body,
		TicketNumber: rec.TicketNumber,
		Status:       rec.Status,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func recordFromDomain(c *domain.Complaint) complaintRecord {
	return complaintRecord{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		Body:         c.Body,
		TicketNumber: c.TicketNumber,
		Status:       c.Status,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
