package domain

import (
	"errors"
	"time"
)

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusPending  ComplaintStatus = "pending"
	ComplaintStatusResolved ComplaintStatus = "resolved"
)

var (
	// ErrComplaintNotFound is returned by stores when no record matches a ticket.
	ErrComplaintNotFound = errors.New("complaint not found")
	// ErrTicketConflict is returned by stores when a ticket number is already taken.
	ErrTicketConflict = errors.New("ticket number already exists")
)

// Complaint is a submitted grievance keyed externally by its ticket number.
type Complaint struct {
	ID           int64
	Name         string
	Email        string
	Body         string
	TicketNumber string
	Status       ComplaintStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsResolved reports whether the complaint reached its terminal state.
func (c *Complaint) IsResolved() bool {
	return c.Status == ComplaintStatusResolved
}
