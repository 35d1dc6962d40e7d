package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/complaint-service/internal/domain"
)

const pgUniqueViolation = "23505"

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	FindByTicket(ctx context.Context, ticket string) (*domain.Complaint, error)
	MarkResolved(ctx context.Context, ticket string) (*domain.Complaint, error)
	Ping(ctx context.Context) error
}

// DBTX is the subset of pgxpool.Pool the repository relies on.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type complaintRepository struct {
	db DBTX
}

// NewComplaintRepository instantiates the Postgres-backed repository.
func NewComplaintRepository(db DBTX) ComplaintRepository {
	return &complaintRepository{db: db}
}

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (name, email, complaint, ticket_number, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	if complaint.Status == "" {
		complaint.Status = domain.ComplaintStatusPending
	}
	err := r.db.QueryRow(ctx, query,
		complaint.Name,
		complaint.Email,
		complaint.Body,
		complaint.TicketNumber,
		complaint.Status,
	).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrTicketConflict
	}
	return err
}

func (r *complaintRepository) FindByTicket(ctx context.Context, ticket string) (*domain.Complaint, error) {
	const query = `
        SELECT id, name, email, complaint, ticket_number, status, created_at, updated_at
        FROM complaints WHERE ticket_number=$1`
	return r.fetchSingle(ctx, query, ticket)
}

// MarkResolved flips the status in a single statement; an already resolved
// row is rewritten with the same status.
func (r *complaintRepository) MarkResolved(ctx context.Context, ticket string) (*domain.Complaint, error) {
	const query = `
        UPDATE complaints SET status=$1, updated_at=NOW()
        WHERE ticket_number=$2
        RETURNING id, name, email, complaint, ticket_number, status, created_at, updated_at`
	return r.fetchSingle(ctx, query, domain.ComplaintStatusResolved, ticket)
}

func (r *complaintRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *complaintRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := r.db.QueryRow(ctx, query, args...).Scan(
		&complaint.ID,
		&complaint.Name,
		&complaint.Email,
		&complaint.Body,
		&complaint.TicketNumber,
		&complaint.Status,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrComplaintNotFound
		}
		return nil, err
	}
	return &complaint, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
