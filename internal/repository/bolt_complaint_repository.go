package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/spec-kit/complaint-service/internal/domain"
)

type boltComplaintRepository struct {
	db     *bolt.DB
	bucket []byte
}

// NewBoltComplaintRepository stores complaints in the given bucket, which must
// already exist. The bucket key is the ticket number, so a taken key is the
// uniqueness constraint.
func NewBoltComplaintRepository(db *bolt.DB, bucket string) ComplaintRepository {
	return &boltComplaintRepository{db: db, bucket: []byte(bucket)}
}

func (r *boltComplaintRepository) Create(_ context.Context, complaint *domain.Complaint) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.bucket)
		key := []byte(complaint.TicketNumber)
		if b.Get(key) != nil {
			return domain.ErrTicketConflict
		}

		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		rec := complaintRecord{
			ID:           int64(id),
			Name:         complaint.Name,
			Email:        complaint.Email,
			Body:         complaint.Body,
			TicketNumber: complaint.TicketNumber,
			Status:       complaint.Status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if rec.Status == "" {
			rec.Status = domain.ComplaintStatusPending
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := b.Put(key, data); err != nil {
			return err
		}
		*complaint = rec.toDomain()
		return nil
	})
}

func (r *boltComplaintRepository) FindByTicket(_ context.Context, ticket string) (*domain.Complaint, error) {
	var rec complaintRecord
	err := r.db.View(func(tx *bolt.Tx) error {
		return r.load(tx, ticket, &rec)
	})
	if err != nil {
		return nil, err
	}
	complaint := rec.toDomain()
	return &complaint, nil
}

// MarkResolved skips the write when the record is already resolved.
func (r *boltComplaintRepository) MarkResolved(_ context.Context, ticket string) (*domain.Complaint, error) {
	var rec complaintRecord
	err := r.db.Update(func(tx *bolt.Tx) error {
		if err := r.load(tx, ticket, &rec); err != nil {
			return err
		}
		if rec.Status == domain.ComplaintStatusResolved {
			return nil
		}
		rec.Status = domain.ComplaintStatusResolved
		rec.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(r.bucket).Put([]byte(ticket), data)
	})
	if err != nil {
		return nil, err
	}
	complaint := rec.toDomain()
	return &complaint, nil
}

func (r *boltComplaintRepository) Ping(_ context.Context) error {
	return r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(r.bucket) == nil {
			return errors.New("complaints bucket missing")
		}
		return nil
	})
}

func (r *boltComplaintRepository) load(tx *bolt.Tx, ticket string, rec *complaintRecord) error {
	if ticket == "" {
		return domain.ErrComplaintNotFound
	}
	v := tx.Bucket(r.bucket).Get([]byte(ticket))
	if v == nil {
		return domain.ErrComplaintNotFound
	}
	return json.Unmarshal(v, rec)
}
