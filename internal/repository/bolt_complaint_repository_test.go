package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
)

func newTestBoltRepository(t *testing.T) ComplaintRepository {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"), 0o600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte("complaints"))
		return err
	}))
	return NewBoltComplaintRepository(db, "complaints")
}

func TestBoltCreateAndFind(t *testing.T) {
	repo := newTestBoltRepository(t)
	ctx := context.Background()

	complaint := &domain.Complaint{Name: "Alice", Email: "a@x.com", Body: "leak", TicketNumber: "abc123"}
	require.NoError(t, repo.Create(ctx, complaint))
	assert.Equal(t, int64(1), complaint.ID)
	assert.Equal(t, domain.ComplaintStatusPending, complaint.Status)
	assert.False(t, complaint.CreatedAt.IsZero())

	found, err := repo.FindByTicket(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, *complaint, *found)
}

func TestBoltCreateAssignsSequentialIDs(t *testing.T) {
	repo := newTestBoltRepository(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		complaint := &domain.Complaint{Name: "n", Email: "e", Body: "b", TicketNumber: fmt.Sprintf("tkt%03d", i)}
		require.NoError(t, repo.Create(ctx, complaint))
		assert.Equal(t, int64(i), complaint.ID)
	}
}

func TestBoltCreateTicketConflict(t *testing.T) {
	repo := newTestBoltRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Complaint{Name: "Alice", Email: "a@x.com", Body: "leak", TicketNumber: "abc123"}))
	err := repo.Create(ctx, &domain.Complaint{Name: "Bob", Email: "b@x.com", Body: "noise", TicketNumber: "abc123"})
	assert.ErrorIs(t, err, domain.ErrTicketConflict)

	found, err := repo.FindByTicket(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Alice", found.Name, "conflicting create must not overwrite")
}

func TestBoltFindUnknownTicket(t *testing.T) {
	repo := newTestBoltRepository(t)

	_, err := repo.FindByTicket(context.Background(), "zzz999")
	assert.ErrorIs(t, err, domain.ErrComplaintNotFound)

	_, err = repo.FindByTicket(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrComplaintNotFound)
}

func TestBoltMarkResolved(t *testing.T) {
	repo := newTestBoltRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.Complaint{Name: "Alice", Email: "a@x.com", Body: "leak", TicketNumber: "abc123"}))

	resolved, err := repo.MarkResolved(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved())

	// Second call must not error and must keep the record resolved.
	again, err := repo.MarkResolved(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, again.IsResolved())
	assert.Equal(t, resolved.UpdatedAt, again.UpdatedAt)

	found, err := repo.FindByTicket(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusResolved, found.Status)
}

func TestBoltMarkResolvedUnknownTicketDoesNotWrite(t *testing.T) {
	repo := newTestBoltRepository(t)
	ctx := context.Background()

	_, err := repo.MarkResolved(ctx, "zzz999")
	assert.ErrorIs(t, err, domain.ErrComplaintNotFound)

	_, err = repo.FindByTicket(ctx, "zzz999")
	assert.ErrorIs(t, err, domain.ErrComplaintNotFound)
}

func TestBoltConcurrentCreates(t *testing.T) {
	repo := newTestBoltRepository(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &domain.Complaint{Name: "n", Email: "e", Body: "b", TicketNumber: fmt.Sprintf("c%05d", i)})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestBoltPing(t *testing.T) {
	repo := newTestBoltRepository(t)
	assert.NoError(t, repo.Ping(context.Background()))
}
