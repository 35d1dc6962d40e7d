package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/ticket"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

func TestSubmitPersistsAndNotifies(t *testing.T) {
	repo := newMemoryRepo()
	sender := &recordingSender{}
	svc := newTestService(repo, sender, fixedTickets("abc123"), 1)

	complaint, err := svc.Submit(context.Background(), SubmitInput{Name: " Alice ", Email: "a@x.com", Complaint: "leak"})
	require.NoError(t, err)

	assert.Equal(t, "abc123", complaint.TicketNumber)
	assert.Equal(t, "Alice", complaint.Name)
	assert.Equal(t, domain.ComplaintStatusPending, complaint.Status)
	assert.Equal(t, []sentNotification{{kind: "received", email: "a@x.com", name: "Alice", ticket: "abc123"}}, sender.sent)

	stored, err := svc.CheckStatus(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusPending, stored.Status)
	assert.Equal(t, "leak", stored.Body)
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name    string
		input   SubmitInput
		missing []string
	}{
		{name: "all empty", input: SubmitInput{}, missing: []string{"name", "email", "complaint"}},
		{name: "blank name", input: SubmitInput{Name: "   ", Email: "a@x.com", Complaint: "leak"}, missing: []string{"name"}},
		{name: "missing email", input: SubmitInput{Name: "Alice", Complaint: "leak"}, missing: []string{"email"}},
		{name: "missing body", input: SubmitInput{Name: "Alice", Email: "a@x.com"}, missing: []string{"complaint"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryRepo()
			sender := &recordingSender{}
			svc := newTestService(repo, sender, fixedTickets("abc123"), 1)

			_, err := svc.Submit(context.Background(), tc.input)
			de := apperrors.ToDomainError(err)
			require.NotNil(t, de)
			assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
			assert.Equal(t, tc.missing, de.Details["missing_fields"])
			assert.Zero(t, repo.creates, "validation must run before storage")
			assert.Empty(t, sender.sent, "validation must run before notification")
		})
	}
}

func TestSubmitRejectsOverlongContactFields(t *testing.T) {
	long := strings.Repeat("é", MaxContactLength+1)
	cases := []struct {
		name    string
		input   SubmitInput
		tooLong []string
	}{
		{name: "name", input: SubmitInput{Name: long, Email: "a@x.com", Complaint: "leak"}, tooLong: []string{"name"}},
		{name: "email", input: SubmitInput{Name: "Alice", Email: long, Complaint: "leak"}, tooLong: []string{"email"}},
		{name: "both", input: SubmitInput{Name: long, Email: long, Complaint: "leak"}, tooLong: []string{"name", "email"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryRepo()
			sender := &recordingSender{}
			svc := newTestService(repo, sender, fixedTickets("abc123"), 1)

			_, err := svc.Submit(context.Background(), tc.input)
			de := apperrors.ToDomainError(err)
			require.NotNil(t, de)
			assert.Equal(t, apperrors.CodeValidationFailed, de.Code)
			assert.Equal(t, tc.tooLong, de.Details["too_long_fields"])
			assert.Zero(t, repo.creates)
			assert.Empty(t, sender.sent)
		})
	}
}

func TestSubmitAcceptsContactFieldsAtLimit(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &recordingSender{}, fixedTickets("abc123"), 1)

	atLimit := strings.Repeat("é", MaxContactLength)
	_, err := svc.Submit(context.Background(), SubmitInput{Name: atLimit, Email: atLimit, Complaint: strings.Repeat("x", 5000)})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.creates)
}

func TestSubmitTicketConflictFailsFast(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &recordingSender{}, fixedTickets("abc123", "abc123", "zzz999"), 1)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitInput{Name: "Alice", Email: "a@x.com", Complaint: "leak"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, SubmitInput{Name: "Bob", Email: "b@x.com", Complaint: "noise"})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeTicketConflict, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.ErrorIs(t, err, domain.ErrTicketConflict)
	assert.Equal(t, 2, repo.creates)
}

func TestSubmitTicketConflictRetriesWithinBudget(t *testing.T) {
	repo := newMemoryRepo()
	sender := &recordingSender{}
	svc := newTestService(repo, sender, fixedTickets("abc123", "abc123", "zzz999"), 3)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitInput{Name: "Alice", Email: "a@x.com", Complaint: "leak"})
	require.NoError(t, err)

	second, err := svc.Submit(ctx, SubmitInput{Name: "Bob", Email: "b@x.com", Complaint: "noise"})
	require.NoError(t, err)
	assert.Equal(t, "zzz999", second.TicketNumber)
	assert.Len(t, sender.sent, 2)
}

func TestSubmitGeneratorFailure(t *testing.T) {
	gen := ticket.GeneratorFunc(func() (string, error) { return "", errors.New("entropy exhausted") })
	repo := newMemoryRepo()
	svc := newTestService(repo, &recordingSender{}, gen, 1)

	_, err := svc.Submit(context.Background(), SubmitInput{Name: "Alice", Email: "a@x.com", Complaint: "leak"})
	assert.Equal(t, apperrors.CodeInternal, apperrors.ToDomainError(err).Code)
	assert.Zero(t, repo.creates)
}

func TestSubmitNotificationFailureIsSuppressed(t *testing.T) {
	repo := newMemoryRepo()
	sender := &recordingSender{err: errors.New("smtp: 421 service not available")}
	svc := newTestService(repo, sender, fixedTickets("abc123"), 1)

	complaint, err := svc.Submit(context.Background(), SubmitInput{Name: "Alice", Email: "a@x.com", Complaint: "leak"})
	require.NoError(t, err)

	stored, err := repo.FindByTicket(context.Background(), complaint.TicketNumber)
	require.NoError(t, err, "storage write must survive a failed notification")
	assert.Equal(t, "Alice", stored.Name)
}

func TestCheckStatusUnknownTicket(t *testing.T) {
	svc := newTestService(newMemoryRepo(), &recordingSender{}, fixedTickets(), 1)

	_, err := svc.CheckStatus(context.Background(), "nope00")
	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	assert.Equal(t, "Ticket not found", de.Message)
}

func TestResolveTransitionsAndNotifies(t *testing.T) {
	repo := newMemoryRepo()
	sender := &recordingSender{}
	svc := newTestService(repo, sender, fixedTickets("abc123"), 1)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitInput{Name: "Alice", Email: "a@x.com", Complaint: "leak"})
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved())

	stored, err := svc.CheckStatus(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusResolved, stored.Status)
	assert.Equal(t, sentNotification{kind: "resolved", email: "a@x.com", name: "Alice", ticket: "abc123"}, sender.sent[1])
}

func TestResolveTwiceIsIdempotentButResends(t *testing.T) {
	repo := newMemoryRepo()
	sender := &recordingSender{}
	svc := newTestService(repo, sender, fixedTickets("abc123"), 1)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitInput{Name: "Alice", Email: "a@x.com", Complaint: "leak"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resolved, err := svc.Resolve(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, domain.ComplaintStatusResolved, resolved.Status)
	}
	assert.Equal(t, 2, sender.count("resolved"))
}

func TestResolveUnknownTicketDoesNotMutateOrNotify(t *testing.T) {
	repo := newMemoryRepo()
	sender := &recordingSender{}
	svc := newTestService(repo, sender, fixedTickets(), 1)

	_, err := svc.Resolve(context.Background(), "nope00")
	assert.Equal(t, http.StatusNotFound, apperrors.ToDomainError(err).HTTPStatus)
	assert.Zero(t, repo.updates)
	assert.Empty(t, sender.sent)
}

func TestResolveNotificationFailureIsSuppressed(t *testing.T) {
	repo := newMemoryRepo()
	sender := &recordingSender{}
	svc := newTestService(repo, sender, fixedTickets("abc123"), 1)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitInput{Name: "Alice", Email: "a@x.com", Complaint: "leak"})
	require.NoError(t, err)

	sender.err = errors.New("smtp timeout")
	resolved, err := svc.Resolve(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved())
}

func TestStoreFailureIsInternalError(t *testing.T) {
	repo := newMemoryRepo()
	repo.failWith = errors.New("connection reset by peer")
	svc := newTestService(repo, &recordingSender{}, fixedTickets("abc123"), 1)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitInput{Name: "Alice", Email: "a@x.com", Complaint: "leak"})
	assert.Equal(t, apperrors.CodeInternal, apperrors.ToDomainError(err).Code)

	_, err = svc.CheckStatus(ctx, "abc123")
	assert.Equal(t, apperrors.CodeInternal, apperrors.ToDomainError(err).Code)

	_, err = svc.Resolve(ctx, "abc123")
	assert.Equal(t, apperrors.CodeInternal, apperrors.ToDomainError(err).Code)
}

func TestSubmitManyProducesDistinctTickets(t *testing.T) {
	gen, err := ticket.NewGenerator(ticket.PolicyHex8)
	require.NoError(t, err)
	repo := newMemoryRepo()
	svc := newTestService(repo, &recordingSender{}, gen, 3)

	seen := map[string]bool{}
	for i := 0; i < 300; i++ {
		c, err := svc.Submit(context.Background(), SubmitInput{Name: "n", Email: "e@x.com", Complaint: fmt.Sprintf("c%d", i)})
		require.NoError(t, err)
		assert.False(t, seen[c.TicketNumber])
		seen[c.TicketNumber] = true
	}
}

func newTestService(repo *memoryRepo, sender *recordingSender, gen ticket.Generator, attempts int) *ComplaintService {
	return NewComplaintService(ComplaintDependencies{
		ComplaintRepo:     repo,
		Tickets:           gen,
		Notifier:          sender,
		Logger:            zap.NewNop(),
		MaxTicketAttempts: attempts,
	})
}

func fixedTickets(tokens ...string) ticket.Generator {
	var mu sync.Mutex
	i := 0
	return ticket.GeneratorFunc(func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(tokens) {
			return "", errors.New("no more tokens")
		}
		token := tokens[i]
		i++
		return token, nil
	})
}

type memoryRepo struct {
	mu       sync.Mutex
	byTicket map[string]domain.Complaint
	nextID   int64
	creates  int
	updates  int
	failWith error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byTicket: map[string]domain.Complaint{}}
}

func (r *memoryRepo) Create(_ context.Context, c *domain.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.failWith != nil {
		return r.failWith
	}
	if _, taken := r.byTicket[c.TicketNumber]; taken {
		return domain.ErrTicketConflict
	}
	r.nextID++
	c.ID = r.nextID
	r.byTicket[c.TicketNumber] = *c
	return nil
}

func (r *memoryRepo) FindByTicket(_ context.Context, ticketNumber string) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	c, ok := r.byTicket[ticketNumber]
	if !ok {
		return nil, domain.ErrComplaintNotFound
	}
	return &c, nil
}

func (r *memoryRepo) MarkResolved(_ context.Context, ticketNumber string) (*domain.Complaint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	c, ok := r.byTicket[ticketNumber]
	if !ok {
		return nil, domain.ErrComplaintNotFound
	}
	r.updates++
	c.Status = domain.ComplaintStatusResolved
	r.byTicket[ticketNumber] = c
	return &c, nil
}

func (r *memoryRepo) Ping(context.Context) error {
	return nil
}

type sentNotification struct {
	kind, email, name, ticket string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (s *recordingSender) SendReceived(_ context.Context, email, name, ticketNumber string) error {
	return s.record("received", email, name, ticketNumber)
}

func (s *recordingSender) SendResolved(_ context.Context, email, name, ticketNumber string) error {
	return s.record("resolved", email, name, ticketNumber)
}

func (s *recordingSender) record(kind, email, name, ticketNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentNotification{kind: kind, email: email, name: name, ticket: ticketNumber})
	return s.err
}

func (s *recordingSender) count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sent := range s.sent {
		if sent.kind == kind {
			n++
		}
	}
	return n
}
