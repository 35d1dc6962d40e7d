package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ErrCacheMiss reports that a ticket is not cached.
var ErrCacheMiss = errors.New("cache miss")

// ComplaintCache stores complaint snapshots by ticket number. Set always
// overwrites; Add only writes when the ticket is not cached yet.
type ComplaintCache interface {
	Get(ctx context.Context, ticket string) (*domain.Complaint, error)
	Set(ctx context.Context, complaint *domain.Complaint) error
	Add(ctx context.Context, complaint *domain.Complaint) error
	Delete(ctx context.Context, ticket string) error
}

type redisComplaintCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisComplaintCache caches complaints as JSON under "<prefix>:<ticket>".
func NewRedisComplaintCache(client *redis.Client, prefix string, ttl time.Duration) ComplaintCache {
	return &redisComplaintCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *redisComplaintCache) Get(ctx context.Context, ticket string) (*domain.Complaint, error) {
	raw, err := c.client.Get(ctx, c.key(ticket)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var rec complaintRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	complaint := rec.toDomain()
	return &complaint, nil
}

func (c *redisComplaintCache) Set(ctx context.Context, complaint *domain.Complaint) error {
	data, err := json.Marshal(recordFromDomain(complaint))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(complaint.TicketNumber), data, c.ttl).Err()
}

func (c *redisComplaintCache) Add(ctx context.Context, complaint *domain.Complaint) error {
	data, err := json.Marshal(recordFromDomain(complaint))
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, c.key(complaint.TicketNumber), data, c.ttl).Err()
}

func (c *redisComplaintCache) Delete(ctx context.Context, ticket string) error {
	return c.client.Del(ctx, c.key(ticket)).Err()
}

func (c *redisComplaintCache) key(ticket string) string {
	return c.prefix + ":" + ticket
}

// CachedComplaintRepository is a read-through cache in front of another
// repository. Cache failures are logged and never surface to callers.
//
// Writes overwrite the cached copy while read-through fills only populate an
// empty key, so a lookup that raced a resolve cannot put the older status back.
type CachedComplaintRepository struct {
	next   ComplaintRepository
	cache  ComplaintCache
	logger *zap.Logger
}

// NewCachedComplaintRepository wraps next with cache.
func NewCachedComplaintRepository(next ComplaintRepository, cache ComplaintCache, logger *zap.Logger) *CachedComplaintRepository {
	return &CachedComplaintRepository{next: next, cache: cache, logger: logger}
}

func (r *CachedComplaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	if err := r.next.Create(ctx, complaint); err != nil {
		return err
	}
	r.store(ctx, complaint)
	return nil
}

func (r *CachedComplaintRepository) FindByTicket(ctx context.Context, ticket string) (*domain.Complaint, error) {
	cached, err := r.cache.Get(ctx, ticket)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn("complaint cache read failed", zap.String("ticket_number", ticket), zap.Error(err))
	}

	complaint, err := r.next.FindByTicket(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Add(ctx, complaint); err != nil {
		r.logger.Warn("complaint cache fill failed", zap.String("ticket_number", ticket), zap.Error(err))
	}
	return complaint, nil
}

func (r *CachedComplaintRepository) MarkResolved(ctx context.Context, ticket string) (*domain.Complaint, error) {
	complaint, err := r.next.MarkResolved(ctx, ticket)
	if err != nil {
		return nil, err
	}
	r.store(ctx, complaint)
	return complaint, nil
}

func (r *CachedComplaintRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

// store refreshes the cached copy, evicting it if the write fails so a stale
// status is never served.
func (r *CachedComplaintRepository) store(ctx context.Context, complaint *domain.Complaint) {
	if err := r.cache.Set(ctx, complaint); err != nil {
		r.logger.Warn("complaint cache write failed", zap.String("ticket_number", complaint.TicketNumber), zap.Error(err))
		if err := r.cache.Delete(ctx, complaint.TicketNumber); err != nil {
			r.logger.Warn("complaint cache evict failed", zap.String("ticket_number", complaint.TicketNumber), zap.Error(err))
		}
	}
}
