package persistence

import (
	"context"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
)

// ComplaintsBucket holds complaint records keyed by ticket number.
const ComplaintsBucket = "complaints"

// Bolt wraps an embedded BoltDB file.
type Bolt struct {
	DB *bolt.DB
}

// NewBolt opens (or creates) the database file and ensures the complaints
// bucket exists.
func NewBolt(cfg config.BoltConfig, logger *zap.Logger) (*Bolt, error) {
	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(ComplaintsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("opened bolt database", zap.String("path", cfg.Path))
	return &Bolt{DB: db}, nil
}

// Close releases the file lock.
func (b *Bolt) Close() {
	if b != nil && b.DB != nil {
		_ = b.DB.Close()
	}
}

// Ping verifies the database file is readable.
func (b *Bolt) Ping(_ context.Context) error {
	if b == nil || b.DB == nil {
		return errors.New("bolt database not configured")
	}
	return b.DB.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(ComplaintsBucket)) == nil {
			return errors.New("complaints bucket missing")
		}
		return nil
	})
}
