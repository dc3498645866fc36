package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdvisoryLocker serializes work per chat across every process sharing the
// database, using Postgres session-level advisory locks keyed by the chat id.
type AdvisoryLocker struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAdvisoryLocker(db *gorm.DB, logger *zap.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, logger: logger}
}

// WithLock runs fn while holding the advisory lock for key. The lock and its
// release happen on the same pooled connection.
func (l *AdvisoryLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return l.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SELECT pg_advisory_lock(hashtext(?))", key).Error; err != nil {
			return fmt.Errorf("failed to acquire chat lock: %w", err)
		}
		defer func() {
			// release must not be tied to a cancelled turn context
			if err := conn.WithContext(context.Background()).
				Exec("SELECT pg_advisory_unlock(hashtext(?))", key).Error; err != nil {
				l.logger.Error("failed to release chat lock", zap.String("chat_id", key), zap.Error(err))
			}
		}()

		return fn(ctx)
	})
}
