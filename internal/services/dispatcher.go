package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parassrivastav/traqcheck-test/internal/models"
)

type UpdateHandler interface {
	HandleInboundMessage(ctx context.Context, update *models.TelegramUpdate) error
}

// UpdateSource long-polls Telegram for updates after offset.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]models.TelegramUpdate, int64, error)
}

type Dispatcher interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(update models.TelegramUpdate) bool
}

type DispatcherOptions struct {
	Concurrency int
	QueueSize   int
	// Source enables the long-polling loop. Leave nil in webhook mode.
	Source      UpdateSource
	PollTimeout time.Duration
	RetryDelay  time.Duration
}

// dispatcher shards updates by chat id so one chat is always handled by the
// same goroutine, in arrival order.
type dispatcher struct {
	handler UpdateHandler
	opts    DispatcherOptions
	shards  []chan models.TelegramUpdate
	logger  *zap.Logger

	wg         sync.WaitGroup
	stopChan   chan struct{}
	stopOnce   sync.Once
	pollCancel context.CancelFunc

	// mu guards closing the shards against in-flight Enqueue sends.
	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(handler UpdateHandler, opts DispatcherOptions, logger *zap.Logger) Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 3 * time.Second
	}

	shards := make([]chan models.TelegramUpdate, opts.Concurrency)
	for i := range shards {
		shards[i] = make(chan models.TelegramUpdate, opts.QueueSize)
	}

	return &dispatcher{
		handler:  handler,
		opts:     opts,
		shards:   shards,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start implements Dispatcher.
func (d *dispatcher) Start(ctx context.Context) {
	d.logger.Info("🚀 Starting update dispatcher", zap.Int("workers", len(d.shards)))

	for i := range d.shards {
		d.wg.Add(1)
		go d.processUpdates(ctx, i)
	}

	if d.opts.Source != nil {
		pollCtx, cancel := context.WithCancel(ctx)
		d.pollCancel = cancel
		d.wg.Add(1)
		go d.pollUpdates(pollCtx)
	}

	d.logger.Info("✅ Update dispatcher started")
}

// Stop implements Dispatcher. New updates are refused, the poller is
// cancelled and every update already accepted is handled before Stop returns.
func (d *dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("🛑 Stopping update dispatcher...")
		close(d.stopChan)
		if d.pollCancel != nil {
			d.pollCancel()
		}

		d.mu.Lock()
		d.stopped = true
		for _, shard := range d.shards {
			close(shard)
		}
		d.mu.Unlock()

		d.wg.Wait()
		d.logger.Info("✅ Update dispatcher stopped")
	})
}

// Enqueue implements Dispatcher. It reports false once the dispatcher is stopped.
func (d *dispatcher) Enqueue(update models.TelegramUpdate) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.logger.Warn("⚠️  Dispatcher stopped, dropping update", zap.Int64("update_id", update.UpdateID))
		return false
	}

	select {
	case <-d.stopChan:
		d.logger.Warn("⚠️  Dispatcher stopped, dropping update", zap.Int64("update_id", update.UpdateID))
		return false
	default:
	}

	shard := d.shards[d.shardFor(update)]
	select {
	case shard <- update:
		return true
	case <-d.stopChan:
		d.logger.Warn("⚠️  Dispatcher stopped, dropping update", zap.Int64("update_id", update.UpdateID))
		return false
	}
}

func (d *dispatcher) shardFor(update models.TelegramUpdate) int {
	msg := update.InboundMessage()
	if msg == nil || len(d.shards) == 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(chatIDString(msg.Chat.ID)))
	return int(h.Sum32() % uint32(len(d.shards)))
}

func (d *dispatcher) processUpdates(ctx context.Context, workerID int) {
	defer d.wg.Done()
	log := d.logger.With(zap.Int("worker", workerID))

	for update := range d.shards[workerID] {
		if err := d.handle(ctx, &update); err != nil {
			log.Error("❌ Failed to process update",
				zap.Int64("update_id", update.UpdateID),
				zap.Error(err))
		}
	}
	log.Debug("👷 Worker stopped")
}

func (d *dispatcher) handle(ctx context.Context, update *models.TelegramUpdate) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling update: %v", r)
		}
	}()
	return d.handler.HandleInboundMessage(ctx, update)
}

func (d *dispatcher) pollUpdates(ctx context.Context) {
	defer d.wg.Done()
	d.logger.Info("🔄 Starting Telegram update poller")

	var offset int64
	for {
		updates, next, err := d.opts.Source.GetUpdates(ctx, offset, d.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				d.logger.Info("🔄 Telegram update poller stopped")
				return
			}
			d.logger.Warn("⚠️  Failed to fetch updates", zap.Error(err))
			select {
			case <-ctx.Done():
				d.logger.Info("🔄 Telegram update poller stopped")
				return
			case <-time.After(d.opts.RetryDelay):
			}
			continue
		}

		offset = next
		for _, update := range updates {
			if !d.Enqueue(update) {
				return
			}
		}
	}
}
