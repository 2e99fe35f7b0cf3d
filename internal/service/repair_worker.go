package service

import (
	"context"
	"sync"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/pkg/config"

	"go.uber.org/zap"
)

// RepairWorker drains the repair queue in the background. Entries land there
// when an incremental balance update and its fallback recompute both failed;
// the worker retries the full recompute until it succeeds or the entry
// exhausts its attempts.
type RepairWorker struct {
	repairs    repository.RepairRepository
	maintainer *BalanceMaintainer
	logger     *zap.Logger

	pollInterval time.Duration
	batchSize    int
	maxRetries   int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRepairWorker(
	repairs repository.RepairRepository,
	maintainer *BalanceMaintainer,
	cfg *config.RepairConfig,
	logger *zap.Logger,
) *RepairWorker {
	return &RepairWorker{
		repairs:      repairs,
		maintainer:   maintainer,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		maxRetries:   cfg.MaxRetries,
	}
}

func (w *RepairWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.run()
	w.logger.Info("Repair worker started",
		zap.Duration("poll_interval", w.pollInterval),
		zap.Int("batch_size", w.batchSize))
}

func (w *RepairWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.logger.Info("Repair worker stopped")
}

func (w *RepairWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *RepairWorker) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.ProcessBatch(context.Background())
		}
	}
}

// ProcessBatch dequeues and repairs one batch. Exported so startup can flush
// the queue once before the ticker takes over.
func (w *RepairWorker) ProcessBatch(ctx context.Context) {
	items, err := w.repairs.DequeueBatch(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("Failed to dequeue repair batch", zap.Error(err))
		return
	}
	if len(items) == 0 {
		return
	}

	w.logger.Info("Processing repair batch", zap.Int("count", len(items)))
	for _, item := range items {
		w.processItem(ctx, item)
	}
}

func (w *RepairWorker) processItem(ctx context.Context, item *models.RepairItem) {
	var err error
	switch item.EntityType {
	case models.RepairEntityAccount:
		err = w.maintainer.RecomputeAccount(ctx, item.EntityID)
	case models.RepairEntityCategory:
		err = w.maintainer.RecomputeCategoryChain(ctx, item.EntityID)
	default:
		w.logger.Warn("Dropping repair item with unknown entity type",
			zap.String("entity_type", item.EntityType),
			zap.String("entity_id", item.EntityID.String()))
		if delErr := w.repairs.Delete(ctx, item.ID); delErr != nil {
			w.logger.Error("Failed to drop repair item", zap.Int64("item_id", item.ID), zap.Error(delErr))
		}
		return
	}

	if err == nil {
		if delErr := w.repairs.Delete(ctx, item.ID); delErr != nil {
			w.logger.Error("Failed to remove repaired item", zap.Int64("item_id", item.ID), zap.Error(delErr))
		}
		w.logger.Info("Repaired entity",
			zap.String("entity_type", item.EntityType),
			zap.String("entity_id", item.EntityID.String()))
		return
	}

	w.logger.Error("Repair attempt failed",
		zap.String("entity_type", item.EntityType),
		zap.String("entity_id", item.EntityID.String()),
		zap.Int64("attempts", item.Attempts+1),
		zap.Error(err))

	if item.Attempts+1 >= int64(w.maxRetries) {
		w.logger.Error("Repair item exceeded max retries, dropping",
			zap.String("entity_id", item.EntityID.String()),
			zap.Int("max_retries", w.maxRetries))
		if delErr := w.repairs.Delete(ctx, item.ID); delErr != nil {
			w.logger.Error("Failed to drop exhausted repair item", zap.Int64("item_id", item.ID), zap.Error(delErr))
		}
		return
	}
	if markErr := w.repairs.MarkAttempt(ctx, item.ID, err.Error()); markErr != nil {
		w.logger.Error("Failed to record repair attempt", zap.Int64("item_id", item.ID), zap.Error(markErr))
	}
}
