package worker

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/kafka"
	"github.com/Abhijeet14d/KrishiBandhu/logger"
	"github.com/Abhijeet14d/KrishiBandhu/models"
	"go.uber.org/zap"
)

// WorkerPool publishes turn events off the conversational turn path.
// Events are partitioned by conversation id so that, per conversation,
// they are published in the order they were submitted.
type WorkerPool struct {
	workers    int
	partitions []chan models.TurnEvent
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	// Metrics
	mu                 sync.RWMutex
	eventsPublished    uint64
	publishingDuration uint64
	bufferFillLevels   []uint64
	eventsDropped      uint64
}

func NewWorkerPool(workers int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	partitions := make([]chan models.TurnEvent, workers)
	bufferLevels := make([]uint64, workers)
	for i := range partitions {
		partitions[i] = make(chan models.TurnEvent, 100) // Buffer size of 100 per partition
	}
	return &WorkerPool{
		workers:          workers,
		partitions:       partitions,
		ctx:              ctx,
		cancelFunc:       cancel,
		bufferFillLevels: bufferLevels,
	}
}

func (wp *WorkerPool) Start() {
	logger.Get().Info("Starting worker pool", zap.Int("workers", wp.workers))
	for i := range wp.partitions {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) Stop() {
	logger.Get().Info("Stopping worker pool")
	wp.cancelFunc()
	for _, ch := range wp.partitions {
		close(ch)
	}
	wp.wg.Wait()
}

// Submit queues one turn event. Events for the same conversation hash
// to the same partition.
func (wp *WorkerPool) Submit(event models.TurnEvent) {
	partition := wp.partitionFor(event.ConversationID)

	wp.mu.Lock()
	wp.bufferFillLevels[partition]++
	wp.mu.Unlock()

	select {
	case wp.partitions[partition] <- event:
		logger.Get().Debug("Turn event submitted to worker pool",
			zap.Int("partition", partition))
	case <-wp.ctx.Done():
		wp.mu.Lock()
		wp.eventsDropped++
		wp.mu.Unlock()
		logger.Get().Warn("Worker pool is stopped, turn event not submitted")
	}
}

func (wp *WorkerPool) partitionFor(conversationID string) int {
	h := fnv.New32a()
	h.Write([]byte(conversationID))
	return int(h.Sum32() % uint32(wp.workers))
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	logger.Get().Info("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case event, ok := <-wp.partitions[id]:
			if !ok {
				logger.Get().Info("Worker stopping", zap.Int("worker_id", id))
				return
			}

			wp.mu.Lock()
			wp.bufferFillLevels[id]--
			wp.mu.Unlock()

			startTime := time.Now()

			payload, err := json.Marshal(event)
			if err != nil {
				wp.mu.Lock()
				wp.eventsDropped++
				wp.mu.Unlock()
				logger.Get().Error("Failed to marshal turn event",
					zap.Int("worker_id", id),
					zap.Error(err))
				continue
			}

			if err := kafka.ProduceTurnEvent(event.ConversationID, payload); err != nil {
				wp.mu.Lock()
				wp.eventsDropped++
				wp.mu.Unlock()
				continue
			}

			wp.mu.Lock()
			wp.eventsPublished++
			wp.publishingDuration += uint64(time.Since(startTime).Milliseconds())
			wp.mu.Unlock()

		case <-wp.ctx.Done():
			logger.Get().Info("Worker stopping due to context cancellation",
				zap.Int("worker_id", id))
			return
		}
	}
}

// MetricsHandler returns the current metrics as JSON
func (wp *WorkerPool) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	var avgPublishingTime float64
	if wp.eventsPublished > 0 {
		avgPublishingTime = float64(wp.publishingDuration) / float64(wp.eventsPublished)
	}

	metrics := map[string]any{
		"events_published":  wp.eventsPublished,
		"events_dropped":    wp.eventsDropped,
		"avg_publishing_ms": avgPublishingTime,
		"buffer_levels":     wp.bufferFillLevels,
		"active_workers":    wp.workers,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics)
}
