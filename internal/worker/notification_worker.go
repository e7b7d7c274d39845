package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/observability"
	"github.com/spec-kit/support-engine/internal/service"
)

// DeliverySink pushes one intent toward a recipient. A sink that does not
// handle the recipient returns nil and does nothing.
type DeliverySink interface {
	Name() string
	Deliver(ctx context.Context, intent service.NotificationIntent) error
}

// retryBufferCap bounds parked intents; beyond it the oldest are discarded.
const retryBufferCap = 512

// NotificationWorker drains the buffered intent queue and fans each intent
// out to every sink. Failed intents are parked and re-queued by the retry
// task until the attempt ceiling is hit.
type NotificationWorker struct {
	queue       chan service.NotificationIntent
	sinks       []DeliverySink
	metrics     *observability.Metrics
	logger      *zap.Logger
	maxAttempts int

	retryMu sync.Mutex
	retries []service.NotificationIntent

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// NewNotificationWorker builds the worker. Start must be called before
// intents are delivered; Enqueue is safe immediately.
func NewNotificationWorker(queueSize, maxAttempts int, sinks []DeliverySink, metrics *observability.Metrics, logger *zap.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &NotificationWorker{
		queue:       make(chan service.NotificationIntent, queueSize),
		sinks:       sinks,
		metrics:     metrics,
		logger:      logger,
		maxAttempts: maxAttempts,
		stop:        make(chan struct{}),
	}
}

// Enqueue implements service.IntentQueue. It never blocks; a full queue
// drops the intent.
func (w *NotificationWorker) Enqueue(intent service.NotificationIntent) bool {
	select {
	case w.queue <- intent:
		return true
	default:
		w.metrics.RecordNotificationDrop()
		return false
	}
}

// Start launches the drain loop.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			case intent := <-w.queue:
				w.deliver(ctx, intent)
			}
		}
	}()
}

// Stop halts the drain loop and waits for the in-flight delivery. Intents
// still queued are dropped; they are best-effort by contract.
func (w *NotificationWorker) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *NotificationWorker) deliver(ctx context.Context, intent service.NotificationIntent) {
	intent.Attempts++
	failed := false
	for _, sink := range w.sinks {
		err := sink.Deliver(ctx, intent)
		w.metrics.RecordDelivery(sink.Name(), err == nil)
		if err != nil {
			failed = true
			w.logger.Warn("notification delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("recipient", intent.Recipient),
				zap.String("event_type", string(intent.Event.Type)),
				zap.Int("attempt", intent.Attempts),
				zap.Error(err))
		}
	}
	if !failed {
		return
	}
	if intent.Attempts >= w.maxAttempts {
		w.metrics.RecordNotificationDrop()
		w.logger.Error("notification dropped after retries",
			zap.String("recipient", intent.Recipient),
			zap.String("event_type", string(intent.Event.Type)),
			zap.Int("attempts", intent.Attempts))
		return
	}
	w.park(intent)
}

func (w *NotificationWorker) park(intent service.NotificationIntent) {
	w.retryMu.Lock()
	defer w.retryMu.Unlock()
	if len(w.retries) >= retryBufferCap {
		w.retries = w.retries[1:]
		w.metrics.RecordNotificationDrop()
	}
	w.retries = append(w.retries, intent)
}

// takeParked drains the retry buffer.
func (w *NotificationWorker) takeParked() []service.NotificationIntent {
	w.retryMu.Lock()
	defer w.retryMu.Unlock()
	parked := w.retries
	w.retries = nil
	return parked
}

// NotificationRetryTask periodically re-queues parked intents.
type NotificationRetryTask struct {
	worker   *NotificationWorker
	logger   *zap.Logger
	interval time.Duration
}

// NewNotificationRetryTask builds the retry task.
func NewNotificationRetryTask(worker *NotificationWorker, logger *zap.Logger, interval time.Duration) *NotificationRetryTask {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &NotificationRetryTask{worker: worker, logger: logger, interval: interval}
}

// Name implements Task.
func (t *NotificationRetryTask) Name() string { return "notification_retry" }

// Schedule implements Task.
func (t *NotificationRetryTask) Schedule() string {
	return "@every " + t.interval.String()
}

// Timeout implements Task.
func (t *NotificationRetryTask) Timeout() time.Duration { return t.interval }

// Run re-queues everything parked since the last sweep. Intents that do not
// fit back into the queue return to the buffer for the next pass.
func (t *NotificationRetryTask) Run(_ context.Context) error {
	parked := t.worker.takeParked()
	if len(parked) == 0 {
		return nil
	}
	requeued := 0
	for _, intent := range parked {
		if t.worker.Enqueue(intent) {
			requeued++
			continue
		}
		t.worker.park(intent)
	}
	t.logger.Info("notification retry sweep",
		zap.Int("parked", len(parked)),
		zap.Int("requeued", requeued))
	return nil
}
