package animation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/ttstalker/internal/metrics"
	"github.com/dgnsrekt/ttstalker/internal/queue"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// WorkerStats reports what the worker has done so far.
type WorkerStats struct {
	Processed int64
	Published int64
	Dropped   int64

	// Queued is the number of markers waiting; QueuePeak the most ever waiting.
	Queued    int
	QueuePeak int
}

// Worker consumes markers from a queue and publishes the resolved commands.
// A single goroutine runs the loop, so commands are published in queue order.
type Worker struct {
	queue  *queue.MarkerQueue
	mapper *Mapper
	port   ttypes.OutputPort

	enabled atomic.Bool

	processed atomic.Int64
	published atomic.Int64
	dropped   atomic.Int64

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewWorker creates a worker. Execution starts enabled.
func NewWorker(q *queue.MarkerQueue, mapper *Mapper, port ttypes.OutputPort) *Worker {
	w := &Worker{
		queue:  q,
		mapper: mapper,
		port:   port,
		done:   make(chan struct{}),
	}
	w.enabled.Store(true)
	return w
}

// SetEnabled toggles marker execution. Markers dequeued while disabled are dropped.
func (w *Worker) SetEnabled(enabled bool) {
	w.enabled.Store(enabled)
}

// Enabled reports whether marker execution is on.
func (w *Worker) Enabled() bool {
	return w.enabled.Load()
}

// Enqueue hands a marker to the worker without waiting.
func (w *Worker) Enqueue(ev ttypes.Event) error {
	if err := w.queue.Enqueue(ev); err != nil {
		return err
	}
	w.observeQueue()
	return nil
}

// observeQueue exports the queue depth and high-water mark.
func (w *Worker) observeQueue() {
	stats := w.queue.GetStats()
	metrics.QueueDepth.Set(float64(stats.CurrentSize))
	metrics.QueuePeak.Set(float64(stats.PeakSize))
}

// Start runs the worker loop in a new goroutine.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Animation worker stopped", "error", err)
		}
	}()
}

// Run processes markers until ctx is cancelled or the queue is closed.
// Only one Run may be active at a time.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("animation worker already running")
	}
	w.running = true
	w.mu.Unlock()
	defer close(w.done)

	stop := context.AfterFunc(ctx, func() { _ = w.queue.Close() })
	defer stop()

	log.Debug("Animation worker started")
	for {
		ev, err := w.queue.Dequeue()
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) {
				log.Debug("Animation worker stopped")
				return ctx.Err()
			}
			return err
		}
		w.observeQueue()
		w.process(ev)
	}
}

// Stop closes the queue and waits for a running loop to return.
func (w *Worker) Stop() {
	_ = w.queue.Close()

	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if running {
		<-w.done
	}
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() WorkerStats {
	q := w.queue.GetStats()
	return WorkerStats{
		Processed: w.processed.Load(),
		Published: w.published.Load(),
		Dropped:   w.dropped.Load(),
		Queued:    q.CurrentSize,
		QueuePeak: q.PeakSize,
	}
}

func (w *Worker) process(ev ttypes.Event) {
	defer w.processed.Add(1)

	if !w.Enabled() {
		log.Info("Marker execution disabled, dropping", "marker", ev.Name)
		w.drop("disabled")
		return
	}

	cmd, err := w.mapper.Resolve(ev.Name)
	if err != nil {
		if errors.Is(err, ErrUnmapped) {
			base, _, _ := cutBase(ev.Name)
			log.Warn("Marker is not configured", "marker", ev.Name, "suggestions", w.mapper.Suggest(base))
			w.drop("unmapped")
			return
		}
		log.Error("Can't resolve marker", "marker", ev.Name, "error", err)
		w.drop("bad_marker")
		return
	}

	switch cmd.Kind {
	case ttypes.AnimationGesture:
		log.Info("Run gesture", "name", cmd.Gesture.Name, "speed", cmd.Gesture.Speed, "magnitude", cmd.Gesture.Magnitude)
		err = w.port.PublishGesture(*cmd.Gesture)
	case ttypes.AnimationEmotion:
		log.Info("Run emotion", "name", cmd.Emotion.Name, "magnitude", cmd.Emotion.Magnitude, "duration", cmd.Emotion.Duration)
		err = w.port.PublishEmotion(*cmd.Emotion)
	}
	if err != nil {
		log.Error("Can't publish animation", "marker", ev.Name, "error", err)
		w.drop("publish_failed")
		return
	}

	w.published.Add(1)
	metrics.AnimationsEmitted.WithLabelValues(string(cmd.Kind)).Inc()
}

func (w *Worker) drop(reason string) {
	w.dropped.Add(1)
	metrics.DroppedEvents.WithLabelValues(reason).Inc()
}
