package lecture

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-live/core"
)

// Task is a best-effort write to the durable store.
type Task func(ctx context.Context) error

type namedTask struct {
	name string
	run  Task
}

// Recorder hands durable store writes off the command path: Submit never blocks,
// a fixed pool of workers runs the tasks, failures are logged and never retried.
// Each worker owns a queue and tasks are routed to it by key, so tasks sharing
// a key run one at a time in submission order.
type Recorder struct {
	logger  core.Logger
	timeout time.Duration
	queues  []chan namedTask

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder starts workers goroutines. queueSize is split evenly between them.
func NewRecorder(logger core.Logger, queueSize, workers int, timeout time.Duration) *Recorder {
	if workers <= 0 {
		workers = 1
	}
	size := queueSize / workers
	if size <= 0 {
		size = 1
	}
	rec := &Recorder{
		logger:  logger,
		timeout: timeout,
		queues:  make([]chan namedTask, workers),
	}
	rec.wg.Add(workers)
	for i := range rec.queues {
		rec.queues[i] = make(chan namedTask, size)
		go rec.work(rec.queues[i])
	}
	return rec
}

// Submit queues task on the worker owning key (a lecture id). It reports false
// if the task was dropped because that queue is full or the recorder is closed.
func (rec *Recorder) Submit(key, name string, task Task) bool {
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	if rec.closed {
		return false
	}
	select {
	case rec.queues[rec.shard(key)] <- namedTask{name: name, run: task}:
		return true
	default:
		metricPersistFailures.WithLabelValues(name).Inc()
		rec.logger.Warn("persistence queue full, dropping " + name)
		return false
	}
}

// shard maps key to a worker with FNV-1a.
func (rec *Recorder) shard(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(rec.queues)))
}

func (rec *Recorder) work(tasks <-chan namedTask) {
	defer rec.wg.Done()
	for task := range tasks {
		rec.run(task)
	}
}

func (rec *Recorder) run(task namedTask) {
	ctx := context.Background()
	if rec.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rec.timeout)
		defer cancel()
	}
	if err := task.run(ctx); err != nil {
		metricPersistFailures.WithLabelValues(task.name).Inc()
		rec.logger.Error("persisting "+task.name, errors.Wrap(err, task.name))
	}
}

// Close stops accepting tasks and waits for the queued ones to finish.
func (rec *Recorder) Close() {
	rec.mu.Lock()
	if rec.closed {
		rec.mu.Unlock()
		return
	}
	rec.closed = true
	for _, q := range rec.queues {
		close(q)
	}
	rec.mu.Unlock()
	rec.wg.Wait()
}
