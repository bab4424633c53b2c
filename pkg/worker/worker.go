// Package worker builds exact geometry on a dedicated goroutine. The
// orchestrator submits a snapshot of the node tree and later receives
// exactly one completion for it on the Done channel.
package worker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/lathe/pkg/graph"
	"github.com/chazu/lathe/pkg/kernel"
	"github.com/chazu/lathe/pkg/metrics"
	"github.com/chazu/lathe/pkg/tessellate"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lathe.worker")

// ErrStopped is delivered for submissions made after Stop and for queued
// jobs that Stop found unstarted.
var ErrStopped = errors.New("worker: stopped")

const (
	defaultCacheSize = 32
	defaultQueueSize = 16
)

// Handle identifies one submission.
type Handle struct {
	ID  uuid.UUID
	Key [32]byte
}

func (h Handle) String() string {
	return h.ID.String()
}

// Result is an exact mesh and its statistics.
type Result struct {
	Mesh      *kernel.Mesh
	Vertices  int
	Triangles int
	Min, Max  [3]float32
	Elapsed   time.Duration
	Cached    bool
}

func newResult(m *kernel.Mesh, elapsed time.Duration) *Result {
	r := &Result{
		Mesh:      m,
		Vertices:  m.VertexCount(),
		Triangles: m.TriangleCount(),
		Elapsed:   elapsed,
	}
	r.Min, r.Max = m.Bounds()
	return r
}

// Completion is delivered once per submission. Exactly one of Result and
// Err is set.
type Completion struct {
	Handle Handle
	Result *Result
	Err    error
}

// Options configures a Worker.
type Options struct {
	CacheSize int
	QueueSize int
	Metrics   *metrics.Metrics
}

type job struct {
	handle Handle
	root   *graph.Node
}

// Worker serializes exact geometry construction through a single
// goroutine. Results are cached by the tree's content key.
type Worker struct {
	kernel  kernel.Kernel
	metrics *metrics.Metrics
	cache   *lru.Cache[[32]byte, *Result]

	requests chan job
	done     chan Completion
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Worker and starts the processing goroutine.
func New(k kernel.Kernel, opts Options) (*Worker, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	cache, err := lru.New[[32]byte, *Result](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("worker: cache: %w", err)
	}
	// done holds a full queue and the job in flight on top of a queue's
	// worth of completions nobody has read yet.
	w := &Worker{
		kernel:   k,
		metrics:  opts.Metrics,
		cache:    cache,
		requests: make(chan job, opts.QueueSize),
		done:     make(chan Completion, 2*opts.QueueSize+1),
		quit:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Submit queues a copy of the tree rooted at root. The caller keeps
// ownership of root and may discard it as soon as Submit returns. Submit
// blocks only while the queue is full.
func (w *Worker) Submit(root *graph.Node, key [32]byte) Handle {
	h := Handle{ID: uuid.New(), Key: key}
	j := job{handle: h, root: graph.Clone(root)}
	select {
	case <-w.quit:
		w.deliver(Completion{Handle: h, Err: ErrStopped})
	default:
		select {
		case w.requests <- j:
			log.Debugf("submitted job %s", h)
			// Stop may have drained the queue before the send landed.
			select {
			case <-w.quit:
				w.drain()
			default:
			}
		case <-w.quit:
			w.deliver(Completion{Handle: h, Err: ErrStopped})
		}
	}
	return h
}

// Done delivers completions in submission order.
func (w *Worker) Done() <-chan Completion {
	return w.done
}

// FlushCache discards all cached results.
func (w *Worker) FlushCache() {
	w.cache.Purge()
}

// CacheLen returns the number of cached results.
func (w *Worker) CacheLen() int {
	return w.cache.Len()
}

// Stop shuts down the worker goroutine and waits for it to exit. The job
// in flight finishes and every queued job completes with ErrStopped.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
	})
	w.wg.Wait()
}

// deliver sends a completion without blocking a stopped worker.
func (w *Worker) deliver(c Completion) {
	select {
	case w.done <- c:
	default:
		log.Warningf("dropped completion for job %s", c.Handle)
	}
}

// drain completes every queued job with ErrStopped.
func (w *Worker) drain() {
	for {
		select {
		case j := <-w.requests:
			w.deliver(Completion{Handle: j.handle, Err: ErrStopped})
		default:
			return
		}
	}
}

// loop processes jobs sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.quit:
			w.drain()
			return
		default:
		}
		select {
		case j := <-w.requests:
			c := w.execute(j)
			select {
			case w.done <- c:
			case <-w.quit:
				w.deliver(c)
				w.drain()
				return
			}
		case <-w.quit:
			w.drain()
			return
		}
	}
}

// execute builds the mesh for one job, recovering from kernel panics.
func (w *Worker) execute(j job) (c Completion) {
	start := time.Now()
	c.Handle = j.handle

	if cached, ok := w.cache.Get(j.handle.Key); ok {
		r := *cached
		r.Cached = true
		r.Elapsed = time.Since(start)
		c.Result = &r
		w.metrics.ObserveWorkerJob(r.Elapsed.Seconds(), nil, true)
		log.Debugf("job %s served from cache", j.handle)
		return c
	}

	defer func() {
		if r := recover(); r != nil {
			c.Result = nil
			c.Err = fmt.Errorf("worker: panic: %v", r)
		}
		if c.Err != nil {
			log.Errorf("job %s failed: %s", j.handle, c.Err)
		}
		w.metrics.ObserveWorkerJob(time.Since(start).Seconds(), c.Err, false)
	}()

	mesh, err := tessellate.Tessellate(j.root, w.kernel)
	if err != nil {
		c.Err = err
		return c
	}
	c.Result = newResult(mesh, time.Since(start))
	w.cache.Add(j.handle.Key, c.Result)
	log.Debugf("job %s: %d triangles in %s", j.handle, c.Result.Triangles, c.Result.Elapsed)
	return c
}
