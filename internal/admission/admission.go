// Package admission 控制生成类请求的并发：同一时刻只有一个任务占用后端
//
// 两种入口共享同一个槽位：
//   - Enqueue: 排队执行，队列有上限，按 FIFO 顺序逐个运行
//   - TryAcquire: 立即占用槽位，槽位被占用或有任务排队时失败
package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxBacklog 等待队列的默认上限
const DefaultMaxBacklog = 50

var (
	// ErrQueueFull 等待队列已满
	ErrQueueFull = errors.New("admission: waiting list is full")
	// ErrBusy 槽位被占用
	ErrBusy = errors.New("admission: another request is in progress")
	// ErrClosed 控制器已关闭
	ErrClosed = errors.New("admission: closed")
)

// Job 排队执行的任务
type Job func(ctx context.Context) error

// Ticket 入队结果
type Ticket struct {
	ID uuid.UUID
	// Ahead 排在前面的请求数（包括正在执行的），0 表示立即执行
	Ahead int
}

// Snapshot 当前状态
type Snapshot struct {
	Current string
	// Since 当前请求开始占用槽位的时间
	Since   time.Time
	Waiting []string
}

type entry struct {
	id    uuid.UUID
	label string
	job   Job
}

// Option 配置 Controller
type Option func(*Controller)

// WithMaxBacklog 设置等待队列上限（<= 0 时使用默认值）
func WithMaxBacklog(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxBacklog = n
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDepthObserver 等待队列长度变化时回调
func WithDepthObserver(fn func(depth int)) Option {
	return func(c *Controller) {
		c.onDepth = fn
	}
}

// Controller 单槽位准入控制器，并发安全
type Controller struct {
	sem        *semaphore.Weighted
	maxBacklog int
	logger     *slog.Logger
	onDepth    func(int)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	waiting  []entry
	current  string
	since    time.Time
	draining bool
	closed   bool
}

// New 创建控制器
func New(opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		sem:        semaphore.NewWeighted(1),
		maxBacklog: DefaultMaxBacklog,
		logger:     slog.Default(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enqueue 把任务加入等待队列
//
// 返回的 Ticket.Ahead 是排在它前面的请求数。队列满时返回 ErrQueueFull。
// 任务在后台 goroutine 中执行，返回的错误只记录日志。
func (c *Controller) Enqueue(label string, job Job) (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Ticket{}, ErrClosed
	}
	if len(c.waiting) >= c.maxBacklog {
		return Ticket{}, ErrQueueFull
	}

	ahead := len(c.waiting)
	if c.current != "" {
		ahead++
	}
	e := entry{id: uuid.New(), label: label, job: job}
	c.waiting = append(c.waiting, e)
	c.observe()

	if !c.draining {
		c.draining = true
		c.wg.Add(1)
		go c.drain()
	}

	c.logger.Debug("job enqueued", "job_id", e.id, "label", label, "ahead", ahead)
	return Ticket{ID: e.id, Ahead: ahead}, nil
}

// TryAcquire 立即占用槽位，返回释放函数（可重复调用）
//
// 槽位被占用或有任务在排队时返回 ErrBusy。
func (c *Controller) TryAcquire(label string) (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if len(c.waiting) > 0 || !c.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	c.current = label
	c.since = time.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.current = ""
			c.mu.Unlock()
			c.sem.Release(1)
		})
	}, nil
}

// List 返回正在执行的请求和等待队列
func (c *Controller) List() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	waiting := make([]string, len(c.waiting))
	for i, e := range c.waiting {
		waiting[i] = e.label
	}
	snap := Snapshot{Current: c.current, Waiting: waiting}
	if c.current != "" {
		snap.Since = c.since
	}
	return snap
}

// Busy 槽位是否被占用
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != ""
}

// Wait 等待队列中的任务全部执行完
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close 拒绝新请求，取消正在执行的任务的 context，并丢弃尚未开始的任务
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	dropped := len(c.waiting)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	if dropped > 0 {
		c.logger.Warn("admission closed with waiting jobs", "dropped", dropped)
	}
}

// drain 逐个执行队首任务；队首在拿到槽位之前一直留在等待队列中
func (c *Controller) drain() {
	defer c.wg.Done()

	for {
		c.mu.Lock()
		if len(c.waiting) == 0 || c.closed {
			c.waiting = nil
			c.draining = false
			c.observe()
			c.mu.Unlock()
			return
		}
		head := c.waiting[0]
		c.mu.Unlock()

		if err := c.sem.Acquire(c.ctx, 1); err != nil {
			continue
		}

		c.mu.Lock()
		c.waiting = c.waiting[1:]
		c.current = head.label
		c.since = time.Now()
		c.observe()
		c.mu.Unlock()

		c.run(head)

		c.mu.Lock()
		c.current = ""
		c.mu.Unlock()
		c.sem.Release(1)
	}
}

func (c *Controller) run(e entry) {
	logger := c.logger.With("job_id", e.id, "label", e.label)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("queued job panicked", "panic", fmt.Sprint(r))
		}
	}()

	logger.Debug("job started")
	if err := e.job(c.ctx); err != nil {
		logger.Error("queued job failed", "error", err)
		return
	}
	logger.Debug("job finished")
}

// observe 必须在持有 mu 时调用
func (c *Controller) observe() {
	if c.onDepth != nil {
		c.onDepth(len(c.waiting))
	}
}
