// Package audit records user actions (login, purchase, product edits) without
// ever blocking or failing the action being recorded.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"farmersmarket/internal/model"
)

// Action names written to the log.
const (
	ActionRegister      = "register"
	ActionLogin         = "login"
	ActionLogout        = "logout"
	ActionPurchase      = "purchase"
	ActionAddProduct    = "add_product"
	ActionUpdateProduct = "update_product"
	ActionDeleteProduct = "delete_product"
)

const (
	defaultBufferSize    = 100
	defaultBatchSize     = 10
	defaultFlushInterval = time.Second
	writeTimeout         = 5 * time.Second
)

// Recorder accepts audit entries fire-and-forget.
type Recorder interface {
	Record(ctx context.Context, userID uint, action, details string)
}

// Sink persists a batch of entries.
type Sink interface {
	Write(ctx context.Context, entries []model.ActionLog) error
}

// Reader lists the latest entries of a user, newest first.
type Reader interface {
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.ActionLog, error)
}

// Store is a Sink that can be read back.
type Store interface {
	Sink
	Reader
}

// Nop discards every entry.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, uint, string, string) {}

// Option configures a Writer.
type Option func(*Writer)

// WithBatchSize sets how many entries are buffered before a flush.
func WithBatchSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithFlushInterval sets how often a partial batch is flushed.
func WithFlushInterval(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.flushInterval = d
		}
	}
}

// WithBufferSize sets the capacity of the entry channel.
func WithBufferSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.bufferSize = n
		}
	}
}

// Writer batches entries in a background goroutine and hands them to a Sink.
// Sink failures are logged and dropped.
type Writer struct {
	sink          Sink
	log           *zap.Logger
	now           func() time.Time
	batchSize     int
	flushInterval time.Duration
	bufferSize    int

	entries chan model.ActionLog
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ Recorder = (*Writer)(nil)

// NewWriter starts a Writer over sink. Call Close to flush pending entries.
func NewWriter(sink Sink, log *zap.Logger, opts ...Option) *Writer {
	w := &Writer{
		sink:          sink,
		log:           log,
		now:           time.Now,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		bufferSize:    defaultBufferSize,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.entries = make(chan model.ActionLog, w.bufferSize)

	go w.run()
	return w
}

// Record queues an entry. When the queue is full the entry is written synchronously.
// Entries recorded after Close are dropped.
func (w *Writer) Record(ctx context.Context, userID uint, action, details string) {
	entry := model.ActionLog{
		UserID:     userID,
		Action:     action,
		Details:    details,
		ActionDate: w.now(),
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.log.Warn("audit writer closed, dropping entry", zap.String("action", action), zap.Uint("user_id", userID))
		return
	}

	select {
	case w.entries <- entry:
	default:
		// queue full, fall back to a direct write
		w.write(context.WithoutCancel(ctx), []model.ActionLog{entry})
	}
}

// Close stops accepting entries and waits until the pending ones are written.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.entries)
	w.mu.Unlock()

	<-w.done
}

func (w *Writer) run() {
	defer close(w.done)

	batch := make([]model.ActionLog, 0, w.batchSize)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.write(context.Background(), batch)
		batch = make([]model.ActionLog, 0, w.batchSize)
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= w.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (w *Writer) write(ctx context.Context, entries []model.ActionLog) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := w.sink.Write(ctx, entries); err != nil {
		w.log.Warn("audit write failed", zap.Int("entries", len(entries)), zap.Error(err))
	}
}
