package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akarlsen/craftwatch/internal/events"
	"github.com/akarlsen/craftwatch/internal/model"
)

// WriterConfig holds batch writer settings.
type WriterConfig struct {
	Instance      string // panel instance ID, written with every row
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1000,
	}
}

// WriterMetrics tracks writer activity.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// Writer consumes lifecycle transitions and writes them to the
// status_transitions table.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *events.Queue[model.Transition]
	db    *pgxpool.Pool

	batch   []transitionRow
	batchMu sync.Mutex

	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

type transitionRow struct {
	Instance     string
	FromStatus   string
	ToStatus     string
	TransitionAt int64 // microseconds since epoch
}

// NewWriter creates a writer draining input into db.
func NewWriter(cfg WriterConfig, input *events.Queue[model.Transition], db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]transitionRow, 0, cfg.BatchSize),
	}
}

// Record is a convenience producer for the input queue. Drops the
// transition when the queue is closed.
func (w *Writer) Record(tr model.Transition) {
	w.input.Push(tr)
}

// Start begins consuming transitions and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("history writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes what remains.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping history writer")

	if w.cancel != nil {
		w.cancel()
	}
	w.input.Close()

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("history writer stopped")
	case <-ctx.Done():
		w.logger.Warn("history writer stop timed out")
	}

	// Final flush picks up anything the consumer left behind.
	for _, tr := range w.input.Drain(0) {
		w.handleTransition(tr)
	}
	w.flush(context.Background())

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			tr, ok := w.input.TryPop()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleTransition(tr)
		}
	}
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

func (w *Writer) handleTransition(tr model.Transition) {
	row := w.transform(tr)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

func (w *Writer) transform(tr model.Transition) transitionRow {
	return transitionRow{
		Instance:     w.cfg.Instance,
		FromStatus:   string(tr.From),
		ToStatus:     string(tr.To),
		TransitionAt: tr.At.UnixMicro(),
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]transitionRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed transitions",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []transitionRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO status_transitions (instance, from_status, to_status, transition_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (instance, transition_at) DO NOTHING
		`, r.Instance, r.FromStatus, r.ToStatus, r.TransitionAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
