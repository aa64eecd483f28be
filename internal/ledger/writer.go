package ledger

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hornetlabs/hornet/internal/unit"
)

// Writer serializes unit-run appends from the execution worker pool through
// a single writer goroutine, so workers completing in arbitrary order never
// contend on the database.
type Writer struct {
	store  *Store
	logger *zap.Logger
	ops    chan unit.UnitRun
	done   chan struct{}

	mu       sync.Mutex
	appended int
	failed   int
}

// NewWriter starts the write queue for a store.
func NewWriter(store *Store, logger *zap.Logger) *Writer {
	w := &Writer{
		store:  store,
		logger: logger,
		ops:    make(chan unit.UnitRun, 100),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Writer) loop() {
	for r := range w.ops {
		w.write(r)
	}
	close(w.done)
}

func (w *Writer) write(r unit.UnitRun) {
	err := w.store.AppendUnitRun(r)
	w.mu.Lock()
	if err != nil {
		w.failed++
	} else {
		w.appended++
	}
	w.mu.Unlock()
	if err != nil {
		w.logger.Error("failed to append unit run",
			zap.String("unit", r.UnitName),
			zap.Error(err))
	}
}

// Append enqueues one record. When the queue is full the record is written
// synchronously instead of being dropped.
func (w *Writer) Append(r unit.UnitRun) {
	select {
	case w.ops <- r:
	default:
		w.write(r)
	}
}

// Close drains the queue and stops the writer goroutine. It returns the
// number of records appended successfully.
func (w *Writer) Close() int {
	close(w.ops)
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.appended
}
