package ingestion

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/observability"
	"customer-rfm-lab/internal/storage"
)

// DefaultBatchSize is the number of records per InsertBulk call.
const DefaultBatchSize = 1000

// Loader bulk-loads customer-order records into a store in fixed-size batches.
type Loader struct {
	store     storage.CustomerOrderStore
	batchSize int
	progress  io.Writer
	metrics   *observability.Metrics
	database  string
	log       logrus.FieldLogger
}

// NewLoader creates a loader writing into store.
// A batchSize <= 0 falls back to DefaultBatchSize.
func NewLoader(store storage.CustomerOrderStore, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{
		store:     store,
		batchSize: batchSize,
		progress:  io.Discard,
		metrics:   observability.NewMetrics(""),
		database:  "unknown",
		log:       logrus.StandardLogger(),
	}
}

// WithProgress renders a progress bar to w.
func (l *Loader) WithProgress(w io.Writer) *Loader {
	if w == nil {
		w = io.Discard
	}
	l.progress = w
	return l
}

// WithMetrics sets the metrics instance and the database label used for it.
func (l *Loader) WithMetrics(m *observability.Metrics, database string) *Loader {
	l.metrics = m
	l.database = database
	return l
}

// WithLogger sets the logger.
func (l *Loader) WithLogger(log logrus.FieldLogger) *Loader {
	l.log = log
	return l
}

// LoadResult summarizes a bulk load.
type LoadResult struct {
	Records int
	Batches int
}

// Load inserts records in order. The target store must not already hold any
// of the row indexes; a failed batch aborts the load and earlier batches stay.
func (l *Loader) Load(ctx context.Context, records []*domain.CustomerOrderRecord) (LoadResult, error) {
	var res LoadResult

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionSetWriter(l.progress),
		progressbar.OptionSetDescription("loading customer_orders"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	for start := 0; start < len(records); start += l.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		end := start + l.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		err := l.store.InsertBulk(ctx, batch)
		l.metrics.IngestBatches.Inc()
		if err != nil {
			l.metrics.IngestFailures.Inc()
			return res, fmt.Errorf("insert rows %d..%d: %w", start, end-1, err)
		}

		res.Records += len(batch)
		res.Batches++
		l.metrics.RecordsStored.WithLabelValues(l.database).Add(float64(len(batch)))
		_ = bar.Add(len(batch))
	}
	_ = bar.Finish()

	l.log.WithFields(logrus.Fields{
		"database": l.database,
		"records":  res.Records,
		"batches":  res.Batches,
	}).Info("bulk load complete")

	return res, nil
}
