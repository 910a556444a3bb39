package pagefile

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

func errShortWrite(n int) error {
	return fmt.Errorf("short write: wrote %d of %d bytes", n, PageSize)
}

func errShortRead(n int) error {
	return fmt.Errorf("short read: read %d of %d bytes", n, PageSize)
}

// observe records latency and failures for op.
func (sm *StorageManager) observe(op, path string, start time.Time, err error) {
	if err != nil {
		sm.logger.Warn("Page file operation failed",
			zap.String("op", op),
			zap.String("path", path),
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err))
	}
	if sm.metrics == nil {
		return
	}
	ctx := context.Background()
	opAttr := attribute.String("op", op)
	sm.metrics.IOLatencyHistogram.Record(ctx, time.Since(start).Microseconds(), metric.WithAttributes(opAttr))
	if err != nil {
		sm.metrics.ErrorsCounter.Add(ctx, 1, metric.WithAttributes(opAttr, attribute.String("kind", KindOf(err).String())))
	}
}

// observe is nil-safe; failures on a nil handle are not attributable to a
// manager and go unrecorded.
func (h *Handle) observe(op string, start time.Time, err error) {
	if h == nil || h.sm == nil {
		return
	}
	h.sm.observe(op, h.fileName, start, err)
}

func (sm *StorageManager) pagesRead(n int64) {
	if sm.metrics != nil {
		sm.metrics.PagesReadCounter.Add(context.Background(), n)
	}
}

func (sm *StorageManager) pagesWritten(n int64) {
	if sm.metrics != nil {
		sm.metrics.PagesWrittenCounter.Add(context.Background(), n)
	}
}

func (sm *StorageManager) pagesAppended(n int64) {
	if sm.metrics != nil {
		sm.metrics.PagesAppendedCounter.Add(context.Background(), n)
	}
}

func (sm *StorageManager) handleOpened() {
	if sm.metrics != nil {
		sm.metrics.OpenHandlesUpDownCount.Add(context.Background(), 1)
	}
}

func (sm *StorageManager) handleClosed() {
	if sm.metrics != nil {
		sm.metrics.OpenHandlesUpDownCount.Add(context.Background(), -1)
	}
}
