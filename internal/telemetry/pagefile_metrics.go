package internaltelemetry

import (
	"go.opentelemetry.io/otel/metric"
)

// PageFileMetrics holds all the metric instruments for the page file layer.
type PageFileMetrics struct {
	PagesReadCounter       metric.Int64Counter
	PagesWrittenCounter    metric.Int64Counter
	PagesAppendedCounter   metric.Int64Counter
	ErrorsCounter          metric.Int64Counter
	IOLatencyHistogram     metric.Int64Histogram
	OpenHandlesUpDownCount metric.Int64UpDownCounter
}

// NewPageFileMetrics creates and registers all the metrics for the page file layer.
func NewPageFileMetrics(meter metric.Meter) (*PageFileMetrics, error) {
	pagesReadCounter, err := meter.Int64Counter(
		"pagestore.pagefile.pages_read_total",
		metric.WithDescription("Total number of pages read from disk."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	pagesWrittenCounter, err := meter.Int64Counter(
		"pagestore.pagefile.pages_written_total",
		metric.WithDescription("Total number of pages written to disk."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	pagesAppendedCounter, err := meter.Int64Counter(
		"pagestore.pagefile.pages_appended_total",
		metric.WithDescription("Total number of empty pages appended to page files."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	errorsCounter, err := meter.Int64Counter(
		"pagestore.pagefile.errors_total",
		metric.WithDescription("Total number of failed page file operations, by op and kind."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	ioLatencyHistogram, err := meter.Int64Histogram(
		"pagestore.pagefile.io.duration",
		metric.WithDescription("The latency of page file I/O operations."),
		metric.WithUnit("us"),
	)
	if err != nil {
		return nil, err
	}

	openHandles, err := meter.Int64UpDownCounter(
		"pagestore.pagefile.open_handles",
		metric.WithDescription("Number of currently open page file handles."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &PageFileMetrics{
		PagesReadCounter:       pagesReadCounter,
		PagesWrittenCounter:    pagesWrittenCounter,
		PagesAppendedCounter:   pagesAppendedCounter,
		ErrorsCounter:          errorsCounter,
		IOLatencyHistogram:     ioLatencyHistogram,
		OpenHandlesUpDownCount: openHandles,
	}, nil
}
