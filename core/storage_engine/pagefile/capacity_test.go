package pagefile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sushant-115/pagestore/core/storage_engine/pagefile"
	internaltelemetry "github.com/sushant-115/pagestore/internal/telemetry"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func TestAppendEmptyBlock(t *testing.T) {
	h, path := setupPageFile(t, newTestManager(t))
	page := pagefile.NewPageBuffer()

	for want := 2; want <= 6; want++ {
		require.NoError(t, h.WriteBlock(h.TotalNumPages()-1, filled(0xff)))
		require.NoError(t, h.AppendEmptyBlock())
		require.Equal(t, want, h.TotalNumPages())

		require.NoError(t, h.ReadLastBlock(page))
		require.Equal(t, make([]byte, pagefile.PageSize), page, "appended page must be zero filled")
	}

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(6*pagefile.PageSize), fi.Size())
}

func TestEnsureCapacity(t *testing.T) {
	h, _ := setupPageFile(t, newTestManager(t))

	require.NoError(t, h.EnsureCapacity(4))
	require.Equal(t, 4, h.TotalNumPages())

	// Already satisfied: no growth.
	require.NoError(t, h.EnsureCapacity(4))
	require.NoError(t, h.EnsureCapacity(2))
	require.NoError(t, h.EnsureCapacity(1))
	require.Equal(t, 4, h.TotalNumPages())

	for _, n := range []int{3, 7, 5, 10, 10, 1} {
		before := h.TotalNumPages()
		require.NoError(t, h.EnsureCapacity(n))
		want := before
		if n > before {
			want = n
		}
		require.Equal(t, want, h.TotalNumPages(), "EnsureCapacity(%d) from %d pages", n, before)
	}

	page := pagefile.NewPageBuffer()
	require.NoError(t, h.ReadLastBlock(page))
	require.Equal(t, 9, h.GetBlockPos())
}

func TestEnsureCapacityRejectsNonPositive(t *testing.T) {
	h, _ := setupPageFile(t, newTestManager(t))

	for _, n := range []int{0, -1, -100} {
		err := h.EnsureCapacity(n)
		require.ErrorIs(t, err, pagefile.ErrWriteFailed, "EnsureCapacity(%d)", n)
	}
	require.Equal(t, 1, h.TotalNumPages())
}

func TestEmptyFile(t *testing.T) {
	sm := newTestManager(t)
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	h, err := sm.OpenPageFile(path)
	require.NoError(t, err)
	defer h.Close()
	require.Equal(t, 0, h.TotalNumPages())

	page := pagefile.NewPageBuffer()
	require.ErrorIs(t, h.ReadLastBlock(page), pagefile.ErrReadNonExistingPage)
	require.ErrorIs(t, h.ReadFirstBlock(page), pagefile.ErrReadNonExistingPage)
	require.ErrorIs(t, h.ReadCurrentBlock(page), pagefile.ErrReadNonExistingPage)
	require.ErrorIs(t, h.ReadNextBlock(page), pagefile.ErrReadNonExistingPage)
	require.ErrorIs(t, h.WriteCurrentBlock(page), pagefile.ErrWriteFailed)

	require.NoError(t, h.EnsureCapacity(2))
	require.Equal(t, 2, h.TotalNumPages())
	require.NoError(t, h.ReadLastBlock(page))
	require.Equal(t, 1, h.GetBlockPos())
}

func TestMetricsRecorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	metrics, err := internaltelemetry.NewPageFileMetrics(provider.Meter("pagefile_test"))
	require.NoError(t, err)
	sm := pagefile.NewStorageManager(pagefile.DefaultConfig(), zaptest.NewLogger(t), metrics)

	h, _ := setupPageFile(t, sm)
	require.NoError(t, h.EnsureCapacity(3))
	page := pagefile.NewPageBuffer()
	for i := 0; i < 3; i++ {
		require.NoError(t, h.WriteBlock(i, filled(byte(i))))
		require.NoError(t, h.ReadBlock(i, page))
	}
	require.Error(t, h.ReadBlock(-1, page))

	rm := collect(t, reader)
	require.Equal(t, int64(2), sumOf(rm, "pagestore.pagefile.pages_appended_total"))
	require.Equal(t, int64(3), sumOf(rm, "pagestore.pagefile.pages_written_total"))
	require.Equal(t, int64(3), sumOf(rm, "pagestore.pagefile.pages_read_total"))
	require.Equal(t, int64(1), sumOf(rm, "pagestore.pagefile.errors_total"))
	require.Equal(t, int64(1), sumOf(rm, "pagestore.pagefile.open_handles"))

	require.NoError(t, h.Close())
	rm = collect(t, reader)
	require.Equal(t, int64(0), sumOf(rm, "pagestore.pagefile.open_handles"))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func sumOf(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestAppendUsesActualFileLength(t *testing.T) {
	sm := newTestManager(t)
	path := filepath.Join(t.TempDir(), "ragged.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 2*pagefile.PageSize+100), 0o644))

	h, err := sm.OpenPageFile(path)
	require.NoError(t, err)
	defer h.Close()
	require.Equal(t, 2, h.TotalNumPages())

	require.NoError(t, h.AppendEmptyBlock())
	require.Equal(t, 3, h.TotalNumPages())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(3*pagefile.PageSize+100), fi.Size())
}
