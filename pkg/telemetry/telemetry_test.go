package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	internaltelemetry "github.com/sushant-115/pagestore/internal/telemetry"
)

func TestDisabledIsNoop(t *testing.T) {
	tel, shutdown, err := New(Config{Enabled: false})
	require.NoError(t, err)
	require.Nil(t, tel.MeterProvider)
	require.Empty(t, tel.MetricsAddr)

	metrics, err := internaltelemetry.NewPageFileMetrics(tel.Meter)
	require.NoError(t, err)
	metrics.PagesReadCounter.Add(context.Background(), 1)

	_, span := tel.Tracer.Start(context.Background(), "noop")
	span.End()
	require.NoError(t, shutdown(context.Background()))
}

func TestEnabledServesMetrics(t *testing.T) {
	tel, shutdown, err := New(Config{Enabled: true, ServiceName: "pagestore-test", PrometheusPort: 0})
	require.NoError(t, err)
	defer func() { require.NoError(t, shutdown(context.Background())) }()

	metrics, err := internaltelemetry.NewPageFileMetrics(tel.Meter)
	require.NoError(t, err)
	metrics.PagesWrittenCounter.Add(context.Background(), 3)

	resp, err := http.Get("http://" + tel.MetricsAddr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "pagestore_pagefile_pages_written")
}

func TestSampleRatio(t *testing.T) {
	for _, tc := range []struct {
		in, want float64
	}{
		{0, 1}, {-0.5, 1}, {1.5, 1}, {1, 1}, {0.25, 0.25},
	} {
		require.Equal(t, tc.want, sampleRatio(tc.in), "sampleRatio(%v)", tc.in)
	}
}

func TestServeMetricsStopsOnShutdown(t *testing.T) {
	server, addr, err := serveMetrics(0)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, server.Shutdown(context.Background()))
	_, err = http.Get("http://" + addr + "/metrics")
	require.Error(t, err)
}

func TestShutdownRunsEveryStep(t *testing.T) {
	errTracer := errors.New("tracer stuck")
	var ran []string
	step := func(name string, err error) shutdownStep {
		return shutdownStep{name, func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			require.True(t, hasDeadline)
			ran = append(ran, name)
			return err
		}}
	}

	shutdown := shutdownAll(
		step("prometheus endpoint", nil),
		step("tracer provider", errTracer),
		step("meter provider", nil),
	)
	err := shutdown(context.Background())
	require.ErrorIs(t, err, errTracer)
	require.ErrorContains(t, err, "failed to shutdown tracer provider")
	require.Equal(t, []string{"prometheus endpoint", "tracer provider", "meter provider"}, ran)

	require.NoError(t, shutdownAll()(context.Background()))
}
