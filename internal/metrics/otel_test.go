package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectInvocations(t *testing.T, reader *metric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	for _, scopeMetrics := range rm.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name != "elseql.invocations.total" {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			if !ok {
				t.Fatalf("Expected Gauge[int64], got %T", m.Data)
			}
			results := make(map[string]int64)
			for _, dp := range gauge.DataPoints {
				if v, ok := dp.Attributes.Value("mode"); ok {
					results[v.AsString()] = dp.Value
				}
			}
			return results
		}
	}

	t.Fatal("Metric 'elseql.invocations.total' not found in collected metrics")
	return nil
}

func TestOTelGaugeFollowsStore(t *testing.T) {
	ResetForTesting()
	ResetOTelForTesting()
	defer func() {
		ResetForTesting()
		ResetOTelForTesting()
	}()

	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	if err := InitOTelMetrics(); err != nil {
		t.Fatalf("InitOTelMetrics failed: %v", err)
	}

	// Without a store every mode reports zero.
	for mode, got := range collectInvocations(t, reader) {
		if got != 0 {
			t.Errorf("Mode %s: expected 0 before the store exists, got %d", mode, got)
		}
	}

	store := newTestStore(t)
	SetStoreForTesting(store)
	_ = store.Increment(ModeSearch)
	_ = store.Increment(ModeSearch)
	_ = store.Increment(ModeRun)

	got := collectInvocations(t, reader)
	expected := map[string]int64{"search": 2, "validate": 0, "explain": 0, "shell": 0, "run": 1}
	for mode, want := range expected {
		if got[mode] != want {
			t.Errorf("Mode %s: expected %d, got %d", mode, want, got[mode])
		}
	}
}
