package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	return m.stats
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{}
	collector := NewCollector(provider, time.Minute)

	if collector == nil {
		t.Fatal("NewCollector returned nil")
	}
	if collector.interval != time.Minute {
		t.Errorf("Expected interval 1m, got %v", collector.interval)
	}
	if collector.stop == nil || collector.done == nil {
		t.Error("Expected channels to be initialized")
	}
}

func TestCollectSetsGauges(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{
		MemoryBytes:     1024,
		MemoryHighBytes: 4096,
		Allocations:     7,
		OpenFiles:       2,
	}}

	NewCollector(provider, time.Minute).collect()

	if got := testutil.ToFloat64(EngineMemoryBytes.WithLabelValues("current")); got != 1024 {
		t.Errorf("Expected current memory 1024, got %v", got)
	}
	if got := testutil.ToFloat64(EngineMemoryBytes.WithLabelValues("high")); got != 4096 {
		t.Errorf("Expected high memory 4096, got %v", got)
	}
	if got := testutil.ToFloat64(EngineAllocations); got != 7 {
		t.Errorf("Expected 7 allocations, got %v", got)
	}
	if got := testutil.ToFloat64(EngineOpenFiles); got != 2 {
		t.Errorf("Expected 2 open files, got %v", got)
	}
}

func TestCollectWithNilProvider(_ *testing.T) {
	// Must not panic
	NewCollector(nil, time.Minute).collect()
}

func TestCollectorTracksPeak(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{MemoryHighBytes: 100}}
	collector := NewCollector(provider, time.Minute)

	collector.collect()
	provider.stats.MemoryHighBytes = 50
	collector.collect()

	if collector.peak != 100 {
		t.Errorf("Expected peak to stay at 100, got %d", collector.peak)
	}
}

func TestCollectorStartStop(_ *testing.T) {
	collector := NewCollector(&mockStatsProvider{}, 10*time.Millisecond)
	collector.Start()
	collector.Start()
	time.Sleep(30 * time.Millisecond)
	collector.Stop()
	collector.Stop()
}

func TestCollectorStopBeforeStart(_ *testing.T) {
	// Must not block
	NewCollector(&mockStatsProvider{}, time.Minute).Stop()
}
