package memory

import (
	"sync"
	"testing"
	"time"
)

func newTestMonitor(limit int64) *Monitor {
	return NewMonitor(Config{
		MemoryLimitBytes:  limit,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     10 * time.Millisecond,
	})
}

func TestNewMonitor(t *testing.T) {
	monitor := newTestMonitor(100 << 20)
	if monitor == nil {
		t.Fatal("NewMonitor returned nil")
	}
	if monitor.limit != 100<<20 {
		t.Errorf("Expected limit %d, got %d", 100<<20, monitor.limit)
	}
	if monitor.IsPaused() {
		t.Error("New monitor should not be paused")
	}
}

func TestMonitorPauseAndResume(t *testing.T) {
	monitor := newTestMonitor(1000)

	monitor.observe(500)
	if monitor.IsPaused() {
		t.Fatal("Monitor paused at 50% usage")
	}

	monitor.observe(900)
	if !monitor.IsPaused() {
		t.Fatal("Monitor not paused at 90% usage")
	}

	// Between the water marks the state is sticky
	monitor.observe(800)
	if !monitor.IsPaused() {
		t.Fatal("Monitor resumed above the high water mark")
	}

	monitor.observe(600)
	if monitor.IsPaused() {
		t.Fatal("Monitor still paused below the high water mark")
	}
}

func TestMonitorGetUsageAndStats(t *testing.T) {
	monitor := newTestMonitor(1000)
	monitor.observe(250)

	if got := monitor.GetUsage(); got != 0.25 {
		t.Errorf("GetUsage() = %v, want 0.25", got)
	}

	current, limit, usage := monitor.GetStats()
	if current != 250 || limit != 1000 || usage != 0.25 {
		t.Errorf("GetStats() = (%d, %d, %v), want (250, 1000, 0.25)", current, limit, usage)
	}
}

func TestMonitorExternalUsage(t *testing.T) {
	monitor := NewMonitor(Config{
		MemoryLimitBytes:  1 << 40,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Second,
		External:          func() int64 { return 1 << 39 },
	})

	if got := monitor.sample(); got < 1<<39 {
		t.Errorf("Expected sample to include external usage, got %d", got)
	}
}

func TestNilMonitor(t *testing.T) {
	var monitor *Monitor
	if monitor.IsPaused() {
		t.Error("Nil monitor must not report paused")
	}
	if monitor.GetUsage() != 0 {
		t.Error("Nil monitor must report zero usage")
	}
}

func TestMonitorStartStop(t *testing.T) {
	monitor := newTestMonitor(1 << 40)
	monitor.Start()
	time.Sleep(50 * time.Millisecond)
	monitor.Stop()
	monitor.Stop()

	if current, _, _ := monitor.GetStats(); current == 0 {
		t.Error("Expected at least one sample after running")
	}
}

func TestMonitorConcurrency(_ *testing.T) {
	monitor := newTestMonitor(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				monitor.observe(uint64((i*100 + j) % 1000))
				_ = monitor.IsPaused()
				_ = monitor.GetUsage()
			}
		}(i)
	}
	wg.Wait()
}
