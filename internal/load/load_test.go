package load

import (
	"testing"
	"time"
)

func newTestMonitor() *Monitor {
	return NewMonitor(Options{
		MemoryLimit:   100,
		MaxDeepJobs:   3,
		SoftCeiling:   25 * time.Second,
		BaseBatchSize: 24,
	})
}

func TestLevelOf(t *testing.T) {
	m := newTestMonitor()

	tests := []struct {
		name string
		s    Snapshot
		want Level
	}{
		{
			name: "idle",
			s:    Snapshot{MemoryUsed: 0, MemoryLimit: 100},
			want: LevelLow,
		},
		{
			name: "memory alone reaches medium",
			s:    Snapshot{MemoryUsed: 100, MemoryLimit: 100},
			want: LevelMedium,
		},
		{
			name: "memory plus jobs reaches high",
			s:    Snapshot{MemoryUsed: 100, MemoryLimit: 100, ActiveJobs: 2},
			want: LevelHigh,
		},
		{
			name: "everything maxed is critical",
			s:    Snapshot{MemoryUsed: 100, MemoryLimit: 100, ActiveJobs: 3, Elapsed: 30 * time.Second},
			want: LevelCritical,
		},
		{
			name: "fractions cap at their weight",
			s:    Snapshot{MemoryUsed: 1000, MemoryLimit: 100},
			want: LevelMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.LevelOf(tt.s); got != tt.want {
				t.Errorf("LevelOf(%+v) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestThrottleFor(t *testing.T) {
	t.Run("quick scans never delay", func(t *testing.T) {
		m := newTestMonitor()
		th := m.ThrottleFor(KindQuick)
		if th.Delay != 0 {
			t.Errorf("quick delay = %v, want 0", th.Delay)
		}
		if th.BatchSize != 48 {
			t.Errorf("quick batch = %d, want 48", th.BatchSize)
		}
	})

	t.Run("deep batches shrink under load", func(t *testing.T) {
		// Memory limit of 1 byte forces the memory fraction to max; with two
		// active jobs the level lands on high.
		m := NewMonitor(Options{
			MemoryLimit:   1,
			MaxDeepJobs:   3,
			BaseBatchSize: 24,
			ActiveJobs:    func() int { return 2 },
		})
		th := m.ThrottleFor(KindDeep)
		if th.BatchSize != 12 {
			t.Errorf("high-load batch = %d, want 12", th.BatchSize)
		}
		if th.Delay != time.Second {
			t.Errorf("high-load delay = %v, want 1s", th.Delay)
		}
	})

	t.Run("batch size never reaches zero", func(t *testing.T) {
		m := NewMonitor(Options{
			MemoryLimit:   1,
			MaxDeepJobs:   1,
			SoftCeiling:   time.Nanosecond,
			BaseBatchSize: 2,
			ActiveJobs:    func() int { return 5 },
		})
		th := m.ThrottleFor(KindDeep)
		if th.BatchSize < 1 {
			t.Errorf("batch size = %d, want >= 1", th.BatchSize)
		}
	})
}

func TestShouldThrottle(t *testing.T) {
	m := newTestMonitor()

	tests := []struct {
		name string
		s    Snapshot
		want bool
	}{
		{"idle", Snapshot{MemoryUsed: 10, MemoryLimit: 100}, false},
		{"memory above 80 percent", Snapshot{MemoryUsed: 90, MemoryLimit: 100}, true},
		{"too many jobs", Snapshot{MemoryLimit: 100, ActiveJobs: 4}, true},
		{"past soft ceiling", Snapshot{MemoryLimit: 100, Elapsed: 30 * time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.ShouldThrottle(tt.s); got != tt.want {
				t.Errorf("ShouldThrottle(%+v) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}
