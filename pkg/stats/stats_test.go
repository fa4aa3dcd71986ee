package stats

import (
	"math"
	"sync"
	"testing"
	"time"
)

func TestSnapshotIsDetached(t *testing.T) {
	store := NewStore()
	store.RecordModel("qwen-max", ModelSample{Quality: 8, Latency: 2 * time.Second, Success: true})

	snap := store.Snapshot()
	store.RecordModel("qwen-max", ModelSample{Quality: 2, Latency: 20 * time.Second, Success: false})

	m := snap.Model("qwen-max")
	if m.Samples != 1 {
		t.Fatalf("snapshot samples: got %d want 1", m.Samples)
	}
	if m.AvgQuality != 8 {
		t.Fatalf("snapshot quality: got %.1f want 8.0", m.AvgQuality)
	}
	if live := store.Snapshot().Model("qwen-max"); live.Samples != 2 {
		t.Fatalf("live samples: got %d want 2", live.Samples)
	}
}

func TestUntestedModelPerformance(t *testing.T) {
	snap := NewStore().Snapshot()
	if got := snap.Model("never-seen").Performance(); got != 0.8 {
		t.Fatalf("untested performance: got %.2f want 0.8", got)
	}
}

func TestPerformanceBlend(t *testing.T) {
	store := NewStore()
	store.RecordModel("m", ModelSample{Quality: 9, Latency: 3 * time.Second, Success: true})
	perf := store.Snapshot().Model("m").Performance()
	// 0.9*0.4 + (1 - 3/30)*0.3 + 1.0*0.3
	want := 0.36 + 0.27 + 0.3
	if math.Abs(perf-want) > 1e-9 {
		t.Fatalf("performance: got %.4f want %.4f", perf, want)
	}
}

func TestPerformanceClampsSlowModels(t *testing.T) {
	store := NewStore()
	store.RecordModel("slow", ModelSample{Quality: 10, Latency: 90 * time.Second, Success: true})
	perf := store.Snapshot().Model("slow").Performance()
	want := 0.4 + 0.0 + 0.3
	if math.Abs(perf-want) > 1e-9 {
		t.Fatalf("performance: got %.4f want %.4f", perf, want)
	}
}

func TestSampleWindowCaps(t *testing.T) {
	store := NewStore()
	for i := 0; i < windowSize+50; i++ {
		q := 2.0
		if i >= 50 {
			q = 8.0
		}
		store.RecordModel("m", ModelSample{Quality: q, Latency: time.Second, Success: true})
	}
	m := store.Snapshot().Model("m")
	if m.Samples != windowSize {
		t.Fatalf("window: got %d want %d", m.Samples, windowSize)
	}
	// The 50 early low-quality samples fell out of the window.
	if m.AvgQuality != 8.0 {
		t.Fatalf("avg quality: got %.1f want 8.0", m.AvgQuality)
	}
}

func TestTemplateStats(t *testing.T) {
	store := NewStore()
	store.RecordTemplate("standard", true, 2*time.Second)
	store.RecordTemplate("standard", false, 4*time.Second)

	ts, ok := store.Snapshot().Template("standard")
	if !ok {
		t.Fatalf("expected template stats")
	}
	if ts.Uses != 2 || ts.SuccessRate != 0.5 {
		t.Fatalf("template stats: %+v", ts)
	}
	if ts.AvgLatency != 3*time.Second {
		t.Fatalf("avg latency: got %s want 3s", ts.AvgLatency)
	}
	if _, ok := store.Snapshot().Template("unknown"); ok {
		t.Fatalf("unknown template should miss")
	}
}

func TestLoadTracking(t *testing.T) {
	store := NewStore()
	store.PlanStarted()
	store.PlanStarted()
	if load := store.Snapshot().Load; load != 2 {
		t.Fatalf("load: got %.0f want 2", load)
	}
	store.PlanFinished()
	if load := store.Snapshot().Load; load != 1 {
		t.Fatalf("load: got %.0f want 1", load)
	}
	store.PlanFinished()
	store.PlanFinished()
	if load := store.Snapshot().Load; load != 0 {
		t.Fatalf("load never goes negative, got %.0f", load)
	}
}

func TestConcurrentRecording(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.RecordModel("m", ModelSample{Quality: 5, Latency: time.Second, Success: true})
				store.Snapshot()
			}
		}()
	}
	wg.Wait()
	m := store.Snapshot().Model("m")
	if m.Samples != windowSize {
		t.Fatalf("samples: got %d want %d", m.Samples, windowSize)
	}
}
