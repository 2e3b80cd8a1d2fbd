package usage

import (
	"sync"
	"testing"
	"time"

	"github.com/jaretmartin/symtex/pkg/policy/engine"
)

func TestRollingWindow_Accumulates(t *testing.T) {
	w := NewRollingWindow(time.Minute, time.Second)

	w.Add(10.50)
	w.Add(5.25)
	w.Add(3.75)

	if sum := w.Sum(); sum != 19.50 {
		t.Errorf("Sum() = %.2f, want 19.50", sum)
	}
}

func TestRollingWindow_Expiration(t *testing.T) {
	w := NewRollingWindow(100*time.Millisecond, 10*time.Millisecond)

	w.Add(25)
	if sum := w.Sum(); sum != 25 {
		t.Fatalf("Sum() = %.2f before expiry, want 25", sum)
	}

	time.Sleep(150 * time.Millisecond)

	if sum := w.Sum(); sum != 0 {
		t.Errorf("Sum() = %.2f after expiry, want 0", sum)
	}
}

func TestRollingWindow_Reset(t *testing.T) {
	w := NewRollingWindow(time.Hour, time.Minute)

	w.Add(100)
	w.Reset()

	if sum := w.Sum(); sum != 0 {
		t.Errorf("Sum() = %.2f after reset, want 0", sum)
	}
}

func TestTracker_MetricsPerCognate(t *testing.T) {
	tracker := NewTracker(nil)

	tracker.RecordAction("crm-bot", "sales", 0.40)
	tracker.RecordAction("crm-bot", "sales", 0.60)
	tracker.RecordAction("other-bot", "sales", 5)

	action := engine.ProposedAction{CognateID: "crm-bot", SpaceID: "sales"}

	tests := []struct {
		metric string
		want   float64
	}{
		{metric: MetricActionsPerHour, want: 2},
		{metric: MetricActionsPerDay, want: 2},
		{metric: MetricSpendPerDay, want: 1.00},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			got, ok := tracker.Metric(tt.metric, action)
			if !ok {
				t.Fatalf("Metric(%q) ok = false", tt.metric)
			}
			if got != tt.want {
				t.Errorf("Metric(%q) = %v, want %v", tt.metric, got, tt.want)
			}
		})
	}
}

func TestTracker_SpaceFallback(t *testing.T) {
	tracker := NewTracker(nil)

	tracker.RecordAction("crm-bot", "sales", 1)
	tracker.RecordAction("other-bot", "sales", 2)

	// No cognate coordinate: the space aggregate answers.
	got, ok := tracker.Metric(MetricSpendPerDay, engine.ProposedAction{SpaceID: "sales"})
	if !ok {
		t.Fatal("Metric() ok = false")
	}
	if got != 3 {
		t.Errorf("space spend = %v, want 3", got)
	}

	// With a cognate coordinate, the cognate's own usage answers even
	// though the space has more.
	got, ok = tracker.Metric(MetricSpendPerDay, engine.ProposedAction{CognateID: "crm-bot", SpaceID: "sales"})
	if !ok {
		t.Fatal("Metric() ok = false")
	}
	if got != 1 {
		t.Errorf("cognate spend = %v, want 1", got)
	}
}

func TestTracker_UnknownMetricAndMissingCoordinates(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.RecordAction("crm-bot", "sales", 1)

	if _, ok := tracker.Metric("tokens_per_second", engine.ProposedAction{CognateID: "crm-bot"}); ok {
		t.Error("unknown metric: ok = true, want false")
	}
	if _, ok := tracker.Metric(MetricSpendPerDay, engine.ProposedAction{}); ok {
		t.Error("no coordinates: ok = true, want false")
	}
}

func TestTracker_UnseenCognateReadsZero(t *testing.T) {
	tracker := NewTracker(nil)

	got, ok := tracker.Metric(MetricActionsPerHour, engine.ProposedAction{CognateID: "brand-new"})
	if !ok {
		t.Fatal("Metric() ok = false, want true for built-in metric")
	}
	if got != 0 {
		t.Errorf("Metric() = %v, want 0", got)
	}
}

func TestTracker_ConcurrentRecording(t *testing.T) {
	tracker := NewTracker(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tracker.RecordAction("crm-bot", "sales", 0.01)
			}
		}()
	}
	wg.Wait()

	got, ok := tracker.Metric(MetricActionsPerHour, engine.ProposedAction{CognateID: "crm-bot"})
	if !ok {
		t.Fatal("Metric() ok = false")
	}
	if got != 500 {
		t.Errorf("actions_per_hour = %v, want 500", got)
	}
}
