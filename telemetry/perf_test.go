package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollectorEmptyStats(t *testing.T) {
	p := NewPerfCollector(10)
	stats := p.Stats()
	if stats.AvgTickDuration != 0 || stats.TicksPerSecond != 0 {
		t.Errorf("empty collector stats = %+v, want zeros", stats)
	}
}

func TestPerfCollectorRecordsPhases(t *testing.T) {
	p := NewPerfCollector(10)

	p.StartTick()
	p.StartPhase(PhaseUpdate)
	time.Sleep(2 * time.Millisecond)
	p.StartPhase(PhaseTelemetry)
	time.Sleep(time.Millisecond)
	p.EndTick()

	stats := p.Stats()
	if stats.AvgTickDuration < 3*time.Millisecond {
		t.Errorf("avg tick = %v, want at least 3ms", stats.AvgTickDuration)
	}
	if stats.PhaseAvg[PhaseUpdate] < 2*time.Millisecond {
		t.Errorf("update phase = %v, want at least 2ms", stats.PhaseAvg[PhaseUpdate])
	}
	if stats.PhaseAvg[PhaseTelemetry] < time.Millisecond {
		t.Errorf("telemetry phase = %v, want at least 1ms", stats.PhaseAvg[PhaseTelemetry])
	}

	total := 0.0
	for _, pct := range stats.PhasePct {
		total += pct
	}
	if total > 100.5 {
		t.Errorf("phase percentages sum to %v, want at most 100", total)
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	p := NewPerfCollector(4)

	for i := 0; i < 10; i++ {
		p.StartTick()
		p.EndTick()
	}

	if p.sampleCount != 4 {
		t.Errorf("sample count = %d, want window size 4", p.sampleCount)
	}
	stats := p.Stats()
	if stats.MinTickDuration > stats.AvgTickDuration || stats.AvgTickDuration > stats.MaxTickDuration {
		t.Errorf("min %v, avg %v, max %v out of order",
			stats.MinTickDuration, stats.AvgTickDuration, stats.MaxTickDuration)
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	p := NewPerfCollector(2)
	p.StartTick()
	p.StartPhase(PhaseUpdate)
	p.EndTick()

	rec := p.Stats().ToCSV(42)
	if rec.WindowEnd != 42 {
		t.Errorf("window end = %d, want 42", rec.WindowEnd)
	}
	if rec.AvgTickUS < 0 {
		t.Errorf("avg tick us = %d, want non-negative", rec.AvgTickUS)
	}
}
