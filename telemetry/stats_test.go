package telemetry

import (
	"math"
	"testing"
)

func TestCollectorFlushAggregates(t *testing.T) {
	c := NewCollector()

	c.AddSample(1.0, 0.1, 10, true)
	c.AddSample(2.0, 0.3, 20, true)
	c.AddSample(3.0, 0, 0, false) // no completed reading yet

	ws := c.Flush(100, 5.0, 3)

	if ws.WindowStartTick != 0 || ws.WindowEndTick != 100 {
		t.Errorf("window = [%d, %d], want [0, 100]", ws.WindowStartTick, ws.WindowEndTick)
	}
	if ws.AgentCount != 3 || ws.Readings != 2 {
		t.Errorf("agents = %d readings = %d, want 3 and 2", ws.AgentCount, ws.Readings)
	}
	if math.Abs(ws.LagMean-0.2) > 1e-12 {
		t.Errorf("lag mean = %v, want 0.2", ws.LagMean)
	}
	if ws.LagMax != 0.3 {
		t.Errorf("lag max = %v, want 0.3", ws.LagMax)
	}
	if math.Abs(ws.HitsMean-15) > 1e-12 {
		t.Errorf("hits mean = %v, want 15", ws.HitsMean)
	}
	if ws.HitsMin != 10 {
		t.Errorf("hits min = %v, want 10", ws.HitsMin)
	}
	if math.Abs(ws.MeanSpeed-2) > 1e-12 {
		t.Errorf("mean speed = %v, want 2", ws.MeanSpeed)
	}
}

func TestCollectorResetsBetweenWindows(t *testing.T) {
	c := NewCollector()
	c.AddSample(1, 0.5, 5, true)
	c.Flush(10, 1.0, 1)

	ws := c.Flush(20, 2.0, 1)
	if ws.WindowStartTick != 10 || ws.WindowEndTick != 20 {
		t.Errorf("window = [%d, %d], want [10, 20]", ws.WindowStartTick, ws.WindowEndTick)
	}
	if ws.Readings != 0 || ws.LagMean != 0 || ws.MeanSpeed != 0 {
		t.Errorf("second window carried samples: %+v", ws)
	}
}

func TestCollectorEmptyWindow(t *testing.T) {
	c := NewCollector()
	ws := c.Flush(1, 0.1, 0)
	if ws.Readings != 0 || ws.LagMean != 0 || ws.HitsMean != 0 {
		t.Errorf("empty window stats = %+v, want zeros", ws)
	}
}
