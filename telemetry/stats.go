// Package telemetry aggregates per-window simulation statistics and
// writes them to structured logs and CSV files.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window. Sensor
// lag is the age of an agent's newest completed measurement relative
// to the scene clock, in seconds; it grows when scans take longer than
// a tick.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	AgentCount int `csv:"agents"`
	// Readings is how many agents had a completed measurement when the
	// window closed.
	Readings int `csv:"readings"`

	LagMean float64 `csv:"lag_mean"`
	LagP50  float64 `csv:"lag_p50"`
	LagMax  float64 `csv:"lag_max"`

	// Hit counts per measurement; rays that left the map produce no
	// hit, so the mean drops near open map edges.
	HitsMean float64 `csv:"hits_mean"`
	HitsMin  float64 `csv:"hits_min"`

	MeanSpeed float64 `csv:"mean_speed"`
}

// Collector accumulates per-agent samples between window flushes.
type Collector struct {
	windowStartTick int64

	lags   []float64
	hits   []float64
	speeds []float64
}

// NewCollector creates a collector with its first window starting at
// tick zero.
func NewCollector() *Collector {
	return &Collector{}
}

// AddSample records one agent's reading at window close. Agents
// without a completed measurement contribute only their speed.
func (c *Collector) AddSample(speed float64, lag float64, hitCount int, hasReading bool) {
	c.speeds = append(c.speeds, speed)
	if hasReading {
		c.lags = append(c.lags, lag)
		c.hits = append(c.hits, float64(hitCount))
	}
}

// Flush aggregates the collected samples into a WindowStats record and
// resets the collector for the next window.
func (c *Collector) Flush(tick int64, simTime float64, agents int) WindowStats {
	ws := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   tick,
		SimTimeSec:      simTime,
		AgentCount:      agents,
		Readings:        len(c.lags),
	}

	if len(c.lags) > 0 {
		sort.Float64s(c.lags)
		ws.LagMean = stat.Mean(c.lags, nil)
		ws.LagP50 = stat.Quantile(0.5, stat.Empirical, c.lags, nil)
		ws.LagMax = c.lags[len(c.lags)-1]
	}
	if len(c.hits) > 0 {
		sort.Float64s(c.hits)
		ws.HitsMean = stat.Mean(c.hits, nil)
		ws.HitsMin = c.hits[0]
	}
	if len(c.speeds) > 0 {
		ws.MeanSpeed = stat.Mean(c.speeds, nil)
	}

	c.windowStartTick = tick
	c.lags = c.lags[:0]
	c.hits = c.hits[:0]
	c.speeds = c.speeds[:0]

	return ws
}

// LogStats logs the window record.
func (ws WindowStats) LogStats() {
	slog.Info("window",
		"tick", ws.WindowEndTick,
		"sim_time", ws.SimTimeSec,
		"agents", ws.AgentCount,
		"readings", ws.Readings,
		"lag_mean", ws.LagMean,
		"lag_max", ws.LagMax,
		"hits_mean", ws.HitsMean,
		"mean_speed", ws.MeanSpeed,
	)
}
