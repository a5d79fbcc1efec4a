package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/pthm-cable/scout/agent"
	"github.com/pthm-cable/scout/config"
	"github.com/pthm-cable/scout/geom"
	"github.com/pthm-cable/scout/occupancy"
	"github.com/pthm-cable/scout/sim"
	"github.com/pthm-cable/scout/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	agents := flag.Int("agents", 0, "Agent count (0 = use config)")
	rays := flag.Int("rays", 0, "Lidar rays per agent (0 = use config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// CLI overrides for config values
	statsWindowSec := cfg.Telemetry.StatsWindowSec
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}
	agentCount := cfg.Agent.Count
	if *agents > 0 {
		agentCount = *agents
	}
	rayCount := cfg.Lidar.Rays
	if *rays > 0 {
		rayCount = *rays
	}

	if err := run(cfg, rngSeed, agentCount, rayCount, statsWindowSec, *maxTicks, *outputDir, *logStats); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, seed int64, agentCount, rayCount int, statsWindowSec float64, maxTicks int64, outputDir string, logStats bool) error {
	opts := occupancy.NoiseOptions{
		Scale:      cfg.Noise.Scale,
		Octaves:    cfg.Noise.Octaves,
		Lacunarity: cfg.Noise.Lacunarity,
		Gain:       cfg.Noise.Gain,
		Threshold:  cfg.Noise.Threshold,
	}
	pixels := occupancy.Generate(cfg.World.Width, cfg.World.Height, opts, seed)

	scene, err := sim.NewScene(cfg.World.Width, cfg.World.Height, pixels)
	if err != nil {
		return err
	}
	defer scene.Close()

	slog.Info("scene built",
		"width", cfg.World.Width,
		"height", cfg.World.Height,
		"boundaries", len(scene.Map().Boundaries),
		"seed", seed,
	)

	rng := rand.New(rand.NewSource(seed))
	if err := spawnAgents(scene, rng, agentCount, cfg.Agent.Scale, rayCount); err != nil {
		return err
	}

	output, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		return err
	}

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	collector := telemetry.NewCollector()

	dt := cfg.Physics.DT
	windowTicks := cfg.Derived.StatsWindowTicks
	if statsWindowSec != cfg.Telemetry.StatsWindowSec && dt > 0 {
		windowTicks = int64(statsWindowSec / dt)
		if windowTicks < 1 {
			windowTicks = 1
		}
	}

	slog.Info("starting simulation",
		"agents", agentCount,
		"rays", rayCount,
		"dt", dt,
		"max_ticks", maxTicks,
	)

	for tick := int64(1); maxTicks == 0 || tick <= maxTicks; tick++ {
		perf.StartTick()

		perf.StartPhase(telemetry.PhaseUpdate)
		scene.Update(dt)

		if tick%windowTicks == 0 {
			perf.StartPhase(telemetry.PhaseStats)
			for _, id := range scene.Agents() {
				a, ok := scene.Agent(id)
				if !ok {
					continue
				}
				m, hasReading := scene.Measurements(id)
				lag := 0.0
				if hasReading {
					lag = scene.Time() - m.Time
				}
				collector.AddSample(math.Abs(a.State.Velocity), lag, len(m.Points), hasReading)
			}
			ws := collector.Flush(tick, scene.Time(), scene.NumAgents())

			perf.StartPhase(telemetry.PhaseTelemetry)
			if logStats {
				ws.LogStats()
				perf.Stats().LogStats()
			}
			if err := output.WriteTelemetry(ws); err != nil {
				return err
			}
			if err := output.WritePerf(perf.Stats(), tick); err != nil {
				return err
			}
		}

		perf.EndTick()
	}

	slog.Info("max ticks reached", "tick", maxTicks, "sim_time", scene.Time())
	return nil
}

// spawnAgents places agents on uniformly sampled free cells with
// random headings. An aggressive noise threshold can occupy the whole
// map, which is a config error rather than something to loop on.
func spawnAgents(scene *sim.Scene, rng *rand.Rand, count int, scale float64, rayCount int) error {
	m := scene.Map()
	free := m.FreeCells()
	if len(free) == 0 {
		return fmt.Errorf("spawning agents: generated map has no free cells")
	}

	for i := 0; i < count; i++ {
		cell := free[rng.Intn(len(free))]
		pos := m.CellBox(cell[0], cell[1]).Centroid()

		a := agent.New(scale)
		a.State.Position = pos
		a.State.Heading = geom.FromAngle(rng.Float64() * 2 * math.Pi)
		a.Sensors.Lidar.SetRegular(rayCount)

		id := scene.AddAgent(a)
		slog.Debug("agent spawned", "id", uint64(id), "x", pos.X, "y", pos.Y)
	}
	return nil
}
