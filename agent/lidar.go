package agent

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/scout/geom"
	"github.com/pthm-cable/scout/occupancy"
)

// DefaultRays is the ray count of the lidar attached by New.
const DefaultRays = 180

// senseParallelThreshold is the ray count below which Sense casts
// serially; spinning up goroutines costs more than a handful of casts.
const senseParallelThreshold = 64

// Lidar is a set of ray directions expressed in the agent frame, where
// +X is the agent's heading.
type Lidar struct {
	Directions []r2.Vec
}

// Regular returns a lidar with n rays spread evenly over the full
// circle. Rays are offset half a step so no ray points exactly along
// the heading, keeping symmetric ray pairs on either side of it.
func Regular(n int) Lidar {
	l := Lidar{}
	l.SetRegular(n)
	return l
}

// SetRegular replaces the directions with n evenly spaced rays.
func (l *Lidar) SetRegular(n int) {
	dirs := make([]r2.Vec, n)
	for i := range dirs {
		angle := 2 * math.Pi * (float64(i) + 0.5) / float64(n)
		dirs[i] = geom.FromAngle(angle)
	}
	l.Directions = dirs
}

// SetDirections replaces the directions with an explicit set, given in
// the agent frame.
func (l *Lidar) SetDirections(dirs []r2.Vec) {
	l.Directions = append([]r2.Vec(nil), dirs...)
}

// Measurement is one completed scan: the scene time at which it was
// requested and the world-space hit points, one per ray that struck a
// boundary. Rays that leave the map produce no point.
type Measurement struct {
	Time   float64
	Points []r2.Vec
}

// Sense performs a scan from the agent's pose against the snapshot's
// map. It refuses to scan when the agent sits in an occupied or
// off-grid cell, returning ok false.
func (l Lidar) Sense(st State, snap occupancy.Snapshot) (Measurement, bool) {
	cx, cy := snap.Map.Translate(st.Position)
	if snap.Map.IsOccupiedCell(cx, cy) {
		return Measurement{}, false
	}

	n := len(l.Directions)
	hits := make([]r2.Vec, n)
	mask := make([]bool, n)

	cast := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dir := geom.RotateBy(st.Heading, l.Directions[i])
			if d, ok := snap.Map.CastRay(st.Position, dir); ok {
				hits[i] = r2.Add(st.Position, r2.Scale(d, dir))
				mask[i] = true
			}
		}
	}

	if n < senseParallelThreshold {
		cast(0, n)
	} else {
		workers := senseParallelThreshold / 8
		chunk := (n + workers - 1) / workers
		var wg sync.WaitGroup
		for lo := 0; lo < n; lo += chunk {
			hi := lo + chunk
			if hi > n {
				hi = n
			}
			wg.Add(1)
			go func(lo, hi int) {
				defer wg.Done()
				cast(lo, hi)
			}(lo, hi)
		}
		wg.Wait()
	}

	points := make([]r2.Vec, 0, n)
	for i, hit := range mask {
		if hit {
			points = append(points, hits[i])
		}
	}

	return Measurement{Time: snap.Time, Points: points}, true
}

// LidarHandle wraps a Lidar for shared use between the simulation tick
// and sensing jobs. Reconfiguration takes the write lock; scans take a
// read lock and then run against a private copy of the direction set.
type LidarHandle struct {
	mu    sync.RWMutex
	lidar Lidar
}

// NewLidarHandle wraps the given lidar.
func NewLidarHandle(l Lidar) *LidarHandle {
	return &LidarHandle{lidar: l}
}

// SetRegular replaces the directions with n evenly spaced rays.
func (h *LidarHandle) SetRegular(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lidar.SetRegular(n)
}

// SetDirections replaces the directions with an explicit set.
func (h *LidarHandle) SetDirections(dirs []r2.Vec) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lidar.SetDirections(dirs)
}

// NumRays returns the current ray count.
func (h *LidarHandle) NumRays() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lidar.Directions)
}

// Sense scans with the current direction set.
func (h *LidarHandle) Sense(st State, snap occupancy.Snapshot) (Measurement, bool) {
	h.mu.RLock()
	l := h.lidar
	h.mu.RUnlock()
	return l.Sense(st, snap)
}
