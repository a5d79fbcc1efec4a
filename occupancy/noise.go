package occupancy

import (
	"math"
	"math/rand"
)

// perlin is a seeded 2D gradient-noise generator used by Generate.
type perlin struct {
	perm [512]int
}

func newPerlin(seed int64) *perlin {
	p := &perlin{}
	rng := rand.New(rand.NewSource(seed))

	var perm [256]int
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	for i := 0; i < 256; i++ {
		p.perm[i] = perm[i]
		p.perm[i+256] = perm[i]
	}

	return p
}

// noise returns a value in roughly [-1, 1] for the given coordinates.
func (p *perlin) noise(x, y float64) float64 {
	xi := int(math.Floor(x)) & 255
	yi := int(math.Floor(y)) & 255

	x -= math.Floor(x)
	y -= math.Floor(y)

	u := fade(x)
	v := fade(y)

	a := p.perm[xi] + yi
	b := p.perm[xi+1] + yi

	return lerp(v,
		lerp(u, grad(p.perm[a], x, y), grad(p.perm[b], x-1, y)),
		lerp(u, grad(p.perm[a+1], x, y-1), grad(p.perm[b+1], x-1, y-1)))
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad(hash int, x, y float64) float64 {
	switch hash & 3 {
	case 0:
		return x + y
	case 1:
		return -x + y
	case 2:
		return x - y
	default:
		return -x - y
	}
}
