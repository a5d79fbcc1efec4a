package occupancy

// NoiseOptions controls procedural map generation.
type NoiseOptions struct {
	// Scale is the base sampling frequency in cycles per cell.
	Scale float64
	// Octaves is the number of fractal layers summed.
	Octaves int
	// Lacunarity multiplies the frequency per octave.
	Lacunarity float64
	// Gain multiplies the amplitude per octave.
	Gain float64
	// Threshold in [0, 1]; cells whose normalized noise value falls
	// below it are occupied.
	Threshold float64
}

// DefaultNoiseOptions returns generation parameters that produce
// cavern-like maps with wide connected free regions.
func DefaultNoiseOptions() NoiseOptions {
	return NoiseOptions{
		Scale:      0.04,
		Octaves:    4,
		Lacunarity: 2.0,
		Gain:       0.5,
		Threshold:  0.38,
	}
}

// Generate produces a row-major grayscale pixel grid from fractal
// noise, sized width*height. Occupied cells are 0 and free cells 255,
// so the output feeds NewScene-style loaders that treat dark pixels as
// solid.
func Generate(width, height int, opts NoiseOptions, seed int64) []byte {
	noise := newPerlin(seed)
	pixels := make([]byte, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			freq := opts.Scale
			amp := 1.0
			sum := 0.0
			norm := 0.0
			for o := 0; o < opts.Octaves; o++ {
				sum += amp * noise.noise(float64(x)*freq, float64(y)*freq)
				norm += amp
				freq *= opts.Lacunarity
				amp *= opts.Gain
			}

			// Map the fractal sum into [0, 1] before thresholding.
			v := (sum/norm + 1) / 2
			if v >= opts.Threshold {
				pixels[y*width+x] = 255
			}
		}
	}

	return pixels
}
