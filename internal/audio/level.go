package audio

import "math"

// levelScale maps a block RMS in [0, 1] onto the 0-100 meter range.
const levelScale = 100

// RMS returns the root-mean-square energy of a block of normalized samples.
func RMS(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(block)))
}

// NormalizedLevel returns the block RMS on the meter scale (RMS x 100).
// Speech typically lands between 5 and 50.
func NormalizedLevel(block []float32) float64 {
	return RMS(block) * levelScale
}
