package audio

import "math"

type Levels struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// Measure computes RMS and peak level of normalised samples.
func Measure(samples []float32) Levels {
	if len(samples) == 0 {
		return Levels{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}
	}

	var peak, sumSquares float64
	for _, s := range samples {
		v := float64(s)
		abs := math.Abs(v)
		if abs > peak {
			peak = abs
		}
		sumSquares += v * v
	}

	rms := math.Sqrt(sumSquares / float64(len(samples)))
	return Levels{
		RMSdBFS:  amplitudeToDBFS(rms),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  int64(len(samples)),
	}
}

// IsSilent reports whether samples stay below thresholdDBFS. The peak may
// exceed the threshold by up to 6 dB to tolerate isolated clicks.
func IsSilent(samples []float32, thresholdDBFS float64) (bool, Levels) {
	levels := Measure(samples)

	if levels.Samples == 0 {
		return true, levels
	}

	if math.IsInf(levels.RMSdBFS, -1) && math.IsInf(levels.PeakdBFS, -1) {
		return true, levels
	}

	peakGate := thresholdDBFS + 6
	return levels.RMSdBFS <= thresholdDBFS && levels.PeakdBFS <= peakGate, levels
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
