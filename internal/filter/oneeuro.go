// Package filter implements the One-Euro adaptive low-pass filter and a
// confidence-gated pose smoother built on it. The filter trades residual
// jitter against lag: slow motion is smoothed hard, fast motion tracks the
// raw signal closely.
package filter

import "math"

// Params are the One-Euro tuning parameters. Zero values are replaced by the
// defaults below, which suit normalised image-space pose landmarks at
// 15-60 fps.
type Params struct {
	// MinCutoff is the minimum value cutoff frequency in Hz. Lower values
	// smooth more aggressively at rest.
	MinCutoff float64

	// Beta scales the cutoff with the speed estimate. Higher values reduce
	// lag during fast motion.
	Beta float64

	// DCutoff is the fixed cutoff for the derivative estimate in Hz.
	DCutoff float64
}

// DefaultParams returns the default filter tuning.
func DefaultParams() Params {
	return Params{MinCutoff: 1.0, Beta: 0.007, DCutoff: 1.0}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.MinCutoff <= 0 {
		p.MinCutoff = d.MinCutoff
	}
	if p.Beta < 0 {
		p.Beta = d.Beta
	}
	if p.DCutoff <= 0 {
		p.DCutoff = d.DCutoff
	}
	return p
}

// OneEuro filters a single scalar channel.
type OneEuro struct {
	params Params

	freq      float64
	lastRaw   float64
	lastValue float64
	lastDeriv float64
	lastTsMs  float64
	primed    bool
}

// NewOneEuro creates a scalar One-Euro filter with the given parameters.
func NewOneEuro(params Params) *OneEuro {
	return &OneEuro{params: params.withDefaults(), freq: 30}
}

// smoothingFactor is the exponential smoothing coefficient for a given
// cutoff frequency at the current sampling frequency.
func (f *OneEuro) smoothingFactor(cutoff float64) float64 {
	tau := 1 / (2 * math.Pi * cutoff)
	te := 1 / f.freq
	return 1 / (1 + tau/te)
}

// Filter feeds one sample with its timestamp in milliseconds and returns the
// filtered value. The first sample is returned unfiltered.
func (f *OneEuro) Filter(value, timestampMs float64) float64 {
	if !f.primed {
		f.primed = true
		f.lastRaw = value
		f.lastValue = value
		f.lastDeriv = 0
		f.lastTsMs = timestampMs
		return value
	}

	// Refresh the frequency estimate, guarding against near-duplicate
	// timestamps that would blow up 1/dt.
	dt := (timestampMs - f.lastTsMs) / 1000
	if dt > 1e-4 {
		f.freq = 1 / dt
	}
	f.lastTsMs = timestampMs

	deriv := (value - f.lastRaw) * f.freq
	ad := f.smoothingFactor(f.params.DCutoff)
	f.lastDeriv = ad*deriv + (1-ad)*f.lastDeriv

	cutoff := f.params.MinCutoff + f.params.Beta*math.Abs(f.lastDeriv)
	a := f.smoothingFactor(cutoff)
	f.lastValue = a*value + (1-a)*f.lastValue
	f.lastRaw = value

	return f.lastValue
}

// Reset clears the filter state; the next sample passes through unfiltered.
func (f *OneEuro) Reset() {
	f.primed = false
	f.freq = 30
}

// OneEuro3D filters an x/y/z triple with three independent scalar filters.
// There is no cross-axis coupling.
type OneEuro3D struct {
	x, y, z *OneEuro
}

// NewOneEuro3D creates a 3-axis One-Euro filter.
func NewOneEuro3D(params Params) *OneEuro3D {
	return &OneEuro3D{
		x: NewOneEuro(params),
		y: NewOneEuro(params),
		z: NewOneEuro(params),
	}
}

// Filter feeds one 3D sample and returns the filtered triple.
func (f *OneEuro3D) Filter(x, y, z, timestampMs float64) (fx, fy, fz float64) {
	return f.x.Filter(x, timestampMs), f.y.Filter(y, timestampMs), f.z.Filter(z, timestampMs)
}

// Reset clears all three axis filters.
func (f *OneEuro3D) Reset() {
	f.x.Reset()
	f.y.Reset()
	f.z.Reset()
}
