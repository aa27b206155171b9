package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampled(n int, length float64, f func(x float64) float64) (u []float64) {
	u = make([]float64, n)
	dx := length / float64(n)
	for i := range u {
		u[i] = f(float64(i) * dx)
	}
	return
}

func TestDerivativeOfSinusoids(t *testing.T) {
	var (
		n      = 64
		length = 2 * math.Pi
		tol    = 1e-10
	)
	ws, err := NewWorkspace(n, length, Plan{Workers: 1})
	assert.NoError(t, err)

	for _, k := range []float64{1, 3, 7} {
		u := sampled(n, length, func(x float64) float64 { return math.Sin(k * x) })
		d1 := ws.Derivative(nil, u, 1)
		d2 := ws.Derivative(nil, u, 2)
		d3 := ws.Derivative(nil, u, 3)
		d4 := ws.Derivative(nil, u, 4)
		dx := length / float64(n)
		for i := range u {
			x := float64(i) * dx
			assert.InDelta(t, k*math.Cos(k*x), d1[i], tol)
			assert.InDelta(t, -k*k*math.Sin(k*x), d2[i], tol)
			assert.InDelta(t, -k*k*k*math.Cos(k*x), d3[i], tol)
			assert.InDelta(t, k*k*k*k*math.Sin(k*x), d4[i], tol)
		}
	}
}

func TestDerivativeDropsNyquist(t *testing.T) {
	var (
		n      = 32
		length = 2 * math.Pi
	)
	ws, err := NewWorkspace(n, length, Plan{Workers: 1})
	assert.NoError(t, err)

	// A pure Nyquist signal (-1)^i has no representable derivative on the
	// collocation grid; its derivative must come back exactly zero.
	u := make([]float64, n)
	for i := range u {
		u[i] = 1 - 2*float64(i%2)
	}
	d1 := ws.Derivative(nil, u, 1)
	for i := range d1 {
		assert.InDelta(t, 0, d1[i], 1e-10)
	}
}

func TestDealiasedSquare(t *testing.T) {
	var (
		n      = 64
		length = 2 * math.Pi
		tol    = 1e-10
	)
	ws, err := NewWorkspace(n, length, Plan{Workers: 1})
	assert.NoError(t, err)

	// sin^2(3x) = 1/2 - cos(6x)/2 is fully resolved, so the dealiased square
	// must reproduce it to round-off.
	u := sampled(n, length, func(x float64) float64 { return math.Sin(3 * x) })
	sq := ws.DealiasedSquare(nil, u)
	for i, v := range u {
		assert.InDelta(t, v*v, sq[i], tol)
	}
}

func TestDealiasedSquareRemovesAliasedModes(t *testing.T) {
	var (
		n      = 32
		length = 2 * math.Pi
	)
	ws, err := NewWorkspace(n, length, Plan{Workers: 1})
	assert.NoError(t, err)

	// k=12 on a 32-point grid: the square holds a k=24 harmonic that a naive
	// collocation product aliases onto k=8. Padding must suppress it.
	u := sampled(n, length, func(x float64) float64 { return math.Sin(12 * x) })
	sq := ws.DealiasedSquare(nil, u)

	spec := ws.Spectrum(nil, sq)
	inv := 1 / float64(n)
	aliased := cmplxAbs(spec[8]) * inv
	mean := real(spec[0]) * inv
	assert.InDelta(t, 0, aliased, 1e-10, "aliased k=8 energy must vanish")
	assert.InDelta(t, 0.5, mean, 1e-10, "mean of sin^2 survives dealiasing")
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func TestFilterCutsAboveHalf(t *testing.T) {
	var (
		n      = 64
		length = 2 * math.Pi
		tol    = 1e-10
	)
	ws, err := NewWorkspace(n, length, Plan{Workers: 1})
	assert.NoError(t, err)

	// Cutoff for ratio 2 sits at k = n/4 = 16: k=5 passes untouched, k=20 is
	// removed entirely.
	low := sampled(n, length, func(x float64) float64 { return math.Cos(5 * x) })
	high := sampled(n, length, func(x float64) float64 { return math.Cos(20 * x) })
	u := make([]float64, n)
	for i := range u {
		u[i] = low[i] + high[i]
	}
	f := ws.Filter(nil, u, 2)
	for i := range f {
		assert.InDelta(t, low[i], f[i], tol)
	}
}

func TestDownscalePreservesRetainedModes(t *testing.T) {
	var (
		nc     = 32
		nf     = 128
		length = 2 * math.Pi
		tol    = 1e-10
	)
	ws, err := NewWorkspaceWithFine(nc, nf, length, Plan{Workers: 1})
	assert.NoError(t, err)

	// A k=3 sinusoid lives below the coarse Nyquist: projection must return
	// it exactly on the coarse grid.
	fine := sampled(nf, length, func(x float64) float64 { return math.Sin(3 * x) })
	coarse := ws.Downscale(nil, fine)
	dx := length / float64(nc)
	for i := range coarse {
		assert.InDelta(t, math.Sin(3*float64(i)*dx), coarse[i], tol)
	}

	// A mode above the coarse Nyquist disappears entirely.
	fine = sampled(nf, length, func(x float64) float64 { return math.Sin(40 * x) })
	coarse = ws.Downscale(nil, fine)
	for i := range coarse {
		assert.InDelta(t, 0, coarse[i], tol)
	}
}

func TestZeroNyquist(t *testing.T) {
	var (
		n      = 32
		length = 2 * math.Pi
	)
	ws, err := NewWorkspace(n, length, Plan{Workers: 1})
	assert.NoError(t, err)

	u := sampled(n, length, func(x float64) float64 { return math.Cos(3 * x) })
	for i := range u {
		u[i] += 1 - 2*float64(i%2) // inject Nyquist energy
	}
	ws.ZeroNyquist(u)
	spec := ws.Spectrum(nil, u)
	assert.InDelta(t, 0, cmplxAbs(spec[n/2]), 1e-10)
	dx := length / float64(n)
	for i := range u {
		assert.InDelta(t, math.Cos(3*float64(i)*dx), u[i], 1e-10)
	}
}

func TestWorkspaceRejectsBadResolutions(t *testing.T) {
	_, err := NewWorkspace(7, 2*math.Pi, Plan{Workers: 1})
	assert.Error(t, err)
	_, err = NewWorkspace(4, 2*math.Pi, Plan{Workers: 1})
	assert.Error(t, err)
	_, err = NewWorkspaceWithFine(32, 48, 2*math.Pi, Plan{Workers: 1})
	assert.Error(t, err)
}

func TestWavenumbers(t *testing.T) {
	k := Wavenumbers(8, 2*math.Pi)
	assert.Len(t, k, 5)
	for j, want := range []float64{0, 1, 2, 3, 4} {
		assert.InDelta(t, want, k[j], 1e-12)
	}
	k = Wavenumbers(8, math.Pi)
	assert.InDelta(t, 2, k[1], 1e-12)
}
