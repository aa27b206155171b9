package spectral

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFBMReproducible(t *testing.T) {
	var (
		n      = 128
		length = 2 * math.Pi
	)
	f1 := NewFBM(n, length, -0.75, rand.NewPCG(1, 1))
	f2 := NewFBM(n, length, -0.75, rand.NewPCG(1, 1))
	for draw := 0; draw < 3; draw++ {
		a := f1.Draw(nil)
		b := f2.Draw(nil)
		assert.Equal(t, a, b, "same seed must give the same realization sequence")
	}
	// The sequence advances between draws
	a := f1.Draw(nil)
	b := f1.Draw(nil)
	assert.NotEqual(t, a, b)
}

func TestFBMZeroMeanAndNyquist(t *testing.T) {
	var (
		n      = 128
		length = 2 * math.Pi
	)
	f := NewFBM(n, length, -0.75, rand.NewPCG(7, 7))
	fft, _ := NewWorkspace(n, length, Plan{Workers: 1})
	for draw := 0; draw < 5; draw++ {
		u := f.Draw(nil)
		var mean float64
		for _, v := range u {
			mean += v
		}
		mean /= float64(n)
		assert.InDelta(t, 0, mean, 1e-10, "DC mode is zeroed")
		spec := fft.Spectrum(nil, u)
		assert.InDelta(t, 0, cmplxAbs(spec[n/2]), 1e-8, "Nyquist mode is zeroed")
	}
}

func TestFBMColoringShapesSpectrum(t *testing.T) {
	var (
		n      = 256
		length = 2 * math.Pi
		draws  = 400
	)
	// With exponent beta the expected power at wavenumber k scales as
	// k^beta. Compare the ensemble-averaged power at k=2 and k=32: the
	// ratio should track (2/32)^beta well within sampling noise.
	f := NewFBM(n, length, -2.0, rand.NewPCG(42, 42))
	fft, _ := NewWorkspace(n, length, Plan{Workers: 1})
	var p2, p32 float64
	spec := make([]complex128, n/2+1)
	for draw := 0; draw < draws; draw++ {
		u := f.Draw(nil)
		fft.Spectrum(spec, u)
		p2 += cmplxAbs(spec[2]) * cmplxAbs(spec[2])
		p32 += cmplxAbs(spec[32]) * cmplxAbs(spec[32])
	}
	got := p2 / p32
	want := math.Pow(2.0/32.0, -2.0)
	assert.InEpsilon(t, want, got, 0.3)
}
