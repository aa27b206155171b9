package spectral

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat/distuv"
)

// FBM draws fractional-Brownian-motion noise realizations: white Gaussian
// noise spectrally colored by |k|^(exponent/2), with the DC and Nyquist
// modes zeroed. The generator state advances on every Draw, so a fixed seed
// yields a reproducible forcing sequence.
type FBM struct {
	n, m     int
	exponent float64
	coloring []float64 // m+1, coloring[0] unused (DC is zeroed)
	normal   distuv.Normal
	fft      *fourier.FFT
	white    []float64
	spec     []complex128
}

// NewFBM builds a forcing generator for n points on a domain of the given
// length. src is the explicit RNG handle owned by the caller.
func NewFBM(n int, length, exponent float64, src rand.Source) *FBM {
	var (
		m = n / 2
		k = Wavenumbers(n, length)
	)
	coloring := make([]float64, m+1)
	for j := 1; j <= m; j++ {
		coloring[j] = math.Pow(k[j], exponent/2)
	}
	return &FBM{
		n:        n,
		m:        m,
		exponent: exponent,
		coloring: coloring,
		normal:   distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		fft:      fourier.NewFFT(n),
		white:    make([]float64, n),
		spec:     make([]complex128, m+1),
	}
}

// Draw fills dst (length n) with a fresh noise realization and returns it.
func (f *FBM) Draw(dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, f.n)
	}
	var (
		amp = math.Sqrt(float64(f.n))
		inv = 1 / float64(f.n)
	)
	for i := range f.white {
		f.white[i] = amp * f.normal.Rand()
	}
	f.fft.Coefficients(f.spec, f.white)
	f.spec[0] = 0
	f.spec[f.m] = 0
	for j := 1; j < f.m; j++ {
		f.spec[j] *= complex(f.coloring[j], 0)
	}
	f.fft.Sequence(dst, f.spec)
	for i := range dst {
		dst[i] *= inv
	}
	return dst
}
