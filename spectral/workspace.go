package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Workspace owns the transform plans and scratch buffers for one resolution.
// All buffer sizes are fixed at construction and never resized; operations
// that return a spectrum-domain result leave the Nyquist coefficient zero.
type Workspace struct {
	n, m    int     // grid points, Nyquist index (n/2)
	np      int     // padded size for the 3/2 dealiasing rule
	nFine   int     // companion fine resolution (0 if absent)
	length  float64 // periodic domain length
	dx      float64
	workers int

	k []float64 // angular wavenumbers, length m+1

	fft     *fourier.FFT
	fftPad  *fourier.FFT
	fftFine *fourier.FFT

	spec     []complex128 // m+1
	specN    []complex128 // m+1
	specPad  []complex128 // np/2+1
	phys     []float64    // n
	physPad  []float64    // np
	physPad2 []float64    // np
	specFine []complex128 // nFine/2+1
}

// NewWorkspace builds a workspace for n grid points (n even) on a periodic
// domain of the given length. plan carries the acquired execution strategy.
func NewWorkspace(n int, length float64, plan Plan) (*Workspace, error) {
	return NewWorkspaceWithFine(n, 0, length, plan)
}

// NewWorkspaceWithFine additionally prepares a forward transform at a
// companion fine resolution nFine so that fields generated there (the
// stochastic forcing in LES mode) can be spectrally projected down via
// Downscale. nFine must be a multiple of n.
func NewWorkspaceWithFine(n, nFine int, length float64, plan Plan) (*Workspace, error) {
	if n < 8 || n%2 != 0 {
		return nil, fmt.Errorf("workspace resolution must be even and >= 8, got %d", n)
	}
	if nFine != 0 && nFine%n != 0 {
		return nil, fmt.Errorf("fine resolution %d must be a multiple of %d", nFine, n)
	}
	var (
		m  = n / 2
		np = 3 * n / 2
	)
	w := &Workspace{
		n:       n,
		m:       m,
		np:      np,
		nFine:   nFine,
		length:  length,
		dx:      length / float64(n),
		workers: plan.Workers,
		k:       Wavenumbers(n, length),
		fft:     fourier.NewFFT(n),
		fftPad:  fourier.NewFFT(np),
		spec:    make([]complex128, m+1),
		specN:   make([]complex128, m+1),
		specPad: make([]complex128, np/2+1),
		phys:    make([]float64, n),
		physPad: make([]float64, np),
	}
	if nFine != 0 {
		w.fftFine = fourier.NewFFT(nFine)
		w.specFine = make([]complex128, nFine/2+1)
	}
	return w, nil
}

func (w *Workspace) N() int          { return w.n }
func (w *Workspace) Dx() float64     { return w.dx }
func (w *Workspace) Length() float64 { return w.length }

// Spectrum computes the forward real transform of u into dst (length n/2+1).
// Coefficients carry the unnormalized gonum convention (n times the Fourier
// amplitude).
func (w *Workspace) Spectrum(dst []complex128, u []float64) []complex128 {
	if dst == nil {
		dst = make([]complex128, w.m+1)
	}
	return w.fft.Coefficients(dst, u)
}

// Derivative computes the order-th spatial derivative of u. Orders 1 and 3
// are antisymmetric (purely imaginary multipliers), 2 is a real negative
// multiplier and 4 a real positive one (used by the hyperviscous term). The
// Nyquist coefficient is zeroed before the inverse transform.
func (w *Workspace) Derivative(dst, u []float64, order int) []float64 {
	if order < 1 || order > 4 {
		panic(fmt.Sprintf("derivative order must be 1..4, got %d", order))
	}
	if dst == nil {
		dst = make([]float64, w.n)
	}
	w.fft.Coefficients(w.spec, u)
	parallelFor(w.m+1, w.workers, func(lo, hi int) {
		for j := lo; j < hi; j++ {
			kj := w.k[j]
			switch order {
			case 1:
				w.specN[j] = complex(0, kj) * w.spec[j]
			case 2:
				w.specN[j] = complex(-kj*kj, 0) * w.spec[j]
			case 3:
				w.specN[j] = complex(0, -kj*kj*kj) * w.spec[j]
			case 4:
				w.specN[j] = complex(kj*kj*kj*kj, 0) * w.spec[j]
			}
		}
	})
	w.specN[w.m] = 0
	w.fft.Sequence(dst, w.specN)
	scale(dst, 1/float64(w.n), w.workers)
	return dst
}

// DealiasedSquare computes u*u free of aliasing error by the 3/2 padding
// rule: extend the spectrum to 3n/2 physical points, square there, transform
// back and truncate to the resolved modes.
func (w *Workspace) DealiasedSquare(dst, u []float64) []float64 {
	if dst == nil {
		dst = make([]float64, w.n)
	}
	w.padTo(w.physPad, u)
	parallelFor(w.np, w.workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			w.physPad[i] *= w.physPad[i]
		}
	})
	w.truncateFrom(dst, w.physPad)
	return dst
}

// DealiasedAbsProduct computes |x|*x with the same 3/2 padding rule. This is
// the strain-rate product entering the Smagorinsky-type stresses.
func (w *Workspace) DealiasedAbsProduct(dst, x []float64) []float64 {
	if dst == nil {
		dst = make([]float64, w.n)
	}
	if w.physPad2 == nil {
		w.physPad2 = make([]float64, w.np)
	}
	w.padTo(w.physPad, x)
	for i := range w.phys {
		w.phys[i] = math.Abs(x[i])
	}
	w.padTo(w.physPad2, w.phys)
	parallelFor(w.np, w.workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			w.physPad[i] *= w.physPad2[i]
		}
	})
	w.truncateFrom(dst, w.physPad)
	return dst
}

// padTo zero-extends the spectrum of u onto the padded grid and inverse
// transforms, leaving the physical-space upsampled field in padded.
func (w *Workspace) padTo(padded, u []float64) {
	var (
		inv = 1 / float64(w.n)
	)
	w.fft.Coefficients(w.spec, u)
	for j := 0; j < w.m; j++ {
		w.specPad[j] = w.spec[j] * complex(inv, 0)
	}
	for j := w.m; j < len(w.specPad); j++ {
		w.specPad[j] = 0
	}
	w.fftPad.Sequence(padded, w.specPad)
}

// truncateFrom forward-transforms the padded product, truncates to the
// resolved modes with the Nyquist zeroed, rescales for the transform-size
// change and inverse transforms into dst.
func (w *Workspace) truncateFrom(dst, padded []float64) {
	var (
		inv = 1 / float64(w.np)
	)
	w.fftPad.Coefficients(w.specPad, padded)
	for j := 0; j < w.m; j++ {
		w.specN[j] = w.specPad[j] * complex(inv, 0)
	}
	w.specN[w.m] = 0
	w.fft.Sequence(dst, w.specN)
}

// Filter applies a sharp spectral cutoff, zeroing every coefficient at or
// above n/(2*ratio). Dynamic closures use ratio 2 as the test filter.
func (w *Workspace) Filter(dst, u []float64, ratio int) []float64 {
	if dst == nil {
		dst = make([]float64, w.n)
	}
	var (
		half = w.n / (2 * ratio)
		inv  = 1 / float64(w.n)
	)
	w.fft.Coefficients(w.spec, u)
	for j := 0; j < half; j++ {
		w.specN[j] = w.spec[j]
	}
	for j := half; j <= w.m; j++ {
		w.specN[j] = 0
	}
	w.fft.Sequence(dst, w.specN)
	scale(dst, inv, w.workers)
	return dst
}

// Downscale projects a field sampled at the companion fine resolution onto
// this workspace's grid by spectral truncation. The retained Fourier
// amplitudes are preserved exactly, which is what keeps DNS and LES forcing
// realizations statistically identical.
func (w *Workspace) Downscale(dst, fine []float64) []float64 {
	if w.fftFine == nil {
		panic("workspace was built without a companion fine resolution")
	}
	if len(fine) != w.nFine {
		panic(fmt.Sprintf("fine field has %d points, want %d", len(fine), w.nFine))
	}
	if dst == nil {
		dst = make([]float64, w.n)
	}
	var (
		inv = 1 / float64(w.nFine)
	)
	w.fftFine.Coefficients(w.specFine, fine)
	for j := 0; j < w.m; j++ {
		w.specN[j] = w.specFine[j] * complex(inv, 0)
	}
	w.specN[w.m] = 0
	w.fft.Sequence(dst, w.specN)
	return dst
}

// ZeroNyquist removes any energy from the highest representable mode of u in
// place. The driver applies this after every RK stage update.
func (w *Workspace) ZeroNyquist(u []float64) {
	w.fft.Coefficients(w.spec, u)
	w.spec[w.m] = 0
	w.fft.Sequence(u, w.spec)
	scale(u, 1/float64(w.n), w.workers)
}

func scale(x []float64, s float64, workers int) {
	parallelFor(len(x), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			x[i] *= s
		}
	})
}
