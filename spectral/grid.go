package spectral

import "math"

// Wavenumbers builds the angular wavenumber array for a periodic domain of
// the given length sampled at n points: k_j = 2*pi*j/L for j = 0..n/2.
func Wavenumbers(n int, length float64) (k []float64) {
	var (
		m   = n / 2
		fac = 2 * math.Pi / length
	)
	k = make([]float64, m+1)
	for j := 0; j <= m; j++ {
		k[j] = fac * float64(j)
	}
	return
}
