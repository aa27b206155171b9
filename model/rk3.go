package model

// Williamson low-storage third-order Runge-Kutta coefficients. Each stage
// applies dU = A[k]*dU + dt*RHS followed by u += B[k]*dU, so only one extra
// field of storage is carried.
var (
	RK3A = [3]float64{0, -5. / 9., -153. / 128.}
	RK3B = [3]float64{1. / 3., 15. / 16., 8. / 15.}
)
