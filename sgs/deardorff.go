package sgs

import (
	"math"

	"github.com/gophys/goburgers/spectral"
)

// Deardorff is the 1.5-order TKE closure: it carries a prognostic subgrid
// turbulence-kinetic-energy field e(x) advanced by a production-dissipation-
// diffusion equation, and derives the eddy viscosity nu_t = C1 dx sqrt(e).
// The energy field advances with the same low-storage recurrence and stage
// step as the velocity field.
type Deardorff struct {
	dx float64
	ws *spectral.Workspace

	e    []float64 // subgrid TKE, persists across steps
	de   []float64 // low-storage stage accumulator for e
	tend []float64 // tendency computed by the last Compute call

	tau  []float64
	vt   []float64
	s2   []float64
	ku   []float64
	dk   []float64
	dku  []float64
	flux []float64
	dfl  []float64
}

func NewDeardorff(nx int, dx float64, ws *spectral.Workspace) *Deardorff {
	m := &Deardorff{
		dx:   dx,
		ws:   ws,
		e:    make([]float64, nx),
		de:   make([]float64, nx),
		tend: make([]float64, nx),
		tau:  make([]float64, nx),
		vt:   make([]float64, nx),
		s2:   make([]float64, nx),
		ku:   make([]float64, nx),
		dk:   make([]float64, nx),
		dku:  make([]float64, nx),
		flux: make([]float64, nx),
		dfl:  make([]float64, nx),
	}
	for i := range m.e {
		m.e[i] = 1
	}
	return m
}

func (m *Deardorff) Name() string { return "deardorff" }

// Energy exposes the prognostic subgrid TKE field for diagnostics.
func (m *Deardorff) Energy() []float64 { return m.e }

func (m *Deardorff) Compute(u, dudx []float64) ([]float64, float64) {
	// Eddy viscosity and stress from the current energy field
	for i := range m.vt {
		m.vt[i] = DeardorffC1 * m.dx * math.Sqrt(m.e[i])
		m.tau[i] = -2 * m.vt[i] * dudx[i]
	}

	// Production from the resolved strain, dealiased
	m.ws.DealiasedSquare(m.s2, dudx)

	// Advection of e and turbulent diffusion flux
	for i := range m.ku {
		m.ku[i] = m.e[i] * u[i]
	}
	m.ws.Derivative(m.dku, m.ku, 1)
	m.ws.Derivative(m.dk, m.e, 1)
	for i := range m.flux {
		m.flux[i] = 2 * m.vt[i] * m.dk[i]
	}
	m.ws.Derivative(m.dfl, m.flux, 1)

	// Tendency: -d(eu)/dx + 2 nu_t S^2 + d(2 nu_t de/dx)/dx - ce e^(3/2)/dx
	for i := range m.tend {
		m.tend[i] = -m.dku[i] + 2*m.vt[i]*m.s2[i] + m.dfl[i] -
			DeardorffCe*math.Pow(m.e[i], 1.5)/m.dx
	}
	return m.tau, DeardorffC1
}

// Advance applies one Williamson low-storage stage to the energy field using
// the tendency from the preceding Compute call. Energy is floored at zero.
func (m *Deardorff) Advance(a, b, dt float64) {
	for i := range m.e {
		m.de[i] = a*m.de[i] + dt*m.tend[i]
		m.e[i] += b * m.de[i]
		if m.e[i] < 0 {
			m.e[i] = 0
		}
	}
}
