package sgs

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/gophys/goburgers/spectral"
)

// SmagConstant is the classic fixed-coefficient Smagorinsky closure:
// tau = -2 Cs^2 dx^2 |du/dx| du/dx, with the strain product dealiased.
type SmagConstant struct {
	dx  float64
	ws  *spectral.Workspace
	tau []float64
	ss  []float64
}

func NewSmagConstant(nx int, dx float64, ws *spectral.Workspace) *SmagConstant {
	return &SmagConstant{
		dx:  dx,
		ws:  ws,
		tau: make([]float64, nx),
		ss:  make([]float64, nx),
	}
}

func (m *SmagConstant) Name() string { return "smagorinsky" }

func (m *SmagConstant) Compute(u, dudx []float64) ([]float64, float64) {
	var (
		cs2 = SmagorinskyCs * SmagorinskyCs
		fac = -2 * cs2 * m.dx * m.dx
	)
	m.ws.DealiasedAbsProduct(m.ss, dudx)
	for i := range m.tau {
		m.tau[i] = fac * m.ss[i]
	}
	return m.tau, SmagorinskyCs
}

// SmagDynamic computes the Smagorinsky coefficient at every call from the
// Germano identity, comparing the resolved field with a test-filtered copy
// at twice the grid filter width.
type SmagDynamic struct {
	dx  float64
	eps float64
	ws  *spectral.Workspace
	log *logrus.Entry

	tau []float64
	ss  []float64
	uf  []float64
	uu  []float64
	uuf []float64
	df  []float64
	tt  []float64
	ttf []float64
	l11 []float64
	m11 []float64
}

func NewSmagDynamic(nx int, dx, eps float64, ws *spectral.Workspace, log *logrus.Entry) *SmagDynamic {
	return &SmagDynamic{
		dx:  dx,
		eps: eps,
		ws:  ws,
		log: log,
		tau: make([]float64, nx),
		ss:  make([]float64, nx),
		uf:  make([]float64, nx),
		uu:  make([]float64, nx),
		uuf: make([]float64, nx),
		df:  make([]float64, nx),
		tt:  make([]float64, nx),
		ttf: make([]float64, nx),
		l11: make([]float64, nx),
		m11: make([]float64, nx),
	}
}

func (m *SmagDynamic) Name() string { return "smagorinsky-dynamic" }

func (m *SmagDynamic) Compute(u, dudx []float64) ([]float64, float64) {
	var (
		ratio = TestFilterRatio
		r2    = float64(ratio * ratio)
		dx2   = m.dx * m.dx
	)
	// Leonard stress L11 = F(uu) - F(u)F(u)
	m.ws.Filter(m.uf, u, ratio)
	for i := range m.uu {
		m.uu[i] = u[i] * u[i]
	}
	m.ws.Filter(m.uuf, m.uu, ratio)
	for i := range m.l11 {
		m.l11[i] = m.uuf[i] - m.uf[i]*m.uf[i]
	}

	// Model tensor M11 = dx^2 (ratio^2 |F(du)|F(du) - F(|du|du))
	m.ws.Filter(m.df, dudx, ratio)
	for i := range m.tt {
		m.tt[i] = math.Abs(dudx[i]) * dudx[i]
	}
	m.ws.Filter(m.ttf, m.tt, ratio)
	for i := range m.m11 {
		m.m11[i] = dx2 * (r2*math.Abs(m.df[i])*m.df[i] - m.ttf[i])
	}

	cs2 := m.solveCoefficient()
	m.ws.DealiasedAbsProduct(m.ss, dudx)
	fac := -2 * cs2 * dx2
	for i := range m.tau {
		m.tau[i] = fac * m.ss[i]
	}
	return m.tau, math.Sqrt(cs2)
}

// solveCoefficient closes the Germano identity in a least-squares sense over
// the whole domain. A near-zero denominator is floored to zero coefficient
// rather than treated as fatal.
func (m *SmagDynamic) solveCoefficient() float64 {
	num, den := meanProducts(m.l11, m.m11)
	if den <= m.eps {
		m.log.Debugf("dynamic Smagorinsky denominator %g below floor, coefficient set to 0", den)
		return 0
	}
	cs2 := 0.5 * num / den
	if cs2 < 0 {
		cs2 = 0
	}
	return cs2
}

func meanProducts(a, b []float64) (ab, bb float64) {
	n := float64(len(a))
	return floats.Dot(a, b) / n, floats.Dot(b, b) / n
}
