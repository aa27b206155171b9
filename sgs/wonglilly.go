package sgs

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/gophys/goburgers/spectral"
)

// WongLilly is a dynamic scale-similarity closure whose stress scales as
// dx^(4/3) rather than dx^2, with the coefficient closed from the Germano
// identity under the Wong-Lilly averaging rule.
type WongLilly struct {
	dx  float64
	eps float64
	ws  *spectral.Workspace
	log *logrus.Entry

	tau []float64
	uf  []float64
	uu  []float64
	uuf []float64
	df  []float64
	l11 []float64
	m11 []float64
}

func NewWongLilly(nx int, dx, eps float64, ws *spectral.Workspace, log *logrus.Entry) *WongLilly {
	return &WongLilly{
		dx:  dx,
		eps: eps,
		ws:  ws,
		log: log,
		tau: make([]float64, nx),
		uf:  make([]float64, nx),
		uu:  make([]float64, nx),
		uuf: make([]float64, nx),
		df:  make([]float64, nx),
		l11: make([]float64, nx),
		m11: make([]float64, nx),
	}
}

func (m *WongLilly) Name() string { return "wong-lilly" }

func (m *WongLilly) Compute(u, dudx []float64) ([]float64, float64) {
	var (
		dx43 = math.Pow(m.dx, WongLillyExponent)
		sim  = 1 - math.Pow(float64(TestFilterRatio), WongLillyExponent)
	)
	// Leonard stress L11 = F(uu) - F(u)F(u)
	m.ws.Filter(m.uf, u, TestFilterRatio)
	for i := range m.uu {
		m.uu[i] = u[i] * u[i]
	}
	m.ws.Filter(m.uuf, m.uu, TestFilterRatio)
	for i := range m.l11 {
		m.l11[i] = m.uuf[i] - m.uf[i]*m.uf[i]
	}

	// Model tensor M11 = dx^(4/3) (1 - ratio^(4/3)) F(du)
	m.ws.Filter(m.df, dudx, TestFilterRatio)
	for i := range m.m11 {
		m.m11[i] = dx43 * sim * m.df[i]
	}

	cwl := m.solveCoefficient()
	fac := -2 * cwl * dx43
	for i := range m.tau {
		m.tau[i] = fac * dudx[i]
	}
	return m.tau, cwl
}

func (m *WongLilly) solveCoefficient() float64 {
	num, den := meanProducts(m.l11, m.m11)
	if den <= m.eps {
		m.log.Debugf("Wong-Lilly denominator %g below floor, coefficient set to 0", den)
		return 0
	}
	cwl := 0.5 * num / den
	if cwl < 0 {
		cwl = 0
	}
	return cwl
}
