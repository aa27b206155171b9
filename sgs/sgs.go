// Package sgs provides the subgrid-scale turbulence closures used by the LES
// driver. Each closure turns the resolved velocity field and its derivative
// into a turbulent stress tau(x) and a model coefficient; the driver forms
// the stress divergence and folds it into the right-hand side.
package sgs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gophys/goburgers/spectral"
)

// Model constants shared by the closures.
const (
	SmagorinskyCs     = 0.16
	TestFilterRatio   = 2
	DeardorffCe       = 0.70
	DeardorffC1       = 0.10
	WongLillyExponent = 4.0 / 3.0
)

// Model is the common closure contract. Compute returns the turbulent stress
// field and the model coefficient for the current resolved state; tau points
// at an internal buffer overwritten on the next call.
type Model interface {
	Name() string
	Compute(u, dudx []float64) (tau []float64, coeff float64)
}

// Prognostic is implemented by closures carrying internal state advanced in
// lockstep with the velocity field. Advance applies one low-storage RK stage
// with the coefficient pair (a, b) and the stage step size.
type Prognostic interface {
	Advance(a, b, dt float64)
	Energy() []float64
}

// New selects a closure by its configured id:
// 0 no model, 1 constant Smagorinsky, 2 dynamic Smagorinsky,
// 3 dynamic Wong-Lilly, 4 Deardorff 1.5-order TKE.
func New(id, nx int, dx, eps float64, ws *spectral.Workspace, log *logrus.Entry) (Model, error) {
	switch id {
	case 0:
		return NewNoModel(nx), nil
	case 1:
		log.Info("Using the Smagorinsky model")
		return NewSmagConstant(nx, dx, ws), nil
	case 2:
		log.Info("Using the Dynamic Smagorinsky model")
		return NewSmagDynamic(nx, dx, eps, ws, log), nil
	case 3:
		log.Info("Using the Wong-Lilly model")
		return NewWongLilly(nx, dx, eps, ws, log), nil
	case 4:
		log.Info("Using the Deardorff TKE model")
		return NewDeardorff(nx, dx, ws), nil
	}
	return nil, fmt.Errorf("unknown SGS model id %d (valid options: 0-4)", id)
}

// NoModel is the "off" sentinel: zero stress, zero coefficient.
type NoModel struct {
	tau []float64
}

func NewNoModel(nx int) *NoModel {
	return &NoModel{tau: make([]float64, nx)}
}

func (m *NoModel) Name() string { return "none" }

func (m *NoModel) Compute(u, dudx []float64) ([]float64, float64) {
	return m.tau, 0
}
