// Package model contains the time-integration driver for the 1D stochastic
// Burgers equation. The same driver runs DNS and LES cases; the only
// differences are the working resolution, the subgrid closure, and the extra
// diagnostics an LES run records.
package model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/notargets/avs/chart2d"
	utils2 "github.com/notargets/avs/utils"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gophys/goburgers/input"
	"github.com/gophys/goburgers/output"
	"github.com/gophys/goburgers/sgs"
	"github.com/gophys/goburgers/spectral"
)

// DivergenceError reports a blown-up solution: a non-finite value or an
// amplitude beyond any physical regime of the forced Burgers equation.
type DivergenceError struct {
	Step int
	Time float64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("solution diverged at step %d (t = %g): "+
		"non-finite or unbounded velocity field", e.Step, e.Time)
}

// Sink receives one snapshot per save boundary. The caller owns the sink's
// lifecycle; the driver only pushes records.
type Sink interface {
	Save(s output.Snapshot) error
}

const (
	// divergenceLimit is the amplitude beyond which the run is declared blown.
	divergenceLimit = 1e10
	// forcingSeed fixes the noise sequence so DNS and LES runs of the same
	// namelist see statistically identical forcing.
	forcingSeed = 1
	// boundaryTol absorbs float accumulation error when landing on save,
	// print and noise-cadence boundaries.
	boundaryTol = 1e-12
)

type Simulation struct {
	mode Mode
	nl   *input.Namelist
	log  *logrus.Logger

	ws      *spectral.Workspace
	closure sgs.Model
	prog    sgs.Prognostic // non-nil when the closure carries state
	fbm     *spectral.FBM

	nx     int
	nxDNS  int
	dx     float64
	nu     float64
	nu4    float64 // hyperviscosity, 0 when disabled
	fscale float64 // sqrt(2*amplitude/max_step)

	u     []float64
	dU    []float64
	rhs   []float64
	dudx  []float64
	duu   []float64
	uu    []float64
	d2u   []float64
	d3u   []float64
	d4u   []float64
	dtau  []float64
	force []float64
	fine  []float64 // DNS-resolution noise buffer, LES only

	tau   []float64 // last closure stress, for diagnostics
	coeff float64   // last closure coefficient

	step int
	t    float64
}

func NewSimulation(mode Mode, nl *input.Namelist, log *logrus.Logger) (sim *Simulation, err error) {
	var (
		nxDNS = nl.Grid.DNS.Points
		nx    = nxDNS
	)
	if mode == LES {
		nx = nl.Grid.LES.Points
	}
	sim = &Simulation{
		mode:  mode,
		nl:    nl,
		log:   log,
		nx:    nx,
		nxDNS: nxDNS,
		nu:    nl.Physics.Viscosity,
	}

	plan := sim.acquirePlan()
	if mode == LES {
		sim.ws, err = spectral.NewWorkspaceWithFine(nx, nxDNS, nl.Grid.Length, plan)
	} else {
		sim.ws, err = spectral.NewWorkspace(nx, nl.Grid.Length, plan)
	}
	if err != nil {
		return nil, err
	}
	sim.dx = sim.ws.Dx()

	if nl.Physics.Hyperviscosity.Enabled {
		sim.nu4 = math.Pow(sim.dx, 4)
		log.Infof("Hyperviscosity enabled, nu4 = %8.3e", sim.nu4)
	}

	// Forcing is always generated at the DNS resolution; LES runs project
	// each realization down so both modes share the same noise sequence.
	sim.fbm = spectral.NewFBM(nxDNS, nl.Grid.Length, nl.Physics.Noise.Exponent,
		rand.NewPCG(forcingSeed, forcingSeed))
	sim.fscale = math.Sqrt(2 * nl.Physics.Noise.Amplitude / nl.Time.MaxStep)

	if mode == LES {
		sim.closure, err = sgs.New(nl.Physics.SubgridModel, nx, sim.dx,
			nl.Physics.DynamicEpsilon, sim.ws, log.WithField("mode", "les"))
		if err != nil {
			return nil, err
		}
		sim.prog, _ = sim.closure.(sgs.Prognostic)
		sim.fine = make([]float64, nxDNS)
	}

	sim.u = make([]float64, nx)
	sim.dU = make([]float64, nx)
	sim.rhs = make([]float64, nx)
	sim.dudx = make([]float64, nx)
	sim.duu = make([]float64, nx)
	sim.uu = make([]float64, nx)
	sim.d2u = make([]float64, nx)
	sim.d3u = make([]float64, nx)
	sim.d4u = make([]float64, nx)
	sim.dtau = make([]float64, nx)
	sim.force = make([]float64, nx)

	log.Infof("Starting %s run: %d points, nu = %8.3e, model = %s",
		mode, nx, sim.nu, sim.closureName())
	return sim, nil
}

// acquirePlan imports an execution plan from the persistent cache, or runs a
// fresh search when no valid entry exists. A missing home directory degrades
// to unplanned execution, never to a failed run.
func (sim *Simulation) acquirePlan() spectral.Plan {
	var (
		nl  = sim.nl
		log = sim.log.WithField("mode", sim.mode.String())
	)
	effort, err := spectral.ParseEffort(nl.FFTW.Planning)
	if err != nil {
		log.Warnf("%s, using estimate", err)
		effort = spectral.EffortEstimate
	}
	path, err := spectral.DefaultCachePath()
	if err != nil {
		log.Warnf("plan cache unavailable (%s), planning from scratch", err)
		return spectral.Plan{Workers: nl.FFTW.Threads}
	}
	pc := spectral.NewPlanCache(path, log)
	return pc.Acquire(spectral.PlanKey{
		N:           sim.nx,
		Threads:     nl.FFTW.Threads,
		Effort:      effort,
		Fingerprint: spectral.Fingerprint(nl.Grid.Length, nl.Physics.Noise.Exponent),
	})
}

func (sim *Simulation) closureName() string {
	if sim.closure == nil {
		return "none"
	}
	return sim.closure.Name()
}

// Header describes this run for the output stream.
func (sim *Simulation) Header() output.Header {
	fields := []string{"tke"}
	if sim.mode == LES {
		fields = append(fields, "coefficient",
			"diss_sgs", "diss_mol", "ens_prod", "ens_diss_sgs", "ens_diss_mol")
	}
	return output.Header{
		Mode:   sim.mode.String(),
		Nx:     sim.nx,
		Length: sim.ws.Length(),
		Fields: fields,
	}
}

// U exposes the current velocity field (a live buffer, not a copy).
func (sim *Simulation) U() []float64 { return sim.u }

// Time returns the current simulation time.
func (sim *Simulation) Time() float64 { return sim.t }

// Run advances the solution from rest to time.duration, saving a snapshot at
// every save boundary (including the initial state) and logging progress at
// every print boundary. Boundaries are landed on exactly by clamping the
// adaptive step.
func (sim *Simulation) Run(sink Sink, showGraph bool, graphDelay time.Duration) error {
	var (
		nl        = sim.nl
		duration  = nl.Time.Duration
		cadence   = nl.Time.MaxStep
		nextSave  = nl.Output.IntervalSave
		nextPrint = nl.Output.IntervalPrint
		nextNoise = 0.0
		saveIndex = 0
		chart     *chart2d.Chart2D
		colorMap  *utils2.ColorMap
		chartName string
		x         []float64
	)
	if showGraph {
		x = make([]float64, sim.nx)
		for i := range x {
			x[i] = float64(i) * sim.dx
		}
		chart = chart2d.NewChart2D(1024, 768, 0, float32(sim.ws.Length()), -1, 1)
		colorMap = utils2.NewColorMap(-1, 1, 1)
		chartName = fmt.Sprintf("Burgers %s", sim.mode)
		go chart.Plot()
	}

	if err := sim.saveSnapshot(sink, saveIndex); err != nil {
		return err
	}
	saveIndex++

	for sim.t < duration-boundaryTol {
		if sim.t >= nextNoise-boundaryTol {
			sim.drawForcing()
			nextNoise += cadence
		}
		dt := sim.stepSize()
		dt = clampToBoundary(sim.t, dt, nextSave, nextPrint, nextNoise, duration)

		sim.advance(dt)
		sim.step++
		sim.t += dt

		if err := sim.checkDivergence(); err != nil {
			return err
		}
		if sim.t >= nextPrint-boundaryTol {
			sim.logProgress(dt)
			nextPrint += nl.Output.IntervalPrint
		}
		if sim.t >= nextSave-boundaryTol {
			if err := sim.saveSnapshot(sink, saveIndex); err != nil {
				return err
			}
			saveIndex++
			nextSave += nl.Output.IntervalSave
		}
		if showGraph {
			if err := chart.AddSeries(chartName, x, sim.u,
				chart2d.CrossGlyph, chart2d.Dashed, colorMap.GetRGB(0)); err != nil {
				panic("unable to add graph series")
			}
			if graphDelay != 0 {
				time.Sleep(graphDelay)
			}
		}
	}
	sim.log.Infof("Finished at t = %8.4f after %d steps", sim.t, sim.step)
	return nil
}

// stepSize computes the adaptive step from the advective CFL condition and
// the explicit diffusive stability limits, capped at max_step.
func (sim *Simulation) stepSize() (dt float64) {
	var (
		umax = floats.Norm(sim.u, math.Inf(1))
		nl   = sim.nl
	)
	dt = nl.Time.MaxStep
	if umax > 0 {
		if adv := nl.Time.CFL * sim.dx / umax; adv < dt {
			dt = adv
		}
	}
	if visc := 0.2 * sim.dx * sim.dx / sim.nu; visc < dt {
		dt = visc
	}
	if sim.nu4 > 0 {
		if hyp := 0.1 * math.Pow(sim.dx, 4) / sim.nu4; hyp < dt {
			dt = hyp
		}
	}
	return
}

// clampToBoundary shortens dt so the step lands exactly on the nearest
// upcoming save, print, noise-cadence or end-of-run boundary.
func clampToBoundary(t, dt float64, boundaries ...float64) float64 {
	for _, b := range boundaries {
		if b > t+boundaryTol && t+dt > b-boundaryTol {
			dt = b - t
		}
	}
	return dt
}

// drawForcing pulls a fresh noise realization. LES runs draw at the DNS
// resolution and project down spectrally, so the retained modes match the
// DNS realization exactly.
func (sim *Simulation) drawForcing() {
	if sim.mode == LES {
		sim.fbm.Draw(sim.fine)
		sim.ws.Downscale(sim.force, sim.fine)
		return
	}
	sim.fbm.Draw(sim.force)
}

// advance takes one full low-storage RK3 step of size dt.
func (sim *Simulation) advance(dt float64) {
	for k := 0; k < 3; k++ {
		sim.computeRHS()
		var (
			a = RK3A[k]
			b = RK3B[k]
		)
		for i := range sim.u {
			sim.dU[i] = a*sim.dU[i] + dt*sim.rhs[i]
			sim.u[i] += b * sim.dU[i]
		}
		if sim.prog != nil {
			sim.prog.Advance(a, b, dt)
		}
		sim.ws.ZeroNyquist(sim.u)
	}
}

// computeRHS evaluates the semi-discrete right-hand side at the current
// stage state: skew advection in conservative form (dealiased), molecular
// diffusion, optional hyperviscous damping, the closure stress divergence
// and the stochastic forcing.
func (sim *Simulation) computeRHS() {
	var (
		ws = sim.ws
	)
	ws.Derivative(sim.dudx, sim.u, 1)
	ws.DealiasedSquare(sim.uu, sim.u)
	ws.Derivative(sim.duu, sim.uu, 1)
	ws.Derivative(sim.d2u, sim.u, 2)
	if sim.nu4 > 0 {
		ws.Derivative(sim.d4u, sim.u, 4)
	}
	if sim.closure != nil {
		sim.tau, sim.coeff = sim.closure.Compute(sim.u, sim.dudx)
		ws.Derivative(sim.dtau, sim.tau, 1)
	}
	for i := range sim.rhs {
		r := -0.5*sim.duu[i] + sim.nu*sim.d2u[i] + sim.fscale*sim.force[i]
		if sim.nu4 > 0 {
			r -= sim.nu4 * sim.d4u[i]
		}
		if sim.closure != nil {
			r -= 0.5 * sim.dtau[i]
		}
		sim.rhs[i] = r
	}
}

func (sim *Simulation) checkDivergence() error {
	for _, v := range sim.u {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > divergenceLimit {
			return &DivergenceError{Step: sim.step, Time: sim.t}
		}
	}
	return nil
}

func (sim *Simulation) logProgress(dt float64) {
	var (
		umin = floats.Min(sim.u)
		umax = floats.Max(sim.u)
	)
	sim.log.Infof("Time = %8.4f, dt = %8.6f, step = %6d, umin = %8.4f, umax = %8.4f, tke = %8.3e",
		sim.t, dt, sim.step, umin, umax, stat.Variance(sim.u, nil))
}

// saveSnapshot records the current state with its diagnostics. LES runs add
// the closure coefficient plus the energy and enstrophy budget terms split
// into subgrid and molecular contributions.
func (sim *Simulation) saveSnapshot(sink Sink, index int) error {
	var (
		ws = sim.ws
	)
	s := output.Snapshot{
		Index:   index,
		Time:    sim.t,
		U:       append([]float64(nil), sim.u...),
		Scalars: map[string]float64{"tke": stat.Variance(sim.u, nil)},
	}
	if sim.mode == LES {
		ws.Derivative(sim.dudx, sim.u, 1)
		ws.Derivative(sim.d2u, sim.u, 2)
		ws.Derivative(sim.d3u, sim.u, 3)
		sim.tau, sim.coeff = sim.closure.Compute(sim.u, sim.dudx)

		var dissSGS, dissMol, ensProd, ensDissSGS, ensDissMol float64
		for i := range sim.u {
			du := sim.dudx[i]
			dissSGS += -sim.tau[i] * du
			dissMol += sim.nu * du * du
			ensProd += du * du * du
			ensDissSGS += -sim.tau[i] * sim.d3u[i]
			ensDissMol += sim.nu * sim.d2u[i] * sim.d2u[i]
		}
		n := float64(sim.nx)
		s.Scalars["coefficient"] = sim.coeff
		s.Scalars["diss_sgs"] = dissSGS / n
		s.Scalars["diss_mol"] = dissMol / n
		s.Scalars["ens_prod"] = ensProd / n
		s.Scalars["ens_diss_sgs"] = ensDissSGS / n
		s.Scalars["ens_diss_mol"] = ensDissMol / n
		if sim.prog != nil {
			s.Extra = map[string][]float64{
				"tke_sgs": append([]float64(nil), sim.prog.Energy()...),
			}
		}
	}
	return sink.Save(s)
}
