package spectral

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Effort controls how much time plan acquisition may spend searching for an
// execution strategy, mirroring the estimate/measure/patient ladder of FFTW
// planning rigor.
type Effort int

const (
	EffortEstimate Effort = iota
	EffortMeasure
	EffortPatient
)

func ParseEffort(s string) (Effort, error) {
	switch s {
	case "estimate":
		return EffortEstimate, nil
	case "measure":
		return EffortMeasure, nil
	case "patient":
		return EffortPatient, nil
	}
	return 0, fmt.Errorf("unknown planning effort %q (want estimate, measure or patient)", s)
}

func (e Effort) String() string {
	switch e {
	case EffortEstimate:
		return "estimate"
	case EffortMeasure:
		return "measure"
	case EffortPatient:
		return "patient"
	}
	return fmt.Sprintf("Effort(%d)", int(e))
}

// iterations is the benchmark repeat count per candidate worker setting.
func (e Effort) iterations() int {
	switch e {
	case EffortMeasure:
		return 8
	case EffortPatient:
		return 64
	}
	return 0
}

// PlanKey identifies one cached plan. Any component changing invalidates the
// entry: a hit must match resolution, thread count, effort and the
// domain/noise fingerprint exactly.
type PlanKey struct {
	N           int
	Threads     int
	Effort      Effort
	Fingerprint string
}

// Fingerprint condenses the problem parameters that shape the transform
// workload beyond the resolution itself.
func Fingerprint(length, exponent float64) string {
	return fmt.Sprintf("L=%.9g;beta=%.9g", length, exponent)
}

// Plan is the reusable result of a plan search: the worker count the
// workspace's element-wise spectral kernels run with. Workers only affect
// scheduling, never numerics, so a cached plan cannot alter trajectories.
type Plan struct {
	Workers  int
	KernelNs int64 // measured kernel time, informational
}

type cacheFile struct {
	Generation uint64
	Entries    map[PlanKey]Plan
}

// lockTimeout bounds how long acquisition waits on another process before
// falling back to fresh planning.
const lockTimeout = 10 * time.Second

// PlanCache persists plan-search results across process runs. Reads take a
// shared file lock, writes an exclusive one, so concurrent processes never
// observe a torn file. A corrupt or unreadable cache is a miss, never fatal.
type PlanCache struct {
	path string
	lock *flock.Flock
	log  *logrus.Entry
}

// DefaultCachePath places the cache in the user's home directory.
func DefaultCachePath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".goburgers_plans"), nil
}

func NewPlanCache(path string, log *logrus.Entry) *PlanCache {
	return &PlanCache{
		path: path,
		lock: flock.New(path + ".lock"),
		log:  log,
	}
}

// Acquire returns the plan for key, importing it from the cache on a hit
// and running a full plan search (then persisting the result) on a miss.
func (pc *PlanCache) Acquire(key PlanKey) Plan {
	if pl, ok := pc.load(key); ok {
		pc.log.Debugf("plan cache hit for n=%d threads=%d effort=%s", key.N, key.Threads, key.Effort)
		return pl
	}
	if key.Effort != EffortEstimate {
		pc.log.Infof("plan cache miss, searching at effort %s (n=%d, threads=%d)", key.Effort, key.N, key.Threads)
	}
	pl := searchPlan(key)
	pc.save(key, pl)
	return pl
}

func (pc *PlanCache) load(key PlanKey) (Plan, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := pc.lock.TryRLockContext(ctx, 100*time.Millisecond)
	if err != nil || !locked {
		pc.log.Warnf("plan cache: shared lock not acquired within %s, falling back to fresh planning", lockTimeout)
		return Plan{}, false
	}
	defer pc.lock.Unlock()

	cf, err := pc.read()
	if err != nil {
		if !os.IsNotExist(err) {
			pc.log.Warnf("plan cache unreadable (%s), treating as miss", err)
		}
		return Plan{}, false
	}
	pl, ok := cf.Entries[key]
	return pl, ok
}

func (pc *PlanCache) read() (*cacheFile, error) {
	f, err := os.Open(pc.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cf := &cacheFile{}
	if err = gob.NewDecoder(f).Decode(cf); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if cf.Entries == nil {
		cf.Entries = make(map[PlanKey]Plan)
	}
	return cf, nil
}

func (pc *PlanCache) save(key PlanKey, pl Plan) {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := pc.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil || !locked {
		pc.log.Warnf("plan cache: exclusive lock not acquired within %s, plan not persisted", lockTimeout)
		return
	}
	defer pc.lock.Unlock()

	// Merge under the exclusive lock so concurrent writers never lose each
	// other's entries; a stale or corrupt file is simply overwritten.
	cf, err := pc.read()
	if err != nil {
		cf = &cacheFile{Entries: make(map[PlanKey]Plan)}
	}
	cf.Generation++
	cf.Entries[key] = pl

	tmp := pc.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		pc.log.Warnf("plan cache: unable to create %s: %s", tmp, err)
		return
	}
	if err = gob.NewEncoder(f).Encode(cf); err != nil {
		f.Close()
		os.Remove(tmp)
		pc.log.Warnf("plan cache: encode failed: %s", err)
		return
	}
	if err = f.Close(); err != nil {
		os.Remove(tmp)
		pc.log.Warnf("plan cache: close failed: %s", err)
		return
	}
	if err = os.Rename(tmp, pc.path); err != nil {
		pc.log.Warnf("plan cache: rename failed: %s", err)
	}
}

// searchPlan benchmarks the spectral kernel roundtrip for candidate worker
// counts and keeps the fastest. At estimate effort no measurement runs and
// the configured thread count is taken as-is.
func searchPlan(key PlanKey) Plan {
	if key.Effort == EffortEstimate || key.Threads == 1 {
		return Plan{Workers: key.Threads}
	}
	var (
		iters = key.Effort.iterations()
		fft   = fourier.NewFFT(key.N)
		u     = make([]float64, key.N)
		spec  = make([]complex128, key.N/2+1)
		best  = Plan{Workers: 1, KernelNs: int64(^uint64(0) >> 1)}
	)
	for i := range u {
		u[i] = float64(i%7) - 3
	}
	for _, w := range candidateWorkers(key.Threads) {
		start := time.Now()
		for it := 0; it < iters; it++ {
			fft.Coefficients(spec, u)
			parallelFor(len(spec), w, func(lo, hi int) {
				for j := lo; j < hi; j++ {
					spec[j] *= complex(0, 1)
				}
			})
			fft.Sequence(u, spec)
			scale(u, 1/float64(key.N), w)
		}
		elapsed := time.Since(start).Nanoseconds() / int64(iters)
		if elapsed < best.KernelNs {
			best = Plan{Workers: w, KernelNs: elapsed}
		}
	}
	return best
}

func candidateWorkers(threads int) (c []int) {
	for w := 1; w < threads; w *= 2 {
		c = append(c, w)
	}
	c = append(c, threads)
	return
}
