package spectral

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testCache(t *testing.T) *PlanCache {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	path := filepath.Join(t.TempDir(), "plans")
	return NewPlanCache(path, log.WithField("test", t.Name()))
}

func TestParseEffort(t *testing.T) {
	for s, want := range map[string]Effort{
		"estimate": EffortEstimate,
		"measure":  EffortMeasure,
		"patient":  EffortPatient,
	} {
		got, err := ParseEffort(s)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, s, got.String())
	}
	_, err := ParseEffort("exhaustive")
	assert.Error(t, err)
}

func TestAcquirePersistsAndHits(t *testing.T) {
	pc := testCache(t)
	key := PlanKey{N: 64, Threads: 4, Effort: EffortMeasure, Fingerprint: Fingerprint(6.28, -0.75)}

	first := pc.Acquire(key)
	assert.GreaterOrEqual(t, first.Workers, 1)
	assert.LessOrEqual(t, first.Workers, 4)

	// The second acquisition must come back from the cache file, byte-equal
	// to what was persisted.
	second := pc.Acquire(key)
	assert.Equal(t, first, second)

	cf, err := pc.read()
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), cf.Generation)
	assert.Contains(t, cf.Entries, key)
}

func TestAcquireEstimateSkipsSearch(t *testing.T) {
	pc := testCache(t)
	pl := pc.Acquire(PlanKey{N: 64, Threads: 3, Effort: EffortEstimate})
	assert.Equal(t, 3, pl.Workers)
	assert.Zero(t, pl.KernelNs)
}

func TestKeyComponentsInvalidate(t *testing.T) {
	pc := testCache(t)
	base := PlanKey{N: 64, Threads: 2, Effort: EffortMeasure, Fingerprint: Fingerprint(6.28, -0.75)}
	pc.Acquire(base)

	// Changing any key component must miss the stored entry.
	for _, key := range []PlanKey{
		{N: 128, Threads: 2, Effort: EffortMeasure, Fingerprint: base.Fingerprint},
		{N: 64, Threads: 4, Effort: EffortMeasure, Fingerprint: base.Fingerprint},
		{N: 64, Threads: 2, Effort: EffortPatient, Fingerprint: base.Fingerprint},
		{N: 64, Threads: 2, Effort: EffortMeasure, Fingerprint: Fingerprint(6.28, -2.0)},
	} {
		_, ok := pc.load(key)
		assert.False(t, ok, "key %+v should miss", key)
	}
	_, ok := pc.load(base)
	assert.True(t, ok)
}

func TestCorruptCacheIsAMiss(t *testing.T) {
	pc := testCache(t)
	assert.NoError(t, os.WriteFile(pc.path, []byte("not a gob stream"), 0o644))

	_, ok := pc.load(PlanKey{N: 64, Threads: 1, Effort: EffortMeasure})
	assert.False(t, ok)

	// Acquire still succeeds and repairs the file.
	key := PlanKey{N: 64, Threads: 2, Effort: EffortMeasure}
	pl := pc.Acquire(key)
	assert.GreaterOrEqual(t, pl.Workers, 1)
	got, ok := pc.load(key)
	assert.True(t, ok)
	assert.Equal(t, pl, got)
}

func TestSaveMergesConcurrentEntries(t *testing.T) {
	pc := testCache(t)
	k1 := PlanKey{N: 32, Threads: 1, Effort: EffortEstimate}
	k2 := PlanKey{N: 64, Threads: 1, Effort: EffortEstimate}
	pc.save(k1, Plan{Workers: 1})
	pc.save(k2, Plan{Workers: 1})

	cf, err := pc.read()
	assert.NoError(t, err)
	assert.Len(t, cf.Entries, 2)
	assert.Equal(t, uint64(2), cf.Generation)
}
