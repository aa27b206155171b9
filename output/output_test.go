package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.gob")
	h := Header{Mode: "les", Nx: 8, Length: 6.28, Fields: []string{"tke", "coefficient"}}

	w, err := NewWriter(path, h)
	assert.NoError(t, err)
	for i := 0; i < 3; i++ {
		err = w.Save(Snapshot{
			Index:   i,
			Time:    0.1 * float64(i),
			U:       []float64{1, 2, 3, 4, 5, 6, 7, float64(i)},
			Scalars: map[string]float64{"tke": float64(i) * 0.5, "coefficient": 0.16},
			Extra:   map[string][]float64{"tke_sgs": {1, 1, 1, 1, 1, 1, 1, 1}},
		})
		assert.NoError(t, err)
	}
	assert.NoError(t, w.Close())

	got, snaps, err := Read(path)
	assert.NoError(t, err)
	assert.Equal(t, "les", got.Mode)
	assert.Equal(t, 8, got.Nx)
	assert.Equal(t, []string{"tke", "coefficient"}, got.Fields)
	assert.Equal(t, 1, got.Version)
	assert.Len(t, snaps, 3)
	for i, s := range snaps {
		assert.Equal(t, i, s.Index)
		assert.InDelta(t, 0.1*float64(i), s.Time, 1e-12)
		assert.Len(t, s.U, 8)
		assert.Equal(t, 0.16, s.Scalars["coefficient"])
		assert.Equal(t, []float64{1, 1, 1, 1, 1, 1, 1, 1}, s.Extra["tke_sgs"])
	}
}

func TestReadTruncatedStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.gob")
	w, err := NewWriter(path, Header{Mode: "dns", Nx: 4})
	assert.NoError(t, err)
	assert.NoError(t, w.Save(Snapshot{Index: 0, U: []float64{1, 2, 3, 4}}))
	assert.NoError(t, w.Close())

	// Chop the tail off the file: the header and any complete snapshots
	// before the cut still come back, with an error for the rest.
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(path, data[:len(data)-3], 0o644))

	h, snaps, err := Read(path)
	assert.Error(t, err)
	assert.Equal(t, "dns", h.Mode)
	assert.Empty(t, snaps)
}

func TestReadMissingFile(t *testing.T) {
	_, _, err := Read(filepath.Join(t.TempDir(), "nope.gob"))
	assert.Error(t, err)
}
