// Package output persists simulation snapshots as a gob stream: one Header
// followed by Snapshot records, written at every save boundary. The sink
// owns the file format; the driver only pushes records.
package output

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// Header describes the run a snapshot stream belongs to.
type Header struct {
	Mode    string
	Nx      int
	Length  float64
	Fields  []string // scalar diagnostic names present in each snapshot
	Version int
}

// Snapshot is one saved state: the velocity field plus scalar diagnostics
// and any closure-specific extra fields (the Deardorff energy field).
type Snapshot struct {
	Index   int
	Time    float64
	U       []float64
	Scalars map[string]float64
	Extra   map[string][]float64
}

const formatVersion = 1

type Writer struct {
	f   *os.File
	buf *bufio.Writer
	enc *gob.Encoder
}

func NewWriter(path string, h Header) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := &Writer{f: f, buf: bufio.NewWriter(f)}
	w.enc = gob.NewEncoder(w.buf)
	h.Version = formatVersion
	if err = w.enc.Encode(h); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return w, nil
}

func (w *Writer) Save(s Snapshot) error {
	return w.enc.Encode(s)
}

func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Read loads a complete snapshot stream back, for post-processing and tests.
func Read(path string) (Header, []Snapshot, error) {
	var (
		h     Header
		snaps []Snapshot
	)
	f, err := os.Open(path)
	if err != nil {
		return h, nil, err
	}
	defer f.Close()
	dec := gob.NewDecoder(bufio.NewReader(f))
	if err = dec.Decode(&h); err != nil {
		return h, nil, fmt.Errorf("reading header: %w", err)
	}
	for {
		var s Snapshot
		if err = dec.Decode(&s); err != nil {
			if err == io.EOF {
				break
			}
			return h, snaps, fmt.Errorf("reading snapshot %d: %w", len(snaps), err)
		}
		snaps = append(snaps, s)
	}
	return h, snaps, nil
}
