package postings

import (
	"encoding/binary"
	"path/filepath"

	"github.com/netspeak-go/netspeak/pkg/phrasedict"
)

// minSketchSize is the smallest postlist size that earns a sketch (§4.4.3:
// "N/1000 >= 1").
const minSketchSize = 1000

// numQuantiles is the fixed point count sampled per sketch, evenly spaced
// across the postlist's cumulative normalized frequency.
const numQuantiles = 100

// SketchPoint samples one (index, frequency) pair at a cumulative
// frequency quantile.
type SketchPoint struct {
	Index     uint32
	Frequency uint64
}

const sketchPointSize = 12
const sketchValueSize = numQuantiles * sketchPointSize

// buildSketch samples entries (already sorted descending by frequency) at
// numQuantiles evenly spaced points of the cumulative normalized
// frequency. It returns nil if entries is too small to earn a sketch.
func buildSketch(entries []Posting) []SketchPoint {
	n := len(entries)
	if n/minSketchSize < 1 {
		return nil
	}

	var total uint64
	for _, e := range entries {
		total += e.Frequency
	}
	if total == 0 {
		return nil
	}

	points := make([]SketchPoint, numQuantiles)
	var cumulative uint64
	quantile := 0
	for i, e := range entries {
		cumulative += e.Frequency
		threshold := uint64(quantile+1) * total / numQuantiles
		for quantile < numQuantiles && cumulative >= threshold {
			points[quantile] = SketchPoint{Index: uint32(i), Frequency: e.Frequency}
			quantile++
			if quantile >= numQuantiles {
				break
			}
			threshold = uint64(quantile+1) * total / numQuantiles
		}
		if quantile >= numQuantiles {
			break
		}
	}
	for ; quantile < numQuantiles; quantile++ {
		points[quantile] = SketchPoint{Index: uint32(n - 1), Frequency: entries[n-1].Frequency}
	}
	return points
}

func encodeSketch(points []SketchPoint) []byte {
	buf := make([]byte, sketchValueSize)
	for i, p := range points {
		off := i * sketchPointSize
		binary.LittleEndian.PutUint32(buf[off:off+4], p.Index)
		binary.LittleEndian.PutUint64(buf[off+4:off+12], p.Frequency)
	}
	return buf
}

func decodeSketch(buf []byte) []SketchPoint {
	points := make([]SketchPoint, numQuantiles)
	for i := range points {
		off := i * sketchPointSize
		points[i] = SketchPoint{
			Index:     binary.LittleEndian.Uint32(buf[off : off+4]),
			Frequency: binary.LittleEndian.Uint64(buf[off+4 : off+12]),
		}
	}
	return points
}

// SketchIndex is the auxiliary inverted file of §4.4.3, keyed by the same
// word keys as the phrase index proper. The retrieval core uses a sketch
// only to estimate a postlist's length; it does not use sketches to pick a
// starting offset or to prune postlists.
type SketchIndex struct {
	dict *phrasedict.Dict
}

// BuildSketchIndex builds a sketch for every postlist large enough to earn
// one; small postlists are simply absent from the index, so Lookup
// reports them as "no sketch" (the caller then reads the postlist's length
// from the phrase index head).
func BuildSketchIndex(postlists map[string][]Posting) (*SketchIndex, error) {
	var keys []string
	var values [][]byte
	for key, entries := range postlists {
		points := buildSketch(entries)
		if points == nil {
			continue
		}
		keys = append(keys, key)
		values = append(values, encodeSketch(points))
	}
	dict, err := phrasedict.Build(keys, values, 0)
	if err != nil {
		return nil, err
	}
	return &SketchIndex{dict: dict}, nil
}

// Lookup returns key's sketch points, or (nil, false) if the postlist was
// too small to earn one.
func (s *SketchIndex) Lookup(key string) ([]SketchPoint, bool) {
	raw, ok := s.dict.Get(key)
	if !ok {
		return nil, false
	}
	return decodeSketch(raw), true
}

// SaveSketchIndex persists a sketch index to dir.
func SaveSketchIndex(s *SketchIndex, dir string) error {
	return s.dict.Save(dir)
}

// LoadSketchIndex opens a sketch index previously written by
// SaveSketchIndex.
func LoadSketchIndex(dir string) (*SketchIndex, error) {
	dict, err := phrasedict.Load(dir)
	if err != nil {
		return nil, err
	}
	return &SketchIndex{dict: dict}, nil
}

// sketchDirName is the conventional subdirectory name under a phrase
// index directory for its sketch (kept separate from table/ since it is
// keyed identically but holds different values).
const sketchDirName = "sketch"

// SketchPath joins dir with the conventional sketch subdirectory.
func SketchPath(dir string) string {
	return filepath.Join(dir, sketchDirName)
}
