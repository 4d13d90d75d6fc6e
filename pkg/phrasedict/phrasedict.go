// Package phrasedict implements the minimal perfect hash dictionary of
// §4.6: sharded by hash(key) mod M, each shard a hash-and-displace MPHF
// (the CHD family) over a fixed-size value table, checksum-guarded lookup
// with no key comparison. It serves both the phrase->(freq,id) dictionary
// and the phrase-index key->address table.
//
// No CHD/BDZ/BMZ library exists anywhere in the retrieved example
// repositories or their dependency manifests, so the MPHF construction
// here is hand-rolled, built on the pack's own xxhash for the three
// independent hashes a bucket-displacement scheme needs.
package phrasedict

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/netspeak-go/netspeak/internal/logger"
)

var log = logger.New("phrasedict")

// DefaultShardTargetKeys mirrors §4.6.1's ~10M keys per shard guidance.
const DefaultShardTargetKeys = 10_000_000

// maxDisplacementTries bounds the hash-and-displace search per bucket.
// Realistic key sets (average bucket size 4) resolve within a handful of
// tries; this is a safety valve against pathological hash collisions.
const maxDisplacementTries = 1 << 20

// averageBucketSize is the lambda parameter of the displacement scheme:
// larger buckets cost more to place but the bucket table itself shrinks.
const averageBucketSize = 4

func hash1(key string) uint32 { return uint32(xxhash.Sum64String("b:" + key)) }
func hash2(key string) uint32 { return uint32(xxhash.Sum64String("s:" + key)) }
func hash3(key string) uint32 { return uint32(xxhash.Sum64String("c:" + key)) }
func shardHash(key string) uint32 {
	return uint32(xxhash.Sum64String("shard:" + key))
}

type slot struct {
	checksum uint32
	value    []byte
	filled   bool
}

type shard struct {
	numBuckets uint32
	displace   []uint32
	slots      []slot
}

func (s *shard) get(key string) ([]byte, bool) {
	if s.numBuckets == 0 {
		return nil, false
	}
	bucket := hash1(key) % s.numBuckets
	d := s.displace[bucket]
	slotIndex := (hash2(key) + d) % uint32(len(s.slots))
	sl := s.slots[slotIndex]
	if !sl.filled || sl.checksum != hash3(key) {
		return nil, false
	}
	return sl.value, true
}

// buildShard constructs one shard's MPHF over keys/values using the CHD
// bucket-displacement algorithm: keys are grouped into buckets, buckets
// are placed into the n-slot table largest-first, and each bucket searches
// for a displacement value under which none of its keys' candidate slots
// collide with an already-placed key.
func buildShard(keys []string, values [][]byte) (*shard, error) {
	n := len(keys)
	if n == 0 {
		return &shard{}, nil
	}

	numBuckets := uint32(n / averageBucketSize)
	if numBuckets == 0 {
		numBuckets = 1
	}

	buckets := make([][]int, numBuckets)
	for i, k := range keys {
		b := hash1(k) % numBuckets
		buckets[b] = append(buckets[b], i)
	}

	order := make([]uint32, numBuckets)
	for b := range order {
		order[b] = uint32(b)
	}
	sort.Slice(order, func(i, j int) bool {
		return len(buckets[order[i]]) > len(buckets[order[j]])
	})

	slots := make([]slot, n)
	displace := make([]uint32, numBuckets)
	used := make([]bool, n)

	for _, b := range order {
		members := buckets[b]
		if len(members) == 0 {
			continue
		}
		placed := false
		trial := make([]uint32, 0, len(members))
		for d := uint32(0); d < maxDisplacementTries; d++ {
			trial = trial[:0]
			ok := true
			for _, idx := range members {
				slotIndex := (hash2(keys[idx]) + d) % uint32(n)
				if used[slotIndex] {
					ok = false
					break
				}
				for _, seen := range trial {
					if seen == slotIndex {
						ok = false
						break
					}
				}
				if !ok {
					break
				}
				trial = append(trial, slotIndex)
			}
			if ok {
				for i, idx := range members {
					slotIndex := trial[i]
					used[slotIndex] = true
					slots[slotIndex] = slot{
						checksum: hash3(keys[idx]),
						value:    values[idx],
						filled:   true,
					}
				}
				displace[b] = d
				placed = true
				break
			}
		}
		if !placed {
			return nil, fmt.Errorf("phrasedict: could not place bucket %d (%d keys) within %d displacement tries", b, len(members), maxDisplacementTries)
		}
	}

	return &shard{numBuckets: numBuckets, displace: displace, slots: slots}, nil
}

// Dict is an immutable sharded perfect-hash dictionary, built once offline
// and opened read-only thereafter.
type Dict struct {
	valueSize int
	shards    []*shard
}

// Build partitions keys by shardHash(key) mod numShards (derived from
// shardTargetKeys) and constructs one MPHF shard per partition. Every
// value must have the same length (the fixed per-slot value size of
// §4.6.1 step 4).
func Build(keys []string, values [][]byte, shardTargetKeys int) (*Dict, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("phrasedict: %d keys but %d values", len(keys), len(values))
	}
	if len(keys) == 0 {
		return &Dict{shards: []*shard{{}}}, nil
	}
	valueSize := len(values[0])
	for _, v := range values {
		if len(v) != valueSize {
			return nil, fmt.Errorf("phrasedict: inconsistent value size: %d vs %d", len(v), valueSize)
		}
	}
	if shardTargetKeys <= 0 {
		shardTargetKeys = DefaultShardTargetKeys
	}
	numShards := (len(keys) + shardTargetKeys - 1) / shardTargetKeys
	if numShards < 1 {
		numShards = 1
	}

	shardKeys := make([][]string, numShards)
	shardValues := make([][][]byte, numShards)
	for i, k := range keys {
		s := shardHash(k) % uint32(numShards)
		shardKeys[s] = append(shardKeys[s], k)
		shardValues[s] = append(shardValues[s], values[i])
	}

	shards := make([]*shard, numShards)
	for i := range shards {
		sh, err := buildShard(shardKeys[i], shardValues[i])
		if err != nil {
			return nil, err
		}
		shards[i] = sh
	}

	log.Debugf("built phrase dictionary: %d keys across %d shards", len(keys), numShards)
	return &Dict{valueSize: valueSize, shards: shards}, nil
}

// Get looks up key, returning its value and true on a checksum-verified
// hit. A checksum mismatch (a key outside the original build set colliding
// with an MPHF slot) reports a clean miss, exactly as a true absence would.
func (d *Dict) Get(key string) ([]byte, bool) {
	if len(d.shards) == 0 {
		return nil, false
	}
	s := d.shards[shardHash(key)%uint32(len(d.shards))]
	return s.get(key)
}

// ValueSize is the fixed byte length of every stored value.
func (d *Dict) ValueSize() int {
	return d.valueSize
}

// Save persists the dictionary to dir: a top-level "index" file naming the
// shard count and value size, and one "shard.<i>" file per shard (§4.6.1
// step 6).
func (d *Dict) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	indexPath := filepath.Join(dir, "index")
	idx, err := os.Create(indexPath)
	if err != nil {
		return err
	}
	defer idx.Close()
	if err := binary.Write(idx, binary.LittleEndian, uint32(len(d.shards))); err != nil {
		return err
	}
	if err := binary.Write(idx, binary.LittleEndian, uint32(d.valueSize)); err != nil {
		return err
	}

	for i, s := range d.shards {
		if err := saveShard(filepath.Join(dir, fmt.Sprintf("shard.%d", i)), s, d.valueSize); err != nil {
			return err
		}
	}
	return nil
}

func saveShard(path string, s *shard, valueSize int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := binary.Write(w, binary.LittleEndian, s.numBuckets); err != nil {
		return err
	}
	for _, d := range s.displace {
		if err := binary.Write(w, binary.LittleEndian, d); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.slots))); err != nil {
		return err
	}
	for _, sl := range s.slots {
		filled := uint8(0)
		if sl.filled {
			filled = 1
		}
		if err := w.WriteByte(filled); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, sl.checksum); err != nil {
			return err
		}
		value := sl.value
		if len(value) != valueSize {
			value = make([]byte, valueSize)
		}
		if _, err := w.Write(value); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Load opens a dictionary previously written by Save.
func Load(dir string) (*Dict, error) {
	idx, err := os.Open(filepath.Join(dir, "index"))
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	var numShards, valueSize uint32
	if err := binary.Read(idx, binary.LittleEndian, &numShards); err != nil {
		return nil, err
	}
	if err := binary.Read(idx, binary.LittleEndian, &valueSize); err != nil {
		return nil, err
	}

	shards := make([]*shard, numShards)
	for i := range shards {
		s, err := loadShard(filepath.Join(dir, fmt.Sprintf("shard.%d", i)), int(valueSize))
		if err != nil {
			return nil, err
		}
		shards[i] = s
	}
	log.Debugf("loaded phrase dictionary from %s: %d shards", dir, numShards)
	return &Dict{valueSize: int(valueSize), shards: shards}, nil
}

func loadShard(path string, valueSize int) (*shard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var numBuckets uint32
	if err := binary.Read(r, binary.LittleEndian, &numBuckets); err != nil {
		return nil, err
	}
	displace := make([]uint32, numBuckets)
	for i := range displace {
		if err := binary.Read(r, binary.LittleEndian, &displace[i]); err != nil {
			return nil, err
		}
	}
	var numSlots uint32
	if err := binary.Read(r, binary.LittleEndian, &numSlots); err != nil {
		return nil, err
	}
	slots := make([]slot, numSlots)
	for i := range slots {
		filledByte, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		var checksum uint32
		if err := binary.Read(r, binary.LittleEndian, &checksum); err != nil {
			return nil, err
		}
		value := make([]byte, valueSize)
		if _, err := io.ReadFull(r, value); err != nil {
			return nil, err
		}
		slots[i] = slot{checksum: checksum, value: value, filled: filledByte == 1}
	}
	return &shard{numBuckets: numBuckets, displace: displace, slots: slots}, nil
}
