// Package postings implements the phrase index (§4.4): an inverted index
// mapping keys "<n>:<pos>_<word>" to a Postlist of (phrase-local-id,
// frequency) pairs, built once offline and opened read-only here.
//
// Layout on disk: a properties file naming the value type, sort order,
// version and totals; data/data.N payload files holding contiguous
// (Head, values) records; and a table/ perfect-hash map (pkg/phrasedict)
// from key to (file index, offset).
package postings

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/netspeak-go/netspeak/internal/logger"
	"github.com/netspeak-go/netspeak/pkg/phrasedict"
)

var log = logger.New("postings")

// valueTypeName is the properties file's type identifier; opening a
// reader against an index built for a different posting value layout is
// rejected rather than silently misinterpreted.
const valueTypeName = "netspeak.postlist.v1"

// formatVersion is the compiled-in on-disk version this reader supports.
const formatVersion = uint32(1)

// defaultPageSize is the payload read chunk for paged iteration (§4.4.2).
const defaultPageSize = 5 * 1024 * 1024

// Posting is one postlist entry: a phrase-local id and its frequency.
// Entries are fixed-size (12 bytes: 4 + 8), so the on-disk Head never
// needs a per-value size table for this posting layout.
type Posting struct {
	PhraseID  uint32
	Frequency uint64
}

const postingSize = 12

// head mirrors the reference's 12-byte postlist head.
type head struct {
	valueCount uint32
	valueSize  uint32
	totalSize  uint32
}

const headSize = 12

// properties is the fixed struct persisted at build time (§4.4.1).
type properties struct {
	ValueType     string
	Descending    bool
	VersionNumber uint32
	Keys          uint64
	Values        uint64
	Bytes         uint64
}

// address locates a postlist's head inside data/data.N (§4.4.1 table/).
type address struct {
	FileIndex uint16
	Offset    uint32
}

func encodeAddress(a address) []byte {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b[0:2], a.FileIndex)
	binary.LittleEndian.PutUint32(b[2:6], a.Offset)
	return b
}

func decodeAddress(b []byte) address {
	return address{
		FileIndex: binary.LittleEndian.Uint16(b[0:2]),
		Offset:    binary.LittleEndian.Uint32(b[2:6]),
	}
}

// Reader is an opened, read-only phrase index.
type Reader struct {
	dir        string
	props      properties
	table      *phrasedict.Dict
	files      []*os.File
	fileMu     []sync.Mutex
	pageSize   int
}

// Open opens an index previously built under dir. It rejects a version or
// value-type mismatch with a descriptive error (§4.4.2).
func Open(dir string) (*Reader, error) {
	props, err := readProperties(filepath.Join(dir, "properties"))
	if err != nil {
		return nil, fmt.Errorf("postings: reading properties: %w", err)
	}
	if props.ValueType != valueTypeName {
		return nil, fmt.Errorf("postings: value type mismatch: index has %q, reader expects %q", props.ValueType, valueTypeName)
	}
	if props.VersionNumber != formatVersion {
		return nil, fmt.Errorf("postings: version mismatch: index is v%d, reader expects v%d", props.VersionNumber, formatVersion)
	}

	table, err := phrasedict.Load(filepath.Join(dir, "table"))
	if err != nil {
		return nil, fmt.Errorf("postings: loading table: %w", err)
	}

	dataDir := filepath.Join(dir, "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("postings: reading data dir: %w", err)
	}
	var files []*os.File
	for i := 0; ; i++ {
		path := filepath.Join(dataDir, fmt.Sprintf("data.%d", i))
		if !fileExists(entries, fmt.Sprintf("data.%d", i)) {
			break
		}
		f, err := os.Open(path)
		if err != nil {
			for _, open := range files {
				open.Close()
			}
			return nil, fmt.Errorf("postings: opening %s: %w", path, err)
		}
		files = append(files, f)
	}

	log.Debugf("opened phrase index at %s: %s keys, %s values, %s bytes",
		dir, humanize.Comma(int64(props.Keys)), humanize.Comma(int64(props.Values)), humanize.Bytes(props.Bytes))

	return &Reader{
		dir:      dir,
		props:    props,
		table:    table,
		files:    files,
		fileMu:   make([]sync.Mutex, len(files)),
		pageSize: defaultPageSize,
	}, nil
}

func fileExists(entries []os.DirEntry, name string) bool {
	for _, e := range entries {
		if e.Name() == name {
			return true
		}
	}
	return false
}

// Close releases every open data file handle.
func (r *Reader) Close() error {
	var firstErr error
	for _, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func readProperties(path string) (properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return properties{}, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var nameLen uint32
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return properties{}, err
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return properties{}, err
	}
	var p properties
	p.ValueType = string(nameBytes)

	var descending uint8
	if err := binary.Read(r, binary.LittleEndian, &descending); err != nil {
		return properties{}, err
	}
	p.Descending = descending != 0
	if err := binary.Read(r, binary.LittleEndian, &p.VersionNumber); err != nil {
		return properties{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Keys); err != nil {
		return properties{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Values); err != nil {
		return properties{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Bytes); err != nil {
		return properties{}, err
	}
	return p, nil
}

func writeProperties(path string, p properties) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := binary.Write(w, binary.LittleEndian, uint32(len(p.ValueType))); err != nil {
		return err
	}
	if _, err := w.WriteString(p.ValueType); err != nil {
		return err
	}
	descending := uint8(0)
	if p.Descending {
		descending = 1
	}
	if err := binary.Write(w, binary.LittleEndian, descending); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, p.VersionNumber); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, p.Keys); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, p.Values); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, p.Bytes); err != nil {
		return err
	}
	return w.Flush()
}
