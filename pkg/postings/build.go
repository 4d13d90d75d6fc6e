package postings

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/netspeak-go/netspeak/pkg/phrasedict"
)

// maxDataFileSize caps each data/data.N payload file at 1 GiB (§4.4.1).
const maxDataFileSize = 1 << 30

// Build writes a complete phrase index under dir from postlists, a map of
// key to its postings already sorted descending by frequency by the
// caller. Keys are assigned to data/data.N files in sorted key order,
// rolling over to a new file once maxDataFileSize would be exceeded.
func Build(dir string, postlists map[string][]Posting) error {
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	keys := make([]string, 0, len(postlists))
	for k := range postlists {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	addresses := make(map[string]address, len(keys))
	var totalValues uint64
	var totalBytes uint64

	fileIndex := 0
	curPath := filepath.Join(dataDir, fmt.Sprintf("data.%d", fileIndex))
	curFile, err := os.Create(curPath)
	if err != nil {
		return err
	}
	var curOffset int64

	closeCurrent := func() error { return curFile.Close() }

	for _, key := range keys {
		entries := postlists[key]
		record := encodePostlistRecord(entries)
		if curOffset > 0 && curOffset+int64(len(record)) > maxDataFileSize {
			if err := closeCurrent(); err != nil {
				return err
			}
			fileIndex++
			curPath = filepath.Join(dataDir, fmt.Sprintf("data.%d", fileIndex))
			curFile, err = os.Create(curPath)
			if err != nil {
				return err
			}
			curOffset = 0
		}
		if _, err := curFile.Write(record); err != nil {
			return err
		}
		addresses[key] = address{FileIndex: uint16(fileIndex), Offset: uint32(curOffset)}
		curOffset += int64(len(record))
		totalValues += uint64(len(entries))
		totalBytes += uint64(len(record))
	}
	if err := closeCurrent(); err != nil {
		return err
	}

	tableKeys := make([]string, len(keys))
	tableValues := make([][]byte, len(keys))
	for i, k := range keys {
		tableKeys[i] = k
		tableValues[i] = encodeAddress(addresses[k])
	}
	table, err := phrasedict.Build(tableKeys, tableValues, 0)
	if err != nil {
		return fmt.Errorf("postings: building address table: %w", err)
	}
	if err := table.Save(filepath.Join(dir, "table")); err != nil {
		return err
	}

	props := properties{
		ValueType:     valueTypeName,
		Descending:    true,
		VersionNumber: formatVersion,
		Keys:          uint64(len(keys)),
		Values:        totalValues,
		Bytes:         totalBytes,
	}
	return writeProperties(filepath.Join(dir, "properties"), props)
}

// encodePostlistRecord writes one postlist's Head followed by its
// concatenated fixed-size Posting values (§4.4.1). Postings here are
// always 12 bytes, so no per-value size table is ever emitted.
func encodePostlistRecord(entries []Posting) []byte {
	buf := make([]byte, headSize+len(entries)*postingSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	binary.LittleEndian.PutUint32(buf[4:8], postingSize)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(entries)*postingSize))
	for i, e := range entries {
		off := headSize + i*postingSize
		binary.LittleEndian.PutUint32(buf[off:off+4], e.PhraseID)
		binary.LittleEndian.PutUint64(buf[off+4:off+12], e.Frequency)
	}
	return buf
}
