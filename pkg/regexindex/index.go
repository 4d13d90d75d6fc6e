package regexindex

import (
	"bufio"
	"io"

	"github.com/RoaringBitmap/roaring"
	"github.com/netspeak-go/netspeak/internal/logger"
)

var log = logger.New("regexindex")

// wordEntry locates one vocabulary word by byte offset/length into the
// concatenated vocabulary blob, mirroring the reference's WordEntry.
type wordEntry struct {
	offset int
	length int
}

// Index is an immutable, in-memory word directory over a frequency-sorted
// vocabulary (§4.3.3): one word per input line, in descending corpus
// frequency order.
type Index struct {
	vocabulary string
	words      []wordEntry
	allChars   *roaring.Bitmap
	hashTable  []uint32 // word index, or noEntry for an empty slot
}

const noEntry = ^uint32(0)

// Build constructs an Index from r, a newline-separated vocabulary already
// sorted by descending corpus frequency (§4.3.3). Empty lines are skipped.
func Build(r io.Reader) (*Index, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var vocab []byte
	var words []wordEntry
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		entry := wordEntry{offset: len(vocab), length: len(line)}
		vocab = append(vocab, line...)
		words = append(words, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	idx := &Index{vocabulary: string(vocab), words: words}
	idx.initAllChars()
	idx.initHashTable()
	log.Debugf("built regex index: %d words, %d distinct chars", len(words), idx.allChars.GetCardinality())
	return idx, nil
}

func (idx *Index) initAllChars() {
	bm := roaring.New()
	for _, r := range idx.vocabulary {
		bm.Add(uint32(r))
	}
	idx.allChars = bm
}

func nextPowerOf2(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// hashWord is the Java-style 32-bit rolling hash named in §4.3.3.
func hashWord(s string) uint32 {
	h := uint32(0x12345678)
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}

func (idx *Index) initHashTable() {
	n := nextPowerOf2(uint32(len(idx.words)))
	if uint64(n) < uint64(len(idx.words))+uint64(len(idx.words))/2 {
		n *= 2
	}
	if n == 0 {
		n = 1
	}
	table := make([]uint32, n)
	for i := range table {
		table[i] = noEntry
	}
	mask := n - 1
	for index, entry := range idx.words {
		word := idx.vocabulary[entry.offset : entry.offset+entry.length]
		h := hashWord(word) & mask
		for table[h] != noEntry {
			h = (h + 1) & mask
		}
		table[h] = uint32(index)
	}
	idx.hashTable = table
}

func (idx *Index) wordAt(i uint32) string {
	e := idx.words[i]
	return idx.vocabulary[e.offset : e.offset+e.length]
}

// findWord returns the vocabulary index of word, or noEntry if absent.
func (idx *Index) findWord(word string) uint32 {
	mask := uint32(len(idx.hashTable)) - 1
	h := hashWord(word) & mask
	for {
		index := idx.hashTable[h]
		if index == noEntry {
			return noEntry
		}
		if idx.wordAt(index) == word {
			return index
		}
		h = (h + 1) & mask
	}
}

// containsUnknownRunes reports whether any rune of s is absent from the
// vocabulary's character set.
func (idx *Index) containsUnknownRunes(s []rune) bool {
	for _, r := range s {
		if !idx.allChars.Contains(uint32(r)) {
			return true
		}
	}
	return false
}
