// Package corpus reads the binary n-gram phrase corpus (§4.5): a vocab file
// mapping word ids to text, and one phrases.<n> file per phrase length
// holding fixed-stride (frequency, word-id...) records.
package corpus

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/netspeak-go/netspeak/internal/logger"
	"golang.org/x/sync/errgroup"
)

var log = logger.New("corpus")

// Ref identifies one phrase by its length class and local id within that
// class's phrases.<n> file.
type Ref struct {
	Length  int
	LocalID uint64
}

// Phrase is a decoded corpus record: a frequency and its constituent words
// in order.
type Phrase struct {
	Frequency uint64
	Words     []string
}

// stride is the on-disk record size in bytes for a phrase of length n:
// an 8-byte frequency followed by n 4-byte word ids.
func stride(n int) int64 {
	return 8 + 4*int64(n)
}

// Corpus is an immutable, opened-once view over a vocab file and the
// phrases.<n> files found alongside it.
type Corpus struct {
	vocab     []string // word_id -> text
	files     map[int]*os.File
	fileSizes map[int]int64
	maxLength int
	mu        sync.Mutex // guards concurrent seek+read on each *os.File
}

// Open reads the vocab file and opens every phrases.<n> file found in dir.
func Open(dir string) (*Corpus, error) {
	vocab, err := readVocab(filepath.Join(dir, "vocab"))
	if err != nil {
		return nil, fmt.Errorf("corpus: reading vocab: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus: reading %s: %w", dir, err)
	}

	c := &Corpus{
		vocab:     vocab,
		files:     make(map[int]*os.File),
		fileSizes: make(map[int]int64),
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "phrases.") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "phrases."))
		if err != nil {
			continue
		}
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("corpus: opening %s: %w", e.Name(), err)
		}
		info, err := f.Stat()
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("corpus: stat %s: %w", e.Name(), err)
		}
		c.files[n] = f
		c.fileSizes[n] = info.Size()
		if n > c.maxLength {
			c.maxLength = n
		}
	}
	log.Debugf("opened corpus at %s: %d vocab words, lengths up to %d", dir, len(vocab), c.maxLength)
	return c, nil
}

func readVocab(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, ' ')
		if idx < 0 {
			return nil, fmt.Errorf("corpus: malformed vocab line %q", line)
		}
		word := line[:idx]
		id, err := strconv.Atoi(line[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("corpus: malformed vocab id in %q: %w", line, err)
		}
		for len(words) <= id {
			words = append(words, "")
		}
		words[id] = word
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Close releases every open phrases.<n> file handle.
func (c *Corpus) Close() error {
	var firstErr error
	for _, f := range c.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// MaxLength is the largest n for which a phrases.<n> file exists.
func (c *Corpus) MaxLength() int {
	return c.maxLength
}

// CountPhrases returns file_size(phrases.<length>) / stride(length), or 0
// if no file exists for that length.
func (c *Corpus) CountPhrases(length int) uint64 {
	size, ok := c.fileSizes[length]
	if !ok {
		return 0
	}
	return uint64(size / stride(length))
}

// Word resolves a vocab word id to its text.
func (c *Corpus) Word(id uint32) (string, error) {
	if int(id) >= len(c.vocab) || c.vocab[id] == "" {
		return "", fmt.Errorf("corpus: unknown word id %d", id)
	}
	return c.vocab[id], nil
}

// ReadPhrases decodes every ref in refs and returns the phrases in the
// same order, matching the scatter-gather contract of §4.5.2: one read is
// issued per id (here, one goroutine per id, all run under one errgroup
// with no concurrency limit) and
// the whole call fails if any single read fails or comes up short.
func (c *Corpus) ReadPhrases(refs []Ref) ([]Phrase, error) {
	out := make([]Phrase, len(refs))

	var g errgroup.Group
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			p, err := c.readOne(ref)
			if err != nil {
				return fmt.Errorf("corpus: reading phrase %+v: %w", ref, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Corpus) readOne(ref Ref) (Phrase, error) {
	f, ok := c.files[ref.Length]
	if !ok {
		return Phrase{}, fmt.Errorf("no phrases.%d file", ref.Length)
	}
	recLen := stride(ref.Length)
	offset := int64(ref.LocalID) * recLen

	buf := make([]byte, recLen)
	c.mu.Lock()
	n, err := f.ReadAt(buf, offset)
	c.mu.Unlock()
	if err != nil {
		return Phrase{}, err
	}
	if n != len(buf) {
		return Phrase{}, fmt.Errorf("short read: got %d bytes, want %d", n, len(buf))
	}

	freq := binary.LittleEndian.Uint64(buf[0:8])
	words := make([]string, ref.Length)
	for i := 0; i < ref.Length; i++ {
		id := binary.LittleEndian.Uint32(buf[8+4*i : 8+4*i+4])
		word, err := c.Word(id)
		if err != nil {
			return Phrase{}, err
		}
		words[i] = word
	}
	return Phrase{Frequency: freq, Words: words}, nil
}
