// Package synonyms implements the dict-set lookup used by the normalizer's
// DICTSET expansion (w -> synonyms(w)): a word-keyed table loaded from
// tab-separated CSV files under a hash-dictionary directory (§6).
//
// The table is a patricia trie the way the teacher's suggest package keeps
// its word directory, except the leaf value here is the synonym list for
// that exact key rather than a frequency rank.
package synonyms

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/netspeak-go/netspeak/internal/logger"
	"github.com/tchap/go-patricia/v2/patricia"
)

var log = logger.New("synonyms")

// Dictionary maps a word to its synonym list. A Dictionary is safe for
// concurrent reads after LoadDir returns; it is never mutated afterwards.
type Dictionary struct {
	trie *patricia.Trie
}

// New returns an empty dictionary: every Lookup returns nil.
func New() *Dictionary {
	return &Dictionary{trie: patricia.NewTrie()}
}

// LoadDir loads every *.csv file under dir (the hash-dictionary/ directory
// of §6), merging entries across files. A missing directory is not an
// error: dict sets simply expand to just the word itself.
func LoadDir(dir string) (*Dictionary, error) {
	d := New()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		log.Debugf("no hash-dictionary directory at %s, synonyms disabled", dir)
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := d.loadFile(path); err != nil {
			return nil, err
		}
	}
	log.Debugf("loaded synonym dictionary from %s", dir)
	return d, nil
}

func (d *Dictionary) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.loadReader(f)
}

// loadReader parses tab-separated rows of the form `word\tsyn1\tsyn2\t...`.
// Synonyms accumulate across repeated keys (within one file or across
// files) rather than overwriting.
func (d *Dictionary) loadReader(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		word := fields[0]
		syns := fields[1:]
		d.insert(word, syns)
	}
	return scanner.Err()
}

func (d *Dictionary) insert(word string, syns []string) {
	key := patricia.Prefix(word)
	if existing := d.trie.Get(key); existing != nil {
		d.trie.Set(key, append(existing.([]string), syns...))
		return
	}
	cp := make([]string, len(syns))
	copy(cp, syns)
	d.trie.Insert(key, cp)
}

// Lookup returns word's synonyms, or nil if word has none. It satisfies
// normalize.SynonymLookup directly.
func (d *Dictionary) Lookup(word string) []string {
	v := d.trie.Get(patricia.Prefix(word))
	if v == nil {
		return nil
	}
	return v.([]string)
}
