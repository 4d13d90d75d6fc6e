package netspeak

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/netspeak-go/netspeak/internal/logger"
	"github.com/netspeak-go/netspeak/pkg/cache"
	"github.com/netspeak-go/netspeak/pkg/config"
	"github.com/netspeak-go/netspeak/pkg/corpus"
	"github.com/netspeak-go/netspeak/pkg/normalize"
	"github.com/netspeak-go/netspeak/pkg/phrasedict"
	"github.com/netspeak-go/netspeak/pkg/postings"
	"github.com/netspeak-go/netspeak/pkg/regexindex"
	"github.com/netspeak-go/netspeak/pkg/synonyms"
)

var log = logger.New("netspeak")

// pruningHigh and pruningLow are the internal cache-prunability thresholds
// named in §6; the request boundary never sets these directly.
const (
	pruningHigh = 160000
	pruningLow  = 130000
)

// searchConfig mirrors the reference's search_config: regex budgets read
// once from configuration.
type searchConfig struct {
	regexMaxMatches int
	regexMaxTime    time.Duration
}

// Core is the initialized, immutable-after-open retrieval engine (§5:
// every index is opened once and never mutated again; only the result
// cache is shared mutable state thereafter).
type Core struct {
	search searchConfig

	corpus      *corpus.Corpus
	phraseDict  *phrasedict.Dict
	phraseIndex *postings.Reader
	sketch      *postings.SketchIndex
	regexIndex  *regexindex.Index
	synonyms    *synonyms.Dictionary
	cache       *cache.Cache
}

// Open initializes a Core from cfg, resolving each of the six index
// subdirectories (§6) under indexRoot. The hash dictionary and regex
// vocabulary are optional; their absence simply disables synonym
// expansion and regex matching respectively.
func Open(cfg *config.Config, indexRoot string) (*Core, error) {
	c := &Core{
		search: searchConfig{
			regexMaxMatches: cfg.Search.RegexMaxMatches,
			regexMaxTime:    time.Duration(cfg.Search.RegexMaxTimeMs) * time.Millisecond,
		},
		cache: cache.New(cfg.Cache.Capacity),
	}

	corpusDir := filepath.Join(indexRoot, cfg.Paths.PhraseCorpus, "bin")
	log.Debugf("opening phrase corpus at %s", corpusDir)
	corp, err := corpus.Open(corpusDir)
	if err != nil {
		return nil, err
	}
	c.corpus = corp

	dictDir := filepath.Join(indexRoot, cfg.Paths.PhraseDictionary)
	log.Debugf("opening phrase dictionary at %s", dictDir)
	dict, err := phrasedict.Load(dictDir)
	if err != nil {
		return nil, err
	}
	c.phraseDict = dict

	indexDir := filepath.Join(indexRoot, cfg.Paths.PhraseIndex)
	log.Debugf("opening phrase index at %s", indexDir)
	idx, err := postings.Open(indexDir)
	if err != nil {
		return nil, err
	}
	c.phraseIndex = idx

	sketchDir := filepath.Join(indexRoot, cfg.Paths.PostlistIndex)
	if _, err := os.Stat(sketchDir); err == nil {
		log.Debugf("opening postlist sketch index at %s", sketchDir)
		sk, err := postings.LoadSketchIndex(sketchDir)
		if err != nil {
			return nil, err
		}
		c.sketch = sk
	}

	vocabDir := filepath.Join(indexRoot, cfg.Paths.RegexVocabulary)
	if entries, err := os.ReadDir(vocabDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			f, err := os.Open(filepath.Join(vocabDir, e.Name()))
			if err != nil {
				return nil, err
			}
			log.Debugf("opening regex vocabulary at %s", e.Name())
			ri, err := regexindex.Build(f)
			f.Close()
			if err != nil {
				return nil, err
			}
			c.regexIndex = ri
			break
		}
	}

	synDir := filepath.Join(indexRoot, cfg.Paths.HashDictionary)
	syn, err := synonyms.LoadDir(synDir)
	if err != nil {
		return nil, err
	}
	c.synonyms = syn

	return c, nil
}

// options derives the normalizer options and the search options from a
// Request, filling in the zero-means-unbounded defaults of §6.
func (c *Core) options(req Request) (normalize.Options, cache.SearchOptions) {
	minLength := int(req.WordsMin)
	if minLength < 1 {
		minLength = 1
	}

	maxLength := c.corpus.MaxLength()
	if req.WordsMax != 0 && int(req.WordsMax) < maxLength {
		maxLength = int(req.WordsMax)
	}

	maxFreq := uint64(math.MaxUint64)
	if req.FrequencyMax != 0 {
		maxFreq = req.FrequencyMax
	}

	normOpts := normalize.Options{
		MaxNormQueries:  10000,
		MinLength:       minLength,
		MaxLength:       maxLength,
		MaxRegexMatches: c.search.regexMaxMatches,
		MaxRegexTime:    c.search.regexMaxTime,
	}
	searchOpts := cache.SearchOptions{
		MaxPhraseCount:     int(req.MaxPhrases),
		MaxPhraseFrequency: maxFreq,
		MinLength:          minLength,
		MaxLength:          maxLength,
		PruningHigh:        pruningHigh,
		PruningLow:         pruningLow,
	}
	return normOpts, searchOpts
}
