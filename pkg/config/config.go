/*
Package config manages TOML configuration for the netspeak core.

InitConfig handles automatic config file creation and loading with fallback
to defaults, mirroring the wordserve config package this was adapted from.
LoadConfig and SaveConfig provide direct file-system access for tooling;
Update allows targeted parameter changes with persistence.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Config holds the whole configuration structure recognized by the core (§6).
type Config struct {
	Search SearchConfig `toml:"search"`
	Cache  CacheConfig  `toml:"cache"`
	Query  QueryConfig  `toml:"query"`
	Paths  PathsConfig  `toml:"paths"`
}

// SearchConfig holds regex-index search budgets.
type SearchConfig struct {
	RegexMaxMatches int `toml:"regex_max_matches"`
	RegexMaxTimeMs  int `toml:"regex_max_time_ms"`
}

// CacheConfig holds result-cache sizing.
type CacheConfig struct {
	Capacity int `toml:"capacity"`
}

// QueryConfig holds query-processing toggles.
type QueryConfig struct {
	LowerCase bool `toml:"lower_case"`
}

// PathsConfig holds the six read-only index subdirectories (§6).
type PathsConfig struct {
	PhraseCorpus     string `toml:"phrase_corpus"`
	PhraseDictionary string `toml:"phrase_dictionary"`
	PhraseIndex      string `toml:"phrase_index"`
	PostlistIndex    string `toml:"postlist_index"`
	RegexVocabulary  string `toml:"regex_vocabulary"`
	HashDictionary   string `toml:"hash_dictionary"`
}

// DefaultConfig returns a Config with the defaults named in spec §6.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			RegexMaxMatches: 100,
			RegexMaxTimeMs:  20,
		},
		Cache: CacheConfig{
			Capacity: 1_000_000,
		},
		Query: QueryConfig{
			LowerCase: false,
		},
		Paths: PathsConfig{
			PhraseCorpus:     "phrase-corpus",
			PhraseDictionary: "phrase-dictionary",
			PhraseIndex:      "phrase-index",
			PostlistIndex:    "postlist-index",
			RegexVocabulary:  "regex-vocabulary",
			HashDictionary:   "hash-dictionary",
		},
	}
}

// InitConfig loads the config at configPath, writing a default file first if
// none exists yet. A config file that exists but fails to decode does not
// fail startup: it logs a warning and falls back to DefaultConfig so a
// malformed file never blocks the core from opening.
func InitConfig(configPath string) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return nil, fmt.Errorf("config: create directory for %s: %w", configPath, err)
	}

	cfg, err := LoadConfig(configPath)
	switch {
	case err == nil:
		return cfg, nil
	case os.IsNotExist(err):
		cfg = DefaultConfig()
		log.Debugf("no config file at ( %s ), writing defaults", configPath)
		return cfg, SaveConfig(cfg, configPath)
	default:
		log.Warnf("config file at ( %s ) is unreadable, falling back to defaults: %v", configPath, err)
		return DefaultConfig(), nil
	}
}

// LoadConfig reads and decodes a Config from a TOML file. The returned
// error is the raw os/toml error (so callers can probe os.IsNotExist on
// it); it is not logged here.
func LoadConfig(configPath string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes cfg to a TOML file, creating or truncating configPath.
func SaveConfig(cfg *Config, configPath string) error {
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", configPath, err)
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}

// Override names one field of Config to overwrite; Apply mutates cfg in
// place. Passing overrides as a slice of closures, rather than a fixed set
// of pointer parameters, lets callers update any subset of fields without
// the signature growing with the Config struct.
type Override func(*Config)

func WithRegexMaxMatches(v int) Override { return func(c *Config) { c.Search.RegexMaxMatches = v } }
func WithRegexMaxTimeMs(v int) Override  { return func(c *Config) { c.Search.RegexMaxTimeMs = v } }
func WithCacheCapacity(v int) Override   { return func(c *Config) { c.Cache.Capacity = v } }
func WithLowerCase(v bool) Override      { return func(c *Config) { c.Query.LowerCase = v } }

// Update applies each override to c and persists the result to configPath.
func (c *Config) Update(configPath string, overrides ...Override) error {
	for _, apply := range overrides {
		apply(c)
	}
	return SaveConfig(c, configPath)
}
