/*
Package main implements the netspeak command-line interface.

netspeak answers phrase queries against a prebuilt n-gram index: exact
words, QMARK wildcards, STAR/PLUS repetition, REGEX, and word sets,
resolved down to a ranked list of matching phrases with their corpus
frequency (see the on-disk index layout under the data directory).

# CLI Mode

The CLI provides an interactive shell for issuing queries against an
opened index, mainly for debugging and ad hoc lookups.

# Data Files

The data directory must contain the six index subdirectories
(phrase-corpus, phrase-dictionary, phrase-index, and the optional
postlist-index, regex-vocabulary, hash-dictionary) produced by the
index builder.

# Config

Runtime configuration is managed via a config.toml file, which
supports settings for search budgets, cache sizing, and query
processing. A default configuration is created automatically if one
does not exist.
*/
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/netspeak-go/netspeak/pkg/config"
	"github.com/netspeak-go/netspeak/pkg/netspeak"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	version = "0.1.0"
	appName = "netspeak"
	gh      = "https://github.com/netspeak-go/netspeak"
)

// sigHandler exits normally on SIGINT/SIGTERM.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main only manages flow: parse flags, open the index, run the REPL.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	configFile := flag.String("config", "config.toml", "Path to config.toml file")
	dataDir := flag.String("data", "data/", "Directory containing the index subdirectories")
	debugMode := flag.Bool("v", false, "Toggle verbose mode")
	limit := flag.Uint("limit", 100, "Maximum number of phrases to return")
	wordsMin := flag.Uint("words-min", 1, "Minimum phrase length")
	wordsMax := flag.Uint("words-max", 0, "Maximum phrase length (0 = index maximum)")
	maxFreq := flag.Uint64("max-freq", 0, "Maximum phrase frequency (0 = unbounded)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	cfg, err := config.InitConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Debugf("using config file: %s", *configFile)
	log.Debugf("opening index at: %s", *dataDir)

	core, err := netspeak.Open(cfg, *dataDir)
	if err != nil {
		log.Fatalf("failed to open index: %v", err)
	}

	showStartupInfo(*dataDir)

	repl := &repl{
		core:       core,
		limit:      uint32(*limit),
		wordsMin:   uint32(*wordsMin),
		wordsMax:   uint32(*wordsMax),
		maxFreq:    *maxFreq,
		numQueries: 0,
	}
	if err := repl.start(); err != nil {
		log.Fatalf("cli error: %v", err)
	}
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print(fmt.Sprintf("[%s] phrase search over n-gram corpora", appName))
	logger.Print("", "version", version)
	logger.Print("")
	logger.Print("use --help to see available options")
	logger.Print("")
	logger.Print("Find out more at", "gh", gh)
}

func showStartupInfo(dataDir string) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" netspeak  ")
	println("===========")
	log.Infof("Version: %s", version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("init: OK")
	log.Infof("data dir: ( %s )", dataDir)
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}

// repl processes user queries from stdin and prints each response.
type repl struct {
	core       *netspeak.Core
	limit      uint32
	wordsMin   uint32
	wordsMax   uint32
	maxFreq    uint64
	numQueries int
}

func (r *repl) start() error {
	log.Print("netspeak CLI")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type a query and press Enter (Ctrl+C to exit):")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		r.handleQuery(query)
	}
}

func (r *repl) handleQuery(query string) {
	r.numQueries++
	start := time.Now()

	resp := r.core.Search(netspeak.Request{
		Query:        query,
		MaxPhrases:   r.limit,
		WordsMin:     r.wordsMin,
		WordsMax:     r.wordsMax,
		FrequencyMax: r.maxFreq,
	})

	elapsed := time.Since(start)
	log.Debugf("took [ %v ] for query %q", elapsed, query)

	if resp.Error != nil {
		log.Errorf("%s: %s", resp.Error.Kind, resp.Error.Message)
		return
	}

	if len(resp.Result.Phrases) == 0 {
		log.Warnf("no phrases found for query: %q", query)
		if len(resp.Result.UnknownWords) > 0 {
			log.Warnf("unknown words: %v", resp.Result.UnknownWords)
		}
		return
	}

	log.Printf("found %d phrases for query %q:", len(resp.Result.Phrases), query)
	for i, p := range resp.Result.Phrases {
		words := make([]string, len(p.Words))
		for j, w := range p.Words {
			words[j] = w.Text
		}
		clPhrase := fmt.Sprintf("\033[38;5;75m%s\033[0m", strings.Join(words, " "))
		log.Printf("%2d. %-40s (freq: %8d)", i+1, clPhrase, p.Frequency)
	}
	if len(resp.Result.UnknownWords) > 0 {
		log.Infof("unknown words: %v", resp.Result.UnknownWords)
	}
}
