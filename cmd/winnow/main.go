// Package main provides the CLI for winnow.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jmylchreest/winnow/internal/version"
	"github.com/jmylchreest/winnow/pkg/config"
	"github.com/jmylchreest/winnow/pkg/report"
	"github.com/jmylchreest/winnow/pkg/tokenizer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := runCommand(os.Args[1], os.Args[2:]); err != nil {
		fatal("%v", err)
	}
}

func runCommand(cmd string, args []string) error {
	switch cmd {
	case "run":
		return cmdRun(args)
	case "watch":
		return cmdWatch(args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	case "version", "-v", "--version":
		return cmdVersion(args)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func cmdVersion(args []string) error {
	if hasFlag(args, "--json") {
		fmt.Println(version.JSON())
		return nil
	}
	fmt.Println(version.String())
	return nil
}

func printUsage() {
	sortKeys := make([]string, 0, len(report.SortKeys()))
	for _, k := range report.SortKeys() {
		sortKeys = append(sortKeys, string(k))
	}

	fmt.Printf(`winnow %s - source code similarity detection

Usage:
  winnow <command> [paths...] [flags]

Commands:
  run        Compare every pair of files and report similar pairs
  watch      Run, then re-run whenever a watched file changes
  version    Show version information (--json for machine output)
  help       Show this help

Fingerprinting:
  --k=N                           Tokens per k-gram (default %d)
  --w=N                           K-grams per winnowing window (default %d)
  --no-winnow                     Keep every k-gram instead of winnowing
  --language=LANG                 Force a tokenizer (%s)
  --include-comments              Keep comments in syntax-tree tokens
  --ignore=FILE                   Template whose fingerprints are ignored
  --max-fingerprint-count=N       Ignore fingerprints in more than N files
  --max-fingerprint-percentage=F  Ignore fingerprints in more than F of files

Results:
  --min-fragment-length=N         Drop fragments with fewer k-grams
  --min-similarity=F              Drop pairs below this similarity (0..1)
  --sort-by=KEY                   %s (default %s)
  --limit=N                       Keep only the top N pairs
  --show-fragments                List fragment regions and data

Input and output:
  --include=GLOB[,GLOB]           Only compare matching files
  --exclude=GLOB[,GLOB]           Skip matching files
  --max-file-size=BYTES           Skip larger files (default %d)
  --format=FORMAT                 %s (default %s)
  --output=PATH                   Output file, or directory for csv
  --metrics-file=PATH             Write Prometheus metrics to a textfile
  --workers=N                     Parallel workers (default GOMAXPROCS)
  --config=FILE                   JSON config file (default %s)
  --log-level=LEVEL               debug, info, warn or error
  --log-format=FORMAT             text or json
  --debounce=DURATION             Watch quiet period (default %s)

Environment:
  Every flag can be set as %sNAME, e.g. %sMIN_SIMILARITY=0.5.

Examples:
  winnow run submissions/
  winnow run --language=go --ignore=starter/main.go --min-similarity=0.6 submissions/
  winnow run --format=csv --output=results/ --include=**/*.py .
  winnow watch --show-fragments src/
`,
		version.Short(),
		report.DefaultKgramLength, report.DefaultKgramsInWindow,
		strings.Join(tokenizer.Languages(), ", "),
		strings.Join(sortKeys, ", "), report.DefaultSortBy,
		config.DefaultMaxFileSize,
		strings.Join(config.Formats(), ", "), config.FormatTerminal,
		config.DefaultConfigFile,
		config.DefaultDebounce,
		config.EnvPrefix, config.EnvPrefix,
	)
}
