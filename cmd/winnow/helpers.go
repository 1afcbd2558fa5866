package main

import (
	"fmt"
	"os"
	"strings"
)

// fatal prints an error message and exits with code 1.
func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// hasFlag checks if a flag is present in args.
func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

type flagKind int

const (
	valueFlag flagKind = iota
	boolFlag
	listFlag
)

// configFlags maps command-line flags to configuration keys.
var configFlags = map[string]flagKind{
	"k":                          valueFlag,
	"w":                          valueFlag,
	"no-winnow":                  boolFlag,
	"language":                   valueFlag,
	"include-comments":           boolFlag,
	"min-fragment-length":        valueFlag,
	"min-similarity":             valueFlag,
	"max-fingerprint-count":      valueFlag,
	"max-fingerprint-percentage": valueFlag,
	"limit":                      valueFlag,
	"sort-by":                    valueFlag,
	"workers":                    valueFlag,
	"ignore":                     valueFlag,
	"include":                    listFlag,
	"exclude":                    listFlag,
	"max-file-size":              valueFlag,
	"format":                     valueFlag,
	"output":                     valueFlag,
	"show-fragments":             boolFlag,
	"metrics-file":               valueFlag,
	"log-level":                  valueFlag,
	"log-format":                 valueFlag,
	"debounce":                   valueFlag,
}

// cliArgs is the parsed form of a run or watch command line.
type cliArgs struct {
	ConfigFile string
	Flags      map[string]any
	Paths      []string
}

// parseArgs splits args into configuration flags, keyed like the config
// file, and positional paths. List flags may repeat or hold commas.
func parseArgs(args []string) (*cliArgs, error) {
	out := &cliArgs{Flags: make(map[string]any)}
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			out.Paths = append(out.Paths, arg)
			continue
		}
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "config" {
			if value == "" {
				return nil, fmt.Errorf("--config needs a path")
			}
			out.ConfigFile = value
			continue
		}

		kind, ok := configFlags[name]
		if !ok {
			return nil, fmt.Errorf("unknown flag: --%s", name)
		}
		key := strings.ReplaceAll(name, "-", "_")
		switch kind {
		case boolFlag:
			if !hasValue {
				out.Flags[key] = true
			} else {
				out.Flags[key] = value
			}
		case listFlag:
			if !hasValue || value == "" {
				return nil, fmt.Errorf("--%s needs a value", name)
			}
			list, _ := out.Flags[key].([]string)
			out.Flags[key] = append(list, strings.Split(value, ",")...)
		default:
			if !hasValue {
				return nil, fmt.Errorf("--%s needs a value", name)
			}
			out.Flags[key] = value
		}
	}
	if len(out.Paths) == 0 {
		out.Paths = []string{DefaultPath}
	}
	return out, nil
}
