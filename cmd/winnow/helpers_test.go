package main

import (
	"reflect"
	"testing"
)

func TestParseArgs(t *testing.T) {
	got, err := parseArgs([]string{
		"src", "--k=20", "--no-winnow", "--include=**/*.go,**/*.py", "--include=**/*.rs",
		"--config=winnow.json", "--show-fragments=false", "lib",
	})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}

	if got.ConfigFile != "winnow.json" {
		t.Errorf("ConfigFile = %q", got.ConfigFile)
	}
	if want := []string{"src", "lib"}; !reflect.DeepEqual(got.Paths, want) {
		t.Errorf("Paths = %v; want %v", got.Paths, want)
	}
	want := map[string]any{
		"k":              "20",
		"no_winnow":      true,
		"include":        []string{"**/*.go", "**/*.py", "**/*.rs"},
		"show_fragments": "false",
	}
	if !reflect.DeepEqual(got.Flags, want) {
		t.Errorf("Flags = %v; want %v", got.Flags, want)
	}
}

func TestParseArgsDefaultsAndErrors(t *testing.T) {
	got, err := parseArgs(nil)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !reflect.DeepEqual(got.Paths, []string{DefaultPath}) {
		t.Errorf("Paths = %v; want [%s]", got.Paths, DefaultPath)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--colour=red"}},
		{"missing value", []string{"--k"}},
		{"empty list", []string{"--exclude="}},
		{"empty config", []string{"--config"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseArgs(tt.args); err == nil {
				t.Errorf("parseArgs(%v) succeeded; want error", tt.args)
			}
		})
	}
}

func TestHasFlag(t *testing.T) {
	if !hasFlag([]string{"--json"}, "--json") || hasFlag([]string{"--json=1"}, "--json") {
		t.Error("hasFlag must match whole arguments only")
	}
}

func TestWorkers(t *testing.T) {
	if got := workers(3); got != 3 {
		t.Errorf("workers(3) = %d", got)
	}
	if got := workers(0); got < 1 || got > maxWorkers {
		t.Errorf("workers(0) = %d; want 1..%d", got, maxWorkers)
	}
}
