package main

import "time"

// Default configuration constants for cmd/winnow.
const (
	// DefaultPath is analyzed when no paths are given.
	DefaultPath = "."

	// DefaultRerunTimeout bounds a single watch-mode rerun.
	DefaultRerunTimeout = 10 * time.Minute

	// clearScreen resets the terminal before a watch-mode rerun.
	clearScreen = "\033[H\033[2J"
)

// maxWorkers caps the default tokenizer pool size.
const maxWorkers = 16
