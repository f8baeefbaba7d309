package main

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

//go:embed init_data/config.example.toml
var configExample []byte

// runInit initializes a gatewayd working directory: a media root and a
// starter config.toml. Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing gatewayd workspace in %s\n", dir)

	mediaPath := filepath.Join(dir, "media")
	if err := os.MkdirAll(mediaPath, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", mediaPath, err)
	}

	configPath := filepath.Join(dir, "config.toml")
	if err := writeIfMissing(configPath, configExample); err != nil {
		return err
	}
	fmt.Fprintf(w, "  written %s\n", configPath)
	fmt.Fprintf(w, "  created %s\n", mediaPath)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit config.toml, then run: gatewayd -config config.toml serve")
	return nil
}

// writeIfMissing writes content to path only if the file does not
// already exist.
func writeIfMissing(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, content, 0o644)
}
