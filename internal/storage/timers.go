// Package storage persists bot state under the configured data directory.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const timersFile = "laters.yaml"

// TimerEntry is one pending timed mode reversal. The whole list is
// rewritten on every mutation so a crash can never leave a partial file.
type TimerEntry struct {
	FireAt  int64  `yaml:"fire_at"`
	Target  string `yaml:"target"`
	Channel string `yaml:"channel"`
	Mode    string `yaml:"mode"`
}

// LoadTimers reads all pending reversals. A missing file is an empty list.
func LoadTimers(dataDir string) ([]TimerEntry, error) {
	path := filepath.Join(dataDir, timersFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []TimerEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", timersFile, err)
	}
	return entries, nil
}

// SaveTimers replaces the persisted reversal list atomically.
func SaveTimers(dataDir string, entries []TimerEntry) error {
	if entries == nil {
		entries = []TimerEntry{}
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return err
	}

	path := filepath.Join(dataDir, timersFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
