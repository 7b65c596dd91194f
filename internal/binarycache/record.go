package binarycache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// The output directory layout:
//
//	outDir/
//	  .skbuild-cache.json   # record of the key the directory holds
//	  libskia.a ...         # built or downloaded libraries
//	  bindings.go           # foreign declarations
const recordFile = ".skbuild-cache.json"

// Record describes what an output directory holds.
type Record struct {
	Key       string    `json:"key"`
	Source    string    `json:"source"`
	BuildTime time.Time `json:"build_time"`
}

// LoadRecord reads the record of outDir.
func LoadRecord(outDir string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(outDir, recordFile))
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveRecord writes r into outDir.
func SaveRecord(outDir string, r *Record) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, recordFile), data, 0o644)
}

// Reusable reports whether outDir already holds key and every file in files.
func Reusable(outDir, key string, files []string) bool {
	r, err := LoadRecord(outDir)
	if err != nil || r.Key != key {
		return false
	}
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(outDir, f)); err != nil {
			return false
		}
	}
	return true
}
