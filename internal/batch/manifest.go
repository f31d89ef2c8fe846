package batch

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// Manifest summarizes a batch run.
type Manifest struct {
	Generated time.Time `json:"generated"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Files     []Result  `json:"files"`
}

// NewManifest tallies results.
func NewManifest(results []Result) Manifest {
	m := Manifest{Generated: time.Now().UTC(), Total: len(results), Files: results}
	for _, r := range results {
		if r.Success {
			m.Succeeded++
		} else {
			m.Failed++
		}
	}
	return m
}

// WriteManifest writes the run summary as indented JSON to path.
func WriteManifest(path string, results []Result) error {
	data, err := json.MarshalIndent(NewManifest(results), "", "  ")
	if err != nil {
		return fmt.Errorf("batch: encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("batch: write %s: %w", path, err)
	}
	return nil
}
