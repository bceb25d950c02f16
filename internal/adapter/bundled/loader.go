// Package bundled loads the facility dataset shipped inside the binary. The
// dataset seeds the index at startup so discovery works before any remote
// provider has been reached, and keeps working when none can be.
package bundled

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/facility-discovery/internal/domain"
)

//go:embed dataset.json
var datasetJSON []byte

type datasetFile struct {
	Version     string             `json:"version"`
	GeneratedAt time.Time          `json:"generated_at"`
	Records     []domain.RawRecord `json:"records"`
}

var (
	loadOnce   sync.Once
	facilities []domain.Facility
	version    string
	loadErr    error
)

// Load parses the embedded dataset and normalizes every record. The dataset
// ships with the binary, so a malformed record is a build defect: Load fails
// rather than skipping. Parsing happens once; later calls return the same
// result.
func Load() ([]domain.Facility, error) {
	loadOnce.Do(func() {
		facilities, version, loadErr = Parse(datasetJSON)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	out := make([]domain.Facility, len(facilities))
	copy(out, facilities)
	return out, nil
}

// Version returns the dataset version string, or "" before a successful Load.
func Version() string {
	return version
}

// Parse normalizes a dataset document. Exposed for the dataset tooling;
// service startup goes through Load.
func Parse(data []byte) ([]domain.Facility, string, error) {
	var file datasetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, "", fmt.Errorf("parse bundled dataset: %w", err)
	}
	if file.Version == "" {
		return nil, "", fmt.Errorf("bundled dataset has no version")
	}

	out := make([]domain.Facility, 0, len(file.Records))
	seen := make(map[string]int, len(file.Records))
	for i, rec := range file.Records {
		f, err := domain.Normalize(rec, domain.ProviderBundled, file.GeneratedAt)
		if err != nil {
			return nil, "", fmt.Errorf("bundled record %d (%q): %w", i, rec.Name, err)
		}
		if prev, dup := seen[f.ID]; dup {
			return nil, "", fmt.Errorf("bundled records %d and %d share ID %s", prev, i, f.ID)
		}
		seen[f.ID] = i
		out = append(out, f)
	}
	return out, file.Version, nil
}
