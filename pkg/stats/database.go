package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/anrid/france-mortality/pkg/logger"
)

// Manifest is the JSON index of downloaded datasets kept next to them.
type Manifest struct {
	Files   []*File
	Updated time.Time
}

// LoadManifestIfExists reads the manifest at path. A missing file yields
// an empty manifest and found == false.
func LoadManifestIfExists(path string) (m *Manifest, found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, false, nil
		}
		return nil, false, fmt.Errorf("read manifest: %w", err)
	}

	m = new(Manifest)
	if err := json.Unmarshal(data, m); err != nil {
		return nil, false, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, true, nil
}

// Record adds or replaces the entry of f's dataset.
func (m *Manifest) Record(f *File) {
	for i, e := range m.Files {
		if e.Dataset == f.Dataset {
			m.Files[i] = f
			m.Updated = f.Downloaded
			return
		}
	}
	m.Files = append(m.Files, f)
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Dataset < m.Files[j].Dataset })
	m.Updated = f.Downloaded
}

// Find returns the entry of a dataset.
func (m *Manifest) Find(dataset string) (*File, bool) {
	for _, f := range m.Files {
		if f.Dataset == dataset {
			return f, true
		}
	}
	return nil, false
}

func (m *Manifest) Save(path string) error {
	js, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, js, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Info logs a summary of the cached datasets.
func (m *Manifest) Info(log *logger.Logger) {
	var size int64
	for _, f := range m.Files {
		size += f.Size
	}
	log.WithFields(map[string]interface{}{
		"files":   len(m.Files),
		"bytes":   size,
		"updated": m.Updated.Format(time.RFC3339),
	}).Info("dataset manifest")
}
