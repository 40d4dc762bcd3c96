package proctor

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// CatalogueEntry classifies one prohibited object. A nil Floor falls back to
// the engine's object confidence floor; an explicit 0 accepts any detection.
type CatalogueEntry struct {
	Severity Severity `yaml:"severity" json:"severity"`
	Floor    *float64 `yaml:"floor,omitempty" json:"floor,omitempty"`
}

// FloorOr returns the entry's own floor, or def when none is set.
func (e CatalogueEntry) FloorOr(def float64) float64 {
	if e.Floor == nil {
		return def
	}
	return *e.Floor
}

// Catalogue maps normalised object labels to their entry. A Catalogue is
// immutable once built; use CatalogueStore to swap it.
type Catalogue struct {
	entries map[string]CatalogueEntry
}

func NewCatalogue(entries map[string]CatalogueEntry) (Catalogue, error) {
	out := make(map[string]CatalogueEntry, len(entries))
	for label, entry := range entries {
		key := NormalizeLabel(label)
		if key == "" {
			return Catalogue{}, fmt.Errorf("%w: empty catalogue label", ErrInvalidConfig)
		}
		if entry.Severity == SeverityNone || !entry.Severity.Valid() {
			return Catalogue{}, fmt.Errorf("%w: label %q has severity %s", ErrInvalidConfig, label, entry.Severity)
		}
		if entry.Floor != nil && (*entry.Floor < 0 || *entry.Floor >= 1) {
			return Catalogue{}, fmt.Errorf("%w: label %q floor %.2f outside [0,1)", ErrInvalidConfig, label, *entry.Floor)
		}
		if _, dup := out[key]; dup {
			return Catalogue{}, fmt.Errorf("%w: duplicate catalogue label %q", ErrInvalidConfig, key)
		}
		if entry.Floor != nil {
			floor := *entry.Floor
			entry.Floor = &floor
		}
		out[key] = entry
	}
	return Catalogue{entries: out}, nil
}

func DefaultCatalogue() Catalogue {
	c, _ := NewCatalogue(map[string]CatalogueEntry{
		"cell phone": {Severity: SeverityHigh},
		"laptop":     {Severity: SeverityHigh},
		"tablet":     {Severity: SeverityHigh},
		"book":       {Severity: SeverityMedium},
		"remote":     {Severity: SeverityMedium},
		"mouse":      {Severity: SeverityLow},
		"keyboard":   {Severity: SeverityLow},
		"backpack":   {Severity: SeverityLow},
	})
	return c
}

func NormalizeLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

func (c Catalogue) Lookup(label string) (CatalogueEntry, bool) {
	entry, ok := c.entries[NormalizeLabel(label)]
	return entry, ok
}

func (c Catalogue) Len() int {
	return len(c.entries)
}

func (c Catalogue) Labels() []string {
	labels := make([]string, 0, len(c.entries))
	for label := range c.entries {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Entries returns a copy of the catalogue contents.
func (c Catalogue) Entries() map[string]CatalogueEntry {
	out := make(map[string]CatalogueEntry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

type catalogueFile struct {
	Objects map[string]CatalogueEntry `yaml:"objects"`
}

func ParseCatalogue(data []byte) (Catalogue, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalogue{}, fmt.Errorf("%w: parse catalogue: %v", ErrInvalidConfig, err)
	}
	if len(file.Objects) == 0 {
		return Catalogue{}, fmt.Errorf("%w: catalogue has no objects", ErrInvalidConfig)
	}
	return NewCatalogue(file.Objects)
}

func LoadCatalogueFile(path string) (Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, err
	}
	return ParseCatalogue(data)
}

func MarshalCatalogue(c Catalogue) ([]byte, error) {
	return yaml.Marshal(catalogueFile{Objects: c.Entries()})
}

// CatalogueStore publishes a Catalogue to concurrent readers. Replace swaps
// the whole value; analyses already holding the old one keep using it.
type CatalogueStore struct {
	current atomic.Pointer[Catalogue]
	mu      sync.Mutex
}

func NewCatalogueStore(c Catalogue) *CatalogueStore {
	s := &CatalogueStore{}
	s.current.Store(&c)
	return s
}

func (s *CatalogueStore) Load() Catalogue {
	return *s.current.Load()
}

func (s *CatalogueStore) Replace(c Catalogue) Catalogue {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.current.Swap(&c)
	return *previous
}
