package proctor

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNewCatalogue_NormalisesLabels(t *testing.T) {
	c, err := NewCatalogue(map[string]CatalogueEntry{
		"  Cell   Phone ": {Severity: SeverityHigh},
	})
	if err != nil {
		t.Fatalf("NewCatalogue failed: %v", err)
	}
	entry, ok := c.Lookup("cell phone")
	if !ok || entry.Severity != SeverityHigh {
		t.Fatalf("expected normalised lookup to hit, got %+v %v", entry, ok)
	}
	if _, ok := c.Lookup("CELL PHONE"); !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
}

func TestNewCatalogue_Rejects(t *testing.T) {
	cases := map[string]map[string]CatalogueEntry{
		"empty label":   {"  ": {Severity: SeverityLow}},
		"none severity": {"book": {Severity: SeverityNone}},
		"floor too big": {"book": {Severity: SeverityLow, Floor: floorOf(1)}},
		"negative":      {"book": {Severity: SeverityLow, Floor: floorOf(-0.1)}},
		"duplicate":     {"Book": {Severity: SeverityLow}, "book": {Severity: SeverityHigh}},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCatalogue(entries)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDefaultCatalogue(t *testing.T) {
	c := DefaultCatalogue()
	want := map[string]Severity{
		"cell phone": SeverityHigh,
		"laptop":     SeverityHigh,
		"tablet":     SeverityHigh,
		"book":       SeverityMedium,
		"remote":     SeverityMedium,
		"mouse":      SeverityLow,
		"keyboard":   SeverityLow,
		"backpack":   SeverityLow,
	}
	if c.Len() != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), c.Len())
	}
	for label, sev := range want {
		entry, ok := c.Lookup(label)
		if !ok || entry.Severity != sev {
			t.Errorf("label %q: got %+v, want severity %s", label, entry, sev)
		}
	}
	if _, ok := c.Lookup("cup"); ok {
		t.Fatalf("cup must not be catalogued")
	}
}

func TestCatalogueYAMLRoundTrip(t *testing.T) {
	data := []byte(`
objects:
  cell phone:
    severity: high
  calculator:
    severity: medium
    floor: 0.7
`)
	c, err := ParseCatalogue(data)
	if err != nil {
		t.Fatalf("ParseCatalogue failed: %v", err)
	}
	entry, ok := c.Lookup("calculator")
	if !ok || entry.Severity != SeverityMedium || entry.FloorOr(0) != 0.7 {
		t.Fatalf("unexpected calculator entry %+v", entry)
	}

	out, err := MarshalCatalogue(c)
	if err != nil {
		t.Fatalf("MarshalCatalogue failed: %v", err)
	}
	again, err := ParseCatalogue(out)
	if err != nil {
		t.Fatalf("re-parse failed: %v\n%s", err, out)
	}
	if again.Len() != 2 {
		t.Fatalf("expected 2 entries after re-parse, got %d", again.Len())
	}
}

func TestParseCatalogue_Errors(t *testing.T) {
	if _, err := ParseCatalogue([]byte("objects: {}")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for empty catalogue, got %v", err)
	}
	if _, err := ParseCatalogue([]byte("objects:\n  book:\n    severity: critical\n")); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestLoadCatalogueFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	if err := os.WriteFile(path, []byte("objects:\n  laptop:\n    severity: high\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	c, err := LoadCatalogueFile(path)
	if err != nil {
		t.Fatalf("LoadCatalogueFile failed: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected one entry, got %d", c.Len())
	}
}

func TestCatalogueStore_ReplaceIsAtomic(t *testing.T) {
	first := DefaultCatalogue()
	second, _ := NewCatalogue(map[string]CatalogueEntry{"calculator": {Severity: SeverityLow}})
	store := NewCatalogueStore(first)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				n := store.Load().Len()
				if n != first.Len() && n != second.Len() {
					t.Errorf("observed torn catalogue with %d entries", n)
					return
				}
			}
		}()
	}

	previous := store.Replace(second)
	wg.Wait()

	if previous.Len() != first.Len() {
		t.Fatalf("Replace should return the previous catalogue")
	}
	if store.Load().Len() != 1 {
		t.Fatalf("expected new catalogue to be visible")
	}
}
