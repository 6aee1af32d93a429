package seeds

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	d := Default()
	if len(d) != 50 {
		t.Fatalf("expected 50 default seeds, got %d", len(d))
	}
	d[0] = "mutated"
	if Default()[0] != "Ehlers-Danlos Syndrome" {
		t.Errorf("Default must return a copy")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seeds.txt")
	content := "# conditions\nEDS symptoms\n\n   POTS diet  \n#skip\nMCAS flare\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seeds: %v", err)
	}

	got, fromFile, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !fromFile {
		t.Errorf("expected seeds from file")
	}
	want := []string{"EDS symptoms", "POTS diet", "MCAS flare"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("seeds mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FallsBackToDefault(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.txt")} {
		got, fromFile, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if fromFile {
			t.Errorf("Load(%q): expected default seeds", path)
		}
		if len(got) != 50 {
			t.Errorf("Load(%q): expected 50 seeds, got %d", path, len(got))
		}
	}
}

func TestLoad_Directory(t *testing.T) {
	if _, _, err := Load(t.TempDir()); err == nil {
		t.Errorf("expected error reading a directory")
	}
}

func TestParse_Empty(t *testing.T) {
	got, err := Parse(strings.NewReader("# only comments\n\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no seeds, got %v", got)
	}
}
