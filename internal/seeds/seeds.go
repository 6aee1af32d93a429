// Package seeds loads the seed keywords a research run starts from.
package seeds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

var defaults = []string{
	// EDS
	"Ehlers-Danlos Syndrome",
	"living with EDS",
	"EDS symptoms",
	"EDS diagnosis",
	"hypermobile EDS",
	"EDS treatment",
	"EDS pain management",
	"EDS physical therapy",
	"EDS genetic testing",
	"EDS specialist",

	// MCAS
	"Mast Cell Activation Syndrome",
	"MCAS symptoms",
	"MCAS treatment",
	"MCAS diagnosis",
	"MCAS diet",
	"MCAS triggers",
	"MCAS medication",
	"MCAS specialist",
	"MCAS testing",
	"MCAS flare",

	// POTS
	"POTS syndrome",
	"POTS symptoms",
	"POTS treatment",
	"POTS diagnosis",
	"POTS exercise",
	"POTS diet",
	"POTS medication",
	"POTS specialist",
	"POTS testing",
	"POTS management",

	// Chronic illness
	"chronic illness journey",
	"living with chronic illness",
	"chronic pain management",
	"invisible illness",
	"chronic illness support",
	"chronic illness blog",
	"chronic illness community",
	"chronic illness tips",
	"chronic illness resources",
	"chronic illness advocacy",

	// Health journey
	"health journey blog",
	"medical journey",
	"patient advocacy",
	"healthcare navigation",
	"medical records organization",
	"health timeline",
	"medical history",
	"patient empowerment",
	"health documentation",
	"medical appointment preparation",
}

// Default returns a copy of the built-in seed list.
func Default() []string {
	out := make([]string, len(defaults))
	copy(out, defaults)
	return out
}

// Load reads seeds from path, one per line. Blank lines and lines starting
// with # are skipped. An empty path or a file that does not exist yields
// Default; fromFile reports which one was used.
func Load(path string) (seeds []string, fromFile bool, err error) {
	if path == "" {
		return Default(), false, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open seeds: %w", err)
	}
	defer f.Close()

	seeds, err = Parse(f)
	if err != nil {
		return nil, false, fmt.Errorf("read seeds %s: %w", path, err)
	}
	return seeds, true, nil
}

// Parse reads one seed per line from r.
func Parse(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
