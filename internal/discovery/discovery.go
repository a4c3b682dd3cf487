package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoCases indicates that no test cases were found at the case source.
var ErrNoCases = errors.New("no test cases discovered")

const (
	sourceExt   = ".sy"
	inputExt    = ".in"
	expectedExt = ".out"
)

// TestCase is one discovered unit of test input. Immutable once produced.
type TestCase struct {
	// ID is the unique, stable ordering key: the slash-separated path of
	// the source relative to the case root, without extension.
	ID string `json:"id"`
	// Source is the absolute path of the program under test.
	Source string `json:"source"`
	// Input is the absolute path of the stdin file, empty when absent.
	Input string `json:"input,omitempty"`
	// Expected is the absolute path of the golden output, empty when absent.
	Expected string `json:"expected,omitempty"`
	// Compare optionally overrides the profile's comparison rule for this
	// case. Empty means the profile default.
	Compare string `json:"compare,omitempty"`
}

// FromDir walks the case root and returns one TestCase per *.sy file,
// ordered lexicographically by identifier. Sibling .in/.out files with the
// same stem attach as stdin and expected output.
func FromDir(root string) ([]TestCase, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve case root %q: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("case root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("case root %q is not a directory", root)
	}

	var cases []TestCase
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %q: %w", path, err)
		}
		if d.IsDir() || !strings.HasSuffix(path, sourceExt) {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("relativize %q: %w", path, err)
		}
		stem := strings.TrimSuffix(path, sourceExt)

		tc := TestCase{
			ID:     filepath.ToSlash(strings.TrimSuffix(rel, sourceExt)),
			Source: path,
		}
		if p := stem + inputExt; fileExists(p) {
			tc.Input = p
		}
		if p := stem + expectedExt; fileExists(p) {
			tc.Expected = p
		}
		cases = append(cases, tc)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if len(cases) == 0 {
		return nil, ErrNoCases
	}

	sort.Slice(cases, func(i, j int) bool { return cases[i].ID < cases[j].ID })
	return cases, nil
}

// manifestEntry mirrors one entry of a YAML case manifest.
type manifestEntry struct {
	ID       string `yaml:"id"`
	Source   string `yaml:"source"`
	Input    string `yaml:"input"`
	Expected string `yaml:"expected"`
	Compare  string `yaml:"compare"`
}

// FromManifest reads an explicit YAML case list. Manifest order is
// authoritative. Paths are resolved relative to the manifest's directory;
// every referenced file must exist.
func FromManifest(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", path, err)
	}

	var entries []manifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest %q: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, ErrNoCases
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve manifest dir: %w", err)
	}

	seen := make(map[string]struct{}, len(entries))
	cases := make([]TestCase, 0, len(entries))
	for i, entry := range entries {
		if entry.ID == "" {
			return nil, fmt.Errorf("manifest %q: entry %d has no id", path, i)
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("manifest %q: duplicate case id %q", path, entry.ID)
		}
		seen[entry.ID] = struct{}{}

		if entry.Source == "" {
			return nil, fmt.Errorf("manifest %q: case %q has no source", path, entry.ID)
		}
		tc := TestCase{
			ID:      entry.ID,
			Source:  resolve(base, entry.Source),
			Compare: entry.Compare,
		}
		if !fileExists(tc.Source) {
			return nil, fmt.Errorf("manifest %q: case %q: source %q not found", path, entry.ID, entry.Source)
		}
		if entry.Input != "" {
			tc.Input = resolve(base, entry.Input)
			if !fileExists(tc.Input) {
				return nil, fmt.Errorf("manifest %q: case %q: input %q not found", path, entry.ID, entry.Input)
			}
		}
		if entry.Expected != "" {
			tc.Expected = resolve(base, entry.Expected)
			if !fileExists(tc.Expected) {
				return nil, fmt.Errorf("manifest %q: case %q: expected %q not found", path, entry.ID, entry.Expected)
			}
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
