package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SearchPathEnv names the environment variable holding the module search
// path, a list of directories separated by the OS path list separator.
const SearchPathEnv = "SIMBRIDGE_PATH"

// OriginMemory is the Source.Origin of modules registered in memory.
const OriginMemory = "<memory>"

// SearchPathFromEnv reads SearchPathEnv. Empty entries are dropped.
func SearchPathFromEnv() []string {
	return splitSearchPath(os.Getenv(SearchPathEnv))
}

func splitSearchPath(v string) []string {
	if v == "" {
		return nil
	}
	var dirs []string
	for _, d := range filepath.SplitList(v) {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// NotFoundError reports a module that is neither registered in memory nor
// present in any search directory.
type NotFoundError struct {
	Name     string
	Searched []string
}

func (e *NotFoundError) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("module %q not found: search path is empty", e.Name)
	}
	return fmt.Sprintf("module %q not found in %s", e.Name, strings.Join(e.Searched, string(os.PathListSeparator)))
}

// Source is a located module binary with its optional WIT signatures.
type Source struct {
	Name   string
	Origin string
	Wasm   []byte
	WIT    string
}

// Locator maps module names to binaries. In-memory modules win over the
// search directories; directories are tried in order.
//
// A dotted name maps to nested directories: "pkg.model" is looked up as
// pkg/model.wasm. A sidecar pkg/model.wit, when present, supplies signatures.
type Locator struct {
	dirs       []string
	modules    map[string][]byte
	signatures map[string]string
}

func NewLocator(dirs []string, modules map[string][]byte, signatures map[string]string) *Locator {
	return &Locator{dirs: dirs, modules: modules, signatures: signatures}
}

// Dirs returns the search directories.
func (l *Locator) Dirs() []string {
	return l.dirs
}

// Find locates the module called name.
func (l *Locator) Find(name string) (*Source, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	if wasm, ok := l.modules[name]; ok {
		return &Source{Name: name, Origin: OriginMemory, Wasm: wasm, WIT: l.signatures[name]}, nil
	}

	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	for _, dir := range l.dirs {
		path := filepath.Join(dir, rel+".wasm")
		wasm, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		src := &Source{Name: name, Origin: path, Wasm: wasm}
		if sig, ok := l.signatures[name]; ok {
			src.WIT = sig
		} else if wit, err := os.ReadFile(filepath.Join(dir, rel+".wit")); err == nil {
			src.WIT = string(wit)
		}
		return src, nil
	}

	return nil, &NotFoundError{Name: name, Searched: l.dirs}
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("empty module name")
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid module name %q", name)
	}
	return nil
}
