// Package config handles lathe.toml settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/chazu/lathe/pkg/fsig"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lathe.config")

// FileName is the settings file looked up next to documents.
const FileName = "lathe.toml"

// Defaults
const (
	DefaultNormalizeLimit = 4000
	DefaultRenderLimit    = 2000
	DefaultIntervalMS     = 200
	DefaultDebounceMS     = 200
	DefaultCacheSize      = 32
	DefaultMeshCells      = 200
	DefaultKernel         = "sdfx"
)

// Settings represents a lathe.toml file.
type Settings struct {
	Limits Limits `toml:"limits"`
	Reload Reload `toml:"reload"`
	Worker Worker `toml:"worker"`
	Log    Log    `toml:"log"`

	// Path is the file the settings were read from, empty for defaults.
	Path string `toml:"-"`
}

// Limits bounds the term pipeline.
type Limits struct {
	Normalize int `toml:"normalize"`
	Render    int `toml:"render"`
}

// Reload configures automatic recompilation.
type Reload struct {
	Auto       bool `toml:"auto"`
	IntervalMS int  `toml:"interval_ms"`
	DebounceMS int  `toml:"debounce_ms"`
}

// Interval is the auto-reload polling period.
func (r Reload) Interval() time.Duration {
	return time.Duration(r.IntervalMS) * time.Millisecond
}

// Debounce is the dependency cascade delay.
func (r Reload) Debounce() time.Duration {
	return time.Duration(r.DebounceMS) * time.Millisecond
}

// Worker configures the exact geometry worker.
type Worker struct {
	CacheSize int    `toml:"cache_size"`
	MeshCells int    `toml:"mesh_cells"`
	Kernel    string `toml:"kernel"` // sdfx or manifold
}

// Log configures diagnostic logging.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the settings used when no file is present.
func Default() Settings {
	var s Settings
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.Limits.Normalize <= 0 {
		s.Limits.Normalize = DefaultNormalizeLimit
	}
	if s.Limits.Render <= 0 {
		s.Limits.Render = DefaultRenderLimit
	}
	if s.Reload.IntervalMS <= 0 {
		s.Reload.IntervalMS = DefaultIntervalMS
	}
	if s.Reload.DebounceMS <= 0 {
		s.Reload.DebounceMS = DefaultDebounceMS
	}
	if s.Worker.CacheSize <= 0 {
		s.Worker.CacheSize = DefaultCacheSize
	}
	if s.Worker.MeshCells <= 0 {
		s.Worker.MeshCells = DefaultMeshCells
	}
	if s.Worker.Kernel == "" {
		s.Worker.Kernel = DefaultKernel
	}
}

// Load parses a settings file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	s.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	s.applyDefaults()
	return &s, nil
}

// Find walks up from startDir looking for a lathe.toml file. It returns
// the empty string if there is none.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// FindAndLoad walks up from startDir to find a lathe.toml file and loads
// it. Without a file it returns the defaults.
func FindAndLoad(startDir string) (*Settings, error) {
	path, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		s := Default()
		return &s, nil
	}
	return Load(path)
}

// Source supplies settings at the start of every compilation cycle.
type Source interface {
	Settings() Settings
}

// Static is a fixed Source.
type Static Settings

// Settings implements Source.
func (s Static) Settings() Settings {
	out := Settings(s)
	out.applyDefaults()
	return out
}

// FileSource re-reads a settings file whenever its signature changes. A
// file that fails to parse keeps the last good settings.
type FileSource struct {
	path string

	mu   sync.Mutex
	sig  string
	last Settings
}

// NewFileSource returns a Source backed by path. The file need not exist
// yet; defaults apply until it does.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, last: Default()}
}

// Path returns the watched file.
func (f *FileSource) Path() string {
	return f.path
}

// Settings implements Source.
func (f *FileSource) Settings() Settings {
	f.mu.Lock()
	defer f.mu.Unlock()

	sig, ok := fsig.Of(f.path)
	if !ok {
		if f.sig != "" {
			log.Warningf("settings file %s disappeared, using defaults", f.path)
			f.sig, f.last = "", Default()
		}
		return f.last
	}
	if sig == f.sig {
		return f.last
	}
	s, err := Load(f.path)
	if err != nil {
		log.Errorf("%s", err)
		f.sig = sig
		return f.last
	}
	log.Debugf("loaded settings from %s", f.path)
	f.sig, f.last = sig, *s
	return f.last
}
