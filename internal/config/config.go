package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DirName  = ".pairkit"
	BaseName = "pairkit"
)

var fileExts = []string{".json", ".yaml", ".yml"}

type LanguageServer struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
}

type Ledger struct {
	// Driver is "memory" or "sqlite"
	Driver string `json:"driver" yaml:"driver"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
}

type Log struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
	JSON  bool   `json:"json,omitempty" yaml:"json,omitempty"`
}

type Workspace struct {
	ExtraExtensions   []string `json:"extraExtensions,omitempty" yaml:"extraExtensions,omitempty"`
	ExtraSkipPatterns []string `json:"extraSkipPatterns,omitempty" yaml:"extraSkipPatterns,omitempty"`
}

// Config is the merged configuration
type Config struct {
	LanguageServer LanguageServer `json:"languageServer" yaml:"languageServer"`
	Ledger         Ledger         `json:"ledger" yaml:"ledger"`
	Log            Log            `json:"log" yaml:"log"`
	MetricsAddr    string         `json:"metricsAddr,omitempty" yaml:"metricsAddr,omitempty"`
	RevealCommand  []string       `json:"revealCommand,omitempty" yaml:"revealCommand,omitempty"`
	WatchDebounce  Duration       `json:"watchDebounce,omitempty" yaml:"watchDebounce,omitempty"`
	PrefsPath      string         `json:"prefsPath,omitempty" yaml:"prefsPath,omitempty"`
	Workspace      Workspace      `json:"workspace" yaml:"workspace"`

	// Sources lists the files merged into this config, in order
	Sources []string `json:"-" yaml:"-"`
}

// Duration accepts "500ms"-style strings in both formats
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	return d.parse(s)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Ledger:        Ledger{Driver: "sqlite", Path: Path("ledger.db")},
		Log:           Log{Level: "info"},
		WatchDebounce: Duration(500 * time.Millisecond),
		PrefsPath:     Path("prefs.json"),
	}
}

// Load merges defaults, the global file, the nearest project file above
// workDir and the environment, in that order.
func Load(workDir string) (*Config, error) {
	cfg := Default()

	if path := findFile(Home(), BaseName); path != "" {
		if err := cfg.merge(path); err != nil {
			return nil, err
		}
	}
	if path := findProjectConfig(workDir); path != "" {
		if err := cfg.merge(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(Environment())
	return cfg, nil
}

func (c *Config) merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Sources = append(c.Sources, path)
	return nil
}

func (c *Config) applyEnv(e *Env) {
	if e.LSCommand != "" {
		c.LanguageServer.Command = e.LSCommand
	}
	if len(e.LSArgs) > 0 {
		c.LanguageServer.Args = e.LSArgs
	}
	if e.Ledger != "" {
		c.Ledger.Driver = e.Ledger
	}
	if e.LedgerPath != "" {
		c.Ledger.Path = e.LedgerPath
	}
	if e.LogLevel != "" {
		c.Log.Level = e.LogLevel
	}
	if e.MetricsAddr != "" {
		c.MetricsAddr = e.MetricsAddr
	}
	if len(e.RevealCommand) > 0 {
		c.RevealCommand = e.RevealCommand
	}
}

// Save writes c as JSON to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// findFile returns dir/base with the first existing extension
func findFile(dir, base string) string {
	for _, ext := range fileExts {
		p := filepath.Join(dir, base+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func findProjectConfig(dir string) string {
	if dir == "" {
		return ""
	}
	dir, _ = filepath.Abs(dir)
	home := Home()
	for {
		if p := findFile(dir, BaseName); p != "" {
			return p
		}
		// The home directory's .pairkit holds the global file.
		if sub := filepath.Join(dir, DirName); sub != home {
			if p := findFile(sub, BaseName); p != "" {
				return p
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
