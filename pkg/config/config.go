// Package config loads pitui.toml files.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/vito/pitui/pkg/pitui"
	"github.com/vito/pitui/pkg/render"
)

// FileName is the name of the configuration file Find looks for.
const FileName = "pitui.toml"

// Config represents a pitui.toml configuration file.
type Config struct {
	// Stylesheets are loaded in order, so later files win ties. Relative
	// paths are relative to the config file.
	Stylesheets []string `toml:"stylesheets"`

	// FPS caps the frame rate. Zero leaves it uncapped.
	FPS int `toml:"fps"`

	// Variables are injected as top-level $variables and override the
	// stylesheets' own definitions. Values are CSS source text.
	Variables map[string]string `toml:"variables"`

	// Terminal forces capabilities regardless of detection.
	Terminal render.Overrides `toml:"terminal"`

	Debug Debug `toml:"debug"`

	// Dir is the directory containing the config file.
	Dir string `toml:"-"`
}

// Debug configures diagnostic output. Values support ${ENV_VAR} expansion.
type Debug struct {
	// RenderLog is a file that receives one JSON line of render stats per
	// frame.
	RenderLog string `toml:"render_log"`

	// LogFile receives log output while the TUI owns the terminal.
	LogFile string `toml:"log_file"`

	// Pprof is a listen address for net/http/pprof, like "localhost:6060".
	Pprof string `toml:"pprof"`
}

// Load loads a pitui.toml file from the given path. Unknown keys are an
// error, so typos don't go unnoticed.
func Load(path string) (*Config, error) {
	var config Config
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parsing %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	config.Dir = filepath.Dir(abs)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &config, nil
}

// Find searches for a pitui.toml file starting from dir and walking up to
// parent directories, stopping at a .git boundary. Returns the path and
// the parsed config, or ("", nil, nil) if not found.
func Find(dir string) (string, *Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return "", nil, err
			}
			return path, config, nil
		}

		// Stop at .git boundary
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// Validate checks values that decode fine but can't be used.
func (c *Config) Validate() error {
	if c.FPS < 0 {
		return fmt.Errorf("fps: must not be negative, got %d", c.FPS)
	}
	if _, err := (render.Capabilities{}).With(c.Terminal); err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	if _, err := pitui.ParseVariables(c.Variables); err != nil {
		return fmt.Errorf("variables: %w", err)
	}
	return nil
}

// StylesheetPaths returns the stylesheet paths resolved against Dir.
func (c *Config) StylesheetPaths() []string {
	paths := make([]string, 0, len(c.Stylesheets))
	for _, p := range c.Stylesheets {
		paths = append(paths, c.resolve(p))
	}
	return paths
}

// RenderLogPath returns the expanded render log path, if any.
func (c *Config) RenderLogPath() string {
	if c.Debug.RenderLog == "" {
		return ""
	}
	return c.resolve(c.Debug.RenderLog)
}

// LogFilePath returns the expanded log file path, if any.
func (c *Config) LogFilePath() string {
	if c.Debug.LogFile == "" {
		return ""
	}
	return c.resolve(c.Debug.LogFile)
}

func (c *Config) resolve(p string) string {
	p = os.ExpandEnv(p)
	if !filepath.IsAbs(p) && c.Dir != "" {
		p = filepath.Join(c.Dir, p)
	}
	return p
}

// Merge returns c with the non-zero values of o laid over it. Stylesheets
// and variables from o are added after c's.
func (c *Config) Merge(o *Config) *Config {
	out := *c
	if o == nil {
		return &out
	}
	out.Stylesheets = append(slices.Clone(c.Stylesheets), o.Stylesheets...)
	if o.FPS != 0 {
		out.FPS = o.FPS
	}
	if len(o.Variables) > 0 {
		out.Variables = make(map[string]string, len(c.Variables)+len(o.Variables))
		maps.Copy(out.Variables, c.Variables)
		maps.Copy(out.Variables, o.Variables)
	}
	if o.Terminal.Color != "" {
		out.Terminal.Color = o.Terminal.Color
	}
	if o.Terminal.SyncOutput != nil {
		out.Terminal.SyncOutput = o.Terminal.SyncOutput
	}
	if o.Terminal.Passthrough != nil {
		out.Terminal.Passthrough = o.Terminal.Passthrough
	}
	if o.Terminal.Unicode != nil {
		out.Terminal.Unicode = o.Terminal.Unicode
	}
	if o.Terminal.Mouse != nil {
		out.Terminal.Mouse = o.Terminal.Mouse
	}
	if o.Debug.RenderLog != "" {
		out.Debug.RenderLog = o.Debug.RenderLog
	}
	if o.Debug.LogFile != "" {
		out.Debug.LogFile = o.Debug.LogFile
	}
	if o.Debug.Pprof != "" {
		out.Debug.Pprof = o.Debug.Pprof
	}
	return &out
}

// Apply configures a TUI that has not been started: variables first, so
// the stylesheets resolve against them, then capabilities, frame rate and
// stylesheets.
func (c *Config) Apply(tui *pitui.TUI) error {
	vars, err := pitui.ParseVariables(c.Variables)
	if err != nil {
		return fmt.Errorf("variables: %w", err)
	}
	if len(vars) > 0 {
		tui.SetVariables(vars)
	}
	caps, err := tui.Capabilities().With(c.Terminal)
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	tui.SetCapabilities(caps)
	tui.SetFPS(c.FPS)
	for _, p := range c.StylesheetPaths() {
		if err := tui.LoadStylesheetFile(p); err != nil {
			return fmt.Errorf("stylesheet %s: %w", p, err)
		}
	}
	return nil
}
