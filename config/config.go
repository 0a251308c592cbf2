// Reads configuration data from a pylintmark_config.json file

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/daedaleanai/pylintmark/diagnostics"
	"github.com/daedaleanai/pylintmark/git"
	"github.com/daedaleanai/pylintmark/logging"
	"github.com/daedaleanai/pylintmark/pylint"
	"github.com/daedaleanai/pylintmark/refine"
)

var log = logging.Log

// FileName is the name of the configuration file looked up in the repository and the current
// directory
const FileName = "pylintmark_config.json"

/// Internal types for parsing json files

type jsonConfig struct {
	Executable         string   `json:"executable"`
	RCFile             string   `json:"rcfile"`
	Enable             []string `json:"enable"`
	Disable            []string `json:"disable"`
	Paths              []string `json:"paths"`
	Args               string   `json:"args"`
	Symbols            *bool    `json:"symbols"`
	CheckVersion       *bool    `json:"checkVersion"`
	VersionRequirement string   `json:"versionRequirement"`
	Timeout            string   `json:"timeout"`
	ResolutionTable    string   `json:"resolutionTable"`
	LineColBase        []int    `json:"lineColBase"`
}

/// Types exported for application use

// Config holds the settings of a run
type Config struct {
	// Path of the file the configuration was read from, empty for the defaults
	Path string
	// How pylint is invoked
	Options            pylint.Options
	CheckVersion       bool
	VersionRequirement string
	Timeout            time.Duration
	// ResolutionTable is a TOML file replacing the embedded table, empty for the embedded one
	ResolutionTable string
	// Base is the numbering convention of pylint's output
	Base diagnostics.Base
}

// Default returns the configuration used when no file is found
func Default() Config {
	return Config{
		Options:            pylint.DefaultOptions(),
		CheckVersion:       true,
		VersionRequirement: pylint.DefaultVersionRequirement,
		Timeout:            pylint.DefaultTimeout,
		Base:               diagnostics.ToolBase,
	}
}

// Locate returns the configuration file to use. An explicit path must exist; otherwise the file
// is looked up at the root of the git work tree, then in the current directory. The empty
// string means no file was found.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.Wrap(err, "configuration file")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	candidates := []string{}
	if toplevel, err := git.TopLevel(cwd); err == nil {
		candidates = append(candidates, filepath.Join(toplevel, FileName))
	} else {
		log.Debug("Not looking for %s in a repository: %s", FileName, err)
	}
	candidates = append(candidates, filepath.Join(cwd, FileName))
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// Load locates and parses the configuration file, falling back to the defaults
func Load(explicit string) (Config, error) {
	path, err := Locate(explicit)
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		log.Debug("No %s found, using defaults", FileName)
		return Default(), nil
	}
	return ParseConfigFile(path)
}

// ParseConfigFile reads a configuration file. Relative paths in it are relative to the
// directory of the file.
func ParseConfigFile(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("Error opening configuration file: %s", path)
	}

	var raw jsonConfig
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("Error while parsing configuration file `%s`: %s", path, err)
	}

	cfg := Default()
	cfg.Path = path
	if err := cfg.apply(raw, filepath.Dir(path)); err != nil {
		return Config{}, errors.Wrapf(err, "invalid configuration file `%s`", path)
	}
	return cfg, nil
}

func (config *Config) apply(raw jsonConfig, dir string) error {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	if raw.Executable != "" {
		config.Options.Executable = raw.Executable
	}
	config.Options.RCFile = resolve(raw.RCFile)
	config.Options.Enable = raw.Enable
	config.Options.Disable = raw.Disable
	for _, p := range raw.Paths {
		config.Options.Paths = append(config.Options.Paths, resolve(p))
	}
	config.Options.Args = raw.Args
	if raw.Symbols != nil {
		config.Options.Symbols = *raw.Symbols
	}
	if raw.CheckVersion != nil {
		config.CheckVersion = *raw.CheckVersion
	}
	if raw.VersionRequirement != "" {
		config.VersionRequirement = raw.VersionRequirement
	}
	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return errors.Wrap(err, "timeout")
		}
		if timeout <= 0 {
			return errors.Errorf("timeout must be positive, got %s", raw.Timeout)
		}
		config.Timeout = timeout
	}
	config.ResolutionTable = resolve(raw.ResolutionTable)
	if raw.LineColBase != nil {
		if len(raw.LineColBase) != 2 {
			return errors.Errorf("lineColBase must be a [line, column] pair, got %v", raw.LineColBase)
		}
		for _, b := range raw.LineColBase {
			if b != 0 && b != 1 {
				return errors.Errorf("lineColBase values must be 0 or 1, got %v", raw.LineColBase)
			}
		}
		config.Base = diagnostics.Base{Line: raw.LineColBase[0], Column: raw.LineColBase[1]}
	}
	return nil
}

// Table loads the resolution table selected by the configuration
func (config *Config) Table() (*refine.Table, error) {
	if config.ResolutionTable == "" {
		return refine.Default(), nil
	}
	return refine.LoadTableFile(config.ResolutionTable)
}

// NewLinter returns a linter set up according to the configuration
func (config *Config) NewLinter() (*pylint.Linter, error) {
	table, err := config.Table()
	if err != nil {
		return nil, err
	}
	l := pylint.New(config.Options)
	l.Base = config.Base
	l.Refiner = refine.NewRefiner(table)
	l.CheckVersion = config.CheckVersion
	l.VersionRequirement = config.VersionRequirement
	l.Timeout = config.Timeout
	return l, nil
}
