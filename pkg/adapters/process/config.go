package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Runtime is the interpreter a leaf body is fed to on stdin.
type Runtime struct {
	Lang        string            `yaml:"lang" json:"lang"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	// Shell marks POSIX shells, whose bodies can have their environment captured.
	Shell       bool   `yaml:"shell" json:"shell"`
	Description string `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of runtimes.yaml
type ConfigFile struct {
	Runtimes []Runtime `yaml:"runtimes" json:"runtimes"`
}

// DefaultRuntimes returns the runtimes known without configuration.
func DefaultRuntimes() map[string]Runtime {
	return map[string]Runtime{
		"sh":     {Lang: "sh", Command: "sh", Args: []string{"-s"}, Shell: true},
		"bash":   {Lang: "bash", Command: "bash", Args: []string{"-s"}, Shell: true},
		"zsh":    {Lang: "zsh", Command: "zsh", Args: []string{"-s"}, Shell: true},
		"python": {Lang: "python", Command: "python3", Args: []string{"-"}},
		"node":   {Lang: "node", Command: "node", Args: []string{"-"}},
	}
}

// LoadRuntimes reads a configuration file (YAML or JSON) and merges its
// runtimes over the defaults. A missing file yields the defaults.
func LoadRuntimes(path string) (map[string]Runtime, error) {
	runtimes := DefaultRuntimes()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return runtimes, nil
		}
		return nil, fmt.Errorf("failed to read runtimes config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	for _, rt := range cfg.Runtimes {
		if rt.Lang == "" {
			continue
		}
		if rt.Command == "" {
			return nil, fmt.Errorf("runtime %q: missing command", rt.Lang)
		}
		runtimes[rt.Lang] = rt
	}
	return runtimes, nil
}
