package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/FjamZoo/clothing-tool/internal/renderpool"
)

// Config is the clothing-tool configuration file
// (~/.config/clothing-tool/config.yaml). Pointer fields distinguish
// "not set" from zero values so CLI flags keep precedence.
type Config struct {
	BlenderPath string `yaml:"blender_path"`
	ScriptPath  string `yaml:"blender_script"`

	Workers      *int           `yaml:"workers"`
	JobTimeout   *time.Duration `yaml:"job_timeout"`
	RenderSize   *int           `yaml:"render_size"`
	TAASamples   *int           `yaml:"taa_samples"`
	OutputSize   *int           `yaml:"output_size"`
	GreenHairFix *bool          `yaml:"green_hair_fix"`

	OutputDir     string `yaml:"output_dir"`
	ServerAddress string `yaml:"server_address"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "clothing-tool", "config.yaml")
}

// loadConfig reads the config file if present. A missing file is not an
// error; a malformed one is.
func loadConfig() (Config, error) {
	return loadConfigFrom(configPath())
}

func loadConfigFrom(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// orFile resolves a string setting: an explicitly set flag wins, then a
// non-empty config file value, then the flag default.
func orFile(cmd *cli.Command, flag, flagValue, fileValue string) string {
	if fileValue != "" && !cmd.IsSet(flag) {
		return fileValue
	}
	return flagValue
}

// renderOverrides converts file values into pool overrides, skipping any
// field the user set on the command line.
func (cfg Config) renderOverrides(c *cli.Command) renderpool.Overrides {
	var o renderpool.Overrides
	if cfg.BlenderPath != "" && !c.IsSet("blender-path") {
		o.BlenderPath = &cfg.BlenderPath
	}
	if cfg.ScriptPath != "" && !c.IsSet("blender-script") {
		o.ScriptPath = &cfg.ScriptPath
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		o.Workers = cfg.Workers
	}
	if cfg.JobTimeout != nil && !c.IsSet("job-timeout") {
		o.JobTimeout = cfg.JobTimeout
	}
	if cfg.RenderSize != nil && !c.IsSet("render-size") {
		o.RenderSize = cfg.RenderSize
	}
	if cfg.TAASamples != nil && !c.IsSet("taa-samples") {
		o.TAASamples = cfg.TAASamples
	}
	if cfg.OutputSize != nil && !c.IsSet("output-size") {
		o.OutputSize = cfg.OutputSize
	}
	if cfg.GreenHairFix != nil && !c.IsSet("no-green-fix") {
		o.GreenHairFix = cfg.GreenHairFix
	}
	return o
}
