package renderpool

import (
	"os/exec"
	"time"
)

// Config is the effective render configuration. It is a plain immutable
// value: build one with DefaultConfig, layer call-site overrides on with
// With, and thread the result into RenderBatch. Nothing in this package
// mutates a Config after it is built.
type Config struct {
	// BlenderPath is the Blender executable used to host workers.
	BlenderPath string
	// ScriptPath is the worker-mode render script passed to Blender.
	ScriptPath string
	// Command, when non-empty, replaces the Blender launch line entirely.
	// Tests use it to substitute a stub worker process.
	Command []string
	// Env is appended to the worker process environment.
	Env []string

	// Workers is the number of persistent worker processes.
	Workers int
	// MaxCrashRestarts bounds automatic crash recovery per worker.
	MaxCrashRestarts int

	JobTimeout       time.Duration
	StartupTimeout   time.Duration
	ConfigAckTimeout time.Duration
	ShutdownTimeout  time.Duration

	// RenderSize and TAASamples are forwarded to workers in the CONFIG
	// line; zero means the worker's own default.
	RenderSize int
	TAASamples int
	// OutputSize is the final preview image edge length in pixels.
	OutputSize int
	// GreenHairFix tells workers to remap green hair tint masks.
	GreenHairFix bool
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Workers:          8,
		MaxCrashRestarts: 3,
		JobTimeout:       120 * time.Second,
		StartupTimeout:   60 * time.Second,
		ConfigAckTimeout: 10 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		OutputSize:       512,
		GreenHairFix:     true,
	}
}

// Overrides carries optional per-call settings. Pointer and slice fields
// distinguish "not set" from zero values, mirroring the config file layer.
type Overrides struct {
	BlenderPath  *string
	ScriptPath   *string
	Command      []string
	Workers      *int
	JobTimeout   *time.Duration
	RenderSize   *int
	TAASamples   *int
	OutputSize   *int
	GreenHairFix *bool
}

// With returns a copy of c with the set fields of o applied.
func (c Config) With(o Overrides) Config {
	if o.BlenderPath != nil {
		c.BlenderPath = *o.BlenderPath
	}
	if o.ScriptPath != nil {
		c.ScriptPath = *o.ScriptPath
	}
	if len(o.Command) > 0 {
		c.Command = append([]string(nil), o.Command...)
	}
	if o.Workers != nil {
		c.Workers = *o.Workers
	}
	if o.JobTimeout != nil {
		c.JobTimeout = *o.JobTimeout
	}
	if o.RenderSize != nil {
		c.RenderSize = *o.RenderSize
	}
	if o.TAASamples != nil {
		c.TAASamples = *o.TAASamples
	}
	if o.OutputSize != nil {
		c.OutputSize = *o.OutputSize
	}
	if o.GreenHairFix != nil {
		c.GreenHairFix = *o.GreenHairFix
	}
	return c
}

// workerCommand resolves the launch line for one worker process.
func (c Config) workerCommand() []string {
	if len(c.Command) > 0 {
		return c.Command
	}
	return []string{c.BlenderPath, "-b", "-P", c.ScriptPath, "--", "--worker"}
}

// FindBlender tries to auto-detect the Blender executable.
func FindBlender() string {
	if p, err := exec.LookPath("blender"); err == nil {
		return p
	}
	return ""
}
