package renderpool

import "fmt"

// TextureInfo describes the diffuse texture behind a job. It is filled in
// during pre-extraction and rides through to the catalog.
type TextureInfo struct {
	Name   string `json:"name,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Format string `json:"format,omitempty"`
}

// Job is one unit of render work. It is created by the batch layer and
// consumed exactly once by a worker lane.
type Job struct {
	// Key identifies the job in the result set (catalog key).
	Key string
	// ModelPath is the drawable (.ydd) the worker loads.
	ModelPath string
	// TexturePaths are the pre-extracted DDS files for the drawable.
	TexturePaths []string
	// FallbackModel optionally names a base body mesh.
	FallbackModel string
	// Category is the clothing category, used by workers for framing.
	Category string
	// RenderPath is the scratch path the worker writes its full-size
	// render to; it round-trips through the worker result line.
	RenderPath string
	// OutputPath is the final preview path written by post-processing.
	OutputPath string
	// Texture carries the diffuse texture metadata for the catalog.
	Texture TextureInfo
}

// Result is the terminal outcome of one job. Every job submitted to a
// batch ends as exactly one Result, success or not; no panic or error
// value crosses the pool boundary.
type Result struct {
	Key        string      `json:"key"`
	OutputPath string      `json:"output_path"`
	Success    bool        `json:"success"`
	Err        string      `json:"error,omitempty"`
	Texture    TextureInfo `json:"texture"`
}

func failure(job Job, reason string) Result {
	return Result{Key: job.Key, OutputPath: job.OutputPath, Err: reason, Texture: job.Texture}
}

func success(job Job) Result {
	return Result{Key: job.Key, OutputPath: job.OutputPath, Success: true, Texture: job.Texture}
}

// WorkerState is the supervisor-owned lifecycle state of one worker.
// Transitions happen only inside that worker's supervisor loop.
type WorkerState int

const (
	StateStarting WorkerState = iota
	StateReady
	StateBusy
	StateCrashed
	StateDead
)

func (s WorkerState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateCrashed:
		return "crashed"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// wire types for the line protocol

type jobPayload struct {
	ModelPath     string   `json:"ydd_path"`
	TexturePaths  []string `json:"dds_files"`
	OutputPath    string   `json:"output_path"`
	Category      string   `json:"category"`
	FallbackModel string   `json:"fallback_ydd,omitempty"`
}

type resultPayload struct {
	OutputPath string `json:"output_path"`
	Success    bool   `json:"success"`
	Error      string `json:"error"`
}

type configPayload struct {
	RenderSize   int  `json:"render_size,omitempty"`
	TAASamples   int  `json:"taa_samples,omitempty"`
	GreenHairFix bool `json:"green_hair_fix"`
}
