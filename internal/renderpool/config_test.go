package renderpool

import (
	"testing"
	"time"
)

func TestConfigWith(t *testing.T) {
	t.Parallel()

	base := DefaultConfig()
	base.BlenderPath = "/usr/bin/blender"

	workers := 2
	timeout := 30 * time.Second
	greenFix := false

	got := base.With(Overrides{
		Workers:      &workers,
		JobTimeout:   &timeout,
		GreenHairFix: &greenFix,
	})

	if got.Workers != 2 {
		t.Errorf("workers: got %d, want 2", got.Workers)
	}
	if got.JobTimeout != 30*time.Second {
		t.Errorf("job timeout: got %s, want 30s", got.JobTimeout)
	}
	if got.GreenHairFix {
		t.Error("green hair fix should be overridden to false")
	}

	// Unset fields keep the base values.
	if got.BlenderPath != "/usr/bin/blender" {
		t.Errorf("blender path clobbered: %q", got.BlenderPath)
	}
	if got.MaxCrashRestarts != base.MaxCrashRestarts {
		t.Errorf("crash restarts clobbered: %d", got.MaxCrashRestarts)
	}
	if got.OutputSize != base.OutputSize {
		t.Errorf("output size clobbered: %d", got.OutputSize)
	}

	// The base itself is untouched.
	if base.Workers != DefaultConfig().Workers {
		t.Errorf("base config mutated: %d workers", base.Workers)
	}
}

func TestWorkerCommand(t *testing.T) {
	t.Parallel()

	cfg := Config{BlenderPath: "/opt/blender", ScriptPath: "/scripts/render.py"}
	want := []string{"/opt/blender", "-b", "-P", "/scripts/render.py", "--", "--worker"}
	got := cfg.workerCommand()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	cfg.Command = []string{"stub", "--flag"}
	got = cfg.workerCommand()
	if len(got) != 2 || got[0] != "stub" {
		t.Fatalf("command override ignored: %v", got)
	}
}
