package renderpool

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/FjamZoo/clothing-tool/internal/logger"
)

var (
	// ErrCrash reports that the worker process died or its streams broke.
	ErrCrash = errors.New("worker crashed")
	// ErrTimeout reports that a job exceeded the per-job deadline.
	ErrTimeout = errors.New("render timed out")
	// ErrStartup reports that a worker never signalled READY.
	ErrStartup = errors.New("worker failed to start")
)

// readyLine is emitted by a worker once it can accept jobs.
const readyLine = "READY"

// resultPrefix marks the one protocol line carrying a job outcome; every
// other stdout line is informational and ignored.
const resultPrefix = "RESULT:"

// Worker owns one external render process speaking the line protocol over
// its standard streams. A Worker is driven by exactly one supervisor
// goroutine for its whole lifetime, including restarts, so none of its
// methods synchronize.
type Worker struct {
	ID      int
	State   WorkerState
	Crashes int

	cfg Config
	log logger.Logger

	proc  *exec.Cmd
	stdin io.WriteCloser
	// lines receives stdout lines and is closed on EOF, turning process
	// death into a channel event the supervisor can select on.
	lines <-chan string
}

// NewWorker creates an unstarted worker handle.
func NewWorker(id int, cfg Config, log logger.Logger) *Worker {
	return &Worker{
		ID:    id,
		State: StateStarting,
		cfg:   cfg,
		log:   log.With("worker", id),
	}
}

// Start launches the worker process and waits for its READY line. The
// stderr stream is drained for the process lifetime so a chatty worker
// can never block on a full pipe.
func (w *Worker) Start() error {
	args := w.cfg.workerCommand()
	if len(args) == 0 || args[0] == "" {
		return fmt.Errorf("%w: no worker command configured", ErrStartup)
	}

	proc := exec.Command(args[0], args[1:]...)
	proc.Env = append(os.Environ(), w.cfg.Env...)

	stdin, err := proc.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %v", ErrStartup, err)
	}
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", ErrStartup, err)
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: stderr pipe: %v", ErrStartup, err)
	}

	if err := proc.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrStartup, err)
	}

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	go func() {
		sc := bufio.NewScanner(stderr)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			if line := sc.Text(); line != "" {
				w.log.Debug("worker stderr", "line", line)
			}
		}
	}()

	w.proc = proc
	w.stdin = stdin
	w.lines = lines

	if err := w.awaitReady(); err != nil {
		w.kill()
		return err
	}
	if err := w.sendConfig(); err != nil {
		// A config failure leaves the worker usable with its defaults.
		w.log.Warn("worker config not applied", "err", err)
	}

	w.State = StateReady
	w.log.Info("worker started", "pid", proc.Process.Pid)
	return nil
}

// awaitReady consumes stdout lines until READY or the startup deadline.
func (w *Worker) awaitReady() error {
	timer := time.NewTimer(w.cfg.StartupTimeout)
	defer timer.Stop()

	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				return fmt.Errorf("%w: stdout closed before READY", ErrStartup)
			}
			if line == readyLine {
				return nil
			}
			// Startup chatter, ignore.
		case <-timer.C:
			return fmt.Errorf("%w: no READY within %s", ErrStartup, w.cfg.StartupTimeout)
		}
	}
}

// sendConfig sends the optional CONFIG line and waits for its ack.
func (w *Worker) sendConfig() error {
	payload := configPayload{
		RenderSize:   w.cfg.RenderSize,
		TAASamples:   w.cfg.TAASamples,
		GreenHairFix: w.cfg.GreenHairFix,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w.stdin, "CONFIG:"+string(data)+"\n"); err != nil {
		return err
	}

	timer := time.NewTimer(w.cfg.ConfigAckTimeout)
	defer timer.Stop()
	select {
	case line, ok := <-w.lines:
		if !ok {
			return errors.New("stdout closed during config ack")
		}
		if strings.HasPrefix(line, "CONFIG_ERR") {
			return errors.New(line)
		}
		// CONFIG_OK or chatter.
		return nil
	case <-timer.C:
		return errors.New("config ack timed out")
	}
}

// Render sends one job and blocks until its RESULT line, the job
// deadline, or process death. Timeouts return ErrTimeout, stream/process
// failures return ErrCrash.
func (w *Worker) Render(job Job) (resultPayload, error) {
	var res resultPayload

	payload := jobPayload{
		ModelPath:     job.ModelPath,
		TexturePaths:  job.TexturePaths,
		OutputPath:    job.RenderPath,
		Category:      job.Category,
		FallbackModel: job.FallbackModel,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return res, fmt.Errorf("encode job: %w", err)
	}
	if _, err := io.WriteString(w.stdin, string(data)+"\n"); err != nil {
		return res, fmt.Errorf("%w: stdin write: %v", ErrCrash, err)
	}

	timer := time.NewTimer(w.cfg.JobTimeout)
	defer timer.Stop()

	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				return res, fmt.Errorf("%w: stdout EOF", ErrCrash)
			}
			if !strings.HasPrefix(line, resultPrefix) {
				continue
			}
			raw := line[len(resultPrefix):]
			if err := json.Unmarshal([]byte(raw), &res); err != nil {
				res = resultPayload{
					OutputPath: job.OutputPath,
					Error:      fmt.Sprintf("malformed result payload: %v", err),
				}
			}
			return res, nil
		case <-timer.C:
			return res, fmt.Errorf("%w: no result within %s", ErrTimeout, w.cfg.JobTimeout)
		}
	}
}

// Restart force-kills the current process and launches a fresh one. After
// a hang the old process's stream state is unreliable, so there is no
// graceful path here.
func (w *Worker) Restart() error {
	w.log.Warn("restarting worker")
	w.kill()
	return w.Start()
}

// Shutdown closes stdin to request a clean exit, waits up to the shutdown
// deadline and force-kills on expiry.
func (w *Worker) Shutdown() {
	if w.proc == nil {
		return
	}
	if w.stdin != nil {
		_ = w.stdin.Close()
	}

	done := make(chan error, 1)
	go func() { done <- w.proc.Wait() }()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownTimeout):
		w.log.Warn("killing unresponsive worker")
		_ = w.proc.Process.Kill()
		<-done
	}
	w.drainLines()

	w.proc = nil
	w.stdin = nil
	w.State = StateDead
	w.log.Debug("worker shut down")
}

// kill tears the process down without ceremony.
func (w *Worker) kill() {
	if w.proc == nil {
		return
	}
	if w.stdin != nil {
		_ = w.stdin.Close()
	}
	if w.proc.Process != nil {
		_ = w.proc.Process.Kill()
	}
	_ = w.proc.Wait()
	w.drainLines()
	w.proc = nil
	w.stdin = nil
}

// drainLines consumes leftover stdout lines until the scanner goroutine
// closes the channel, so a chatty worker cannot strand it on a full
// buffer after the supervisor stops reading.
func (w *Worker) drainLines() {
	if w.lines == nil {
		return
	}
	for range w.lines {
	}
	w.lines = nil
}
