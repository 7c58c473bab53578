// Package renderpool runs a pool of persistent external render workers
// fed from a shared job queue.
//
// Each worker process is owned by exactly one supervisor goroutine which
// dispatches jobs over a line protocol, enforces a per-job timeout,
// detects crashes and restarts its worker up to a bound. A hung worker is
// always restarted because its later stream state is unreliable; the
// timed-out job itself is failed, not requeued (a timeout usually means a
// poisoned job, a crash a flaky worker, so the two are handled differently).
package renderpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/FjamZoo/clothing-tool/internal/logger"
)

// PostProcess finishes one successful worker render, typically validating
// and downscaling it into place. Returning an error turns the job into a
// failure result.
type PostProcess func(job Job, renderPath string) error

// Pool feeds jobs to persistent workers and collects one Result per job.
type Pool struct {
	cfg  Config
	log  logger.Logger
	post PostProcess

	jobs chan Job

	mu      sync.Mutex
	results []Result
}

// NewPool creates a pool with the given effective configuration. post may
// be nil, in which case worker successes are recorded as-is.
func NewPool(cfg Config, post PostProcess, log logger.Logger) *Pool {
	if log == nil {
		log = logger.Default()
	}
	return &Pool{cfg: cfg, post: post, log: log}
}

// Run renders all jobs and returns one Result per job. Result order is
// arrival order and carries no meaning; consumers match on Key.
func (p *Pool) Run(jobs []Job) []Result {
	if len(jobs) == 0 {
		return nil
	}

	// Capacity covers every job plus one crash requeue per lane.
	p.jobs = make(chan Job, len(jobs)+p.cfg.Workers)
	for _, j := range jobs {
		p.jobs <- j
	}
	p.results = make([]Result, 0, len(jobs))

	workers := make([]*Worker, 0, p.cfg.Workers)
	for i := range p.cfg.Workers {
		w := NewWorker(i, p.cfg, p.log)
		if err := w.Start(); err != nil {
			// A failed lane degrades the pool, it does not fail the batch.
			p.log.Error("worker failed to start", "worker", i, "err", err)
			continue
		}
		workers = append(workers, w)
	}

	if len(workers) == 0 {
		p.log.Error("all workers failed to start")
		for range len(p.jobs) {
			job := <-p.jobs
			p.collect(failure(job, "all render workers failed to start"))
		}
		return p.results
	}

	p.log.Info("render pool running", "workers", len(workers), "jobs", len(jobs))

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			p.supervise(w)
		}(w)
	}
	wg.Wait()

	for _, w := range workers {
		w.Shutdown()
	}

	// Jobs can remain queued when every lane died mid-batch; they still
	// get a terminal result.
	for {
		select {
		case job := <-p.jobs:
			p.collect(failure(job, "no render workers left"))
		default:
			return p.results
		}
	}
}

// supervise is the per-worker loop. It is the only goroutine that touches
// its worker, including across restarts.
func (p *Pool) supervise(w *Worker) {
	for {
		var job Job
		select {
		case job = <-p.jobs:
		default:
			// Queue drained, lane done.
			return
		}

		w.State = StateBusy
		res, err := w.Render(job)

		switch {
		case err == nil:
			w.State = StateReady
			p.finish(job, res)

		case errors.Is(err, ErrTimeout):
			p.log.Warn("job timed out", "worker", w.ID, "key", job.Key)
			// Not requeued: a poisoned job would otherwise cycle forever.
			p.collect(failure(job, fmt.Sprintf("render timed out after %s", p.cfg.JobTimeout)))
			if rerr := w.Restart(); rerr != nil {
				p.log.Error("restart after timeout failed", "worker", w.ID, "err", rerr)
				w.State = StateDead
				return
			}

		case errors.Is(err, ErrCrash):
			w.State = StateCrashed
			w.Crashes++
			p.log.Warn("worker crashed", "worker", w.ID, "crashes", w.Crashes, "key", job.Key)

			if w.Crashes > p.cfg.MaxCrashRestarts {
				p.collect(failure(job, fmt.Sprintf(
					"render worker crashed too many times (limit %d)", p.cfg.MaxCrashRestarts)))
				w.State = StateDead
				return
			}
			// The job goes back for whichever lane gets there first.
			p.jobs <- job
			if rerr := w.Restart(); rerr != nil {
				p.log.Error("restart after crash failed", "worker", w.ID, "err", rerr)
				w.State = StateDead
				return
			}

		default:
			// Encoding failures and the like: the job is charged, the
			// worker is fine.
			w.State = StateReady
			p.collect(failure(job, err.Error()))
		}
	}
}

// finish converts a worker protocol result into the job's terminal Result.
func (p *Pool) finish(job Job, res resultPayload) {
	if !res.Success {
		reason := res.Error
		if reason == "" {
			reason = "render failed with no reason given"
		}
		p.collect(failure(job, reason))
		return
	}
	renderPath := res.OutputPath
	if renderPath == "" {
		renderPath = job.RenderPath
	}
	if p.post != nil {
		if err := p.post(job, renderPath); err != nil {
			p.collect(failure(job, err.Error()))
			return
		}
	}
	p.collect(success(job))
}

// collect appends under the results lock; the lock is never held across
// I/O or worker calls.
func (p *Pool) collect(r Result) {
	p.mu.Lock()
	p.results = append(p.results, r)
	p.mu.Unlock()
}
