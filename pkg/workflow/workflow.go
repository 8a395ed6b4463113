package workflow

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/marek-kar/traceops/pkg/metrics"
	"github.com/marek-kar/traceops/pkg/model"
	"github.com/marek-kar/traceops/pkg/poller"
	"github.com/marek-kar/traceops/pkg/view"
)

type Backend interface {
	SubmitJob(ctx context.Context, req model.CreateJobRequest) (model.JobHandle, error)
	poller.Fetcher
}

type Options struct {
	Poll    poller.Options
	Logger  zerolog.Logger
	Metrics *metrics.Recorder
}

type Result struct {
	Job     model.JobHandle
	Outcome poller.Outcome
	Err     error
}

// Runner drives submit-then-poll runs against a single view.State. At most
// one run is active: starting a run cancels the previous one, and the
// generation check in State keeps a late response from the old run out of
// the view.
type Runner struct {
	backend Backend
	state   *view.State
	opts    Options

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

func New(backend Backend, state *view.State, opts Options) *Runner {
	if opts.Poll.Metrics == nil {
		opts.Poll.Metrics = opts.Metrics
	}
	return &Runner{backend: backend, state: state, opts: opts}
}

func (r *Runner) State() *view.State { return r.state }

// Start cancels any outstanding run, resets the view and begins a new run in
// the background. The returned channel closes when the run ends.
func (r *Runner) Start(ctx context.Context, req model.CreateJobRequest) <-chan struct{} {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	prevDone := r.done

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	gen := r.state.BeginJob()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if prevDone != nil {
			<-prevDone
		}
		res := r.run(runCtx, gen, req)

		r.mu.Lock()
		if r.done == done {
			r.result = res
		}
		r.mu.Unlock()
	}()
	return done
}

// Run performs one run in the foreground.
func (r *Runner) Run(ctx context.Context, req model.CreateJobRequest) Result {
	<-r.Start(ctx, req)
	return r.Result()
}

// Wait blocks until the most recently started run ends.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Cancel stops the outstanding run, if any, and waits for it to return.
func (r *Runner) Cancel() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Result returns the result of the most recently started run once it ended.
func (r *Runner) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func (r *Runner) Busy() bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (r *Runner) run(ctx context.Context, gen view.Generation, req model.CreateJobRequest) Result {
	logger := r.opts.Logger
	if ctx.Err() != nil {
		r.state.Finish(gen)
		return Result{Outcome: poller.Outcome{Kind: poller.Cancelled}}
	}

	job, err := r.backend.SubmitJob(ctx, req)
	if err != nil && ctx.Err() != nil {
		r.state.Finish(gen)
		return Result{Outcome: poller.Outcome{Kind: poller.Cancelled}}
	}
	if err != nil {
		r.opts.Metrics.Submission("error")
		logger.Error().Err(err).Msg("job submission failed")
		r.state.Fail(gen, err)
		return Result{Err: err}
	}
	r.opts.Metrics.Submission("ok")
	if !r.state.SetJob(gen, job) {
		return Result{Job: job, Outcome: poller.Outcome{Kind: poller.Cancelled}}
	}

	out := poller.Poll(ctx, r.backend, job.JobID, r.opts.Poll, func(rep *model.Report) {
		if !r.state.ApplyReport(gen, rep) {
			logger.Debug().Str("jobID", job.JobID).Msg("dropping report for superseded job")
		}
	})

	switch out.Kind {
	case poller.Completed:
		logger.Info().Str("jobID", job.JobID).Int("attempts", out.Attempts).Msg("report ready")
	case poller.Exhausted:
		logger.Warn().Str("jobID", job.JobID).Int("attempts", out.Attempts).Msg("report may be incomplete")
	case poller.Cancelled:
		logger.Debug().Str("jobID", job.JobID).Msg("polling cancelled")
	}
	r.state.Finish(gen)
	return Result{Job: job, Outcome: out}
}
