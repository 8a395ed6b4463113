package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/marek-kar/traceops/pkg/metrics"
	"github.com/marek-kar/traceops/pkg/model"
)

const (
	DefaultAttempts = 30
	DefaultDelay    = 500 * time.Millisecond
)

// Fetcher performs one report fetch. Any error means "not ready yet".
type Fetcher interface {
	FetchReport(ctx context.Context, jobID string) (*model.Report, error)
}

type FetcherFunc func(ctx context.Context, jobID string) (*model.Report, error)

func (f FetcherFunc) FetchReport(ctx context.Context, jobID string) (*model.Report, error) {
	return f(ctx, jobID)
}

type Kind int

const (
	// Completed: a report without the pending sentinel was fetched.
	Completed Kind = iota
	// Exhausted: the attempt budget ran out. Report is the last one fetched, if any.
	Exhausted
	// Cancelled: ctx was done before the loop finished.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case Completed:
		return "completed"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type Outcome struct {
	Kind     Kind
	Report   *model.Report
	Attempts int
}

type Options struct {
	Attempts int
	Delay    time.Duration
	Logger   zerolog.Logger
	Metrics  *metrics.Recorder

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultOptions() Options {
	return Options{
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		Logger:   zerolog.Nop(),
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poll fetches the report for jobID up to opts.Attempts times, waiting
// opts.Delay between attempts. onReport, if set, is called with every
// successfully fetched report before the sentinel is inspected, and never
// after ctx is done.
func Poll(ctx context.Context, f Fetcher, jobID string, opts Options, onReport func(*model.Report)) Outcome {
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	logger := opts.Logger.With().Str("jobID", jobID).Logger()
	started := time.Now()

	finish := func(o Outcome) Outcome {
		opts.Metrics.PollOutcome(o.Kind.String(), time.Since(started).Seconds())
		logger.Debug().
			Str("outcome", o.Kind.String()).
			Int("attempts", o.Attempts).
			Bool("haveReport", o.Report != nil).
			Msg("report polling finished")
		return o
	}

	var last *model.Report
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return finish(Outcome{Kind: Cancelled, Report: last, Attempts: attempt - 1})
		}

		report, err := f.FetchReport(ctx, jobID)
		if ctx.Err() != nil {
			return finish(Outcome{Kind: Cancelled, Report: last, Attempts: attempt})
		}

		switch {
		case err != nil:
			opts.Metrics.PollAttempt("not_ready")
			logger.Debug().Err(err).Int("attempt", attempt).Msg("report not ready")
		case report == nil:
			opts.Metrics.PollAttempt("not_ready")
			logger.Debug().Int("attempt", attempt).Msg("empty report response")
		default:
			last = report
			if onReport != nil {
				onReport(report)
			}
			if report.Final() {
				opts.Metrics.PollAttempt("ready")
				return finish(Outcome{Kind: Completed, Report: report, Attempts: attempt})
			}
			opts.Metrics.PollAttempt("pending")
			logger.Debug().Int("attempt", attempt).Str("title", report.DisplayTitle()).Msg("report still pending")
		}

		if attempt == attempts {
			break
		}
		if err := sleep(ctx, opts.Delay); err != nil {
			return finish(Outcome{Kind: Cancelled, Report: last, Attempts: attempt})
		}
	}

	logger.Warn().Int("attempts", attempts).Msg("report polling budget exhausted")
	return finish(Outcome{Kind: Exhausted, Report: last, Attempts: attempts})
}
