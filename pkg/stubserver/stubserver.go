// Package stubserver is an in-memory stand-in for the TraceOps API. Jobs
// report a placeholder for a configurable number of fetches and then the
// engine's DNS findings report.
package stubserver

import (
	"errors"
	"io"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marek-kar/traceops/pkg/model"
)

const (
	DefaultReportRoot = "/data/traceops/artifacts/reports"
	defaultPcapPath   = "dummy.pcap"

	placeholderTitle = model.PendingPrefix + ": queued for engine processing"
	engineTitle      = "TraceOps Phase2 - Findings Report"
)

type Options struct {
	// PendingPolls is how many report fetches return the placeholder before
	// the final report is served.
	PendingPolls int
	ReportRoot   string
	Logger       zerolog.Logger
	Now          func() time.Time
}

type job struct {
	handle   model.JobHandle
	pcapPath string
	created  time.Time
	fetches  int
}

type Server struct {
	opts Options

	mu   sync.Mutex
	jobs map[string]*job
}

func New(opts Options) *Server {
	if opts.ReportRoot == "" {
		opts.ReportRoot = DefaultReportRoot
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PendingPolls < 0 {
		opts.PendingPolls = 0
	}
	return &Server{opts: opts, jobs: make(map[string]*job)}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.health)
	r.Route("/api/v1/jobs", func(r chi.Router) {
		r.Post("/", s.createJob)
		r.Get("/{jobID}/report", s.getReport)
	})
	return r
}

// Jobs returns the number of jobs created so far.
func (s *Server) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("requestID", r.Header.Get("X-Request-ID")).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, map[string]string{"detail": "invalid job request: " + err.Error()})
		return
	}
	pcap := req.PcapPath
	if pcap == "" {
		pcap = defaultPcapPath
	}

	id := uuid.NewString()
	j := &job{
		handle: model.JobHandle{
			JobID:      id,
			Status:     "QUEUED",
			ReportPath: path.Join(s.opts.ReportRoot, id, "report.json"),
		},
		pcapPath: pcap,
		created:  s.opts.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[id] = j
	s.mu.Unlock()

	s.opts.Logger.Info().Str("jobID", id).Str("pcap", pcap).Msg("job queued")
	render.JSON(w, r, j.handle)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")

	s.mu.Lock()
	j, ok := s.jobs[id]
	var fetch int
	if ok {
		j.fetches++
		fetch = j.fetches
	}
	s.mu.Unlock()

	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"detail": "report not found"})
		return
	}

	if fetch <= s.opts.PendingPolls {
		render.JSON(w, r, PlaceholderReport(j.created))
		return
	}
	render.JSON(w, r, EngineReport(s.opts.Now().UTC()))
}

// PlaceholderReport is what the API serves while a job is queued.
func PlaceholderReport(at time.Time) *model.Report {
	return &model.Report{
		ReportVersion: "0.5.0",
		EngineVersion: "0.0.1",
		GeneratedAt:   at.Format(time.RFC3339Nano),
		Summary:       &model.Summary{Title: model.StringPtr(placeholderTitle)},
		Findings:      []model.Finding{},
		Evidence:      []model.Evidence{},
	}
}

// EngineReport is the DNS timeout report the engine writes for a capture.
func EngineReport(at time.Time) *model.Report {
	ev := model.Evidence{
		EvidenceID: "ev-dns-001",
		Type:       "dns_timeout_samples",
		TimeRange: &model.TimeRange{
			Start: at.Add(-2 * time.Minute).Format(time.RFC3339Nano),
			End:   at.Format(time.RFC3339Nano),
		},
		Details: map[string]any{
			"resolver_ip":    "10.10.10.53",
			"timeout_count":  48,
			"timeout_ratio":  0.16,
			"sample_queries": []string{"api.company.com A", "login.microsoftonline.com AAAA"},
		},
	}
	return &model.Report{
		ReportVersion: "0.5.0",
		EngineVersion: "0.0.2",
		GeneratedAt:   at.Format(time.RFC3339Nano),
		Summary:       &model.Summary{Title: model.StringPtr(engineTitle)},
		Findings: []model.Finding{{
			FindingID:    "fd-dns-001",
			Type:         "DNS_TIMEOUTS_HIGH",
			Protocol:     "DNS",
			Severity:     model.ParseSeverity("HIGH"),
			Confidence:   75,
			Message:      "High DNS query timeout rate detected for resolver 10.10.10.53",
			EvidenceRefs: []string{ev.EvidenceID},
		}},
		Evidence: []model.Evidence{ev},
	}
}
