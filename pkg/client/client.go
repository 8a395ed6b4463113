package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marek-kar/traceops/pkg/model"
)

var jobsPath = []string{"api", "v1", "jobs"}

const (
	requestIDHeader = "X-Request-ID"

	maxSubmitResponseSize = 1 << 20
	maxReportSize         = 16 << 20
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type Client struct {
	base   *url.URL
	http   *http.Client
	logger zerolog.Logger
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{base: base, http: hc, logger: opts.Logger}, nil
}

// endpoint appends path segments to the base URL, escaping each one.
func (c *Client) endpoint(segments ...string) string {
	u := *c.base
	plain := strings.TrimRight(u.Path, "/")
	escaped := strings.TrimRight(u.EscapedPath(), "/")
	for _, s := range segments {
		plain += "/" + s
		escaped += "/" + url.PathEscape(s)
	}
	u.Path = plain
	u.RawPath = escaped
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method string, segments []string, body io.Reader) (*http.Request, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(segments...), body)
	if err != nil {
		return nil, "", err
	}
	id := uuid.NewString()
	req.Header.Set(requestIDHeader, id)
	req.Header.Set("Accept", "application/json")
	return req, id, nil
}

// SubmitJob creates one job. It is attempted exactly once.
func (c *Client) SubmitJob(ctx context.Context, in model.CreateJobRequest) (model.JobHandle, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return model.JobHandle{}, &SubmissionError{Err: fmt.Errorf("encode request: %w", err)}
	}

	req, reqID, err := c.newRequest(ctx, http.MethodPost, jobsPath, bytes.NewReader(payload))
	if err != nil {
		return model.JobHandle{}, &SubmissionError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().Str("requestID", reqID).Str("url", req.URL.String()).Msg("submitting job")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.JobHandle{}, &SubmissionError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSubmitResponseSize))
	if err != nil {
		return model.JobHandle{}, &SubmissionError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().
			Str("requestID", reqID).
			Int("status", resp.StatusCode).
			Msg("job submission rejected")
		return model.JobHandle{}, &SubmissionError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var job model.JobHandle
	if err := json.Unmarshal(body, &job); err != nil {
		return model.JobHandle{}, &SubmissionError{StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("decode job: %w", err)}
	}
	if job.JobID == "" {
		return model.JobHandle{}, &SubmissionError{StatusCode: resp.StatusCode, Body: string(body), Err: errors.New("response has no job_id")}
	}

	c.logger.Info().
		Str("requestID", reqID).
		Str("jobID", job.JobID).
		Str("status", job.Status).
		Msg("job submitted")
	return job, nil
}

// FetchReport performs a single GET of the job's report. Any failure is a
// *FetchError.
func (c *Client) FetchReport(ctx context.Context, jobID string) (*model.Report, error) {
	segments := append(append([]string{}, jobsPath...), jobID, "report")
	req, reqID, err := c.newRequest(ctx, http.MethodGet, segments, nil)
	if err != nil {
		return nil, &FetchError{JobID: jobID, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{JobID: jobID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxSubmitResponseSize))
		c.logger.Debug().
			Str("requestID", reqID).
			Str("jobID", jobID).
			Int("status", resp.StatusCode).
			Msg("report not available")
		return nil, &FetchError{JobID: jobID, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var report model.Report
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReportSize)).Decode(&report); err != nil {
		return nil, &FetchError{JobID: jobID, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode report: %w", err)}
	}
	return &report, nil
}

// Health checks the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, _, err := c.newRequest(ctx, http.MethodGet, []string{"health"}, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSubmitResponseSize)).Decode(&body); err != nil {
		return fmt.Errorf("health check: decode: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("health check: status %q", body.Status)
	}
	return nil
}
