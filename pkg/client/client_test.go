package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marek-kar/traceops/pkg/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestSubmitJob_Success(t *testing.T) {
	var gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/jobs", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"job_id":      "6b1f",
			"status":      "QUEUED",
			"report_path": "/data/traceops/artifacts/reports/6b1f/report.json",
		})
	})

	job, err := c.SubmitJob(context.Background(), model.CreateJobRequest{})
	require.NoError(t, err)
	assert.Equal(t, "{}", gotBody)
	assert.Equal(t, model.JobHandle{
		JobID:      "6b1f",
		Status:     "QUEUED",
		ReportPath: "/data/traceops/artifacts/reports/6b1f/report.json",
	}, job)
}

func TestSubmitJob_SendsPcapPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "/captures/a.pcap", in["pcap_path"])
		_, _ = w.Write([]byte(`{"job_id":"j1","status":"QUEUED","report_path":"p"}`))
	})

	job, err := c.SubmitJob(context.Background(), model.CreateJobRequest{PcapPath: "/captures/a.pcap"})
	require.NoError(t, err)
	assert.Equal(t, "j1", job.JobID)
}

func TestSubmitJob_ErrorCarriesRawBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"queue directory not writable"}`))
	})

	_, err := c.SubmitJob(context.Background(), model.CreateJobRequest{})
	require.Error(t, err)

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, http.StatusInternalServerError, subErr.StatusCode)
	assert.Equal(t, `{"detail":"queue directory not writable"}`, subErr.Body)
	assert.Equal(t, `{"detail":"queue directory not writable"}`, err.Error())
}

func TestSubmitJob_MissingJobID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"QUEUED"}`))
	})

	_, err := c.SubmitJob(context.Background(), model.CreateJobRequest{})
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.ErrorContains(t, subErr.Err, "no job_id")
	assert.Equal(t, `{"status":"QUEUED"}: response has no job_id`, err.Error())
}

func TestSubmitJob_UndecodableSuccessShowsCause(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`accepted`))
	})

	_, err := c.SubmitJob(context.Background(), model.CreateJobRequest{})
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusOK, subErr.StatusCode)
	assert.Contains(t, err.Error(), "accepted: decode job:")
}

func TestSubmitJob_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: url})
	require.NoError(t, err)

	_, err = c.SubmitJob(context.Background(), model.CreateJobRequest{})
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, 0, subErr.StatusCode)
	assert.Contains(t, err.Error(), "submit job")
}

func TestFetchReport_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/jobs/job-1/report", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"report_version": "0.5.0",
			"engine_version": "0.0.2",
			"summary": {"title": "Dummy RCA report"},
			"findings": [{"finding_id": "f1", "severity": "WARN", "evidence_refs": []}],
			"evidence": [],
			"new_top_level_field": [1, 2, 3]
		}`))
	})

	r, err := c.FetchReport(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, r.Final())
	require.Len(t, r.Findings, 1)
	assert.Equal(t, model.SeverityWarn, r.Findings[0].Severity.Level)
}

func TestFetchReport_EscapesJobID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/a%2Fb/report", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.FetchReport(context.Background(), "a/b")
	require.NoError(t, err)
}

func TestFetchReport_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"report not found"}`))
	})

	_, err := c.FetchReport(context.Background(), "job-1")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.NotFound())
	assert.Contains(t, fetchErr.Body, "report not found")
}

func TestFetchReport_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not-json`))
	})

	_, err := c.FetchReport(context.Background(), "job-1")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.False(t, fetchErr.NotFound())
	assert.Contains(t, err.Error(), "decode report")
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	assert.NoError(t, c.Health(context.Background()))

	bad := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.ErrorContains(t, bad.Health(context.Background()), "status 503")
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New(Options{BaseURL: "localhost:8000"})
	assert.Error(t, err)
}

func TestNew_KeepsBasePathPrefix(t *testing.T) {
	c, err := New(Options{BaseURL: "http://example.com/traceops/"})
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/traceops/api/v1/jobs", c.endpoint(jobsPath...))
}
