package client

import "fmt"

// SubmissionError is returned when job creation does not succeed. Body holds
// the raw response text, or the transport error when no response arrived.
type SubmissionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("submit job: %v", e.Err)
	}
	if e.Body == "" {
		if e.Err != nil {
			return fmt.Sprintf("submit job: status %d: %v", e.StatusCode, e.Err)
		}
		return fmt.Sprintf("submit job: status %d", e.StatusCode)
	}
	if e.Err != nil && e.StatusCode >= 200 && e.StatusCode <= 299 {
		return fmt.Sprintf("%s: %v", e.Body, e.Err)
	}
	return e.Body
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// FetchError means the report could not be obtained on this attempt. The
// poller treats every FetchError as "not ready yet".
type FetchError struct {
	JobID      string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("fetch report %s: status %d: %v", e.JobID, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetch report %s: %v", e.JobID, e.Err)
	default:
		return fmt.Sprintf("fetch report %s: status %d: %s", e.JobID, e.StatusCode, e.Body)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFound reports whether the backend has not materialized the report yet.
func (e *FetchError) NotFound() bool { return e.StatusCode == 404 }
