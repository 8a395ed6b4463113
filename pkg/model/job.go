package model

type JobHandle struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	ReportPath string `json:"report_path"`
}

type CreateJobRequest struct {
	PcapPath string `json:"pcap_path,omitempty"`
}
