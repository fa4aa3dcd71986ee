package router

import "time"

// CandidateInfo summarizes one scored route candidate for inspection and
// feedback records. Metric fields are normalized to [0,1] across the
// candidate set of a single Route call.
type CandidateInfo struct {
	Template string        `json:"template"`
	Score    float64       `json:"score"`
	Quality  float64       `json:"quality"`
	Latency  float64       `json:"latency"`
	Cost     float64       `json:"cost"`
	Risk     float64       `json:"risk"`
	Raw      RawPrediction `json:"raw"`
	Variants []string      `json:"variants,omitempty"`
}

// RawPrediction holds the pre-normalization estimates behind a candidate's
// normalized metrics.
type RawPrediction struct {
	Quality float64       `json:"quality"`
	Latency time.Duration `json:"latency"`
	Cost    float64       `json:"cost"`
	Risk    float64       `json:"risk"`
}

// Decision records why a plan was chosen. It travels with the plan through
// execution and into the feedback record.
type Decision struct {
	Template   string          `json:"template"`
	Score      float64         `json:"score"`
	Deadline   time.Duration   `json:"deadline"`
	Variants   []string        `json:"variants,omitempty"`
	Reasons    []string        `json:"reasons,omitempty"`
	Candidates []CandidateInfo `json:"candidates,omitempty"`
}
