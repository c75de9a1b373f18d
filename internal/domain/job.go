package domain

import "time"

// JobStats accumulates per-job run accounting for operators.
type JobStats struct {
	TotalRuns      int     `json:"totalRuns"`
	SuccessfulRuns int     `json:"successfulRuns"`
	FailedRuns     int     `json:"failedRuns"`
	LastError      string  `json:"lastError,omitempty"`
	AvgRunTimeMs   float64 `json:"avgRunTimeMs"`
}

// JobSnapshot is a point-in-time copy of a scheduled job's state.
type JobSnapshot struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Enabled  bool          `json:"enabled"`
	Running  bool          `json:"running"`
	LastRun  time.Time     `json:"lastRun"`
	NextRun  time.Time     `json:"nextRun"`
	Stats    JobStats      `json:"stats"`
}

// SourceRunStats records how a single adapter fared inside one fan-out run.
type SourceRunStats struct {
	Source   string
	Offers   int
	Err      *UpstreamError
	Duration time.Duration
}
