package domain

// Summary holds the headline numbers of one run.
type Summary struct {
	Repositories       int     `json:"repositories"`
	Requests           int64   `json:"requests"`
	ElapsedSeconds     float64 `json:"elapsed_seconds"`
	Pulls              int     `json:"pulls"`
	Issues             int     `json:"issues"`
	MedianPullAgeDays  float64 `json:"median_pull_age_days"`
	MedianIssueAgeDays float64 `json:"median_issue_age_days"`
	MeanPullAgeDays    float64 `json:"mean_pull_age_days"`
	MeanIssueAgeDays   float64 `json:"mean_issue_age_days"`
}
