package dto

// DayCountResponse is one point of the daily series.
type DayCountResponse struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// ReportSummaryResponse is the dashboard payload.
type ReportSummaryResponse struct {
	Total      int                `json:"total"`
	Active     int                `json:"active"`
	Done       int                `json:"resolved_or_closed"`
	Overdue    int                `json:"overdue"`
	ByStatus   map[string]int     `json:"by_status"`
	ByPriority map[string]int     `json:"by_priority"`
	PerDay     []DayCountResponse `json:"per_day"`
}
