package models

import "time"

type ReportRun struct {
	ID             string
	UserID         string
	Entity         string
	Mode           string
	ReportMarkdown string
	OutputDir      string
	SourceCount    int
	LatencyMS      int
	CreatedAt      time.Time
}

type ReportSource struct {
	ID            int
	RunID         string
	Position      int
	Title         string
	URL           string
	Snippet       string
	Provider      string
	QueryCategory string
}

type Feedback struct {
	ID            int
	RunID         string
	Helpful       bool
	IssueCategory string
	Comment       string
	CreatedAt     time.Time
}
