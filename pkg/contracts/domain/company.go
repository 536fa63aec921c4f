// Package domain holds the company data types shared by the services, the
// HTTP handlers and the event stream.
package domain

import "time"

// FileData is the tabular content of a company file as served to the
// dashboard. Every cell is a string.
type FileData struct {
	Columns []string   `json:"columns"`
	Data    [][]string `json:"data"`
}

// PlotRecord is one period of a pivoted plot: the "period" key holds the
// column header and every other key is a row label mapped to its value.
// Values are json.Number, string or nil.
type PlotRecord map[string]interface{}

// PeriodKey is the PlotRecord key holding the period header.
const PeriodKey = "period"

// PendingApproval is a company awaiting admin approval, joined with the user
// that requested it.
type PendingApproval struct {
	CompanyID   string    `json:"company_id" db:"company_id"`
	RequestedBy string    `json:"requested_by" db:"requested_by"`
	RequestedAt time.Time `json:"requested_at" db:"requested_at"`
	UserID      int64     `json:"user_id" db:"user_id"`
}

// ImportResult describes a source-data import into a company folder.
type ImportResult struct {
	CompanyID    string `json:"company_id"`
	SourceFolder string `json:"source_folder,omitempty"`
	FilesCopied  int    `json:"files_copied"`
}

// RegenerationSummary is the outcome of one plot regeneration for a company.
type RegenerationSummary struct {
	CompanyID string   `json:"company_id"`
	RunID     string   `json:"run_id"`
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Warnings  int      `json:"warnings"`
	Outputs   []string `json:"outputs"`
}
