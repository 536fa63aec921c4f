// Package events defines the messages pushed to admin dashboards over the
// event stream.
package events

import (
	"time"

	"bsanalyzer/pkg/contracts/domain"
)

// MessageType names an event stream message
type MessageType string

const (
	// MessageTypeConnection greets a newly connected client
	MessageTypeConnection MessageType = "connection"

	// Company lifecycle
	MessageTypeCompanyRegistered MessageType = "company.registered"
	MessageTypeCompanyApproved   MessageType = "company.approved"

	// Extraction
	MessageTypePlotsRegenerated MessageType = "plots.regenerated"
)

// Message is the envelope of every event stream message
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// CompanyRegistered is sent when a user registers a company
type CompanyRegistered struct {
	CompanyID   string    `json:"company_id"`
	Username    string    `json:"username"`
	RequestedAt time.Time `json:"requested_at"`
}

// CompanyApproved is sent after an admin approved a company and its data
// was imported
type CompanyApproved struct {
	CompanyID     string `json:"company_id"`
	UsersApproved int64  `json:"users_approved"`
	SourceFolder  string `json:"source_folder,omitempty"`
	FilesImported int    `json:"files_imported"`
}

// PlotsRegenerated is sent after an extraction run for a company
type PlotsRegenerated struct {
	domain.RegenerationSummary
	Trigger string `json:"trigger"`
}
