package api

import "bsanalyzer/pkg/contracts/domain"

// MessageResponse carries a human readable outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse is returned by the user and admin logins. Admin tokens carry
// no company.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	CompanyID   string `json:"company_id,omitempty"`
}

// ChatResponse holds the assistant answer.
type ChatResponse struct {
	Response string `json:"response"`
}

// PlotResponse is the body of the plot endpoint. Success is absent when the
// plot file does not exist yet.
type PlotResponse struct {
	Success *bool               `json:"success,omitempty"`
	Data    []domain.PlotRecord `json:"data"`
	Message string              `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// ApproveResponse reports an approval and the follow-up work done for it.
type ApproveResponse struct {
	Message       string                      `json:"message"`
	UsersApproved int64                       `json:"users_approved"`
	Import        *domain.ImportResult        `json:"import,omitempty"`
	Regeneration  *domain.RegenerationSummary `json:"regeneration,omitempty"`
}
