// Package api contains the request and response bodies of the HTTP API.
package api

// RegisterRequest creates a user and requests approval for its company.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,max=256"`
	CompanyID string `json:"company_id" validate:"required,companyid"`
}

// LoginRequest authenticates a user or an admin.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChatRequest is one user message for the company assistant.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
}
