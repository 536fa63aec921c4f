// Package services implements the business logic behind the HTTP handlers.
//
// AuthService registers users and issues tokens, AdminService approves
// companies, CompanyService serves company files and plots and regenerates
// plots, ChatService forwards messages to the LLM client, and HealthService
// reports liveness and readiness.
//
// Services return *errors.APIError values for failures the client caused and
// wrapped domain errors otherwise; ErrorMappings lists the responses for the
// latter. Events are pushed through an EventPublisher, normally the
// websocket hub.
package services
