// Package http implements the HTTP handlers of the analyzer API. Handlers
// stay thin: they decode and validate the request, call one service method
// and render the result. Every failure goes through the shared
// errors.ErrorHandler so clients always receive RFC 7807 problem details
// with an "error" member.
//
// Routes are grouped per handler, each exposing Routes() for mounting:
//
//	/api/register, /api/login           AuthHandler
//	/api/admin/*                         AuthHandler (login), AdminHandler
//	/api/user/*                          UserHandler
//	/api/chat                            ChatHandler
//	/api/health/*, /api/version          HealthHandler
//	/ws/events                           EventsHandler
package http
