package services

import (
	"net/http"

	"bsanalyzer/internal/company"
	apierrors "bsanalyzer/internal/errors"
	"bsanalyzer/internal/extraction"
	"bsanalyzer/internal/llm"
	"bsanalyzer/internal/storage"
)

// ErrorMappings returns the responses for the domain errors that reach the
// HTTP layer without being converted to an APIError.
func ErrorMappings() []apierrors.Mapping {
	return []apierrors.Mapping{
		{Target: company.ErrInvalidName, Status: http.StatusBadRequest, Type: apierrors.TypeValidation},
		{Target: company.ErrFileNotFound, Status: http.StatusNotFound, Type: apierrors.TypeNotFound, Detail: "File not found"},
		{Target: company.ErrPlotNotFound, Status: http.StatusNotFound, Type: apierrors.TypeNotFound},
		{Target: storage.ErrNotFound, Status: http.StatusNotFound, Type: apierrors.TypeNotFound, Detail: "Resource not found"},
		{Target: extraction.ErrRootNotFound, Status: http.StatusNotFound, Type: apierrors.TypeNotFound, Detail: "Company folder not found"},
		{Target: llm.ErrRateLimited, Status: http.StatusServiceUnavailable, Type: apierrors.TypeRateLimit, Detail: "Chat is busy, please retry shortly"},
		{Target: llm.ErrUnavailable, Status: http.StatusServiceUnavailable, Type: apierrors.TypeServiceDown, Detail: "Chat service temporarily unavailable"},
		{Target: llm.ErrEmptyResponse, Status: http.StatusBadGateway, Type: apierrors.TypeServiceDown, Detail: "Chat service returned no answer"},
	}
}
