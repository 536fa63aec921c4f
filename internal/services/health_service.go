package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"bsanalyzer/pkg/contracts"
)

// Pinger checks a backing store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ClientCounter reports connected event stream clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	db             Pinger
	hub            ClientCounter
	companyDataDir string
	startTime      time.Time
	logger         *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. hub may be nil.
func NewHealthService(db Pinger, hub ClientCounter, companyDataDir string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		db:             db,
		hub:            hub,
		companyDataDir: companyDataDir,
		startTime:      time.Now(),
		logger:         logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck pings the database and checks the company data directory
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"database":     hs.checkDatabase(ctx),
			"company_data": hs.checkCompanyData(),
		},
	}

	for name, service := range status.Services {
		if service.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "Readiness check failed",
				slog.String("dependency", name),
				slog.String("message", service.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	clients := 0
	if hs.hub != nil {
		clients = hs.hub.ClientCount()
	}
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":            time.Since(hs.startTime).Seconds(),
			"go_version":        runtime.Version(),
			"goroutines":        runtime.NumGoroutine(),
			"websocket_clients": clients,
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"api_version":  info.APIVersion,
		"plot_format":  info.PlotFormat,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDatabase(ctx context.Context) ServiceHealth {
	if hs.db == nil {
		return ServiceHealth{Status: "not_ready", Message: "database not initialized"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := hs.db.PingContext(ctx); err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkCompanyData() ServiceHealth {
	info, err := os.Stat(hs.companyDataDir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("company data directory not found: %s", hs.companyDataDir),
		}
	}
	return ServiceHealth{Status: "ready"}
}
