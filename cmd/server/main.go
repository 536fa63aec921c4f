// Command server runs the balance sheet analyzer HTTP API.
package main

import (
	"context"
	"log/slog"
	"os"

	"bsanalyzer/internal/app"
	"bsanalyzer/internal/infrastructure"
)

func main() {
	ctx := context.Background()

	application, err := app.NewApplication(ctx)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
}
