// Package app wires the balance sheet analyzer server together and manages
// its lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from the YAML file and BSA_ environment variables
//  2. Initialize logging and OpenTelemetry
//  3. Open the user database and apply its schema
//  4. Start the event hub and build the services
//  5. Seed the configured admin account
//  6. Set up middleware, handlers and the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication(ctx)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns after SIGINT, SIGTERM or cancellation of its context. Stop
// drains in-flight requests, stops the scheduler and the event hub, closes
// the database and flushes telemetry. Initialization errors are returned to
// the caller; the package never calls os.Exit.
package app
