package llm

import (
	"context"
	"fmt"
)

// MockClient answers without calling any provider.
type MockClient struct{}

// Complete echoes the message and company.
func (MockClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Mock response for: %s. Company: %s. System context loaded.", req.Message, req.CompanyID), nil
}

// Provider names the client in logs and metrics.
func (MockClient) Provider() string { return "mock" }
