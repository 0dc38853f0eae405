package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/cyberforge/cyberforge/internal/api"
)

// Analysis tasks understood by the backend.
var AnalysisTasks = []string{"vulnerability", "log", "report", "remediation"}

// Analysis is a one-shot assistant answer.
type Analysis struct {
	Text  string
	Model string
}

// Analyze asks the assistant for a task-specific analysis of content.
func Analyze(ctx context.Context, client *api.Client, task, content string) (Analysis, error) {
	if !slices.Contains(AnalysisTasks, task) {
		return Analysis{}, fmt.Errorf("unknown analysis task %q (want one of %v)", task, AnalysisTasks)
	}
	doc, err := client.Assistant.Analyze(ctx, task, content)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{Text: doc.String("analysis"), Model: doc.String("model")}, nil
}

// ProviderStatus describes the backend's configured AI provider.
type ProviderStatus struct {
	Configured bool
	Provider   string
	Model      string
}

// Status reports whether the assistant is ready to answer.
func Status(ctx context.Context, client *api.Client) (ProviderStatus, error) {
	doc, err := client.Assistant.Status(ctx)
	if err != nil {
		return ProviderStatus{}, err
	}
	configured, _ := doc["configured"].(bool)
	return ProviderStatus{
		Configured: configured,
		Provider:   doc.String("provider"),
		Model:      doc.String("model"),
	}, nil
}

// TestConnection sends a probe through the provider. A reachable backend
// that reports a provider failure yields an error carrying its message.
func TestConnection(ctx context.Context, client *api.Client) (string, error) {
	doc, err := client.Assistant.Test(ctx)
	if err != nil {
		return "", err
	}
	msg := doc.String("message")
	if doc.String("status") == "error" {
		if msg == "" {
			msg = "assistant test failed"
		}
		return "", errors.New(msg)
	}
	return msg, nil
}
