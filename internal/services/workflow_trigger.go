package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/grcplane/grcplane-core/internal/config"
	"github.com/grcplane/grcplane-core/internal/metrics"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

// WorkflowTrigger starts an external workflow execution for a fired
// escalation level. Invocation is best-effort: the caller persists the level
// transition first and absorbs any trigger failure.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, workflowID string, context map[string]interface{}) (string, error)
}

// HTTPWorkflowTrigger posts to the workflow engine's execution endpoint. The
// request timeout bounds the per-chain critical section so a hung workflow
// engine cannot stall escalation.
type HTTPWorkflowTrigger struct {
	endpoint string
	client   *http.Client
	logger   logger.Logger
}

func NewHTTPWorkflowTrigger(cfg config.WorkflowConfig, logger logger.Logger) *HTTPWorkflowTrigger {
	return &HTTPWorkflowTrigger{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Millisecond},
		logger:   logger,
	}
}

type workflowExecutionRequest struct {
	WorkflowID string                 `json:"workflow_id"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

type workflowExecutionResponse struct {
	ExecutionID string `json:"execution_id"`
}

func (t *HTTPWorkflowTrigger) Trigger(ctx context.Context, workflowID string, execContext map[string]interface{}) (string, error) {
	if t.endpoint == "" {
		return "", fmt.Errorf("workflow engine endpoint not configured")
	}

	payload, err := json.Marshal(workflowExecutionRequest{
		WorkflowID: workflowID,
		Context:    execContext,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.endpoint+"/executions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		metrics.WorkflowTriggers.WithLabelValues("error").Inc()
		return "", fmt.Errorf("workflow trigger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		metrics.WorkflowTriggers.WithLabelValues("error").Inc()
		return "", fmt.Errorf("workflow trigger failed with status %d", resp.StatusCode)
	}

	var out workflowExecutionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.WorkflowTriggers.WithLabelValues("error").Inc()
		return "", fmt.Errorf("decode workflow response: %w", err)
	}

	metrics.WorkflowTriggers.WithLabelValues("success").Inc()
	t.logger.Info("Workflow execution triggered", "workflowId", workflowID, "executionId", out.ExecutionID)
	return out.ExecutionID, nil
}
