package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Lllllllleong/documentdeletion/internal/models"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// HTTPInvoker calls a deployed document-deleter function.
type HTTPInvoker struct {
	client *retryablehttp.Client
	url    string
}

// NewHTTPInvoker targets the deleter at url. Transport retries are safe because
// deletion is idempotent; the workflow itself is never retried.
func NewHTTPInvoker(url string, retries int, logger *zap.Logger) (*HTTPInvoker, error) {
	if url == "" {
		return nil, fmt.Errorf("NewHTTPInvoker: url cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPInvoker{client: newHTTPClient(retries, logger), url: url}, nil
}

func (i *HTTPInvoker) Invoke(ctx context.Context, req models.DeletionRequest) (*models.WorkerResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal worker request: %w", err)
	}
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, i.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build worker request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("worker call failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("worker returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out models.WorkerResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode worker response: %w", err)
	}
	return &out, nil
}
