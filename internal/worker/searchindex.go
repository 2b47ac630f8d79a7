package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// SearchIndexBackend removes a document's chunks from an OpenSearch-compatible
// index using _delete_by_query.
type SearchIndexBackend struct {
	client   *retryablehttp.Client
	endpoint string
	logger   *zap.Logger
}

func NewSearchIndexBackend(endpoint string, retries int, logger *zap.Logger) *SearchIndexBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchIndexBackend{
		client:   newHTTPClient(retries, logger),
		endpoint: strings.TrimSuffix(endpoint, "/"),
		logger:   logger,
	}
}

var nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

func sanitizeIdentifier(s string) string {
	return strings.Trim(nonAlphanumericRegex.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

// DefaultIndexName is the index used when a workspace does not name one.
func DefaultIndexName(workspaceID string) string {
	return "workspace-" + strings.ReplaceAll(sanitizeIdentifier(workspaceID), "_", "-")
}

type deleteByQueryResponse struct {
	Deleted  int64             `json:"deleted"`
	Failures []json.RawMessage `json:"failures"`
}

func deleteByQueryBody(target Target) ([]byte, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]string{"workspace_id": target.Key.WorkspaceID}},
					map[string]interface{}{"term": map[string]string{"document_id": target.Key.DocumentID}},
				},
			},
		},
	}
	return json.Marshal(query)
}

func (b *SearchIndexBackend) Delete(ctx context.Context, target Target) error {
	index := target.Capabilities.IndexName
	if index == "" {
		return fmt.Errorf("%w: index name", errMissingBackendLocator)
	}
	body, err := deleteByQueryBody(target)
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s/_delete_by_query?conflicts=proceed&refresh=true", b.endpoint, url.PathEscape(index))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete_by_query on %s: %w", index, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// No index means nothing was ever indexed for this workspace.
		b.logger.Debug("Search index not found, nothing to delete.", zap.String("index", index))
		return nil
	case resp.StatusCode >= 300:
		return fmt.Errorf("delete_by_query on %s: status %d: %s", index, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed deleteByQueryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("delete_by_query on %s: decode response: %w", index, err)
	}
	if len(parsed.Failures) > 0 {
		return fmt.Errorf("delete_by_query on %s: %d failures: %s", index, len(parsed.Failures), parsed.Failures[0])
	}
	b.logger.Debug("Deleted document from search index.", zap.String("index", index), zap.Int64("deleted", parsed.Deleted))
	return nil
}
