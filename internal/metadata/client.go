package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docvault/internal/config"
	"docvault/internal/model"
)

// httpClient implements Client against the metadata service REST API:
// POST /metadata/, GET|PUT|DELETE /metadata/{document_id}, GET /metadata/.
type httpClient struct {
	base   string
	client *http.Client
}

// NewHTTPClient builds a metadata client with an OTel-instrumented transport
// and a per-call timeout.
func NewHTTPClient(cfg config.MetadataConfig) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("metadata base url is required")
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpClient{
		base: cfg.BaseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

var _ Client = (*httpClient)(nil)

func (c *httpClient) Create(ctx context.Context, md *model.Metadata) error {
	return c.send(ctx, http.MethodPost, c.base+"/metadata/", md, nil)
}

func (c *httpClient) Get(ctx context.Context, documentID string) (*model.Metadata, error) {
	var out model.Metadata
	if err := c.send(ctx, http.MethodGet, c.base+"/metadata/"+url.PathEscape(documentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Update(ctx context.Context, md *model.Metadata) error {
	return c.send(ctx, http.MethodPut, c.base+"/metadata/"+url.PathEscape(md.DocumentID), md, nil)
}

func (c *httpClient) Delete(ctx context.Context, documentID string) error {
	err := c.send(ctx, http.MethodDelete, c.base+"/metadata/"+url.PathEscape(documentID), nil, nil)
	if err == ErrMetadataNotFound {
		// Delete is idempotent from the orchestrator's perspective.
		return nil
	}
	return err
}

func (c *httpClient) List(ctx context.Context, limit, offset int) ([]model.Metadata, error) {
	u := c.base + "/metadata/?limit=" + strconv.Itoa(limit) + "&skip=" + strconv.Itoa(offset)
	var out []model.Metadata
	if err := c.send(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// send performs one JSON round trip. Non-2xx responses become errors; 404
// maps to ErrMetadataNotFound.
func (c *httpClient) send(ctx context.Context, method, rawURL string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("metadata service call: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrMetadataNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("metadata service returned %d: %s", resp.StatusCode, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
