// Package client talks to the annotation API: schemas, assets and results,
// model discovery, single-result retries and fragment curation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"annotation-insights/internal/model"
)

// APIError is a non-2xx answer from the annotation API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retry   model.RetryConfig
	Logger  *zap.Logger
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   model.RetryConfig
	log     *zap.Logger
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retry := opts.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    &http.Client{Timeout: timeout},
		retry:   retry,
		log:     log,
	}
}

// WithBaseURL returns a copy of c that talks to another base URL.
func (c *Client) WithBaseURL(base string) *Client {
	cp := *c
	cp.baseURL = strings.TrimRight(base, "/")
	return &cp
}

func (c *Client) BaseURL() string { return c.baseURL }

// ModelList is the answer of the model discovery endpoint.
type ModelList struct {
	Models    []model.ModelInfo `json:"models"`
	Providers []string          `json:"providers"`
}

// ListAvailableModels lists language models, optionally filtered by capability.
func (c *Client) ListAvailableModels(ctx context.Context, capability string) (*ModelList, error) {
	q := url.Values{}
	if capability != "" {
		q.Set("capability", capability)
	}
	var out ModelList
	if err := c.do(ctx, http.MethodGet, "/chat/models", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetryAnnotation re-runs a single annotation result. A non-empty custom
// prompt makes it a guided retry.
func (c *Client) RetryAnnotation(ctx context.Context, annotationID int, req model.AnnotationRetry) (*model.AnnotationResult, error) {
	var body interface{}
	if req.CustomPrompt != "" {
		body = req
	}
	var out model.AnnotationResult
	path := "/annotations/" + strconv.Itoa(annotationID) + "/retry"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurateFragment promotes a fragment to a permanent feature of its asset.
func (c *Client) CurateFragment(ctx context.Context, f model.FragmentCuration) (*model.AnnotationResult, error) {
	body := map[string]interface{}{
		"fragment_key":   f.FragmentKey,
		"fragment_value": f.FragmentValue,
	}
	if f.SourceRunID != 0 {
		body["source_run_id"] = f.SourceRunID
	}
	var out model.AnnotationResult
	path := "/assets/" + strconv.Itoa(f.AssetID) + "/fragments"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchDataset lists schemas, assets and results in parallel. A non-zero
// annotationRunID restricts results to that annotation run.
func (c *Client) FetchDataset(ctx context.Context, annotationRunID int) (*model.Dataset, error) {
	var ds model.Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.list(gctx, "/annotation_schemas", nil, &ds.Schemas)
	})
	g.Go(func() error {
		return c.list(gctx, "/assets", nil, &ds.Assets)
	})
	g.Go(func() error {
		q := url.Values{}
		if annotationRunID != 0 {
			q.Set("run_id", strconv.Itoa(annotationRunID))
		}
		return c.list(gctx, "/annotations", q, &ds.Results)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	c.log.Info("Fetched dataset",
		zap.Int("schemas", len(ds.Schemas)),
		zap.Int("assets", len(ds.Assets)),
		zap.Int("results", len(ds.Results)))
	return &ds, nil
}

// list decodes a collection that is either a bare array or wrapped in
// {"data": [...]}.
func (c *Client) list(ctx context.Context, path string, q url.Values, out interface{}) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, q, nil, &raw); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		trimmed = env.Data
	}
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("no upstream base url configured")
	}
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	// POSTs are not idempotent upstream; only GETs are repeated
	retry := c.retry
	if method != http.MethodGet {
		retry.MaxAttempts = 1
	}
	return withRetry(ctx, retry, c.log, method+" "+path, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}
