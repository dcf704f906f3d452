package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"annotation-insights/internal/model"
)

// DatasetFetcher loads a dataset from the annotation API.
type DatasetFetcher interface {
	FetchDataset(ctx context.Context, annotationRunID int) (*model.Dataset, error)
}

// Loader resolves the dataset of a run spec: inline, a JSON document on disk
// or over HTTP, or the annotation API.
type Loader struct {
	HTTPClient *http.Client
	Upstream   DatasetFetcher
	Logger     *zap.Logger
}

func (l *Loader) Load(ctx context.Context, spec *model.RunSpec) (*model.Dataset, error) {
	if spec.Dataset != nil {
		return spec.Dataset, nil
	}
	if spec.Source == nil {
		return nil, ErrNoDataset
	}

	src := spec.Source
	l.logger().Info("Loading dataset", zap.String("type", src.Type), zap.String("url", src.URL))
	switch strings.ToLower(src.Type) {
	case "json":
		return l.loadJSON(ctx, src.URL)
	case "api":
		if l.Upstream == nil {
			return nil, fmt.Errorf("api source: no upstream configured")
		}
		return l.Upstream.FetchDataset(ctx, src.RunID)
	}
	return nil, fmt.Errorf("unknown source type: %s", src.Type)
}

func (l *Loader) loadJSON(ctx context.Context, pathOrURL string) (*model.Dataset, error) {
	var reader io.Reader
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pathOrURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		resp, err := l.httpClient().Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to GET JSON: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to GET JSON: status %d", resp.StatusCode)
		}
		reader = resp.Body
	} else {
		file, err := os.Open(pathOrURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open JSON file: %w", err)
		}
		defer file.Close()
		reader = file
	}

	var ds model.Dataset
	if err := json.NewDecoder(reader).Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	l.logger().Debug("Dataset decoded",
		zap.Int("schemas", len(ds.Schemas)),
		zap.Int("assets", len(ds.Assets)),
		zap.Int("results", len(ds.Results)))
	return &ds, nil
}

func (l *Loader) httpClient() *http.Client {
	if l.HTTPClient != nil {
		return l.HTTPClient
	}
	return http.DefaultClient
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return zap.NewNop()
}
