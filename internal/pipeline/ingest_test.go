package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotation-insights/internal/model"
)

type fakeFetcher struct {
	ds    *model.Dataset
	err   error
	runID int
}

func (f *fakeFetcher) FetchDataset(ctx context.Context, annotationRunID int) (*model.Dataset, error) {
	f.runID = annotationRunID
	return f.ds, f.err
}

func sampleDataset() *model.Dataset {
	return &model.Dataset{
		Schemas: []model.Schema{sentimentSchema(), profileSchema()},
		Assets: []model.Asset{
			{ID: 1, Title: "first", SourceID: intPtr(7)},
			{ID: 2, Title: "second", CreatedAt: "2024-01-20"},
		},
		Results: []model.AnnotationResult{
			result(1, 1, 1, "2024-01-05T09:00:00Z", obj("score", 0.5)),
			result(2, 1, 2, "2024-01-05T09:00:00Z", obj("country", "USA", "document", obj("topics", arr("a", "b")))),
			result(3, 2, 1, "2024-02-11T09:00:00Z", obj("score", 1.5)),
		},
	}
}

func writeDataset(t *testing.T, ds *model.Dataset) string {
	t.Helper()
	data, err := json.Marshal(ds)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoaderInline(t *testing.T) {
	ds := sampleDataset()
	got, err := (&Loader{}).Load(context.Background(), &model.RunSpec{Dataset: ds, Source: &model.Source{Type: "json", URL: "ignored"}})
	require.NoError(t, err)
	assert.Same(t, ds, got)
}

func TestLoaderJSONFile(t *testing.T) {
	path := writeDataset(t, sampleDataset())

	got, err := (&Loader{}).Load(context.Background(), &model.RunSpec{Source: &model.Source{Type: "json", URL: path}})
	require.NoError(t, err)
	assert.Len(t, got.Schemas, 2)
	assert.Len(t, got.Assets, 2)
	require.Len(t, got.Results, 3)
	assert.Equal(t, 0.5, got.Results[0].Value["score"])
	assert.Equal(t, 7, *got.Assets[0].SourceID)

	_, err = (&Loader{}).Load(context.Background(), &model.RunSpec{Source: &model.Source{Type: "json", URL: filepath.Join(t.TempDir(), "missing.json")}})
	assert.ErrorContains(t, err, "failed to open JSON file")
}

func TestLoaderJSONHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dataset.json" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(sampleDataset())
	}))
	defer srv.Close()

	l := &Loader{HTTPClient: srv.Client()}
	got, err := l.Load(context.Background(), &model.RunSpec{Source: &model.Source{Type: "json", URL: srv.URL + "/dataset.json"}})
	require.NoError(t, err)
	assert.Len(t, got.Results, 3)

	_, err = l.Load(context.Background(), &model.RunSpec{Source: &model.Source{Type: "json", URL: srv.URL + "/other.json"}})
	assert.ErrorContains(t, err, "status 404")
}

func TestLoaderAPI(t *testing.T) {
	fetcher := &fakeFetcher{ds: sampleDataset()}
	l := &Loader{Upstream: fetcher}

	got, err := l.Load(context.Background(), &model.RunSpec{Source: &model.Source{Type: "API", RunID: 12}})
	require.NoError(t, err)
	assert.Len(t, got.Results, 3)
	assert.Equal(t, 12, fetcher.runID)

	fetcher.err = errors.New("upstream down")
	_, err = l.Load(context.Background(), &model.RunSpec{Source: &model.Source{Type: "api"}})
	assert.ErrorContains(t, err, "upstream down")

	_, err = (&Loader{}).Load(context.Background(), &model.RunSpec{Source: &model.Source{Type: "api"}})
	assert.ErrorContains(t, err, "no upstream configured")
}

func TestLoaderErrors(t *testing.T) {
	_, err := (&Loader{}).Load(context.Background(), &model.RunSpec{})
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = (&Loader{}).Load(context.Background(), &model.RunSpec{Source: &model.Source{Type: "parquet"}})
	assert.ErrorContains(t, err, "unknown source type")

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"results": [`), 0o644))
	_, err = (&Loader{}).Load(context.Background(), &model.RunSpec{Source: &model.Source{Type: "json", URL: path}})
	assert.ErrorContains(t, err, "failed to decode dataset")
}
