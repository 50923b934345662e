package footage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shahram8708/PromptX/internal/apperr"
	"github.com/shahram8708/PromptX/internal/config"
	"github.com/shahram8708/PromptX/models"
	"github.com/stretchr/testify/require"
)

func testFootageConfig() config.FootageConfig {
	return config.FootageConfig{
		PerKeywordResults:  5,
		MinWidth:           1280,
		MinHeight:          720,
		MaxClipSec:         60,
		Concurrency:        3,
		SearchTimeoutSec:   5,
		DownloadTimeoutSec: 5,
		FallbackClipSec:    5,
	}
}

// fakeSearcher serves canned candidates, or an error, per keyword.
type fakeSearcher struct {
	mu         sync.Mutex
	candidates map[string][]Candidate
	errs       map[string]error
	calls      []string
}

func (f *fakeSearcher) Search(_ context.Context, keyword string, _ SearchFilters) ([]Candidate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, keyword)
	f.mu.Unlock()
	if err := f.errs[keyword]; err != nil {
		return nil, err
	}
	return f.candidates[keyword], nil
}

// fakeDownloader writes a stub file, or fails for configured URLs.
type fakeDownloader struct {
	failURLs map[string]bool
}

func (f *fakeDownloader) Download(_ context.Context, clipURL, dest string) error {
	if f.failURLs[clipURL] {
		return fmt.Errorf("download %s: connection reset", clipURL)
	}
	return os.WriteFile(dest, []byte("stub clip"), 0644)
}

func newTestRetriever(s Searcher, d Downloader) *Retriever {
	r := NewRetriever(s, d, testFootageConfig())
	r.probe = func(_ context.Context, _ string) (float64, error) {
		return 12.0, nil
	}
	r.fallback = func(_ context.Context, keyword, dest string, _ int) error {
		return os.WriteFile(dest, []byte("fallback "+keyword), 0644)
	}
	return r
}

func TestFetchOneClipPerKeywordInOrder(t *testing.T) {
	dir := t.TempDir()
	search := &fakeSearcher{candidates: map[string][]Candidate{
		"ocean":  {{URL: "http://cdn/ocean.mp4", Width: 1920, Height: 1080, DurationSec: 15}},
		"forest": {{URL: "http://cdn/forest.mp4", Width: 1920, Height: 1080, DurationSec: 20}},
		"city":   {{URL: "http://cdn/city.mp4", Width: 1280, Height: 720, DurationSec: 10}},
	}}
	r := newTestRetriever(search, &fakeDownloader{})

	clips, err := r.Fetch(context.Background(), []string{"ocean", "forest", "city"}, dir)
	require.NoError(t, err)
	require.Len(t, clips, 3)

	for i, kw := range []string{"ocean", "forest", "city"} {
		require.Equal(t, i, clips[i].Position)
		require.Equal(t, kw, clips[i].Keyword)
		require.Equal(t, models.ProvenanceFetched, clips[i].Provenance)
		require.Equal(t, filepath.Join(dir, fmt.Sprintf("clip_%d.mp4", i)), clips[i].Path)
		require.FileExists(t, clips[i].Path)
	}
	// Probed duration wins over the service's advertised one.
	require.Equal(t, 12.0, clips[0].DurationSec)
}

func TestFetchSubstitutesFallbackOnSearchFailure(t *testing.T) {
	dir := t.TempDir()
	search := &fakeSearcher{
		candidates: map[string][]Candidate{
			"ocean": {{URL: "http://cdn/ocean.mp4", Width: 1920, Height: 1080}},
		},
		errs: map[string]error{
			"volcano": fmt.Errorf("pexels search: status 500"),
		},
	}
	r := newTestRetriever(search, &fakeDownloader{})

	clips, err := r.Fetch(context.Background(), []string{"ocean", "volcano"}, dir)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	require.Equal(t, models.ProvenanceFetched, clips[0].Provenance)
	require.Equal(t, models.ProvenanceFallback, clips[1].Provenance)
	require.FileExists(t, clips[1].Path)
}

func TestFetchSubstitutesFallbackOnEmptyResults(t *testing.T) {
	dir := t.TempDir()
	r := newTestRetriever(&fakeSearcher{}, &fakeDownloader{})

	clips, err := r.Fetch(context.Background(), []string{"nonexistent topic"}, dir)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	require.Equal(t, models.ProvenanceFallback, clips[0].Provenance)
}

func TestFetchTriesNextCandidateAfterDownloadFailure(t *testing.T) {
	dir := t.TempDir()
	search := &fakeSearcher{candidates: map[string][]Candidate{
		"ocean": {
			{URL: "http://cdn/broken.mp4", Width: 1920, Height: 1080},
			{URL: "http://cdn/good.mp4", Width: 1920, Height: 1080},
		},
	}}
	r := newTestRetriever(search, &fakeDownloader{failURLs: map[string]bool{
		"http://cdn/broken.mp4": true,
	}})

	clips, err := r.Fetch(context.Background(), []string{"ocean"}, dir)
	require.NoError(t, err)
	require.Equal(t, models.ProvenanceFetched, clips[0].Provenance)
}

func TestFetchDuplicateKeywordsFetchIndependently(t *testing.T) {
	dir := t.TempDir()
	search := &fakeSearcher{candidates: map[string][]Candidate{
		"ocean": {{URL: "http://cdn/ocean.mp4", Width: 1920, Height: 1080}},
	}}
	r := newTestRetriever(search, &fakeDownloader{})

	clips, err := r.Fetch(context.Background(), []string{"ocean", "ocean"}, dir)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	require.NotEqual(t, clips[0].Path, clips[1].Path)
	require.Len(t, search.calls, 2)
}

func TestFetchEmptyKeywordsRejected(t *testing.T) {
	r := newTestRetriever(&fakeSearcher{}, &fakeDownloader{})
	_, err := r.Fetch(context.Background(), nil, t.TempDir())
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestFetchFatalWhenFallbackCannotBeWritten(t *testing.T) {
	search := &fakeSearcher{errs: map[string]error{
		"ocean": fmt.Errorf("search down"),
	}}
	r := newTestRetriever(search, &fakeDownloader{})
	r.fallback = func(_ context.Context, _, _ string, _ int) error {
		return fmt.Errorf("disk full")
	}

	_, err := r.Fetch(context.Background(), []string{"ocean"}, t.TempDir())
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindResource))
}

func TestFetchFallbackDurationWithoutProbe(t *testing.T) {
	search := &fakeSearcher{errs: map[string]error{"x": fmt.Errorf("down")}}
	r := newTestRetriever(search, &fakeDownloader{})
	r.probe = func(_ context.Context, _ string) (float64, error) {
		return 0, fmt.Errorf("ffprobe not available")
	}

	clips, err := r.Fetch(context.Background(), []string{"x"}, t.TempDir())
	require.NoError(t, err)
	// Falls back to the configured fallback clip length.
	require.Equal(t, testFootageConfig().FallbackClipSec, clips[0].DurationSec)
}
