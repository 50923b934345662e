package footage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const pexelsFixture = `{
  "videos": [
    {
      "id": 101,
      "duration": 15,
      "video_files": [
        {"link": "http://cdn/101-sd.mp4", "quality": "sd", "file_type": "video/mp4", "width": 960, "height": 540},
        {"link": "http://cdn/101-hd.mp4", "quality": "hd", "file_type": "video/mp4", "width": 1920, "height": 1080}
      ]
    },
    {
      "id": 102,
      "duration": 90,
      "video_files": [
        {"link": "http://cdn/102-hd.mp4", "quality": "hd", "file_type": "video/mp4", "width": 1920, "height": 1080}
      ]
    },
    {
      "id": 103,
      "duration": 20,
      "video_files": [
        {"link": "http://cdn/103-webm", "quality": "hd", "file_type": "video/webm", "width": 1920, "height": 1080},
        {"link": "http://cdn/103-sd.mp4", "quality": "sd", "file_type": "video/mp4", "width": 1280, "height": 720}
      ]
    }
  ]
}`

func testFilters() SearchFilters {
	return SearchFilters{MinWidth: 1280, MinHeight: 720, MaxDurationSec: 60, PerPage: 5}
}

func TestSearchQueriesAndRanks(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pexelsFixture))
	}))
	defer srv.Close()

	c := NewPexelsClient("test-key", time.Second)
	c.baseURL = srv.URL

	candidates, err := c.Search(context.Background(), "ocean waves", testFilters())
	require.NoError(t, err)

	require.Equal(t, "/videos/search", gotReq.URL.Path)
	require.Equal(t, "test-key", gotReq.Header.Get("Authorization"))
	q := gotReq.URL.Query()
	require.Equal(t, "ocean waves", q.Get("query"))
	require.Equal(t, "5", q.Get("per_page"))
	require.Equal(t, "landscape", q.Get("orientation"))

	// Video 102 exceeds the duration cap; 103's only acceptable rendition
	// is the sd mp4.
	require.Len(t, candidates, 2)
	require.Equal(t, "http://cdn/101-hd.mp4", candidates[0].URL)
	require.Equal(t, "hd", candidates[0].Quality)
	require.Equal(t, "http://cdn/103-sd.mp4", candidates[1].URL)
}

func TestSearchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewPexelsClient("test-key", time.Second)
	c.baseURL = srv.URL

	_, err := c.Search(context.Background(), "ocean", testFilters())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 429")
}

func TestPickRenditionPrefersHD(t *testing.T) {
	files := []pexelsVideoFile{
		{Link: "sd", Quality: "sd", FileType: "video/mp4", Width: 1280, Height: 720},
		{Link: "hd", Quality: "hd", FileType: "video/mp4", Width: 1920, Height: 1080},
	}
	vf, ok := pickRendition(files, testFilters())
	require.True(t, ok)
	require.Equal(t, "hd", vf.Link)
}

func TestPickRenditionRejectsLowResolution(t *testing.T) {
	files := []pexelsVideoFile{
		{Link: "tiny", Quality: "hd", FileType: "video/mp4", Width: 640, Height: 360},
	}
	_, ok := pickRendition(files, testFilters())
	require.False(t, ok)
}

func TestPickRenditionRejectsNonMP4(t *testing.T) {
	files := []pexelsVideoFile{
		{Link: "webm", Quality: "hd", FileType: "video/webm", Width: 1920, Height: 1080},
	}
	_, ok := pickRendition(files, testFilters())
	require.False(t, ok)
}

func TestDownloadWritesAndValidates(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewPexelsClient("test-key", time.Second)
	dest := filepath.Join(t.TempDir(), "clip_0.mp4")

	require.NoError(t, c.Download(context.Background(), srv.URL, dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), info.Size())
}

func TestDownloadRejectsTruncatedFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	c := NewPexelsClient("test-key", time.Second)
	dest := filepath.Join(t.TempDir(), "clip_0.mp4")

	err := c.Download(context.Background(), srv.URL, dest)
	require.Error(t, err)
	// No partial file left behind.
	require.NoFileExists(t, dest)
}

func TestDownloadNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewPexelsClient("test-key", time.Second)
	dest := filepath.Join(t.TempDir(), "clip_0.mp4")

	err := c.Download(context.Background(), srv.URL, dest)
	require.Error(t, err)
	require.NoFileExists(t, dest)
}
