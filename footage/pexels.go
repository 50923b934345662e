package footage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/shahram8708/PromptX/media"
)

const defaultPexelsBaseURL = "https://api.pexels.com"

// minClipBytes rejects empty or truncated downloads.
const minClipBytes = 1000

// Candidate is one usable rendition found for a keyword, in the service's
// relevance order.
type Candidate struct {
	URL         string
	Width       int
	Height      int
	DurationSec float64
	Quality     string
}

// SearchFilters bound what footage is acceptable.
type SearchFilters struct {
	MinWidth       int
	MinHeight      int
	MaxDurationSec int
	PerPage        int
}

// PexelsClient searches and downloads stock footage from the Pexels video
// API.
type PexelsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewPexelsClient(apiKey string, downloadTimeout time.Duration) *PexelsClient {
	return &PexelsClient{
		apiKey:     apiKey,
		baseURL:    defaultPexelsBaseURL,
		httpClient: &http.Client{Timeout: downloadTimeout},
	}
}

type pexelsSearchResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

type pexelsVideo struct {
	ID         int               `json:"id"`
	Duration   int               `json:"duration"`
	VideoFiles []pexelsVideoFile `json:"video_files"`
}

type pexelsVideoFile struct {
	Link     string `json:"link"`
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Search queries Pexels for landscape clips matching the keyword and returns
// acceptable candidates in the service's relevance order.
func (c *PexelsClient) Search(ctx context.Context, keyword string, f SearchFilters) ([]Candidate, error) {
	q := url.Values{}
	q.Set("query", keyword)
	q.Set("per_page", strconv.Itoa(f.PerPage))
	q.Set("orientation", "landscape")
	q.Set("size", "medium")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/videos/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels search %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels search %q: status %d", keyword, resp.StatusCode)
	}

	var parsed pexelsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("pexels search %q: decode: %w", keyword, err)
	}

	return RankCandidates(parsed.Videos, f), nil
}

// RankCandidates picks the best rendition of each result video and drops
// videos that violate the filters. Result order follows the service's
// relevance ranking.
func RankCandidates(videos []pexelsVideo, f SearchFilters) []Candidate {
	var out []Candidate
	for _, v := range videos {
		if f.MaxDurationSec > 0 && v.Duration > f.MaxDurationSec {
			continue
		}
		vf, ok := pickRendition(v.VideoFiles, f)
		if !ok {
			continue
		}
		out = append(out, Candidate{
			URL:         vf.Link,
			Width:       vf.Width,
			Height:      vf.Height,
			DurationSec: float64(v.Duration),
			Quality:     vf.Quality,
		})
	}
	return out
}

// pickRendition prefers hd over sd MP4 renditions meeting the minimum
// resolution.
func pickRendition(files []pexelsVideoFile, f SearchFilters) (pexelsVideoFile, bool) {
	for _, quality := range []string{"hd", "sd"} {
		for _, vf := range files {
			if vf.Quality != quality || vf.FileType != "video/mp4" {
				continue
			}
			if vf.Width >= f.MinWidth && vf.Height >= f.MinHeight {
				return vf, true
			}
		}
	}
	return pexelsVideoFile{}, false
}

// Download streams a clip to dest and validates it is not empty or
// truncated. A failed download leaves no partial file behind.
func (c *PexelsClient) Download(ctx context.Context, clipURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", clipURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", clipURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", clipURL, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("download %s: %w", clipURL, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return err
	}

	if err := media.ValidateFile(dest, minClipBytes); err != nil {
		os.Remove(dest)
		return fmt.Errorf("downloaded clip invalid: %w", err)
	}
	return nil
}
