package footage

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/shahram8708/PromptX/internal/apperr"
	"github.com/shahram8708/PromptX/internal/config"
	"github.com/shahram8708/PromptX/media"
	"github.com/shahram8708/PromptX/models"
)

// Searcher finds footage candidates for a keyword.
type Searcher interface {
	Search(ctx context.Context, keyword string, f SearchFilters) ([]Candidate, error)
}

// Downloader fetches a candidate URL into session storage.
type Downloader interface {
	Download(ctx context.Context, clipURL, dest string) error
}

// Retriever fetches one clip per keyword, concurrently, substituting a
// generated fallback clip whenever search or download fails. The assembly
// stage therefore never receives fewer clips than keywords.
type Retriever struct {
	search   Searcher
	download Downloader
	cfg      config.FootageConfig

	// Injected for tests; default to ffprobe and the ffmpeg fallback clip.
	probe    func(ctx context.Context, path string) (float64, error)
	fallback func(ctx context.Context, keyword, dest string, index int) error
}

func NewRetriever(search Searcher, download Downloader, cfg config.FootageConfig) *Retriever {
	r := &Retriever{
		search:   search,
		download: download,
		cfg:      cfg,
		probe:    media.ProbeDuration,
	}
	r.fallback = func(ctx context.Context, keyword, dest string, index int) error {
		return CreateFallbackClip(ctx, keyword, dest, index, cfg)
	}
	return r
}

// Fetch retrieves one clip per keyword into dir. Per-keyword work runs
// concurrently under the configured limit; the returned slice preserves
// keyword order regardless of completion order. Duplicate keywords fetch
// independently.
func (r *Retriever) Fetch(ctx context.Context, keywords []string, dir string) ([]models.ClipAsset, error) {
	if len(keywords) == 0 {
		return nil, apperr.NewValidation("keyword list must not be empty")
	}

	results := make([]models.ClipAsset, len(keywords))
	errs := make([]error, len(keywords))
	sem := make(chan struct{}, r.cfg.Concurrency)

	var wg sync.WaitGroup
	for i, kw := range keywords {
		wg.Add(1)
		go func(i int, kw string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = r.fetchOne(ctx, kw, i, dir)
		}(i, kw)
	}
	wg.Wait()

	// Individual failures were already absorbed via fallback clips; an
	// error here means even the fallback could not be written, which is a
	// storage problem, not a footage problem.
	for i, err := range errs {
		if err != nil {
			return nil, apperr.NewResource(fmt.Sprintf("fallback clip for keyword %q", keywords[i]), err)
		}
	}
	return results, nil
}

func (r *Retriever) fetchOne(ctx context.Context, keyword string, index int, dir string) (models.ClipAsset, error) {
	dest := filepath.Join(dir, fmt.Sprintf("clip_%d.mp4", index))

	if cand, ok := r.fetchReal(ctx, keyword, dest); ok {
		dur := cand.DurationSec
		if measured, err := r.probe(ctx, dest); err == nil {
			dur = measured
		}
		return models.ClipAsset{
			Position:    index,
			Keyword:     keyword,
			Path:        dest,
			DurationSec: dur,
			Width:       cand.Width,
			Height:      cand.Height,
			Provenance:  models.ProvenanceFetched,
		}, nil
	}

	log.Printf("[footage] keyword %q: no usable result — substituting fallback clip", keyword)
	if err := r.fallback(ctx, keyword, dest, index); err != nil {
		return models.ClipAsset{}, err
	}
	dur := r.cfg.FallbackClipSec
	if measured, err := r.probe(ctx, dest); err == nil {
		dur = measured
	}
	return models.ClipAsset{
		Position:    index,
		Keyword:     keyword,
		Path:        dest,
		DurationSec: dur,
		Provenance:  models.ProvenanceFallback,
	}, nil
}

// fetchReal tries the stock-footage service: search, then download
// candidates in relevance order until one survives validation.
func (r *Retriever) fetchReal(ctx context.Context, keyword, dest string) (Candidate, bool) {
	searchCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.SearchTimeoutSec)*time.Second)
	defer cancel()

	filters := SearchFilters{
		MinWidth:       r.cfg.MinWidth,
		MinHeight:      r.cfg.MinHeight,
		MaxDurationSec: r.cfg.MaxClipSec,
		PerPage:        r.cfg.PerKeywordResults,
	}
	candidates, err := r.search.Search(searchCtx, keyword, filters)
	if err != nil {
		log.Printf("[footage] search %q failed: %v", keyword, err)
		return Candidate{}, false
	}

	for _, cand := range candidates {
		dlCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.DownloadTimeoutSec)*time.Second)
		err := withRetry(2, time.Second, func() error {
			return r.download.Download(dlCtx, cand.URL, dest)
		})
		cancel()
		if err != nil {
			log.Printf("[footage] download for %q failed: %v", keyword, err)
			continue
		}
		return cand, true
	}
	return Candidate{}, false
}

// withRetry runs fn up to attempts+1 times with exponential backoff.
func withRetry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
