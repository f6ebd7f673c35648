// Package harvest orchestrates a run: locate the page window around an
// event date, list every page in it, and fetch each article's body over
// a bounded worker pool.
package harvest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gubanews/internal/guba"
	"gubanews/internal/logging"
	"gubanews/internal/search"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DetailFetcher fetches one article's body text.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, article guba.Article) (string, error)
}

// Result is the outcome of one harvest run.
type Result struct {
	RunID        string
	Code         string
	Date         time.Time
	Window       search.Window
	Articles     []guba.Article
	DetailErrors int
	Started      time.Time
	Finished     time.Time
}

// Harvester runs the locate-list-fetch pipeline.
type Harvester struct {
	lister    search.PageLister
	details   DetailFetcher
	workers   int
	margin    int
	pageDelay time.Duration
	log       *zap.Logger
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithWorkers sets the detail-fetch pool size.
func WithWorkers(n int) Option {
	return func(h *Harvester) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithMargin sets the page window margin.
func WithMargin(n int) Option {
	return func(h *Harvester) {
		if n >= 0 {
			h.margin = n
		}
	}
}

// WithPageDelay sets the pause between index page loads.
func WithPageDelay(d time.Duration) Option {
	return func(h *Harvester) {
		if d >= 0 {
			h.pageDelay = d
		}
	}
}

// WithLogger sets the zap logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *Harvester) {
		if log != nil {
			h.log = log
		}
	}
}

// New builds a Harvester over a page lister and a detail fetcher.
func New(lister search.PageLister, details DetailFetcher, opts ...Option) *Harvester {
	h := &Harvester{
		lister:  lister,
		details: details,
		workers: 4,
		margin:  1,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run harvests the articles around date for one stock code. Detail
// failures do not abort the run; the affected articles keep an empty
// body and are counted in Result.DetailErrors.
func (h *Harvester) Run(ctx context.Context, code string, date time.Time) (*Result, error) {
	timer := logging.StartTimer(logging.CategorySearch, "harvest "+code)
	defer timer.Stop()

	result := &Result{
		RunID:   uuid.NewString(),
		Code:    code,
		Date:    date,
		Started: time.Now(),
	}

	window, err := search.Locate(ctx, h.lister, date, h.margin)
	if err != nil {
		return nil, fmt.Errorf("locate %s on %s: %w", code, date.Format("2006-01-02"), err)
	}
	result.Window = window
	h.log.Info("window located",
		zap.String("code", code),
		zap.Int("first", window.First),
		zap.Int("last", window.Last),
		zap.Int("total", window.TotalPages))

	var detailErrors atomic.Int64

	for _, pageNum := range window.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if h.pageDelay > 0 && pageNum != window.First {
			select {
			case <-time.After(h.pageDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		articles, err := h.lister.ListPage(ctx, pageNum)
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", pageNum, err)
		}
		logging.List("page %d: %d articles", pageNum, len(articles))

		fetched := make([]guba.Article, len(articles))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(h.workers)
		for i, article := range articles {
			g.Go(func() error {
				content, err := h.details.FetchDetail(gctx, article)
				if err != nil {
					detailErrors.Add(1)
					logging.Get(logging.CategoryDetail).Warn("detail %s: %v", article.URL, err)
					h.log.Warn("detail fetch failed",
						zap.String("url", article.URL),
						zap.Error(err))
				} else {
					article.Content = content
				}
				fetched[i] = article
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Articles = append(result.Articles, fetched...)
	}

	result.DetailErrors = int(detailErrors.Load())
	result.Finished = time.Now()
	h.log.Info("harvest finished",
		zap.String("run_id", result.RunID),
		zap.Int("articles", len(result.Articles)),
		zap.Int("detail_errors", result.DetailErrors),
		zap.Duration("elapsed", result.Finished.Sub(result.Started)))
	return result, nil
}
