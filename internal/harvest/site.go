package harvest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gubanews/internal/browser"
	"gubanews/internal/config"
	"gubanews/internal/guba"
	"gubanews/internal/logging"

	"github.com/go-rod/rod"
)

// SiteLister drives the live forum through the browser. It implements
// search.PageLister and DetailFetcher for one stock code, reusing a
// single index tab and caching parsed pages so bisection revisits are
// free.
type SiteLister struct {
	mgr     *browser.Manager
	site    guba.Site
	code    string
	retries int
	delay   time.Duration

	mu        sync.Mutex
	indexPage *rod.Page
	total     int
	cache     map[int][]guba.Article
}

// NewSiteLister builds a lister for one code.
func NewSiteLister(mgr *browser.Manager, site guba.Site, code string, cfg config.FetchConfig) *SiteLister {
	return &SiteLister{
		mgr:     mgr,
		site:    site,
		code:    code,
		retries: cfg.GetRetries(),
		delay:   cfg.PageDelay(),
		total:   -1,
		cache:   make(map[int][]guba.Article),
	}
}

// TotalPages loads the first index page, detects the unknown-code
// redirect, and reads the pager. The result is cached.
func (l *SiteLister) TotalPages(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.total > 0 {
		return l.total, nil
	}

	html, err := l.loadIndexLocked(ctx, 1)
	if err != nil {
		return 0, err
	}

	total, err := guba.ParseTotalPages(html)
	if err != nil {
		return 0, fmt.Errorf("total pages for %s: %w", l.code, err)
	}
	l.total = total
	logging.Search("%s: %d index pages", l.code, total)
	return total, nil
}

// ListPage loads and parses one index page, serving repeats from cache.
func (l *SiteLister) ListPage(ctx context.Context, page int) ([]guba.Article, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.cache[page]; ok {
		return cached, nil
	}

	html, err := l.loadIndexLocked(ctx, page)
	if err != nil {
		return nil, err
	}

	articles, err := l.site.ParseArticleList(html, l.code)
	if err != nil {
		return nil, fmt.Errorf("parse page %d: %w", page, err)
	}
	l.cache[page] = articles
	return articles, nil
}

// loadIndexLocked navigates the index tab to the given page with
// retries and returns the HTML. Caller holds l.mu.
func (l *SiteLister) loadIndexLocked(ctx context.Context, page int) (string, error) {
	url := l.site.ListURL(l.code, page)
	logging.List("fetching %s", url)

	var lastErr error
	for attempt := 0; attempt < l.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(l.delay + time.Duration(attempt)*time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if l.indexPage == nil {
			p, err := l.mgr.OpenPage(ctx, url)
			if err != nil {
				lastErr = err
				continue
			}
			l.indexPage = p
		} else if err := l.mgr.Navigate(ctx, l.indexPage, url); err != nil {
			lastErr = err
			continue
		}

		landed, err := l.mgr.PageURL(l.indexPage)
		if err != nil {
			lastErr = err
			continue
		}
		if l.site.IsNotFound(landed) {
			return "", fmt.Errorf("code %s: %w", l.code, guba.ErrPageNotFound)
		}

		html, err := l.mgr.HTML(ctx, l.indexPage)
		if err != nil {
			lastErr = err
			continue
		}
		return html, nil
	}
	return "", fmt.Errorf("load %s after %d attempts: %w", url, l.retries, lastErr)
}

// FetchDetail opens the article in its own tab, waits for the body
// node, and returns its text.
func (l *SiteLister) FetchDetail(ctx context.Context, article guba.Article) (string, error) {
	logging.Detail("%s %s", article.Published.Format(guba.TimeLayout), article.Title)

	page, err := l.mgr.OpenPage(ctx, article.URL)
	if err != nil {
		return "", err
	}
	defer l.mgr.ClosePage(page)

	if err := l.mgr.WaitVisible(ctx, page, ".newstext"); err != nil {
		return "", err
	}
	return l.mgr.ElementText(ctx, page, ".newstext")
}

// Close releases the index tab.
func (l *SiteLister) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexPage != nil {
		l.mgr.ClosePage(l.indexPage)
		l.indexPage = nil
	}
}
