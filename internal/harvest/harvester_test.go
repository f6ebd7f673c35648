package harvest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gubanews/internal/guba"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSite serves a synthetic one-day-per-page index and bodies keyed
// by post ID.
type fakeSite struct {
	days    int
	newest  time.Time
	perPage int

	mu          sync.Mutex
	inFlight    int32
	maxInFlight int32
	failDetail  map[int64]bool
	slowDetail  time.Duration
}

func newFakeSite(days int) *fakeSite {
	return &fakeSite{
		days:       days,
		newest:     time.Date(2024, 6, 10, 22, 0, 0, 0, time.UTC),
		perPage:    4,
		failDetail: make(map[int64]bool),
	}
}

func (f *fakeSite) TotalPages(ctx context.Context) (int, error) {
	return f.days, nil
}

func (f *fakeSite) ListPage(ctx context.Context, page int) ([]guba.Article, error) {
	if page < 1 || page > f.days {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	day := f.newest.AddDate(0, 0, -(page - 1))
	articles := make([]guba.Article, f.perPage)
	for i := range articles {
		id := int64(page*100 + i)
		articles[i] = guba.Article{
			Code:      "600519",
			PostID:    id,
			Title:     fmt.Sprintf("post %d", id),
			URL:       fmt.Sprintf("https://example.com/news,600519,%d.html", id),
			Published: day.Add(-time.Duration(i) * time.Hour),
		}
	}
	return articles, nil
}

func (f *fakeSite) FetchDetail(ctx context.Context, article guba.Article) (string, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}

	if f.slowDetail > 0 {
		select {
		case <-time.After(f.slowDetail):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	fail := f.failDetail[article.PostID]
	f.mu.Unlock()
	if fail {
		return "", fmt.Errorf("detail %d unavailable", article.PostID)
	}
	return "body of " + article.Title, nil
}

func TestRunPreservesOrder(t *testing.T) {
	site := newFakeSite(10)
	h := New(site, site, WithWorkers(3), WithMargin(1))

	result, err := h.Run(context.Background(), "600519", time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Articles) != len(result.Window.Pages())*site.perPage {
		t.Fatalf("got %d articles for window [%d,%d]", len(result.Articles), result.Window.First, result.Window.Last)
	}

	// Articles must come out page by page, newest first, exactly as
	// listed.
	for i := 1; i < len(result.Articles); i++ {
		if result.Articles[i].Published.After(result.Articles[i-1].Published) {
			t.Errorf("article %d out of order: %v after %v", i,
				result.Articles[i].Published, result.Articles[i-1].Published)
		}
	}
	for _, a := range result.Articles {
		if !strings.HasPrefix(a.Content, "body of ") {
			t.Errorf("article %d has no body: %q", a.PostID, a.Content)
		}
	}
	if result.DetailErrors != 0 {
		t.Errorf("DetailErrors = %d", result.DetailErrors)
	}
	if result.RunID == "" {
		t.Error("missing run id")
	}
}

func TestRunDetailFailureDegrades(t *testing.T) {
	site := newFakeSite(6)
	site.failDetail[601] = true
	site.failDetail[602] = true

	h := New(site, site, WithWorkers(2), WithMargin(0))

	// Oldest day lives on page 6.
	result, err := h.Run(context.Background(), "600519", time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.DetailErrors != 2 {
		t.Fatalf("DetailErrors = %d, want 2", result.DetailErrors)
	}
	var empty int
	for _, a := range result.Articles {
		if a.Content == "" {
			empty++
		}
	}
	if empty != 2 {
		t.Errorf("%d articles without content, want 2", empty)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	site := newFakeSite(4)
	site.slowDetail = 5 * time.Millisecond

	h := New(site, site, WithWorkers(2), WithMargin(1))

	if _, err := h.Run(context.Background(), "600519", site.newest); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if max := atomic.LoadInt32(&site.maxInFlight); max > 2 {
		t.Errorf("max in-flight detail fetches = %d, want <= 2", max)
	}
}

func TestRunCancelled(t *testing.T) {
	site := newFakeSite(4)
	site.slowDetail = 50 * time.Millisecond

	h := New(site, site, WithWorkers(2))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if _, err := h.Run(ctx, "600519", site.newest); err == nil {
		t.Fatal("want error from cancelled run")
	}
}

func TestRunLocateErrorPropagates(t *testing.T) {
	site := newFakeSite(0) // empty index

	h := New(site, site)
	if _, err := h.Run(context.Background(), "600519", time.Now()); err == nil {
		t.Fatal("want error for empty index")
	}
}
