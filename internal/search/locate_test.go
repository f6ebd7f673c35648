package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gubanews/internal/guba"
)

// fakeIndex serves a date-descending index with one calendar day per
// page: page 1 holds the newest day, page N the oldest.
type fakeIndex struct {
	days      int
	newest    time.Time
	perPage   int
	listCalls int
	failPage  int
}

func (f *fakeIndex) TotalPages(ctx context.Context) (int, error) {
	return f.days, nil
}

func (f *fakeIndex) ListPage(ctx context.Context, page int) ([]guba.Article, error) {
	f.listCalls++
	if page == f.failPage {
		return nil, fmt.Errorf("boom")
	}
	if page < 1 || page > f.days {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	day := f.newest.AddDate(0, 0, -(page - 1))
	articles := make([]guba.Article, f.perPage)
	for i := range articles {
		articles[i] = guba.Article{
			PostID:    int64(page*1000 + i),
			Title:     fmt.Sprintf("post %d-%d", page, i),
			Published: day.Add(-time.Duration(i) * time.Hour),
		}
	}
	return articles, nil
}

func newFakeIndex(days int) *fakeIndex {
	return &fakeIndex{
		days:    days,
		newest:  time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC),
		perPage: 3,
	}
}

func TestLocateFindsContainingWindow(t *testing.T) {
	idx := newFakeIndex(10)
	target := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC) // lives on page 6

	w, err := Locate(context.Background(), idx, target, 1)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if w.First > 6 || w.Last < 6 {
		t.Errorf("window [%d,%d] does not contain page 6", w.First, w.Last)
	}
	if w.First < 1 || w.Last > w.TotalPages {
		t.Errorf("window [%d,%d] outside [1,%d]", w.First, w.Last, w.TotalPages)
	}
	if idx.listCalls > 5 {
		t.Errorf("bisection made %d list calls over 10 pages", idx.listCalls)
	}
}

func TestLocateClampsAtNewestEdge(t *testing.T) {
	idx := newFakeIndex(10)
	target := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) // page 1

	w, err := Locate(context.Background(), idx, target, 1)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if w.First != 1 {
		t.Errorf("First = %d, want 1", w.First)
	}
	if w.Last < 1 || w.Last > w.TotalPages {
		t.Errorf("Last = %d outside index", w.Last)
	}
}

func TestLocateClampsAtOldestEdge(t *testing.T) {
	idx := newFakeIndex(10)
	target := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) // older than the index

	w, err := Locate(context.Background(), idx, target, 1)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if w.Last != 10 {
		t.Errorf("Last = %d, want 10", w.Last)
	}
	if w.First < 1 {
		t.Errorf("First = %d", w.First)
	}
}

func TestLocateNewerThanIndex(t *testing.T) {
	idx := newFakeIndex(10)
	target := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	w, err := Locate(context.Background(), idx, target, 1)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if w.First != 1 || w.Last < 1 {
		t.Errorf("window [%d,%d], want it pinned to the newest pages", w.First, w.Last)
	}
}

func TestLocateZeroMarginSinglePage(t *testing.T) {
	idx := newFakeIndex(10)
	target := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)

	w, err := Locate(context.Background(), idx, target, 0)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if w.First != w.Last {
		t.Errorf("zero margin window [%d,%d], want a single page", w.First, w.Last)
	}
	if w.First != 6 {
		t.Errorf("target page = %d, want 6", w.First)
	}
}

func TestLocateListFailure(t *testing.T) {
	idx := newFakeIndex(10)
	idx.failPage = 5 // first probe with start=1 end=10

	if _, err := Locate(context.Background(), idx, idx.newest, 1); err == nil {
		t.Fatal("want error from failing page list")
	}
}

func TestLocateCancelled(t *testing.T) {
	idx := newFakeIndex(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Locate(ctx, idx, idx.newest, 1); err == nil {
		t.Fatal("want context error")
	}
}

func TestWindowPages(t *testing.T) {
	w := Window{First: 4, Last: 6}
	pages := w.Pages()
	if len(pages) != 3 || pages[0] != 4 || pages[2] != 6 {
		t.Errorf("Pages() = %v", pages)
	}
	if (Window{First: 3, Last: 2}).Pages() != nil {
		t.Error("inverted window should yield no pages")
	}
}

func TestDateRange(t *testing.T) {
	idx := newFakeIndex(10)
	articles, _ := idx.ListPage(context.Background(), 3)

	earliest, latest, err := DateRange(articles)
	if err != nil {
		t.Fatalf("DateRange: %v", err)
	}
	if !earliest.Equal(time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("earliest = %v", earliest)
	}
	if !latest.Equal(time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("latest = %v", latest)
	}
	if _, _, err := DateRange(nil); err == nil {
		t.Error("want error for empty page")
	}
}
