// Package search locates the page window of a forum index that covers a
// target calendar date. The index is paginated newest-first, so the
// window is found by bisection over page numbers using each page's date
// range.
package search

import (
	"context"
	"fmt"
	"time"

	"gubanews/internal/guba"
)

// PageLister is the read surface Locate needs. The harvester implements
// it over a live browser; tests implement it over a synthetic index.
type PageLister interface {
	TotalPages(ctx context.Context) (int, error)
	ListPage(ctx context.Context, page int) ([]guba.Article, error)
}

// Window is an inclusive page range within an index.
type Window struct {
	First      int
	Last       int
	TotalPages int
}

// Pages returns the page numbers in the window, in order.
func (w Window) Pages() []int {
	if w.Last < w.First {
		return nil
	}
	pages := make([]int, 0, w.Last-w.First+1)
	for p := w.First; p <= w.Last; p++ {
		pages = append(pages, p)
	}
	return pages
}

// DateRange reads a page's covered dates from its first and last
// article. Pages are date-descending, so the first article is the
// latest and the last is the earliest. Pinned posts can break the
// ordering; the widened window in Locate absorbs that.
func DateRange(articles []guba.Article) (earliest, latest time.Time, err error) {
	if len(articles) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("empty page")
	}
	latest = dateOnly(articles[0].Published)
	earliest = dateOnly(articles[len(articles)-1].Published)
	return earliest, latest, nil
}

// Locate bisects the index for the page holding the target date and
// returns that page widened by margin pages on each side, clamped to
// [1, total]. The equal-date branch keeps narrowing left so the search
// converges on the newest page containing the date.
func Locate(ctx context.Context, lister PageLister, target time.Time, margin int) (Window, error) {
	total, err := lister.TotalPages(ctx)
	if err != nil {
		return Window{}, err
	}
	if total < 1 {
		return Window{}, fmt.Errorf("index reports %d pages", total)
	}
	if margin < 0 {
		margin = 0
	}

	day := dateOnly(target)
	start, end := 1, total

	for start <= end {
		if err := ctx.Err(); err != nil {
			return Window{}, err
		}
		mid := (start + end) / 2

		articles, err := lister.ListPage(ctx, mid)
		if err != nil {
			return Window{}, fmt.Errorf("list page %d: %w", mid, err)
		}
		earliest, latest, err := DateRange(articles)
		if err != nil {
			return Window{}, fmt.Errorf("page %d: %w", mid, err)
		}

		switch {
		case day.After(latest):
			end = mid - 1
		case day.Before(earliest):
			start = mid + 1
		default:
			end = mid - 1
		}
	}

	// The loop exits with end == start-1; the target page is start and
	// the margin widens the window on both sides.
	w := Window{
		First:      clamp(start-margin, 1, total),
		Last:       clamp(end+margin, 1, total),
		TotalPages: total,
	}
	if w.Last < w.First {
		w.Last = w.First
	}
	return w, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
