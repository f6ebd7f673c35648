// Package guba models the eastmoney stock forum ("guba") and parses its
// pages. A code's article index lives at /list,{code}_{page}.html with the
// visible list embedded as a JSON payload in an inline script; each post's
// body lives on its own /news,{code},{postID}.html page.
package guba

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the timestamp layout used across the forum pages.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultBaseURL is the forum root.
const DefaultBaseURL = "https://guba.eastmoney.com"

// ErrPageNotFound indicates the site redirected to its error page,
// which happens for unknown or delisted stock codes.
var ErrPageNotFound = errors.New("guba: page not found")

// ErrNoArticleList indicates a list page carried no embedded payload.
var ErrNoArticleList = errors.New("guba: article_list payload not found")

// Article is a single forum post. Content is empty until the detail
// page has been fetched.
type Article struct {
	Code      string    `json:"code"`
	PostID    int64     `json:"post_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Published time.Time `json:"published"`
	Content   string    `json:"content"`
}

// Site builds forum URLs for one base URL.
type Site struct {
	BaseURL string
}

// NewSite returns a Site, falling back to DefaultBaseURL.
func NewSite(baseURL string) Site {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Site{BaseURL: strings.TrimRight(baseURL, "/")}
}

// ListURL returns the index URL for a code's nth page (1-based).
func (s Site) ListURL(code string, page int) string {
	return fmt.Sprintf("%s/list,%s_%d.html", s.BaseURL, code, page)
}

// ArticleURL returns the detail URL for a post.
func (s Site) ArticleURL(code string, postID int64) string {
	return fmt.Sprintf("%s/news,%s,%d.html", s.BaseURL, code, postID)
}

// ErrorURL is where the site lands for unknown codes.
func (s Site) ErrorURL() string {
	return s.BaseURL + "/error?type=1"
}

// IsNotFound reports whether a landed URL is the site's error page.
func (s Site) IsNotFound(landedURL string) bool {
	return strings.HasPrefix(landedURL, s.BaseURL+"/error")
}
