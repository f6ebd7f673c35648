package guba

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// The index page embeds the visible article list as a JS assignment:
//
//	var article_list = {"re": [...], ...};
//
// The payload is the only machine-readable form of the list; the DOM
// rows are rendered from it client-side.
var articleListRe = regexp.MustCompile(`var article_list\s*=\s*(\{.*?\});`)

type listPayload struct {
	Re []struct {
		PostID          int64  `json:"post_id"`
		PostTitle       string `json:"post_title"`
		PostPublishTime string `json:"post_publish_time"`
	} `json:"re"`
}

// ParseArticleList extracts the embedded article payload from a raw list
// page. Content is left empty; the detail fetch fills it later. An empty
// payload yields an empty slice, a missing payload yields
// ErrNoArticleList.
func (s Site) ParseArticleList(pageHTML, code string) ([]Article, error) {
	m := articleListRe.FindStringSubmatch(pageHTML)
	if m == nil {
		return nil, ErrNoArticleList
	}

	var payload listPayload
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return nil, fmt.Errorf("decode article_list: %w", err)
	}

	articles := make([]Article, 0, len(payload.Re))
	for _, item := range payload.Re {
		published, err := time.Parse(TimeLayout, item.PostPublishTime)
		if err != nil {
			return nil, fmt.Errorf("post %d: bad publish time %q: %w", item.PostID, item.PostPublishTime, err)
		}
		articles = append(articles, Article{
			Code:      code,
			PostID:    item.PostID,
			Title:     item.PostTitle,
			URL:       s.ArticleURL(code, item.PostID),
			Published: published,
		})
	}
	return articles, nil
}

// ParseTotalPages reads the pager at the bottom of a list page. The last
// <li> is the "next" arrow, so the page count sits second to last.
func ParseTotalPages(pageHTML string) (int, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return 0, fmt.Errorf("parse list page: %w", err)
	}

	paging := findByClass(doc, "ul", "paging")
	if paging == nil {
		return 0, fmt.Errorf("paging list not found")
	}

	var items []*html.Node
	for c := paging.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			items = append(items, c)
		}
	}
	if len(items) < 2 {
		return 0, fmt.Errorf("paging list has %d items", len(items))
	}

	last := strings.TrimSpace(textContent(items[len(items)-2]))
	total, err := strconv.Atoi(last)
	if err != nil {
		return 0, fmt.Errorf("paging count %q: %w", last, err)
	}
	return total, nil
}

// ParseArticleBody extracts the post body from a detail page. Returns
// the empty string when the body node is absent or holds only
// whitespace.
func ParseArticleBody(pageHTML string) string {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}
	body := findByClass(doc, "", "newstext")
	if body == nil {
		return ""
	}
	return strings.TrimSpace(textContent(body))
}

// findByClass walks the tree for the first element whose class attribute
// contains the given class. An empty tag matches any element.
func findByClass(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode && (tag == "" || n.Data == tag) {
		for _, attr := range n.Attr {
			if attr.Key != "class" {
				continue
			}
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return n
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

// textContent concatenates the text nodes under n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.TrimSpace(sb.String())
}
