package guba

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const listPageHTML = `<!DOCTYPE html>
<html><head><title>600519_股吧</title></head>
<body>
<script>
var article_list = {"re":[{"post_id":1401234567,"post_title":"茅台三季报点评","post_publish_time":"2024-10-28 09:31:02","post_click_count":1523},{"post_id":1401234001,"post_title":"今天放量了","post_publish_time":"2024-10-27 14:05:44","post_click_count":87}],"count":152340};
var other_state = {"x": 1};
</script>
<ul class="paging">
<li><a>上一页</a></li>
<li><a>1</a></li>
<li><a>2</a></li>
<li><span>...</span></li>
<li><a>3047</a></li>
<li><a>下一页</a></li>
</ul>
</body></html>`

func TestParseArticleList(t *testing.T) {
	site := NewSite("")

	articles, err := site.ParseArticleList(listPageHTML, "600519")
	if err != nil {
		t.Fatalf("ParseArticleList: %v", err)
	}

	want := []Article{
		{
			Code:      "600519",
			PostID:    1401234567,
			Title:     "茅台三季报点评",
			URL:       "https://guba.eastmoney.com/news,600519,1401234567.html",
			Published: time.Date(2024, 10, 28, 9, 31, 2, 0, time.UTC),
		},
		{
			Code:      "600519",
			PostID:    1401234001,
			Title:     "今天放量了",
			URL:       "https://guba.eastmoney.com/news,600519,1401234001.html",
			Published: time.Date(2024, 10, 27, 14, 5, 44, 0, time.UTC),
		},
	}
	if diff := cmp.Diff(want, articles); diff != "" {
		t.Errorf("articles mismatch (-want +got):\n%s", diff)
	}
}

func TestParseArticleListMissingPayload(t *testing.T) {
	site := NewSite("")
	_, err := site.ParseArticleList("<html><body>no script here</body></html>", "600519")
	if !errors.Is(err, ErrNoArticleList) {
		t.Fatalf("want ErrNoArticleList, got %v", err)
	}
}

func TestParseArticleListEmpty(t *testing.T) {
	site := NewSite("")
	page := `<script>var article_list = {"re":[]};</script>`
	articles, err := site.ParseArticleList(page, "600519")
	if err != nil {
		t.Fatalf("ParseArticleList: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("want empty slice, got %d articles", len(articles))
	}
}

func TestParseArticleListBadTimestamp(t *testing.T) {
	site := NewSite("")
	page := `<script>var article_list = {"re":[{"post_id":1,"post_title":"x","post_publish_time":"yesterday"}]};</script>`
	if _, err := site.ParseArticleList(page, "600519"); err == nil {
		t.Fatal("want error for bad timestamp")
	}
}

func TestParseTotalPages(t *testing.T) {
	total, err := ParseTotalPages(listPageHTML)
	if err != nil {
		t.Fatalf("ParseTotalPages: %v", err)
	}
	if total != 3047 {
		t.Errorf("total = %d, want 3047", total)
	}
}

func TestParseTotalPagesMissing(t *testing.T) {
	if _, err := ParseTotalPages("<html><body></body></html>"); err == nil {
		t.Fatal("want error when pager absent")
	}
}

func TestParseArticleBody(t *testing.T) {
	page := `<html><body>
	<div class="article-head"><h1>标题</h1></div>
	<div class="newstext"><p>贵州茅台发布三季报，</p><p>营收同比增长。</p></div>
	</body></html>`

	body := ParseArticleBody(page)
	if body != "贵州茅台发布三季报， 营收同比增长。" {
		t.Errorf("body = %q", body)
	}
}

func TestParseArticleBodyAbsent(t *testing.T) {
	if got := ParseArticleBody("<html><body><div>x</div></body></html>"); got != "" {
		t.Errorf("want empty body, got %q", got)
	}
}

func TestSiteURLs(t *testing.T) {
	site := NewSite("https://guba.eastmoney.com/")

	if got := site.ListURL("600519", 12); got != "https://guba.eastmoney.com/list,600519_12.html" {
		t.Errorf("ListURL = %q", got)
	}
	if got := site.ArticleURL("600519", 99); got != "https://guba.eastmoney.com/news,600519,99.html" {
		t.Errorf("ArticleURL = %q", got)
	}
	if !site.IsNotFound("https://guba.eastmoney.com/error?type=1") {
		t.Error("IsNotFound should match the error redirect")
	}
	if site.IsNotFound("https://guba.eastmoney.com/list,600519_1.html") {
		t.Error("IsNotFound matched a list page")
	}
}
