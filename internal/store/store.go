// Package store archives harvested runs and articles in SQLite so
// event-study datasets can be rebuilt without re-scraping.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gubanews/internal/guba"
	"gubanews/internal/harvest"
	"gubanews/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// RunRecord is one stored harvest run.
type RunRecord struct {
	ID           string
	Code         string
	EventDate    time.Time
	FirstPage    int
	LastPage     int
	TotalPages   int
	ArticleCount int
	DetailErrors int
	Started      time.Time
	Finished     time.Time
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store open")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategoryStore).Warn("set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Get(logging.CategoryStore).Warn("set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.Get(logging.CategoryStore).Warn("set synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("store ready at %s", path)
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		event_date TEXT NOT NULL,
		first_page INTEGER NOT NULL,
		last_page INTEGER NOT NULL,
		total_pages INTEGER NOT NULL,
		article_count INTEGER NOT NULL,
		detail_errors INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_code ON runs(code);

	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		code TEXT NOT NULL,
		post_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		published DATETIME NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(code, post_id)
	);
	CREATE INDEX IF NOT EXISTS idx_articles_code ON articles(code);
	CREATE INDEX IF NOT EXISTS idx_articles_run ON articles(run_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// SaveRun stores a run and its articles in one transaction. A post seen
// by an earlier run is updated in place, keeping whichever content is
// longer so a degraded re-fetch never erases a captured body.
func (s *Store) SaveRun(result *harvest.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, code, event_date, first_page, last_page, total_pages,
			article_count, detail_errors, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Code, result.Date.Format("2006-01-02"),
		result.Window.First, result.Window.Last, result.Window.TotalPages,
		len(result.Articles), result.DetailErrors, result.Started, result.Finished)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO articles (run_id, code, post_id, title, url, published, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, post_id) DO UPDATE SET
			run_id = excluded.run_id,
			title = excluded.title,
			content = CASE
				WHEN length(excluded.content) > length(articles.content)
				THEN excluded.content ELSE articles.content
			END`)
	if err != nil {
		return fmt.Errorf("prepare article insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range result.Articles {
		if _, err := stmt.Exec(result.RunID, a.Code, a.PostID, a.Title, a.URL, a.Published, a.Content); err != nil {
			return fmt.Errorf("insert article %d: %w", a.PostID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	logging.Store("saved run %s: %d articles", result.RunID, len(result.Articles))
	return nil
}

// ArticlesByCode returns a code's stored articles, newest first.
func (s *Store) ArticlesByCode(code string, limit int) ([]guba.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT code, post_id, title, url, published, content
		FROM articles WHERE code = ?
		ORDER BY published DESC LIMIT ?`, code, limit)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()
	return scanArticles(rows)
}

// ArticlesByRun returns the articles a run captured, newest first.
func (s *Store) ArticlesByRun(runID string) ([]guba.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT code, post_id, title, url, published, content
		FROM articles WHERE run_id = ?
		ORDER BY published DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run articles: %w", err)
	}
	defer rows.Close()
	return scanArticles(rows)
}

// Runs returns the most recent runs.
func (s *Store) Runs(limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, code, event_date, first_page, last_page, total_pages,
			article_count, detail_errors, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var eventDate string
		if err := rows.Scan(&r.ID, &r.Code, &eventDate, &r.FirstPage, &r.LastPage,
			&r.TotalPages, &r.ArticleCount, &r.DetailErrors, &r.Started, &r.Finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if d, err := time.Parse("2006-01-02", eventDate); err == nil {
			r.EventDate = d
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanArticles(rows *sql.Rows) ([]guba.Article, error) {
	var articles []guba.Article
	for rows.Next() {
		var a guba.Article
		if err := rows.Scan(&a.Code, &a.PostID, &a.Title, &a.URL, &a.Published, &a.Content); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
