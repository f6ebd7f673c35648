package main

import (
	"fmt"

	"gubanews/internal/guba"
	"gubanews/internal/store"

	"github.com/spf13/cobra"
)

var (
	articlesCode  string
	articlesLimit int
	articlesRun   string
	runsLimit     int
)

// articlesCmd prints archived articles.
var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Print archived articles for a stock code or run",
	RunE:  runArticles,
}

// runsCmd prints archived runs.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Print recent harvest runs",
	RunE:  runRuns,
}

func init() {
	articlesCmd.Flags().StringVar(&articlesCode, "code", "", "stock code")
	articlesCmd.Flags().StringVar(&articlesRun, "run", "", "run id")
	articlesCmd.Flags().IntVar(&articlesLimit, "limit", 50, "max articles")

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs")
}

func openArchive() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Storage.Enabled {
		return nil, fmt.Errorf("storage is disabled in config")
	}
	return store.Open(inWorkspace(cfg.Storage.DatabasePath))
}

func runArticles(cmd *cobra.Command, args []string) error {
	if articlesCode == "" && articlesRun == "" {
		return fmt.Errorf("one of --code or --run is required")
	}

	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	var articles []guba.Article
	if articlesRun != "" {
		articles, err = archive.ArticlesByRun(articlesRun)
	} else {
		articles, err = archive.ArticlesByCode(articlesCode, articlesLimit)
	}
	if err != nil {
		return err
	}

	for _, a := range articles {
		body := "-"
		if a.Content != "" {
			body = fmt.Sprintf("%d chars", len([]rune(a.Content)))
		}
		fmt.Printf("%s  %-10s  %s  (%s)\n",
			a.Published.Format(guba.TimeLayout), a.Code, a.Title, body)
	}
	fmt.Printf("%d articles\n", len(articles))
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	runs, err := archive.Runs(runsLimit)
	if err != nil {
		return err
	}

	for _, r := range runs {
		fmt.Printf("%s  %-10s  %s  pages %d-%d/%d  %d articles  %d detail errors\n",
			r.ID, r.Code, r.EventDate.Format("2006-01-02"),
			r.FirstPage, r.LastPage, r.TotalPages,
			r.ArticleCount, r.DetailErrors)
	}
	fmt.Printf("%d runs\n", len(runs))
	return nil
}
