package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"gubanews/internal/browser"
	"gubanews/internal/config"
	"gubanews/internal/export"
	"gubanews/internal/guba"
	"gubanews/internal/harvest"
	"gubanews/internal/store"

	"go.uber.org/zap"
)

// pipeline wires the browser, harvester, exporters, and archive for
// one command invocation.
type pipeline struct {
	cfg     *config.Config
	mgr     *browser.Manager
	site    guba.Site
	archive *store.Store
	outDir  string
}

// newPipeline loads config and opens the shared resources. outDir
// overrides the configured output directory when non-empty.
func newPipeline(outDir string) (*pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		cfg:  cfg,
		mgr:  browser.NewManager(cfg.Browser),
		site: guba.NewSite(cfg.Fetch.BaseURL),
	}

	p.outDir = outDir
	if p.outDir == "" {
		p.outDir = cfg.Export.OutputDir
	}
	p.outDir = inWorkspace(p.outDir)

	if cfg.Storage.Enabled {
		archive, err := store.Open(inWorkspace(cfg.Storage.DatabasePath))
		if err != nil {
			return nil, err
		}
		p.archive = archive
	}
	return p, nil
}

// close releases the browser and archive.
func (p *pipeline) close(ctx context.Context) {
	if err := p.mgr.Shutdown(ctx); err != nil {
		logger.Warn("browser shutdown", zap.Error(err))
	}
	if p.archive != nil {
		if err := p.archive.Close(); err != nil {
			logger.Warn("archive close", zap.Error(err))
		}
	}
}

// runTask harvests one (code, date) task, exports it, and archives it.
func (p *pipeline) runTask(ctx context.Context, code string, date time.Time) error {
	logger.Info("harvesting",
		zap.String("code", code),
		zap.String("date", date.Format("2006-01-02")))

	lister := harvest.NewSiteLister(p.mgr, p.site, code, p.cfg.Fetch)
	defer lister.Close()

	h := harvest.New(lister, lister,
		harvest.WithWorkers(p.cfg.Fetch.GetWorkers()),
		harvest.WithMargin(p.cfg.Fetch.GetWindowMargin()),
		harvest.WithPageDelay(p.cfg.Fetch.PageDelay()),
		harvest.WithLogger(logger))

	result, err := h.Run(ctx, code, date)
	if err != nil {
		return err
	}

	format := p.cfg.Export.Format
	if format == "" {
		format = "csv"
	}
	if format == "csv" || format == "both" {
		if err := export.WriteCSV(export.CSVPath(p.outDir, code), result.Articles); err != nil {
			return err
		}
		fmt.Printf("%s: %d articles -> %s\n", code, len(result.Articles), export.CSVPath(p.outDir, code))
	}
	if format == "markdown" || format == "both" {
		if err := export.WriteMarkdown(export.MarkdownPath(p.outDir, code), code, result.Articles); err != nil {
			return err
		}
		fmt.Printf("%s: %d articles -> %s\n", code, len(result.Articles), export.MarkdownPath(p.outDir, code))
	}

	if p.archive != nil {
		if err := p.archive.SaveRun(result); err != nil {
			return fmt.Errorf("archive run: %w", err)
		}
	}

	if result.DetailErrors > 0 {
		logger.Warn("some article bodies were not captured",
			zap.String("code", code),
			zap.Int("detail_errors", result.DetailErrors))
	}
	return nil
}

// inWorkspace anchors relative paths at the workspace directory.
func inWorkspace(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}
