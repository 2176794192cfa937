package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/company-researcher/backend/internal/storage/models"
	"github.com/company-researcher/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		entity TEXT NOT NULL,
		mode TEXT NOT NULL,
		report_markdown TEXT NOT NULL,
		output_dir TEXT,
		source_count INTEGER NOT NULL,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_entity ON report_runs(entity);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON report_runs(created_at);

	CREATE TABLE IF NOT EXISTS report_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		snippet TEXT,
		provider TEXT,
		query_category TEXT,
		FOREIGN KEY (run_id) REFERENCES report_runs(id) ON DELETE CASCADE,
		UNIQUE (run_id, url)
	);
	CREATE INDEX IF NOT EXISTS idx_sources_run ON report_sources(run_id);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		helpful INTEGER NOT NULL,
		issue_category TEXT,
		comment TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES report_runs(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_run ON feedback(run_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertReportRun(run *models.ReportRun) error {
	query := `
		INSERT INTO report_runs (id, user_id, entity, mode, report_markdown, output_dir, source_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		run.ID,
		run.UserID,
		run.Entity,
		run.Mode,
		run.ReportMarkdown,
		run.OutputDir,
		run.SourceCount,
		run.LatencyMS,
		run.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert report run: %w", err)
	}

	logger.Info("Report run recorded",
		zap.String("run_id", run.ID),
		zap.String("entity", run.Entity),
		zap.String("mode", run.Mode),
	)

	return nil
}

func (c *Client) InsertReportSource(source *models.ReportSource) error {
	query := `
		INSERT INTO report_sources (run_id, position, title, url, snippet, provider, query_category)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		source.RunID,
		source.Position,
		source.Title,
		source.URL,
		source.Snippet,
		source.Provider,
		source.QueryCategory,
	)

	if err != nil {
		return fmt.Errorf("failed to insert report source: %w", err)
	}

	return nil
}

func (c *Client) GetReportRun(id string) (*models.ReportRun, error) {
	query := `
		SELECT id, user_id, entity, mode, report_markdown, output_dir, source_count, latency_ms, created_at
		FROM report_runs WHERE id = ?
	`

	var run models.ReportRun
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(
		&run.ID,
		&run.UserID,
		&run.Entity,
		&run.Mode,
		&run.ReportMarkdown,
		&run.OutputDir,
		&run.SourceCount,
		&run.LatencyMS,
		&createdAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get report run: %w", err)
	}

	run.CreatedAt = time.Unix(createdAt, 0)
	return &run, nil
}

func (c *Client) ListReportRuns(entity string, limit int) ([]models.ReportRun, error) {
	query := `
		SELECT id, entity, mode, source_count, latency_ms, created_at
		FROM report_runs
		WHERE entity = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, entity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list report runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ReportRun
	for rows.Next() {
		var r models.ReportRun
		var createdAt int64

		if err := rows.Scan(&r.ID, &r.Entity, &r.Mode, &r.SourceCount, &r.LatencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, r)
	}

	return runs, nil
}

func (c *Client) GetReportSources(runID string) ([]models.ReportSource, error) {
	query := `
		SELECT id, run_id, position, title, url, snippet, provider, query_category
		FROM report_sources
		WHERE run_id = ?
		ORDER BY position
	`

	rows, err := c.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get report sources: %w", err)
	}
	defer rows.Close()

	var sources []models.ReportSource
	for rows.Next() {
		var s models.ReportSource
		if err := rows.Scan(&s.ID, &s.RunID, &s.Position, &s.Title, &s.URL, &s.Snippet, &s.Provider, &s.QueryCategory); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sources = append(sources, s)
	}

	return sources, nil
}

func (c *Client) StoreFeedback(feedback *models.Feedback) error {
	query := `INSERT INTO feedback (run_id, helpful, issue_category, comment, created_at) VALUES (?, ?, ?, ?, ?)`

	helpful := 0
	if feedback.Helpful {
		helpful = 1
	}

	_, err := c.db.Exec(
		query,
		feedback.RunID,
		helpful,
		feedback.IssueCategory,
		feedback.Comment,
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	logger.Info("Feedback stored",
		zap.String("run_id", feedback.RunID),
		zap.Bool("helpful", feedback.Helpful),
	)

	return nil
}
