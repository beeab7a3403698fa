// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records finished review runs in SQLite: the manuscript,
// keyphrases, retrieved articles, evaluation points, and report paths.
// Evaluation points are indexed with FTS5 for search across runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/manuscript-review/internal/faults"
	"github.com/pdiddy/manuscript-review/pkg/types"
)

const (
	dbFile            = "history.db"
	defaultMaxResults = 20
)

// Store manages the run history database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// Open opens or creates the history database at cfg.Dir/history.db and
// creates the schema if it does not exist.
func Open(cfg types.HistoryConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: history directory not set", faults.ErrConfiguration)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: defaultMaxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			manuscript TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			article_type TEXT,
			model TEXT,
			checkpoint_outcome TEXT,
			author_report TEXT,
			auditor_report TEXT,
			total_articles INTEGER NOT NULL DEFAULT 0,
			has_evaluation INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS keyphrases (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			phrase TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			key_position INTEGER NOT NULL,
			search_key TEXT NOT NULL,
			position INTEGER NOT NULL,
			article_id TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			journal TEXT,
			year TEXT,
			abstract TEXT,
			PRIMARY KEY (run_id, key_position, position)
		)`,
		`CREATE TABLE IF NOT EXISTS points (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			section TEXT NOT NULL,
			position INTEGER NOT NULL,
			content TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_run_id ON points(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='points_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE points_fts USING fts5(content, content=points, content_rowid=rowid)`,
			`CREATE TRIGGER points_ai AFTER INSERT ON points BEGIN
				INSERT INTO points_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
			`CREATE TRIGGER points_ad AFTER DELETE ON points BEGIN
				INSERT INTO points_fts(points_fts, rowid, content) VALUES('delete', old.rowid, old.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// Record stores a finished run. Recording the same run ID again replaces
// the earlier entry.
func (s *Store) Record(ctx context.Context, run types.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("%w: run has no id", faults.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("deleting previous run: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, manuscript, status, started_at, finished_at, article_type, model,
			checkpoint_outcome, author_report, auditor_report, total_articles, has_evaluation, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Manuscript, string(run.Status),
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		string(run.ArticleType), run.Model, run.Outcome,
		run.AuthorReportPath, run.AuditorReportPath,
		run.Literature.Total(), run.Evaluation != nil, run.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, phrase := range run.Keyphrases {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO keyphrases (run_id, position, phrase) VALUES (?, ?, ?)`,
			run.ID, i, phrase,
		); err != nil {
			return fmt.Errorf("inserting keyphrase: %w", err)
		}
	}

	artStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (run_id, key_position, search_key, position, article_id, title, authors, journal, year, abstract)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing article insert: %w", err)
	}
	defer artStmt.Close()

	for k, entry := range run.Literature {
		for i, a := range entry.Articles {
			authorsJSON, _ := json.Marshal(a.Authors)
			if _, err := artStmt.ExecContext(ctx,
				run.ID, k, entry.Key, i, a.ID, a.Title, string(authorsJSON), a.Journal, a.Year, a.Abstract,
			); err != nil {
				return fmt.Errorf("inserting article %s: %w", a.ID, err)
			}
		}
	}

	if run.Evaluation != nil {
		pointStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO points (run_id, section, position, content) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing point insert: %w", err)
		}
		defer pointStmt.Close()

		for _, sec := range types.Sections {
			for i, p := range run.Evaluation.Points(sec) {
				if _, err := pointStmt.ExecContext(ctx, run.ID, sec.Key(), i, p); err != nil {
					return fmt.Errorf("inserting point: %w", err)
				}
			}
		}
	}

	return tx.Commit()
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID            string          `json:"id" yaml:"id"`
	Manuscript    string          `json:"manuscript" yaml:"manuscript"`
	Status        types.RunStatus `json:"status" yaml:"status"`
	StartedAt     time.Time       `json:"started_at" yaml:"started_at"`
	ArticleType   string          `json:"article_type" yaml:"article_type"`
	TotalArticles int             `json:"total_articles" yaml:"total_articles"`
	Error         string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// List returns the most recent runs first. A non-positive limit uses the
// store default.
func (s *Store) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, manuscript, status, started_at, article_type, total_articles, error
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r           RunSummary
			status      string
			started     string
			articleType sql.NullString
			errMsg      sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Manuscript, &status, &started, &articleType, &r.TotalArticles, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Status = types.RunStatus(status)
		r.StartedAt = parseTime(started)
		r.ArticleType = articleType.String
		r.Error = errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get loads a run by ID or by a unique ID prefix.
func (s *Store) Get(ctx context.Context, id string) (types.RunRecord, error) {
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return types.RunRecord{}, err
	}

	var (
		run                             types.RunRecord
		status, started, finished       string
		articleType, model, outcome     sql.NullString
		authorPath, auditorPath, errMsg sql.NullString
		hasEvaluation                   bool
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, manuscript, status, started_at, finished_at, article_type, model,
			checkpoint_outcome, author_report, auditor_report, has_evaluation, error
		 FROM runs WHERE id = ?`, fullID,
	).Scan(&run.ID, &run.Manuscript, &status, &started, &finished, &articleType, &model,
		&outcome, &authorPath, &auditorPath, &hasEvaluation, &errMsg)
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("loading run %s: %w", fullID, err)
	}
	run.Status = types.RunStatus(status)
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.ArticleType = types.ArticleType(articleType.String)
	run.Model = model.String
	run.Outcome = outcome.String
	run.AuthorReportPath = authorPath.String
	run.AuditorReportPath = auditorPath.String
	run.Error = errMsg.String

	if run.Keyphrases, err = s.keyphrases(ctx, fullID); err != nil {
		return types.RunRecord{}, err
	}
	if run.Literature, err = s.literature(ctx, fullID); err != nil {
		return types.RunRecord{}, err
	}
	if hasEvaluation {
		eval, err := s.evaluation(ctx, fullID)
		if err != nil {
			return types.RunRecord{}, err
		}
		run.Evaluation = &eval
	}
	return run, nil
}

func (s *Store) resolveID(ctx context.Context, id string) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`,
		id, escapeLike(id)+"%")
	if err != nil {
		return "", fmt.Errorf("looking up run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var found string
		if err := rows.Scan(&found); err != nil {
			return "", fmt.Errorf("scanning run id: %w", err)
		}
		if found == id {
			return found, nil
		}
		ids = append(ids, found)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: run %s", faults.ErrNotFound, id)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: run id prefix %q is ambiguous", faults.ErrValidation, id)
	}
}

func (s *Store) keyphrases(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phrase FROM keyphrases WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading keyphrases: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning keyphrase: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) literature(ctx context.Context, runID string) (types.LiteratureResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key_position, search_key, article_id, title, authors, journal, year, abstract
		 FROM articles WHERE run_id = ? ORDER BY key_position, position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading articles: %w", err)
	}
	defer rows.Close()

	var (
		out     types.LiteratureResult
		lastKey = -1
	)
	for rows.Next() {
		var (
			keyPos                            int
			key                               string
			a                                 types.Article
			title, authors, journal, year, ab sql.NullString
		)
		if err := rows.Scan(&keyPos, &key, &a.ID, &title, &authors, &journal, &year, &ab); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		a.Title, a.Journal, a.Year, a.Abstract = title.String, journal.String, year.String, ab.String
		if authors.Valid {
			json.Unmarshal([]byte(authors.String), &a.Authors)
		}
		if keyPos != lastKey {
			out = append(out, types.PhraseArticles{Key: key})
			lastKey = keyPos
		}
		last := &out[len(out)-1]
		last.Articles = append(last.Articles, a)
	}
	return out, rows.Err()
}

func (s *Store) evaluation(ctx context.Context, runID string) (types.Evaluation, error) {
	eval := types.Evaluation{Major: []string{}, Minor: []string{}, Other: []string{}, Suggestions: []string{}}

	rows, err := s.db.QueryContext(ctx,
		`SELECT section, content FROM points WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return eval, fmt.Errorf("loading points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var section, content string
		if err := rows.Scan(&section, &content); err != nil {
			return eval, fmt.Errorf("scanning point: %w", err)
		}
		eval.Append(sectionByKey(section), content)
	}
	return eval, rows.Err()
}

// PointHit is a full-text match on an evaluation point.
type PointHit struct {
	RunID      string `json:"run_id" yaml:"run_id"`
	Manuscript string `json:"manuscript" yaml:"manuscript"`
	Section    string `json:"section" yaml:"section"`
	Content    string `json:"content" yaml:"content"`
}

// Search runs an FTS5 query over evaluation points of all runs, best
// matches first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]PointHit, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", faults.ErrValidation)
	}
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.run_id, r.manuscript, p.section, p.content
		 FROM points_fts
		 JOIN points p ON p.rowid = points_fts.rowid
		 JOIN runs r ON r.id = p.run_id
		 WHERE points_fts MATCH ?
		 ORDER BY points_fts.rank
		 LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}
	defer rows.Close()

	var out []PointHit
	for rows.Next() {
		var h PointHit
		if err := rows.Scan(&h.RunID, &h.Manuscript, &h.Section, &h.Content); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Delete removes a run and everything recorded for it.
func (s *Store) Delete(ctx context.Context, id string) error {
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, fullID)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: run %s", faults.ErrNotFound, id)
	}
	return nil
}

func sectionByKey(key string) types.Section {
	for _, s := range types.Sections {
		if s.Key() == key {
			return s
		}
	}
	return types.SectionNone
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func escapeLike(s string) string {
	var b []rune
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			b = append(b, '\\')
		}
		b = append(b, r)
	}
	return string(b)
}
