package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		subreddit    TEXT NOT NULL,
		output_path  TEXT NOT NULL,
		total_posts  INTEGER NOT NULL,
		resumed      INTEGER NOT NULL DEFAULT 0,
		analyzed     INTEGER NOT NULL DEFAULT 0,
		skipped      INTEGER NOT NULL DEFAULT 0,
		no_signal    INTEGER NOT NULL DEFAULT 0,
		duration_ms  INTEGER NOT NULL DEFAULT 0,
		started_at   DATETIME NOT NULL,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_subreddit ON analysis_runs(subreddit);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON analysis_runs(started_at);

	CREATE TABLE IF NOT EXISTS analysis_results (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id         INTEGER NOT NULL,
		post_id        TEXT NOT NULL,
		created_time   TEXT DEFAULT '',
		user_complaint TEXT NOT NULL,
		diagnosis      TEXT NOT NULL,
		relevance      TEXT NOT NULL,
		solution       TEXT DEFAULT '',
		recommendation TEXT DEFAULT '',
		steps          TEXT DEFAULT '',
		confidence     REAL NOT NULL,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_results_run ON analysis_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_post ON analysis_results(post_id);
	CREATE INDEX IF NOT EXISTS idx_results_relevance ON analysis_results(relevance);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func InsertAnalysisRun(db *sql.DB, subreddit, outputPath string, summary RunSummary, startedAt time.Time) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO analysis_runs (subreddit, output_path, total_posts, resumed, analyzed, skipped, no_signal, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subreddit, outputPath, summary.TotalPosts, summary.Resumed,
		summary.Analyzed, summary.Skipped, summary.NoSignal,
		summary.Duration.Milliseconds(), startedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func InsertAnalysisResults(db *sql.DB, runID int64, results []AnalysisResult) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO analysis_results
		 (run_id, post_id, created_time, user_complaint, diagnosis, relevance, solution, recommendation, steps, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range results {
		_, err := stmt.Exec(
			runID, r.PostID, r.CreatedUTC, r.UserComplaint, r.Diagnosis,
			string(r.Relevance), r.Solution.Render(), r.Recommendation.Render(),
			r.Steps, r.Confidence,
		)
		if err != nil {
			return inserted, err
		}
		inserted++
	}

	return inserted, tx.Commit()
}

// --- Archive Stats ---

type ArchiveStats struct {
	TotalResults    int
	Solutions       int
	Recommendations int
	AvgConfidence   float64
	BucketBelow50   int
	Bucket50to95    int
	Bucket95Plus    int
}

func GetArchiveStats(db *sql.DB, since time.Time) (ArchiveStats, error) {
	var s ArchiveStats
	err := db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN solution <> '' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN recommendation <> '' THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(confidence), 0),
		        COALESCE(SUM(CASE WHEN confidence < 0.50 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN confidence >= 0.50 AND confidence < 0.95 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN confidence >= 0.95 THEN 1 ELSE 0 END), 0)
		 FROM analysis_results WHERE created_at >= ?`,
		since,
	).Scan(&s.TotalResults, &s.Solutions, &s.Recommendations, &s.AvgConfidence,
		&s.BucketBelow50, &s.Bucket50to95, &s.Bucket95Plus)
	return s, err
}

type RelevanceStat struct {
	Relevance string
	Count     int
}

func GetResultsByRelevance(db *sql.DB, since time.Time) ([]RelevanceStat, error) {
	rows, err := db.Query(
		`SELECT relevance, COUNT(*) as cnt
		 FROM analysis_results
		 WHERE created_at >= ?
		 GROUP BY relevance
		 ORDER BY cnt DESC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RelevanceStat
	for rows.Next() {
		var s RelevanceStat
		if err := rows.Scan(&s.Relevance, &s.Count); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type RunRecord struct {
	ID         int64
	Subreddit  string
	OutputPath string
	TotalPosts int
	Resumed    int
	Analyzed   int
	Skipped    int
	NoSignal   int
	DurationMS int64
	StartedAt  time.Time
}

func GetRecentRuns(db *sql.DB, since time.Time, limit int) ([]RunRecord, error) {
	rows, err := db.Query(
		`SELECT id, subreddit, output_path, total_posts, resumed, analyzed, skipped, no_signal, duration_ms, started_at
		 FROM analysis_runs
		 WHERE started_at >= ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.ID, &r.Subreddit, &r.OutputPath, &r.TotalPosts, &r.Resumed,
			&r.Analyzed, &r.Skipped, &r.NoSignal, &r.DurationMS, &r.StartedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
