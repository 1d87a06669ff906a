package main

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndQueryRun(t *testing.T) {
	db := newTestDB(t)

	summary := RunSummary{
		Subreddit: "cybersecurity_help", TotalPosts: 100, Resumed: 20,
		Analyzed: 70, Skipped: 5, NoSignal: 25, Duration: 90 * time.Second,
	}
	startedAt := time.Now().Add(-time.Hour)

	runID, err := InsertAnalysisRun(db, "cybersecurity_help", "/tmp/out.csv", summary, startedAt)
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if runID == 0 {
		t.Fatal("expected a run ID")
	}

	runs, err := GetRecentRuns(db, time.Now().AddDate(0, 0, -1), 10)
	if err != nil {
		t.Fatalf("query runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.Subreddit != "cybersecurity_help" || r.TotalPosts != 100 || r.Analyzed != 70 || r.Skipped != 5 {
		t.Fatalf("unexpected run record: %+v", r)
	}
	if r.DurationMS != 90000 {
		t.Fatalf("unexpected duration: %d", r.DurationMS)
	}
}

func TestInsertResultsAndStats(t *testing.T) {
	db := newTestDB(t)

	runID, err := InsertAnalysisRun(db, "sub", "/tmp/out.csv", RunSummary{TotalPosts: 3}, time.Now())
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}

	results := []AnalysisResult{
		{PostID: "p1", UserComplaint: "c1", Diagnosis: "d1", Relevance: RelevanceHigh,
			Solution: EvidenceOf("reset it"), Steps: "1. Reset", Confidence: 0.97},
		{PostID: "p2", UserComplaint: "c2", Diagnosis: "d2", Relevance: RelevanceMedium,
			Recommendation: EvidenceOf("try this"), Steps: NoSteps, Confidence: 0.6},
		{PostID: "p3", UserComplaint: "c3", Diagnosis: "d3", Relevance: RelevanceHigh,
			Recommendation: EvidenceOf("or this"), Steps: NoSteps, Confidence: 0.3},
	}
	inserted, err := InsertAnalysisResults(db, runID, results)
	if err != nil {
		t.Fatalf("insert results: %v", err)
	}
	if inserted != 3 {
		t.Fatalf("expected 3 inserted, got %d", inserted)
	}

	since := time.Now().Add(-time.Minute)
	stats, err := GetArchiveStats(db, since)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalResults != 3 || stats.Solutions != 1 || stats.Recommendations != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Bucket95Plus != 1 || stats.Bucket50to95 != 1 || stats.BucketBelow50 != 1 {
		t.Fatalf("unexpected confidence buckets: %+v", stats)
	}

	byRelevance, err := GetResultsByRelevance(db, since)
	if err != nil {
		t.Fatalf("relevance breakdown: %v", err)
	}
	if len(byRelevance) != 2 {
		t.Fatalf("expected 2 relevance groups, got %d", len(byRelevance))
	}
	if byRelevance[0].Relevance != "High" || byRelevance[0].Count != 2 {
		t.Fatalf("unexpected top group: %+v", byRelevance[0])
	}
}

func TestArchiveStatsEmpty(t *testing.T) {
	db := newTestDB(t)

	stats, err := GetArchiveStats(db, time.Now().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("stats on empty db: %v", err)
	}
	if stats.TotalResults != 0 || stats.AvgConfidence != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}
