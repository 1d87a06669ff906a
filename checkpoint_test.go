package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := checkpointPath(filepath.Join(t.TempDir(), "out.csv"))

	cp := Checkpoint{
		Results: []AnalysisResult{
			{PostID: "p1", UserComplaint: "c", Diagnosis: "d", Relevance: RelevanceHigh,
				Recommendation: EvidenceOf("try this"), Steps: NoSteps, Confidence: 0.6},
		},
		NextIndex: 3,
	}
	if err := SaveCheckpoint(path, cp); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.NextIndex != 3 || len(loaded.Results) != 1 {
		t.Fatalf("unexpected checkpoint: %+v", loaded)
	}
	r := loaded.Results[0]
	if r.PostID != "p1" || !r.Recommendation.Present || r.Recommendation.Text != "try this" {
		t.Fatalf("result did not survive the round trip: %+v", r)
	}
	if r.Solution.Present {
		t.Fatalf("absent solution became present: %+v", r)
	}
}

func TestLoadCheckpointMissingIsFreshRun(t *testing.T) {
	cp, err := LoadCheckpoint(filepath.Join(t.TempDir(), "nothing_checkpoint.json"))
	if err != nil {
		t.Fatalf("missing checkpoint must not be an error: %v", err)
	}
	if cp.NextIndex != 0 || len(cp.Results) != 0 {
		t.Fatalf("expected zero checkpoint, got %+v", cp)
	}
}

func TestLoadCheckpointCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv_checkpoint.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadCheckpoint(path); err == nil {
		t.Fatal("expected error for corrupt checkpoint")
	}
}

func TestLoadCheckpointInconsistentIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv_checkpoint.json")
	data := `{"completed_results": [{"post_id": "a"}, {"post_id": "b"}], "next_index": 1}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadCheckpoint(path); err == nil {
		t.Fatal("expected error when next_index is behind the stored results")
	}
}

func TestRemoveCheckpointIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv_checkpoint.json")
	if err := SaveCheckpoint(path, Checkpoint{NextIndex: 1, Results: []AnalysisResult{{PostID: "a"}}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := RemoveCheckpoint(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := RemoveCheckpoint(path); err != nil {
		t.Fatalf("removing an already-removed checkpoint must be fine: %v", err)
	}
}
