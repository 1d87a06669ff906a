package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Checkpoint is the durable resume state: the ordered results accumulated so
// far and the index of the next post to process. NextIndex counts processed
// posts (including skipped and no-signal ones), so resuming neither
// reprocesses a finished post nor skips an unfinished one.
type Checkpoint struct {
	Results   []AnalysisResult `json:"completed_results"`
	NextIndex int              `json:"next_index"`
}

// checkpointPath derives the checkpoint location from the output path, so
// each output table has exactly one in-flight run.
func checkpointPath(outputPath string) string {
	return outputPath + "_checkpoint.json"
}

// LoadCheckpoint reads resume state. A missing file is a fresh run; an
// unreadable or inconsistent file is fatal — the operator decides, the
// pipeline never repairs a checkpoint.
func LoadCheckpoint(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Checkpoint{}, nil
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("reading checkpoint %s: %w", path, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("corrupt checkpoint %s: %w (delete it to restart from scratch)", path, err)
	}
	if cp.NextIndex < len(cp.Results) {
		return Checkpoint{}, fmt.Errorf("corrupt checkpoint %s: next_index %d behind %d stored results (delete it to restart from scratch)",
			path, cp.NextIndex, len(cp.Results))
	}
	return cp, nil
}

// SaveCheckpoint fully rewrites the checkpoint file; it is never
// append-modified.
func SaveCheckpoint(path string, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", path, err)
	}
	return nil
}

// RemoveCheckpoint deletes the checkpoint after a clean completion. Its
// absence is the signal that no run is in flight.
func RemoveCheckpoint(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
