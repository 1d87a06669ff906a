package main

import (
	"fmt"
	"log"
	"time"
)

const (
	defaultChunkSize  = 1000
	defaultMaxRetries = 3
	checkpointEvery   = 50
	progressEvery     = 100
)

// BatchProcessor drives the full post collection through the analyzer and
// miner: fixed original order, chunked output writes, per-post retry, and
// checkpointed resume. Posts are processed strictly one at a time; the
// result list is the only mutable state and the processor owns it.
type BatchProcessor struct {
	cfg      Config
	analyzer *ComplaintAnalyzer
	miner    *AnswerMiner

	// Seams for tests; production uses the real implementations.
	sleep          func(time.Duration)
	saveCheckpoint func(path string, cp Checkpoint) error
}

func NewBatchProcessor(cfg Config) *BatchProcessor {
	gateway := NewModelGateway(cfg)
	return &BatchProcessor{
		cfg:            cfg,
		analyzer:       NewComplaintAnalyzer(gateway),
		miner:          NewAnswerMiner(gateway),
		sleep:          time.Sleep,
		saveCheckpoint: SaveCheckpoint,
	}
}

// ProcessPosts analyzes every post and returns the accumulated results plus
// a run summary. If a checkpoint exists for outputPath the run resumes
// exactly where the previous one stopped. Chunk boundaries only control the
// cadence of full output rewrites; they carry no semantics.
func (p *BatchProcessor) ProcessPosts(posts []Post, comments []Comment, outputPath string) ([]AnalysisResult, RunSummary, error) {
	start := time.Now()
	cpPath := checkpointPath(outputPath)

	cp, err := LoadCheckpoint(cpPath)
	if err != nil {
		return nil, RunSummary{}, err
	}
	results := cp.Results
	startIndex := cp.NextIndex
	total := len(posts)
	if startIndex > total {
		return nil, RunSummary{}, fmt.Errorf("checkpoint %s is ahead of the input (%d > %d posts); wrong input file?",
			cpPath, startIndex, total)
	}
	if startIndex > 0 {
		log.Printf("Loaded %d results from checkpoint, resuming at post %d/%d", len(results), startIndex+1, total)
	}

	summary := RunSummary{TotalPosts: total, Resumed: len(results)}

	chunkSize := p.cfg.ChunkSize
	if chunkSize < 1 {
		chunkSize = defaultChunkSize
	}
	maxRetries := p.cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = defaultMaxRetries
	}

	commentsByPost := groupCommentsByPost(comments)

	for chunkStart := startIndex; chunkStart < total; chunkStart += chunkSize {
		chunkEnd := chunkStart + chunkSize
		if chunkEnd > total {
			chunkEnd = total
		}

		for i := chunkStart; i < chunkEnd; i++ {
			post := posts[i]

			var result *AnalysisResult
			var lastErr error
			for attempt := 1; attempt <= maxRetries; attempt++ {
				result, lastErr = p.processSinglePost(post, commentsByPost)
				if lastErr == nil {
					break
				}
				log.Printf("Error processing post %s (attempt %d/%d): %v", post.ID, attempt, maxRetries, lastErr)
				if attempt < maxRetries {
					p.sleep(time.Duration(1<<uint(attempt)) * time.Second)
				}
			}

			switch {
			case lastErr != nil:
				log.Printf("Max retries reached for post %s, skipping", post.ID)
				summary.Skipped++
			case result != nil:
				results = append(results, *result)
				summary.Analyzed++
			default:
				summary.NoSignal++
			}

			processed := i + 1
			if processed%checkpointEvery == 0 {
				if err := p.saveCheckpoint(cpPath, Checkpoint{Results: results, NextIndex: processed}); err != nil {
					return results, summary, err
				}
				log.Printf("Checkpoint saved after processing %d/%d posts", processed, total)
			}
			if processed%progressEvery == 0 {
				log.Printf("Processed %d out of %d posts", processed, total)
			}
		}

		if err := WriteResultsCSV(results, outputPath); err != nil {
			return results, summary, err
		}
		log.Printf("Results saved to %s (%d rows)", outputPath, len(results))
	}

	// A resumed run may find nothing left to do; the output still has to
	// reflect the full result set.
	if startIndex >= total {
		if err := WriteResultsCSV(results, outputPath); err != nil {
			return results, summary, err
		}
	}

	if err := RemoveCheckpoint(cpPath); err != nil {
		log.Printf("Warning: could not remove checkpoint %s: %v", cpPath, err)
	} else {
		log.Printf("Checkpoint file removed after successful completion")
	}

	summary.Duration = time.Since(start)
	return results, summary, nil
}

// processSinglePost runs one post through analyze → mine. A nil result with
// nil error is the expected no-signal outcome. Any error here is retried by
// the caller as a whole.
func (p *BatchProcessor) processSinglePost(post Post, commentsByPost map[string][]Comment) (*AnalysisResult, error) {
	outcome, err := p.analyzer.AnalyzePost(post)
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return nil, nil
	}

	mined, err := p.miner.Mine(post.ID, commentsByPost[post.ID], outcome.Complaint, outcome.Diagnosis)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		PostID:         post.ID,
		CreatedUTC:     post.CreatedUTC,
		UserComplaint:  outcome.Complaint,
		Diagnosis:      outcome.Diagnosis,
		Relevance:      outcome.Relevance,
		Solution:       mined.Solution,
		Recommendation: mined.Recommendation,
		Steps:          mined.Steps,
		Confidence:     mined.Confidence,
	}, nil
}
