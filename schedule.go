package main

import (
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// RunSummary tracks what one processing run did, per outcome.
type RunSummary struct {
	Subreddit  string
	TotalPosts int
	Resumed    int
	Analyzed   int
	Skipped    int
	NoSignal   int
	Duration   time.Duration
}

// FormatRunSummary returns a human-readable summary of a RunSummary.
func FormatRunSummary(summary RunSummary) string {
	if summary.TotalPosts == 0 {
		return "No posts to process."
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d analyzed", summary.Analyzed))
	if summary.NoSignal > 0 {
		parts = append(parts, fmt.Sprintf("%d without a valid issue", summary.NoSignal))
	}
	if summary.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped after retries", summary.Skipped))
	}

	msg := fmt.Sprintf("Processed %d posts: %s", summary.TotalPosts, strings.Join(parts, ", "))
	if summary.Resumed > 0 {
		msg += fmt.Sprintf(" (resumed with %d prior results)", summary.Resumed)
	}
	if summary.Duration > 0 {
		msg += fmt.Sprintf(" in %s", summary.Duration.Round(time.Second))
	}
	msg += "."
	return msg
}

// ProcessSubreddit runs the full scrape-analyze-archive cycle for one
// subreddit. The db handle is optional; without it results only land in the
// CSV.
func ProcessSubreddit(cfg Config, db *sql.DB, subreddit string) (RunSummary, error) {
	scraper := NewRedditScraper(cfg)
	postsPath, commentsPath, err := scraper.ScrapeAndSave(subreddit, cfg.DataDir)
	if err != nil {
		return RunSummary{}, fmt.Errorf("scraping r/%s: %w", subreddit, err)
	}

	outputPath := filepath.Join(cfg.DataDir, subreddit, subreddit+"_analysis.csv")
	return ProcessFiles(cfg, db, subreddit, postsPath, commentsPath, outputPath)
}

// ProcessFiles runs the analysis pipeline over already-scraped CSV tables.
func ProcessFiles(cfg Config, db *sql.DB, subreddit, postsPath, commentsPath, outputPath string) (RunSummary, error) {
	posts, err := LoadPostsCSV(postsPath)
	if err != nil {
		return RunSummary{}, err
	}
	comments, err := LoadCommentsCSV(commentsPath)
	if err != nil {
		return RunSummary{}, err
	}
	log.Printf("Loaded %d posts and %d comments from %s", len(posts), len(comments), postsPath)

	startedAt := time.Now()
	processor := NewBatchProcessor(cfg)
	results, summary, err := processor.ProcessPosts(posts, comments, outputPath)
	if err != nil {
		return summary, err
	}
	summary.Subreddit = subreddit

	if db != nil {
		runID, err := InsertAnalysisRun(db, subreddit, outputPath, summary, startedAt)
		if err != nil {
			log.Printf("Error archiving run record: %v", err)
		} else if _, err := InsertAnalysisResults(db, runID, results); err != nil {
			log.Printf("Error archiving results: %v", err)
		}
	}

	return summary, nil
}

// StartProcessScheduler starts a cron-based scheduler that periodically
// scrapes and processes every configured subreddit, posting a summary to
// Slack when a channel is configured.
// The schedule is a standard 5-field cron expression (minute hour day-of-month month day-of-week).
// Examples: "0 6 * * *" (daily 6am), "0 6 * * 1" (Mondays 6am).
func StartProcessScheduler(cfg Config, db *sql.DB, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.ProcessSchedule)
	if schedule == "" {
		log.Println("Scheduled processing disabled (process_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid process_schedule '%s': %v — scheduled processing disabled", schedule, err)
		return
	}

	log.Printf("Processing scheduled (cron: %s) for subreddits: %s", schedule, strings.Join(cfg.Subreddits, ", "))

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next processing run at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			for _, subreddit := range cfg.Subreddits {
				summary, runErr := ProcessSubreddit(cfg, db, subreddit)
				text := FormatRunSummary(summary)
				if runErr != nil {
					log.Printf("Scheduled run error for r/%s: %v", subreddit, runErr)
					text = fmt.Sprintf("Run for r/%s failed: %v", subreddit, runErr)
				} else {
					log.Printf("Scheduled run complete for r/%s: %s", subreddit, text)
					text = fmt.Sprintf("r/%s: %s", subreddit, text)
				}

				if api != nil && cfg.SlackChannelID != "" {
					_, _, postErr := api.PostMessage(cfg.SlackChannelID, slack.MsgOptionText(text, false))
					if postErr != nil {
						log.Printf("Slack post error: %v", postErr)
					}
				}
			}
		}
	}()
}
