package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "workreddit",
		Short: "Scrape subreddits and mine complaints, diagnoses and answers from them",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableNoDescFlag:   true,
			DisableDescriptions: true,
			HiddenDefaultCmd:    true,
		},
	}

	rootCmd.AddCommand(NewScrapeCommand())
	rootCmd.AddCommand(NewProcessCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewStatsCommand())

	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		cmd.Help()
	}
	return rootCmd
}

func NewScrapeCommand() *cobra.Command {
	var subreddits []string
	var limit int

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the configured subreddits into CSV tables",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := LoadConfig()
			if len(subreddits) > 0 {
				cfg.Subreddits = subreddits
			}
			if limit > 0 {
				cfg.ScrapeLimit = limit
			}
			scraper := NewRedditScraper(cfg)
			for _, subreddit := range cfg.Subreddits {
				log.Printf("Scraping subreddit: %s", subreddit)
				if _, _, err := scraper.ScrapeAndSave(subreddit, cfg.DataDir); err != nil {
					log.Printf("Error scraping r/%s: %v", subreddit, err)
				}
				// Pause between subreddits.
				time.Sleep(5 * time.Second)
			}
		},
	}

	cmd.Flags().StringSliceVarP(&subreddits, "subreddit", "s", nil, "subreddits to scrape (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "max posts per subreddit (default from config)")
	return cmd
}

func NewProcessCommand() *cobra.Command {
	var postsPath string
	var commentsPath string
	var outputPath string
	var subreddit string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Analyze already-scraped posts and comments",
		Long: "Runs the analysis pipeline over scraped CSV tables. With --subreddit the " +
			"paths default to the scraper's layout under the data directory. An interrupted " +
			"run resumes from its checkpoint automatically.",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := LoadConfig()

			if subreddit != "" {
				dir := filepath.Join(cfg.DataDir, subreddit)
				if postsPath == "" {
					postsPath = filepath.Join(dir, subreddit+"_posts.csv")
				}
				if commentsPath == "" {
					commentsPath = filepath.Join(dir, subreddit+"_comments.csv")
				}
				if outputPath == "" {
					outputPath = filepath.Join(dir, subreddit+"_analysis.csv")
				}
			}
			if postsPath == "" || commentsPath == "" || outputPath == "" {
				log.Fatalf("need --posts, --comments and --out (or --subreddit to derive them)")
			}

			db := openArchive(cfg)
			if db != nil {
				defer db.Close()
			}

			summary, err := ProcessFiles(cfg, db, subreddit, postsPath, commentsPath, outputPath)
			if err != nil {
				log.Fatalf("Processing failed: %v", err)
			}
			log.Print(FormatRunSummary(summary))
		},
	}

	cmd.Flags().StringVarP(&postsPath, "posts", "p", "", "posts CSV path")
	cmd.Flags().StringVarP(&commentsPath, "comments", "c", "", "comments CSV path")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "output CSV path")
	cmd.Flags().StringVarP(&subreddit, "subreddit", "s", "", "derive paths from this subreddit's scrape")
	return cmd
}

func NewRunCommand() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape and process every configured subreddit",
		Long: "Runs the full scrape-analyze-archive cycle. With --once it runs a single " +
			"cycle and exits; otherwise it keeps running on the configured cron schedule.",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := LoadConfig()

			db := openArchive(cfg)
			if db != nil {
				defer db.Close()
			}

			var api *slack.Client
			if cfg.SlackBotToken != "" {
				api = slack.New(cfg.SlackBotToken)
			}

			if once {
				for _, subreddit := range cfg.Subreddits {
					summary, err := ProcessSubreddit(cfg, db, subreddit)
					if err != nil {
						log.Printf("Run failed for r/%s: %v", subreddit, err)
						continue
					}
					log.Printf("r/%s: %s", subreddit, FormatRunSummary(summary))
				}
				return
			}

			if cfg.ProcessSchedule == "" {
				log.Fatalf("process_schedule is not set; use --once for a single run")
			}
			StartProcessScheduler(cfg, db, api)
			select {}
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run one cycle and exit")
	return cmd
}

func NewStatsCommand() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show archive statistics for recent runs",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := LoadConfig()
			db, err := InitDB(cfg.DBPath)
			if err != nil {
				log.Fatalf("Error opening database %s: %v", cfg.DBPath, err)
			}
			defer db.Close()

			since := time.Now().AddDate(0, 0, -days)

			stats, err := GetArchiveStats(db, since)
			if err != nil {
				log.Fatalf("Error loading stats: %v", err)
			}
			fmt.Printf("Results (last %d days): %d total, %d solutions, %d recommendations\n",
				days, stats.TotalResults, stats.Solutions, stats.Recommendations)
			fmt.Printf("Confidence: avg %.2f, <0.50: %d, 0.50-0.95: %d, >=0.95: %d\n",
				stats.AvgConfidence, stats.BucketBelow50, stats.Bucket50to95, stats.Bucket95Plus)

			byRelevance, err := GetResultsByRelevance(db, since)
			if err != nil {
				log.Fatalf("Error loading relevance breakdown: %v", err)
			}
			for _, r := range byRelevance {
				fmt.Printf("  %s: %d\n", r.Relevance, r.Count)
			}

			runs, err := GetRecentRuns(db, since, 10)
			if err != nil {
				log.Fatalf("Error loading runs: %v", err)
			}
			for _, r := range runs {
				fmt.Printf("Run %d r/%s %s: %d posts, %d analyzed, %d skipped, %d no issue (%.1fs)\n",
					r.ID, r.Subreddit, r.StartedAt.Format("2006-01-02 15:04"),
					r.TotalPosts, r.Analyzed, r.Skipped, r.NoSignal,
					float64(r.DurationMS)/1000)
			}
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 30, "lookback window in days")
	return cmd
}

// openArchive opens the sqlite archive, or returns nil when archiving is
// disabled with db_path "none".
func openArchive(cfg Config) *sql.DB {
	if cfg.DBPath == "" || cfg.DBPath == "none" {
		return nil
	}
	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Error opening database %s: %v", cfg.DBPath, err)
	}
	return db
}
