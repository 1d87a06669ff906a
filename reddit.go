package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Reddit's public JSON API (append .json to any listing URL). No OAuth app
// needed for read-only scraping, just a descriptive User-Agent.

const noLinksFound = "No links or images"

type redditListing struct {
	Data struct {
		After    string          `json:"after"`
		Children []redditListingChild `json:"children"`
	} `json:"data"`
}

type redditListingChild struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type redditPostData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	URL         string  `json:"url"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
}

type redditCommentData struct {
	ID         string          `json:"id"`
	Body       string          `json:"body"`
	Score      int             `json:"score"`
	Author     string          `json:"author"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"`
}

// ScrapedPost carries the full posts-table row, scraper side. The analysis
// pipeline only reads four of these columns; the rest exist for later study.
type ScrapedPost struct {
	ID            string
	Title         string
	SelfText      string
	PostType      string
	Upvotes       int
	CommentsCount int
	Author        string
	CreatedUTC    string
	LinkOrImage   string
}

type ScrapedComment struct {
	PostID      string
	CommentID   string
	Body        string
	Upvotes     int
	CreatedUTC  string
	Author      string
	LinkOrImage string
}

type RedditScraper struct {
	userAgent string
	limit     int
	sleep     func(time.Duration)
}

func NewRedditScraper(cfg Config) *RedditScraper {
	return &RedditScraper{
		userAgent: cfg.UserAgent,
		limit:     cfg.ScrapeLimit,
		sleep:     time.Sleep,
	}
}

// ScrapeSubreddit fetches top posts and their full comment trees. Posts with
// one comment or fewer are dropped: the miner has nothing to work with there.
func (s *RedditScraper) ScrapeSubreddit(subreddit string) ([]ScrapedPost, []ScrapedComment, error) {
	var posts []ScrapedPost
	var comments []ScrapedComment

	after := ""
	for len(posts) < s.limit {
		listing, err := s.fetchListing(
			fmt.Sprintf("https://www.reddit.com/r/%s/top.json?t=all&limit=100&after=%s", subreddit, after))
		if err != nil {
			return nil, nil, fmt.Errorf("fetching r/%s listing: %w", subreddit, err)
		}
		if len(listing.Data.Children) == 0 {
			break
		}

		for _, child := range listing.Data.Children {
			if len(posts) >= s.limit {
				break
			}
			var pd redditPostData
			if err := json.Unmarshal(child.Data, &pd); err != nil {
				log.Printf("Skipping malformed post entry in r/%s: %v", subreddit, err)
				continue
			}
			if pd.NumComments <= 1 {
				continue
			}
			log.Printf("Processing submission: %s (ID: %s)", pd.Title, pd.ID)

			posts = append(posts, convertPost(pd))

			postComments, err := s.fetchComments(subreddit, pd.ID)
			if err != nil {
				log.Printf("Error fetching comments for post %s: %v", pd.ID, err)
				continue
			}
			comments = append(comments, postComments...)

			// Stay under the unauthenticated rate limit.
			s.sleep(700 * time.Millisecond)
		}

		if listing.Data.After == "" {
			break
		}
		after = listing.Data.After
	}

	log.Printf("Scraped r/%s: %d posts, %d comments", subreddit, len(posts), len(comments))
	return posts, comments, nil
}

func (s *RedditScraper) fetchListing(url string) (redditListing, error) {
	var listing redditListing
	body, err := s.get(url)
	if err != nil {
		return listing, err
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return listing, fmt.Errorf("parsing listing: %w", err)
	}
	return listing, nil
}

// fetchComments pulls the full comment tree for one post and flattens it.
// The comments endpoint returns a two-element array: [post listing, comment
// listing].
func (s *RedditScraper) fetchComments(subreddit, postID string) ([]ScrapedComment, error) {
	body, err := s.get(fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s.json?limit=500", subreddit, postID))
	if err != nil {
		return nil, err
	}

	var pair []redditListing
	if err := json.Unmarshal(body, &pair); err != nil {
		return nil, fmt.Errorf("parsing comment tree: %w", err)
	}
	if len(pair) < 2 {
		return nil, fmt.Errorf("unexpected comment response shape")
	}

	var out []ScrapedComment
	flattenComments(postID, pair[1].Data.Children, &out)
	return out, nil
}

func flattenComments(postID string, children []redditListingChild, out *[]ScrapedComment) {
	for _, child := range children {
		// "more" stubs require extra API calls; deep tails are not worth it.
		if child.Kind != "t1" {
			continue
		}
		var cd redditCommentData
		if err := json.Unmarshal(child.Data, &cd); err != nil {
			continue
		}
		if strings.TrimSpace(cd.Body) == "" || cd.Body == "[deleted]" || cd.Body == "[removed]" {
			continue
		}
		*out = append(*out, convertComment(postID, cd))

		// Replies is either a nested listing or "" when the branch ends.
		if len(cd.Replies) > 0 && cd.Replies[0] == '{' {
			var nested redditListing
			if err := json.Unmarshal(cd.Replies, &nested); err == nil {
				flattenComments(postID, nested.Data.Children, out)
			}
		}
	}
}

func convertPost(pd redditPostData) ScrapedPost {
	title, _ := NormalizeText(pd.Title)
	selfText, _ := NormalizeText(pd.SelfText)
	return ScrapedPost{
		ID:            pd.ID,
		Title:         title,
		SelfText:      selfText,
		PostType:      postTypeOf(pd.URL),
		Upvotes:       pd.Score,
		CommentsCount: pd.NumComments,
		Author:        pd.Author,
		CreatedUTC:    formatEpoch(pd.CreatedUTC),
		LinkOrImage:   extractLinksAndImages(pd.SelfText),
	}
}

func convertComment(postID string, cd redditCommentData) ScrapedComment {
	body, _ := NormalizeText(cd.Body)
	return ScrapedComment{
		PostID:      postID,
		CommentID:   cd.ID,
		Body:        body,
		Upvotes:     cd.Score,
		CreatedUTC:  formatEpoch(cd.CreatedUTC),
		Author:      cd.Author,
		LinkOrImage: extractLinksAndImages(cd.Body),
	}
}

// postTypeOf reports the URL's extension, the crude post-type proxy the
// posts table has always carried.
func postTypeOf(url string) string {
	if url == "" {
		return ""
	}
	idx := strings.LastIndex(url, ".")
	if idx < 0 || idx == len(url)-1 {
		return ""
	}
	return url[idx+1:]
}

func formatEpoch(epoch float64) string {
	if epoch == 0 {
		return ""
	}
	return strconv.FormatFloat(epoch, 'f', 1, 64)
}

var (
	imageLinkPattern = regexp.MustCompile(`https?://\S+\.(?:jpg|jpeg|png|gif)`)
	anyLinkPattern   = regexp.MustCompile(`https?://\S+`)
)

// extractLinksAndImages summarizes the URLs in a text blob. Image links take
// priority over plain links.
func extractLinksAndImages(text string) string {
	if text != "" {
		if images := imageLinkPattern.FindAllString(text, -1); len(images) > 0 {
			return strings.Join(images, ", ")
		}
		if links := anyLinkPattern.FindAllString(text, -1); len(links) > 0 {
			return strings.Join(links, ", ")
		}
	}
	return noLinksFound
}

func (s *RedditScraper) get(url string) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 10 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		log.Printf("Rate limit exceeded. Sleeping for %s.", retryAfter)
		s.sleep(retryAfter)
		return s.get(url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Reddit API returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// ScrapeAndSave scrapes one subreddit and writes its posts and comments
// tables under dataDir/<subreddit>/. Returns the two file paths.
func (s *RedditScraper) ScrapeAndSave(subreddit, dataDir string) (string, string, error) {
	posts, comments, err := s.ScrapeSubreddit(subreddit)
	if err != nil {
		return "", "", err
	}

	dir := filepath.Join(dataDir, subreddit)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("creating %s: %w", dir, err)
	}

	postsPath := filepath.Join(dir, subreddit+"_posts.csv")
	commentsPath := filepath.Join(dir, subreddit+"_comments.csv")

	if err := writePostsCSV(posts, postsPath); err != nil {
		return "", "", err
	}
	if err := writeCommentsCSV(comments, commentsPath); err != nil {
		return "", "", err
	}
	log.Printf("Data successfully saved to %s and %s", postsPath, commentsPath)
	return postsPath, commentsPath, nil
}

func writePostsCSV(posts []ScrapedPost, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{colPostID, colTitle, colSelfText, "Post Type", "Upvotes", "Comments Count", "Author", colCreatedUTC, "Link/Image"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, p := range posts {
		record := []string{
			p.ID, p.Title, p.SelfText, p.PostType,
			strconv.Itoa(p.Upvotes), strconv.Itoa(p.CommentsCount),
			p.Author, p.CreatedUTC, p.LinkOrImage,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeCommentsCSV(comments []ScrapedComment, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{colPostID, "Comment ID", colCommentBody, "Comment Upvotes", "Comment Created Time (UTC)", "Comment Author", "Link/Image"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, c := range comments {
		record := []string{
			c.PostID, c.CommentID, c.Body,
			strconv.Itoa(c.Upvotes), c.CreatedUTC, c.Author, c.LinkOrImage,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
