package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Input column names, as written by the scraper. Extra columns are ignored.
const (
	colPostID      = "Post ID"
	colTitle       = "Title"
	colSelfText    = "Self Text"
	colCreatedUTC  = "Created Time (UTC)"
	colCommentBody = "Comment Body"
)

var resultColumns = []string{
	"post_id",
	"created_time",
	"user_complaint",
	"diagnosis",
	"cybersecurity_relevance",
	"solution",
	"recommendation",
	"steps",
	"confidence",
}

// LoadPostsCSV reads the posts table. Column order is irrelevant; the four
// required columns must exist.
func LoadPostsCSV(path string) ([]Post, error) {
	records, index, err := readTable(path, colPostID, colTitle, colSelfText, colCreatedUTC)
	if err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(records))
	for _, record := range records {
		posts = append(posts, Post{
			ID:         record[index[colPostID]],
			Title:      record[index[colTitle]],
			SelfText:   record[index[colSelfText]],
			CreatedUTC: record[index[colCreatedUTC]],
		})
	}
	return posts, nil
}

// LoadCommentsCSV reads the comments table, preserving row order.
func LoadCommentsCSV(path string) ([]Comment, error) {
	records, index, err := readTable(path, colPostID, colCommentBody)
	if err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(records))
	for _, record := range records {
		comments = append(comments, Comment{
			PostID: record[index[colPostID]],
			Body:   record[index[colCommentBody]],
		})
	}
	return comments, nil
}

func readTable(path string, required ...string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, nil, fmt.Errorf("%s: missing required column %q", path, name)
		}
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", path, err)
		}
		records = append(records, record)
	}
	return records, index, nil
}

// WriteResultsCSV overwrites the output table with the full result set, so
// the file always reflects exactly the current accumulated results.
func WriteResultsCSV(results []AnalysisResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(resultColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range results {
		record := []string{
			r.PostID,
			r.CreatedUTC,
			r.UserComplaint,
			r.Diagnosis,
			string(r.Relevance),
			r.Solution.Render(),
			r.Recommendation.Render(),
			r.Steps,
			strconv.FormatFloat(r.Confidence, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing row for post %s: %w", r.PostID, err)
		}
	}
	w.Flush()
	return w.Error()
}
