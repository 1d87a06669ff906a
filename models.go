package main

import "fmt"

// Post is a single Reddit submission loaded from the posts CSV.
// CreatedUTC is carried through verbatim (epoch string from the scraper);
// the pipeline never interprets it.
type Post struct {
	ID         string
	Title      string
	SelfText   string
	CreatedUTC string
}

// Comment is one comment body belonging to a post. Original CSV order is
// preserved so the comment blob sent to the model is deterministic.
type Comment struct {
	PostID string
	Body   string
}

// RelevanceTier classifies how strongly a post relates to cybersecurity.
type RelevanceTier string

const (
	RelevanceHigh   RelevanceTier = "High"
	RelevanceMedium RelevanceTier = "Medium"
	RelevanceLow    RelevanceTier = "Low"
	RelevanceNone   RelevanceTier = "None"
)

func ParseRelevanceTier(s string) (RelevanceTier, error) {
	switch RelevanceTier(s) {
	case RelevanceHigh, RelevanceMedium, RelevanceLow, RelevanceNone:
		return RelevanceTier(s), nil
	}
	return "", fmt.Errorf("unknown cybersecurity_relevance %q", s)
}

// Evidence is a tagged optional answer field. It replaces numeric magic
// values for "no answer", so absent can never collide with real answer text.
type Evidence struct {
	Text    string `json:"text"`
	Present bool   `json:"present"`
}

func EvidenceOf(text string) Evidence {
	return Evidence{Text: text, Present: true}
}

func NoEvidence() Evidence {
	return Evidence{}
}

// Render returns the CSV cell value: the text when present, empty otherwise.
func (e Evidence) Render() string {
	if !e.Present {
		return ""
	}
	return e.Text
}

// NoSteps is the literal the answer contract uses when an answer carries no
// enumerated steps.
const NoSteps = "No steps"

// AnalysisResult is one output row. Exactly one of Solution/Recommendation is
// present whenever the miner found a real answer; both are absent when the
// comment thread held nothing usable.
type AnalysisResult struct {
	PostID         string        `json:"post_id"`
	CreatedUTC     string        `json:"created_time"`
	UserComplaint  string        `json:"user_complaint"`
	Diagnosis      string        `json:"diagnosis"`
	Relevance      RelevanceTier `json:"cybersecurity_relevance"`
	Solution       Evidence      `json:"solution"`
	Recommendation Evidence      `json:"recommendation"`
	Steps          string        `json:"steps"`
	Confidence     float64       `json:"confidence"`
}

func groupCommentsByPost(comments []Comment) map[string][]Comment {
	grouped := make(map[string][]Comment)
	for _, c := range comments {
		grouped[c.PostID] = append(grouped[c.PostID], c)
	}
	return grouped
}
