package main

import (
	"strings"
	"testing"
	"time"
)

// scriptedGateway returns canned responses in order, capturing the prompts.
func scriptedGateway(t *testing.T, responses ...string) (*ModelGateway, *[]string) {
	t.Helper()
	var prompts []string
	i := 0
	g := &ModelGateway{
		cfg:    testGatewayConfig(),
		policy: RetryPolicy{MaxAttempts: 1},
		call: func(cfg Config, system, user string) (string, LLMUsage, error) {
			if i >= len(responses) {
				t.Fatalf("unexpected extra model call with prompt %q", user)
			}
			prompts = append(prompts, system+"\x00"+user)
			resp := responses[i]
			i++
			return resp, LLMUsage{}, nil
		},
		sleep: func(time.Duration) {},
	}
	return g, &prompts
}

func TestAnalyzePostHighRelevance(t *testing.T) {
	g, prompts := scriptedGateway(t,
		`{"user_complaint": "Account was hacked", "diagnosis": "Credential reuse across sites", "cybersecurity_relevance": "High"}`)
	a := NewComplaintAnalyzer(g)

	outcome, err := a.AnalyzePost(Post{ID: "p1", Title: "Ｈｅｌｐ hacked", SelfText: "Someone logged in"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome == nil {
		t.Fatal("expected an outcome")
	}
	if outcome.Complaint != "Account was hacked" {
		t.Fatalf("unexpected complaint: %q", outcome.Complaint)
	}
	if outcome.Relevance != RelevanceHigh {
		t.Fatalf("unexpected relevance: %q", outcome.Relevance)
	}
	if len(*prompts) != 1 {
		t.Fatalf("high relevance must not trigger generalization, got %d calls", len(*prompts))
	}
	// The prompt carries the normalized title.
	if !strings.Contains((*prompts)[0], "Title: Help hacked") {
		t.Fatalf("prompt missing normalized title: %q", (*prompts)[0])
	}
}

func TestAnalyzePostGeneralizesLowRelevance(t *testing.T) {
	g, prompts := scriptedGateway(t,
		`{"user_complaint": "Password manager UI is confusing", "diagnosis": "Poor UX design", "cybersecurity_relevance": "Low"}`,
		"  The user struggles with a confusing interface.  ")
	a := NewComplaintAnalyzer(g)

	outcome, err := a.AnalyzePost(Post{ID: "p2", Title: "ui question", SelfText: "how do I"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome == nil {
		t.Fatal("expected an outcome")
	}
	if outcome.Complaint != "The user struggles with a confusing interface." {
		t.Fatalf("expected generalized complaint, got %q", outcome.Complaint)
	}
	if outcome.Diagnosis != "Poor UX design" {
		t.Fatalf("diagnosis must stay specific, got %q", outcome.Diagnosis)
	}
	if len(*prompts) != 2 {
		t.Fatalf("expected analysis + generalization calls, got %d", len(*prompts))
	}
}

func TestAnalyzePostNoSignal(t *testing.T) {
	responses := []string{
		`{"user_complaint": -1000, "diagnosis": -1000, "cybersecurity_relevance": "None"}`,
		`{"user_complaint": null, "diagnosis": "something", "cybersecurity_relevance": "None"}`,
		`{"user_complaint": "", "diagnosis": "something", "cybersecurity_relevance": "None"}`,
	}
	for _, resp := range responses {
		g, prompts := scriptedGateway(t, resp)
		a := NewComplaintAnalyzer(g)

		outcome, err := a.AnalyzePost(Post{ID: "p3", Title: "meta post"})
		if err != nil {
			t.Fatalf("response %s: unexpected error: %v", resp, err)
		}
		if outcome != nil {
			t.Fatalf("response %s: expected nil outcome, got %+v", resp, outcome)
		}
		if len(*prompts) != 1 {
			t.Fatalf("response %s: no-signal must not trigger more calls", resp)
		}
	}
}

func TestParsePostAnalysisErrors(t *testing.T) {
	tests := []struct {
		name string
		resp string
	}{
		{"not json", "I think the user is upset"},
		{"missing complaint", `{"diagnosis": "d", "cybersecurity_relevance": "High"}`},
		{"missing relevance", `{"user_complaint": "c", "diagnosis": "d"}`},
		{"unknown tier", `{"user_complaint": "c", "diagnosis": "d", "cybersecurity_relevance": "Critical"}`},
		{"stray number", `{"user_complaint": 42, "diagnosis": "d", "cybersecurity_relevance": "High"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, _, err := parsePostAnalysis(tt.resp)
			if err == nil {
				t.Fatalf("expected error for %s", tt.resp)
			}
		})
	}
}

func TestParsePostAnalysisFencedResponse(t *testing.T) {
	resp := "```json\n{\"user_complaint\": \"c\", \"diagnosis\": \"d\", \"cybersecurity_relevance\": \"Medium\"}\n```"
	complaint, diagnosis, relevance, noSignal, err := parsePostAnalysis(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if noSignal {
		t.Fatal("unexpected no-signal")
	}
	if complaint != "c" || diagnosis != "d" || relevance != RelevanceMedium {
		t.Fatalf("unexpected parse: %q %q %q", complaint, diagnosis, relevance)
	}
}

func TestAnalyzePostPropagatesModelError(t *testing.T) {
	g := &ModelGateway{
		cfg:    testGatewayConfig(),
		policy: RetryPolicy{MaxAttempts: 1},
		call: func(cfg Config, system, user string) (string, LLMUsage, error) {
			return "", LLMUsage{}, &httpStatusError{StatusCode: 401, Body: "bad key"}
		},
		sleep: func(time.Duration) {},
	}
	a := NewComplaintAnalyzer(g)

	if _, err := a.AnalyzePost(Post{ID: "p4", Title: "t"}); err == nil {
		t.Fatal("expected model error to propagate")
	}
}
