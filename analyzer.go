package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// noSignalValue is the numeric sentinel the post-analysis contract uses for
// "no valid issue found". It is numeric precisely so it can never collide
// with a real complaint or diagnosis string.
const noSignalValue = -1000

const postAnalysisSystemPrompt = "You are Dr. Alex, a highly experienced psychologist specializing in online community dynamics and cybersecurity. " +
	"Analyze the following Reddit post and return a JSON with three keys: 'user_complaint', 'diagnosis', and 'cybersecurity_relevance'. " +
	"'user_complaint': Summarize the core issue in one concise sentence (max 15 words). If there's a specific question, include it. " +
	"'diagnosis': Identify the root cause or underlying issue, not just restating the complaint. Be specific and concise (max 20 words). " +
	"'cybersecurity_relevance': Assess if the post is directly related to cybersecurity. Use 'High', 'Medium', 'Low', or 'None'. " +
	"- High: Direct cybersecurity threats, hacking attempts, data breaches, or specific security vulnerabilities. " +
	"- Medium: Discussions about cybersecurity practices, tools, or general security concerns. " +
	"- Low: General tech issues that might have minor security implications. " +
	"- None: Tech issues, usability problems, or discussions not related to security at all. " +
	"Be conservative in your assessment. If in doubt, choose the lower relevance level. " +
	"If no valid issue is found, set 'user_complaint' and 'diagnosis' to -1000, and 'cybersecurity_relevance' to 'None'. " +
	"Be very certain in your analysis before providing a response."

const generalizeSystemPrompt = "Given a specific user complaint, provide a more general version that captures " +
	"the core issue without specific cybersecurity details. Focus on the broader " +
	"psychological or social aspects of the complaint."

// AnalysisOutcome is what the analyzer extracted from one post.
type AnalysisOutcome struct {
	Complaint string
	Diagnosis string
	Relevance RelevanceTier
}

type ComplaintAnalyzer struct {
	gateway *ModelGateway
}

func NewComplaintAnalyzer(gateway *ModelGateway) *ComplaintAnalyzer {
	return &ComplaintAnalyzer{gateway: gateway}
}

// AnalyzePost classifies one post's complaint and diagnosis. A nil outcome
// with nil error means the model found no valid issue — an expected result,
// not a failure.
func (a *ComplaintAnalyzer) AnalyzePost(post Post) (*AnalysisOutcome, error) {
	title, _ := NormalizeText(post.Title)
	selfText, _ := NormalizeText(post.SelfText)
	combined := fmt.Sprintf("Title: %s\n\nContent: %s", title, selfText)

	responseText, _, err := a.gateway.Complete(postAnalysisSystemPrompt, combined)
	if err != nil {
		return nil, err
	}

	complaint, diagnosis, relevance, noSignal, err := parsePostAnalysis(responseText)
	if err != nil {
		return nil, err
	}
	if noSignal {
		log.Printf("No valid issue found for post %s, skipping", post.ID)
		return nil, nil
	}

	if relevance == RelevanceLow || relevance == RelevanceNone {
		complaint, err = a.generalizeComplaint(complaint)
		if err != nil {
			return nil, err
		}
	}

	return &AnalysisOutcome{Complaint: complaint, Diagnosis: diagnosis, Relevance: relevance}, nil
}

// generalizeComplaint rewrites a low-relevance complaint without the
// security-specific details. Plain text completion, no JSON contract.
func (a *ComplaintAnalyzer) generalizeComplaint(complaint string) (string, error) {
	userPrompt := fmt.Sprintf("Specific complaint: %s\nProvide a more general version:", complaint)
	generalized, _, err := a.gateway.Complete(generalizeSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("generalizing complaint: %w", err)
	}
	generalized = strings.TrimSpace(generalized)
	log.Printf("Generalized user complaint: %s", generalized)
	return generalized, nil
}

// parsePostAnalysis validates the three-key post-analysis response. Missing
// keys, non-sentinel numbers and unknown relevance tiers are schema
// violations, never silently defaulted.
func parsePostAnalysis(responseText string) (complaint, diagnosis string, relevance RelevanceTier, noSignal bool, err error) {
	text := stripCodeFence(responseText)

	var raw struct {
		UserComplaint json.RawMessage `json:"user_complaint"`
		Diagnosis     json.RawMessage `json:"diagnosis"`
		Relevance     *string         `json:"cybersecurity_relevance"`
	}
	if err = json.Unmarshal([]byte(text), &raw); err != nil {
		err = fmt.Errorf("parsing post-analysis response: %w (response: %s)", err, text)
		return
	}
	if len(raw.UserComplaint) == 0 || len(raw.Diagnosis) == 0 || raw.Relevance == nil {
		err = fmt.Errorf("post-analysis response missing required keys (response: %s)", text)
		return
	}

	complaint, complaintSentinel, err := decodeTextOrSentinel(raw.UserComplaint, "user_complaint")
	if err != nil {
		return
	}
	diagnosis, diagnosisSentinel, err := decodeTextOrSentinel(raw.Diagnosis, "diagnosis")
	if err != nil {
		return
	}
	relevance, err = ParseRelevanceTier(*raw.Relevance)
	if err != nil {
		return
	}

	noSignal = complaintSentinel || diagnosisSentinel || complaint == "" || diagnosis == ""
	return
}

// decodeTextOrSentinel accepts the contract's two shapes for a text field:
// a string, or the numeric no-signal sentinel. Null also counts as no signal.
func decodeTextOrSentinel(raw json.RawMessage, key string) (string, bool, error) {
	if string(raw) == "null" {
		return "", true, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), false, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n == noSignalValue {
			return "", true, nil
		}
		return "", false, fmt.Errorf("unexpected numeric value %v for %s", n, key)
	}

	return "", false, fmt.Errorf("unexpected value %s for %s", string(raw), key)
}
