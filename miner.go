package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// noAnswerFound is the literal the answer contract uses when the comment
// thread holds nothing relevant.
const noAnswerFound = "No relevant answer found"

// solutionConfidenceThreshold gates answers into solutions. Only Is_Solution
// answers at or above it are ever recorded as a solution; everything else
// becomes a recommendation with steps discarded. Deliberately conservative.
const solutionConfidenceThreshold = 0.95

const answerSystemPrompt = "You are Dr. Alex, an expert in psychology and cybersecurity. " +
	"Given a user's complaint, diagnosis, and related comments, provide the best answer you can find. " +
	"Return a JSON with four keys: 'Answer', 'Steps', 'Confidence', and 'Is_Solution'. " +
	"For 'Answer': Provide the most relevant and helpful response addressing the user_complaint and diagnosis. " +
	"Be concise (max 50 words). If no relevant answer is found, return 'No relevant answer found'. " +
	"For 'Steps': If the answer involves clear steps, list them here (max 5 steps); otherwise, return 'No steps'. " +
	"For 'Confidence': Rate your confidence from 0 to 1 that this answer correctly and completely addresses " +
	"the user's complaint. 1 means you are absolutely certain this is the correct and complete answer. " +
	"For 'Is_Solution': Set to true if this answer definitively solves the user's problem, otherwise false."

// MinedAnswer is the miner's verdict for one post. At most one of Solution
// and Recommendation is present.
type MinedAnswer struct {
	Solution       Evidence
	Recommendation Evidence
	Steps          string
	Confidence     float64
}

func emptyMinedAnswer() MinedAnswer {
	return MinedAnswer{Solution: NoEvidence(), Recommendation: NoEvidence(), Steps: NoSteps}
}

type AnswerMiner struct {
	gateway *ModelGateway
}

func NewAnswerMiner(gateway *ModelGateway) *AnswerMiner {
	return &AnswerMiner{gateway: gateway}
}

// Mine selects the best supporting answer from a post's comment thread and
// classifies it as solution or recommendation. Zero comments is a
// well-defined empty result, not an error.
func (m *AnswerMiner) Mine(postID string, comments []Comment, complaint, diagnosis string) (MinedAnswer, error) {
	if len(comments) == 0 {
		log.Printf("No comments available for post %s", postID)
		return emptyMinedAnswer(), nil
	}

	bodies := make([]string, 0, len(comments))
	for _, c := range comments {
		bodies = append(bodies, c.Body)
	}
	userPrompt := fmt.Sprintf("User Complaint: %s\nDiagnosis: %s\nComments: %s",
		complaint, diagnosis, strings.Join(bodies, "\n"))

	responseText, _, err := m.gateway.Complete(answerSystemPrompt, userPrompt)
	if err != nil {
		return MinedAnswer{}, err
	}

	parsed, err := parseAnswerResponse(responseText)
	if err != nil {
		return MinedAnswer{}, err
	}

	if parsed.Answer == noAnswerFound {
		log.Printf("No relevant answer found for post %s", postID)
		return emptyMinedAnswer(), nil
	}

	// Decision rule, in this exact order: the confidence override below
	// deliberately runs after the Is_Solution branch and wins.
	out := MinedAnswer{Steps: parsed.Steps, Confidence: parsed.Confidence}
	if parsed.IsSolution && parsed.Confidence >= solutionConfidenceThreshold {
		out.Solution = EvidenceOf(parsed.Answer)
		out.Recommendation = NoEvidence()
	} else {
		out.Solution = NoEvidence()
		out.Recommendation = EvidenceOf(parsed.Answer)
	}
	if parsed.Confidence < solutionConfidenceThreshold {
		out.Recommendation = EvidenceOf(parsed.Answer)
		out.Solution = NoEvidence()
		out.Steps = NoSteps
	}

	return out, nil
}

type answerFields struct {
	Answer     string
	Steps      string
	Confidence float64
	IsSolution bool
}

// parseAnswerResponse validates the four-key answer response. All keys are
// required and confidence must land in [0,1]; anything else is a schema
// violation.
func parseAnswerResponse(responseText string) (answerFields, error) {
	text := stripCodeFence(responseText)

	var raw struct {
		Answer     *string         `json:"Answer"`
		Steps      json.RawMessage `json:"Steps"`
		Confidence *float64        `json:"Confidence"`
		IsSolution *bool           `json:"Is_Solution"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return answerFields{}, fmt.Errorf("parsing answer response: %w (response: %s)", err, text)
	}
	if raw.Answer == nil || len(raw.Steps) == 0 || raw.Confidence == nil || raw.IsSolution == nil {
		return answerFields{}, fmt.Errorf("answer response missing required keys (response: %s)", text)
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return answerFields{}, fmt.Errorf("confidence %v out of range [0,1]", *raw.Confidence)
	}

	steps, err := coerceStepsField(raw.Steps)
	if err != nil {
		return answerFields{}, err
	}

	return answerFields{
		Answer:     strings.TrimSpace(*raw.Answer),
		Steps:      steps,
		Confidence: *raw.Confidence,
		IsSolution: *raw.IsSolution,
	}, nil
}

// coerceStepsField accepts the contract's primary shape ("step one\nstep two"
// or "No steps") and tolerates models that emit a JSON list instead.
func coerceStepsField(raw json.RawMessage) (string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if asString == "" {
			return NoSteps, nil
		}
		return asString, nil
	}

	var asSlice []string
	if err := json.Unmarshal(raw, &asSlice); err == nil {
		var out []string
		for _, s := range asSlice {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return NoSteps, nil
		}
		return strings.Join(out, "\n"), nil
	}

	return "", fmt.Errorf("unexpected Steps value %s", string(raw))
}
