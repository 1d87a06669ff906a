package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"
	"time"
)

func testGatewayConfig() Config {
	return Config{
		LLMProvider:        "anthropic",
		LLMMaxAttempts:     3,
		LLMRetryMinSeconds: 1,
		LLMRetryMaxSeconds: 10,
	}
}

func newTestGateway(cfg Config, call modelCallFunc) (*ModelGateway, *[]time.Duration) {
	var slept []time.Duration
	g := &ModelGateway{
		cfg:    cfg,
		policy: newRetryPolicy(cfg),
		call:   call,
		sleep:  func(d time.Duration) { slept = append(slept, d) },
	}
	return g, &slept
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, MinDelay: 4 * time.Second, MaxDelay: 10 * time.Second}

	if got := p.Delay(1); got != 4*time.Second {
		t.Fatalf("attempt 1: got %v, want clamped to min 4s", got)
	}
	if got := p.Delay(2); got != 4*time.Second {
		t.Fatalf("attempt 2: got %v, want 4s", got)
	}
	if got := p.Delay(3); got != 8*time.Second {
		t.Fatalf("attempt 3: got %v, want 8s", got)
	}
	if got := p.Delay(4); got != 10*time.Second {
		t.Fatalf("attempt 4: got %v, want clamped to max 10s", got)
	}
}

func TestCompleteSucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	g, slept := newTestGateway(testGatewayConfig(), func(cfg Config, system, user string) (string, LLMUsage, error) {
		calls++
		if calls < 3 {
			return "", LLMUsage{InputTokens: 10}, context.DeadlineExceeded
		}
		return "ok", LLMUsage{InputTokens: 10, OutputTokens: 5}, nil
	})

	text, usage, err := g.Complete("system", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Fatalf("unexpected text: %q", text)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(*slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(*slept))
	}
	if usage.InputTokens != 30 || usage.OutputTokens != 5 {
		t.Fatalf("usage not accumulated across attempts: %+v", usage)
	}
}

func TestCompleteExhaustsAttempts(t *testing.T) {
	calls := 0
	g, _ := newTestGateway(testGatewayConfig(), func(cfg Config, system, user string) (string, LLMUsage, error) {
		calls++
		return "", LLMUsage{}, syscall.ECONNREFUSED
	})

	_, _, err := g.Complete("system", "user")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 calls, got %d", calls)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("error should report the attempt bound: %v", err)
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Fatalf("final error should wrap the last failure: %v", err)
	}
}

func TestCompleteDoesNotRetryNonTransient(t *testing.T) {
	calls := 0
	schemaErr := fmt.Errorf("response missing required keys")
	g, slept := newTestGateway(testGatewayConfig(), func(cfg Config, system, user string) (string, LLMUsage, error) {
		calls++
		return "", LLMUsage{}, schemaErr
	})

	_, _, err := g.Complete("system", "user")
	if !errors.Is(err, schemaErr) {
		t.Fatalf("expected the original error untouched, got: %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-transient error must not be retried, got %d calls", calls)
	}
	if len(*slept) != 0 {
		t.Fatalf("no sleeps expected, got %v", *slept)
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"conn reset wrapped", fmt.Errorf("call: %w", syscall.ECONNRESET), true},
		{"rate limited", &httpStatusError{StatusCode: 429}, true},
		{"server error", &httpStatusError{StatusCode: 503}, true},
		{"request timeout", &httpStatusError{StatusCode: 408}, true},
		{"auth failure", &httpStatusError{StatusCode: 401}, false},
		{"bad request", &httpStatusError{StatusCode: 400}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransientError(tt.err); got != tt.want {
				t.Fatalf("isTransientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
