package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/timmy/memflow/internal/domain"
)

// stubModel returns a canned completion and records the prompts it saw.
type stubModel struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
}

func (s *stubModel) Complete(ctx context.Context, system, user string) (string, error) {
	s.lastSystem = system
	s.lastUser = user
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func samplePayload() *domain.ConversationPayload {
	return &domain.ConversationPayload{
		HistoricalContext: []domain.Turn{
			{Role: "user", Content: domain.TurnContent{Text: "earlier message"}},
		},
		CurrentContext: []domain.Turn{
			{Role: "user", Content: domain.TurnContent{Text: "I like pizza"}},
			{Role: "assistant", Content: domain.TurnContent{Text: "Got it"}},
		},
		SessionID: "session-1",
		ActorID:   "actor-1",
	}
}

func TestExtractParsesModelResponse(t *testing.T) {
	model := &stubModel{response: `Here you go:
[
  {"content": "Likes pizza", "type": "preference", "confidence": 0.9},
  {"content": "Interested in cooking", "type": "interest", "confidence": 0.7}
]`}

	result := NewContentExtractor(model).Extract(context.Background(), samplePayload())

	if result.Degraded {
		t.Fatal("Degraded should be false for a parseable response")
	}
	if len(result.Facts) != 2 {
		t.Fatalf("facts: got %d, want 2", len(result.Facts))
	}

	first := result.Facts[0]
	if first.Content != "Likes pizza" {
		t.Errorf("Content: got %q", first.Content)
	}
	if first.Category != domain.CategoryPreference {
		t.Errorf("Category: got %q", first.Category)
	}
	if first.Confidence != 0.9 {
		t.Errorf("Confidence: got %v", first.Confidence)
	}
	if first.Namespace != "/interests/actor/actor-1/session/session-1" {
		t.Errorf("Namespace: got %q", first.Namespace)
	}
}

func TestExtractPromptCarriesConversation(t *testing.T) {
	model := &stubModel{response: `[]`}

	NewContentExtractor(model).Extract(context.Background(), samplePayload())

	if model.lastSystem == "" {
		t.Error("system prompt should not be empty")
	}
	for _, want := range []string{
		"Previous conversation:",
		"Current conversation:",
		"user: I like pizza",
		"assistant: Got it",
		"user: earlier message",
	} {
		if !strings.Contains(model.lastUser, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
}

func TestExtractSkipsInvalidItems(t *testing.T) {
	model := &stubModel{response: `[
		{"content": "Valid fact", "type": "fact", "confidence": 0.8},
		{"type": "fact", "confidence": 0.8},
		{"content": "", "type": "fact"},
		{"content": "No type"},
		{"content": "Bad category", "type": "opinion", "confidence": 0.5}
	]`}

	result := NewContentExtractor(model).Extract(context.Background(), samplePayload())

	if result.Degraded {
		t.Fatal("skipped items must not set Degraded")
	}
	if len(result.Facts) != 1 {
		t.Fatalf("facts: got %d, want 1", len(result.Facts))
	}
	if result.Facts[0].Content != "Valid fact" {
		t.Errorf("Content: got %q", result.Facts[0].Content)
	}
}

func TestExtractSkipsCitationBracketsInProse(t *testing.T) {
	model := &stubModel{response: `Based on the guidance in [1] and [2]:
[{"content": "Likes pizza", "type": "preference", "confidence": 0.9}]`}

	result := NewContentExtractor(model).Extract(context.Background(), samplePayload())

	if result.Degraded {
		t.Fatal("citation brackets before the array must not degrade extraction")
	}
	if len(result.Facts) != 1 {
		t.Fatalf("facts: got %d, want 1", len(result.Facts))
	}
	if result.Facts[0].Content != "Likes pizza" {
		t.Errorf("Content: got %q", result.Facts[0].Content)
	}
}

func TestExtractMissingConfidenceDefaultsToZero(t *testing.T) {
	model := &stubModel{response: `[{"content": "No confidence given", "type": "fact"}]`}

	result := NewContentExtractor(model).Extract(context.Background(), samplePayload())

	if len(result.Facts) != 1 {
		t.Fatalf("facts: got %d, want 1", len(result.Facts))
	}
	if result.Facts[0].Confidence != 0 {
		t.Errorf("Confidence: got %v, want 0", result.Facts[0].Confidence)
	}
}

func TestExtractDegradesOnFailure(t *testing.T) {
	testCases := []struct {
		name  string
		model *stubModel
	}{
		{name: "model error", model: &stubModel{err: errors.New("rate limited")}},
		{name: "no array in response", model: &stubModel{response: "I could not find any facts."}},
		{name: "array is not fact objects", model: &stubModel{response: `["just", "strings", {]`}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := NewContentExtractor(tc.model).Extract(context.Background(), samplePayload())

			if !result.Degraded {
				t.Error("Degraded should be true")
			}
			if len(result.Facts) != 0 {
				t.Errorf("facts: got %d, want 0", len(result.Facts))
			}
		})
	}
}

func TestExtractNamespaceFallbacks(t *testing.T) {
	model := &stubModel{response: `[{"content": "A fact", "type": "fact", "confidence": 1}]`}
	payload := samplePayload()
	payload.ActorID = ""
	payload.SessionID = ""

	result := NewContentExtractor(model).Extract(context.Background(), payload)

	if len(result.Facts) != 1 {
		t.Fatalf("facts: got %d, want 1", len(result.Facts))
	}
	want := "/interests/actor/unknown-actor/session/unknown-session"
	if result.Facts[0].Namespace != want {
		t.Errorf("Namespace: got %q, want %q", result.Facts[0].Namespace, want)
	}
}
