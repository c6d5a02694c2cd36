package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/timmy/memflow/internal/domain"
	"github.com/timmy/memflow/internal/jsonutil"
	"github.com/timmy/memflow/internal/logger"
	"github.com/timmy/memflow/internal/prompts"
)

// ContentExtractor turns a conversation payload into extracted facts by
// prompting a language model and parsing the JSON array embedded in its
// free-text answer.
//
// Extraction is best-effort: a failed model call or unparseable answer
// degrades to an empty result instead of failing the pipeline.
type ContentExtractor struct {
	model ModelClient
}

// NewContentExtractor creates a content extractor using the given model client.
func NewContentExtractor(model ModelClient) *ContentExtractor {
	return &ContentExtractor{model: model}
}

// rawFact mirrors the array items requested from the model. Pointers
// distinguish absent fields so malformed items can be skipped.
type rawFact struct {
	Content    *string  `json:"content"`
	Type       *string  `json:"type"`
	Confidence *float64 `json:"confidence"`
}

// Extract prompts the model with the rendered conversation and parses the
// returned facts. The returned result's Degraded flag is set when the model
// call or parsing failed; Extract itself never returns those errors.
func (e *ContentExtractor) Extract(ctx context.Context, payload *domain.ConversationPayload) domain.ExtractionResult {
	conversation := buildConversationText(payload)

	raw, err := e.model.Complete(ctx, prompts.ExtractionSystemPrompt, prompts.ExtractionUserPrompt+conversation)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Model call failed, degrading to empty extraction")
		return domain.ExtractionResult{Degraded: true}
	}

	items, ok := findFactArray(ctx, raw)
	if !ok {
		return domain.ExtractionResult{Degraded: true}
	}

	namespace := buildNamespace(payload)

	facts := make([]domain.ExtractedFact, 0, len(items))
	for _, item := range items {
		if item.Content == nil || *item.Content == "" || item.Type == nil {
			logger.CtxWarn(ctx, "Skipping invalid memory item (missing content or type)")
			continue
		}

		category := domain.FactCategory(*item.Type)
		if !domain.ValidCategory(category) {
			logger.CtxWarn(ctx, "Skipping memory item with unknown category %q", *item.Type)
			continue
		}

		confidence := 0.0
		if item.Confidence != nil {
			confidence = *item.Confidence
		}

		facts = append(facts, domain.ExtractedFact{
			Content:    *item.Content,
			Category:   category,
			Confidence: confidence,
			Namespace:  namespace,
		})
	}

	logger.With(logger.Fields{logger.FieldCount: len(facts)}).Info(ctx, "Extracted facts from conversation")

	return domain.ExtractionResult{Facts: facts}
}

// findFactArray scans the model response for a balanced JSON array that
// parses as fact items. Prose before the answer can contain bracket runs of
// its own (citations like "[1]"), so candidates that do not unmarshal are
// skipped and the scan resumes at the next bracket.
func findFactArray(ctx context.Context, raw string) ([]rawFact, bool) {
	for pos := 0; pos < len(raw); {
		arr, end, ok := jsonutil.FirstArrayFrom(raw, pos)
		if !ok {
			break
		}

		var items []rawFact
		if err := json.Unmarshal([]byte(arr), &items); err == nil {
			return items, true
		}
		pos = end
	}

	logger.CtxError(ctx, "Could not find a parseable JSON array in model response")
	return nil, false
}

// buildConversationText renders historical and current turns as role-labeled
// lines, the same transcript shape the extraction prompt documents.
func buildConversationText(payload *domain.ConversationPayload) string {
	var b strings.Builder

	if len(payload.HistoricalContext) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, turn := range payload.HistoricalContext {
			writeTurn(&b, turn)
		}
	}

	if len(payload.CurrentContext) > 0 {
		b.WriteString("\nCurrent conversation:\n")
		for _, turn := range payload.CurrentContext {
			writeTurn(&b, turn)
		}
	}

	return b.String()
}

func writeTurn(b *strings.Builder, turn domain.Turn) {
	if turn.Role == "" || turn.Content.Text == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", turn.Role, turn.Content.Text)
}

// buildNamespace scopes facts to the payload's actor and session.
func buildNamespace(payload *domain.ConversationPayload) string {
	actorID := payload.ActorID
	if actorID == "" {
		actorID = "unknown-actor"
	}
	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = "unknown-session"
	}
	return fmt.Sprintf("/interests/actor/%s/session/%s", actorID, sessionID)
}
