package domain

import "encoding/json"

// TurnContent holds the textual content of a conversation turn.
type TurnContent struct {
	Text string `json:"text"`
}

// Turn is a single conversational message with a role label.
type Turn struct {
	Role    string      `json:"role"`
	Content TurnContent `json:"content"`
}

// ConversationPayload is the conversation transcript fetched from object
// storage for a job. HistoricalContext holds prior turns, CurrentContext the
// turns of the session that triggered extraction.
//
// EndingTimestamp is kept raw: upstream writers emit it as seconds,
// milliseconds, or occasionally garbage, and normalization is the ingestor's
// concern.
type ConversationPayload struct {
	HistoricalContext []Turn          `json:"historicalContext"`
	CurrentContext    []Turn          `json:"currentContext"`
	SessionID         string          `json:"sessionId"`
	ActorID           string          `json:"actorId"`
	EndingTimestamp   json.RawMessage `json:"endingTimestamp,omitempty"`
}
