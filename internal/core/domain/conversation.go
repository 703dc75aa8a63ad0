package domain

import "time"

// ChatTurn is one completed user/assistant exchange.
type ChatTurn struct {
	// Question is the user's message.
	Question string

	// Answer is the assistant's reply.
	Answer string
}

// Conversation is the per-session mutable chat state: history plus the
// notice slot written by backend selection. It is the only mutable
// shared state in the query pipeline and must be mutated through its
// owning service, never concurrently.
type Conversation struct {
	// ID is the session identifier.
	ID string

	// TranslateChat selects translated notice text when true.
	TranslateChat bool

	// Notice is the localised selection notice for the latest query.
	// Empty when the default backend answered.
	Notice string

	// History holds completed exchanges, oldest first.
	History []ChatTurn

	// CreatedAt is when the conversation started.
	CreatedAt time.Time

	// UpdatedAt is when the conversation last changed.
	UpdatedAt time.Time
}

// SamplingParams are optional generation parameters forwarded to a
// backend. Zero values are omitted from the wire request.
type SamplingParams struct {
	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64

	// TopP controls nucleus sampling.
	TopP float64

	// TopK bounds sampling to the K most likely tokens.
	TopK int

	// RepeatPenalty discourages repetition.
	RepeatPenalty float64
}

// Answer is the outcome of a full question-answering pipeline run.
type Answer struct {
	// Text is the backend's reply, or empty when no backend qualified.
	Text string

	// Backend names the backend that answered, empty for no_server.
	Backend string

	// Notice is the localised selection notice, empty for NoticeNone.
	Notice string

	// NoticeKind classifies the selection outcome.
	NoticeKind NoticeKind

	// Hits are the retrieved fragments the answer was grounded on.
	Hits []Hit
}
